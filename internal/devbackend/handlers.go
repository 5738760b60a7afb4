package devbackend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"datapilot/adapters/db"
	"datapilot/adapters/excel"
	"datapilot/adapters/export"
	"datapilot/ai"
	"datapilot/domain/analysis"
	"datapilot/domain/catalog"
	"datapilot/domain/core"
	"datapilot/internal/dataops"

	"github.com/go-chi/chi/v5"
)

type datasetResponse struct {
	DatasetID core.DatasetID `json:"dataset_id"`
	Columns   []string       `json:"columns"`
	Preview   []analysis.Row `json:"preview"`
	RowCount  int            `json:"row_count"`
}

type cleanRequest struct {
	Operation string         `json:"operation"`
	Data      []analysis.Row `json:"data"`
}

type insightRequest struct {
	Question string `json:"question"`
}

// role resolves the {role} parameter; unknown roles get a 404
func (s *Server) role(w http.ResponseWriter, r *http.Request) (catalog.Role, bool) {
	id := core.RoleID(chi.URLParam(r, "role"))
	role, ok := catalog.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown role %q", id))
	}
	return role, ok
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	role, ok := s.role(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}
	digest := core.NewHash(raw)

	parsed, err := excel.NewDataReader(header.Filename).ReadData(bytes.NewReader(raw))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	stored := &db.StoredDataset{
		ID:       core.NewDatasetID(),
		RoleID:   role.ID,
		FileName: header.Filename,
		Columns:  parsed.Columns,
		Rows:     parsed.Rows,
	}
	if err := s.store.SaveDataset(r.Context(), stored); err != nil {
		log.Printf("[DevBackend] upload %s: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, "failed to store dataset")
		return
	}

	log.Printf("[DevBackend] stored %s for %s (%d rows, sha256 %s)", header.Filename, role.ID, len(parsed.Rows), digest.Short())
	writeJSON(w, http.StatusOK, datasetResponse{
		DatasetID: stored.ID,
		Columns:   parsed.Columns,
		Preview:   analysis.Head(parsed.Rows, previewRows),
		RowCount:  len(parsed.Rows),
	})
}

// handleClean cleans the posted rows and, when the role has a stored
// dataset, records the cleaned full dataset for reports
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	role, ok := s.role(w, r)
	if !ok {
		return
	}
	var req cleanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, known := catalog.FindCleaningAction(req.Operation); !known {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown operation %q", req.Operation))
		return
	}

	var columns []string
	stored, err := s.store.LatestForRole(r.Context(), role.ID)
	if err == nil {
		columns = stored.Columns
	}

	res, err := dataops.Clean(req.Operation, columns, req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if stored != nil {
		full, err := dataops.Clean(req.Operation, stored.Columns, stored.Rows)
		if err == nil {
			if err := s.store.SaveCleaned(r.Context(), stored.ID, full.Columns, full.Rows); err != nil {
				log.Printf("[DevBackend] save cleaned %s: %v", stored.ID, err)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"operation": req.Operation,
		"columns":   res.Columns,
		"cleaned":   res.Rows,
	})
}

// handleAnalyze charts the role's stored dataset, or the posted rows when
// nothing was uploaded
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	role, ok := s.role(w, r)
	if !ok {
		return
	}
	task := core.TaskID(chi.URLParam(r, "task"))

	var payload analysis.TaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	columns, rows := payload.Columns, payload.Data
	if stored, err := s.store.LatestForRole(r.Context(), role.ID); err == nil {
		columns, rows = stored.Current()
	}

	chart, err := dataops.Analyze(task, columns, rows)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.store.SaveChart(r.Context(), role.ID, *chart); err != nil {
		log.Printf("[DevBackend] save chart %s: %v", chart.ID, err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chart": chart})
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	role, ok := s.role(w, r)
	if !ok {
		return
	}
	var req insightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question cannot be empty")
		return
	}

	data := ai.DatasetContext{}
	if stored, err := s.store.LatestForRole(r.Context(), role.ID); err == nil {
		data.Columns, data.Rows = stored.Current()
		data.Profiles = profileSummaries(data.Columns, data.Rows)
	}

	if s.insights != nil {
		answer, err := s.insights.Answer(r.Context(), role.Name, req.Question, data)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]string{"response": answer})
			return
		}
		log.Printf("[DevBackend] insight model failed, using template: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": ai.TemplatedAnswer(role.Name, req.Question, data)})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	role, ok := s.role(w, r)
	if !ok {
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "xlsx"
	}

	stored, err := s.store.LatestForRole(r.Context(), role.ID)
	if err != nil {
		if core.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "no dataset uploaded for "+string(role.ID))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load dataset")
		return
	}

	artifact, err := s.exporter.Export(analysis.Bundle{
		RoleID:   role.ID,
		RoleName: role.Name,
		Columns:  stored.Columns,
		Preview:  stored.Rows,
		Cleaned:  stored.CleanedRows,
	}, export.KindReport, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAttachment(w, artifact)
}

func (s *Server) handleDownloadChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chartId")
	chart, err := s.store.GetChart(r.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "chart not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load chart")
		return
	}

	data, err := json.MarshalIndent(chart, "", "  ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAttachment(w, &analysis.Artifact{Name: id + ".json", ContentType: export.ContentTypeJSON, Data: data})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	role, ok := s.role(w, r)
	if !ok {
		return
	}
	stored, err := s.store.LatestForRole(r.Context(), role.ID)
	if err != nil {
		if core.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "no dataset uploaded for "+string(role.ID))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load dataset")
		return
	}
	writeJSON(w, http.StatusOK, datasetResponse{
		DatasetID: stored.ID,
		Columns:   stored.Columns,
		Preview:   analysis.Head(stored.Rows, previewRows),
		RowCount:  len(stored.Rows),
	})
}

func profileSummaries(columns []string, rows []analysis.Row) []string {
	var out []string
	for _, col := range dataops.NumericColumns(columns, rows) {
		p, err := dataops.ProfileColumn(col, dataops.Values(col, rows))
		if err != nil {
			continue
		}
		out = append(out, fmt.Sprintf("%s: mean %.2f, median %.2f, range %.2f to %.2f, %d outliers",
			col, p.Mean, p.Median, p.Min, p.Max, p.Outliers))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[DevBackend] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeAttachment(w http.ResponseWriter, a *analysis.Artifact) {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}
