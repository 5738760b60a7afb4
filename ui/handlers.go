package ui

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"datapilot/adapters/api"
	"datapilot/domain/analysis"
	"datapilot/domain/catalog"
	"datapilot/domain/core"
	"datapilot/domain/wizard"
	"datapilot/internal/errors"
	"datapilot/ui/middleware"
	"datapilot/ui/templates/fragments"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleLanding(c *gin.Context) {
	s.renderTemplate(c, http.StatusOK, fragments.Landing, pageData{Title: "Transform Data into Actionable Insights"})
}

func (s *Server) handleDashboard(c *gin.Context) {
	s.renderTemplate(c, http.StatusOK, fragments.Dashboard, pageData{Title: "Choose your analysis role", Roles: catalog.Roles()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}

func (s *Server) handleNotFound(c *gin.Context) {
	s.renderTemplate(c, http.StatusNotFound, fragments.NotFound, pageData{Title: "Page not found"})
}

// wizardFor resolves the role parameter and the session's wizard. Unknown
// roles redirect to the dashboard without creating any session state.
func (s *Server) wizardFor(c *gin.Context) (*wizard.Wizard, bool) {
	roleID := core.RoleID(c.Param("roleId"))
	role, ok := catalog.Lookup(roleID)
	if !ok {
		log.Printf("[Analyze] Unknown role %q, redirecting to dashboard", roleID)
		if wantsJSON(c) {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": errors.CodeNotFound, "message": "role " + string(roleID) + " not found"}})
		} else {
			c.Redirect(http.StatusFound, "/dashboard")
		}
		c.Abort()
		return nil, false
	}
	return s.sessions.WizardFor(middleware.SessionID(c), role), true
}

// actionContext carries the request's cancellation and the auth token to the backend
func actionContext(c *gin.Context) context.Context {
	return api.WithToken(c.Request.Context(), middleware.AuthToken(c))
}

func (s *Server) handleAnalyze(c *gin.Context) {
	w, ok := s.wizardFor(c)
	if !ok {
		return
	}
	view := s.buildWizardView(w.Role(), w.Snapshot(), nil)
	s.renderTemplate(c, http.StatusOK, fragments.Analyze, pageData{Title: w.Role().Name, Wizard: view})
}

func (s *Server) handlePanel(c *gin.Context) {
	w, ok := s.wizardFor(c)
	if !ok {
		return
	}
	s.renderFragment(c, fragments.WizardPanel, s.buildWizardView(w.Role(), w.Snapshot(), nil))
}

func (s *Server) handleUpload(c *gin.Context) {
	w, ok := s.wizardFor(c)
	if !ok {
		return
	}

	if c.Request.ContentLength > s.uploadLimit {
		s.respond(c, w, nil, uploadTooLarge())
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.uploadLimit)

	upload := analysis.Upload{}
	file, header, err := c.Request.FormFile("file")
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		s.respond(c, w, nil, uploadTooLarge())
		return
	}
	if err != nil {
		log.Printf("[Upload] No file in request: %v", err)
	} else {
		defer file.Close()
		upload.FileHandle = analysis.FileHandle{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
		}
		upload.Body = file
	}

	ds, err := w.UploadFile(actionContext(c), upload)
	s.respond(c, w, ds, err)
}

func uploadTooLarge() error {
	return errors.InvalidInput(fmt.Sprintf("file exceeds the %d MB upload limit", wizard.MaxUploadSize>>20))
}

func (s *Server) handlePreview(c *gin.Context) {
	w, ok := s.wizardFor(c)
	if !ok {
		return
	}
	rows, err := w.RequestPreview(actionContext(c))
	s.respond(c, w, rows, err)
}

func (s *Server) handleClean(c *gin.Context) {
	w, ok := s.wizardFor(c)
	if !ok {
		return
	}
	rows, err := w.RunCleaningAction(actionContext(c), c.PostForm("action"))
	s.respond(c, w, rows, err)
}

func (s *Server) handleRunTask(c *gin.Context) {
	w, ok := s.wizardFor(c)
	if !ok {
		return
	}
	taskID, err := core.ParseTaskID(c.Param("taskId"))
	if err != nil {
		s.respond(c, w, nil, errors.InvalidInput(err.Error()))
		return
	}
	chart, err := w.RunTask(actionContext(c), taskID)
	s.respond(c, w, chart, err)
}

func (s *Server) handleAskQuestion(c *gin.Context) {
	w, ok := s.wizardFor(c)
	if !ok {
		return
	}
	insight, err := w.AskQuestion(actionContext(c), c.PostForm("question"))
	s.respond(c, w, insight, err)
}

func (s *Server) handleDownload(c *gin.Context) {
	w, ok := s.wizardFor(c)
	if !ok {
		return
	}
	saver := &responseSaver{c: c}
	_, err := w.DownloadArtifact(actionContext(c), c.Query("kind"), c.Query("format"), saver)
	if err == nil {
		return
	}
	if saver.written {
		log.Printf("[Download] Failed after the file was sent: %v", err)
		return
	}
	s.respond(c, w, nil, err)
}

// respond answers a wizard action: htmx gets the refreshed panel, JSON
// clients get the result and state, plain form posts are redirected back
func (s *Server) respond(c *gin.Context, w *wizard.Wizard, result interface{}, err error) {
	if err != nil {
		log.Printf("[Analyze] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	switch {
	case wantsJSON(c):
		if err != nil {
			c.JSON(statusFor(err), gin.H{
				"error": gin.H{"code": errorCode(err), "message": err.Error()},
				"state": w.Snapshot(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result, "state": w.Snapshot()})
	case isHTMX(c):
		// htmx only swaps 2xx responses; the failure is shown in the panel
		s.renderFragment(c, fragments.WizardPanel, s.buildWizardView(w.Role(), w.Snapshot(), err))
	default:
		c.Redirect(http.StatusSeeOther, basePath(w.Role().ID))
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

func errorCode(err error) string {
	if errors.IsAppError(err) {
		return errors.GetCode(err)
	}
	return errors.CodeInternalError
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput, errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeBusy:
		return http.StatusConflict
	case errors.CodeCanceled:
		return http.StatusRequestTimeout
	case errors.CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
