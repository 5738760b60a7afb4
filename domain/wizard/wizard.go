// Package wizard implements the per-session six-step analysis pipeline.
//
// A Wizard admits one handler at a time. Handlers call the analytics backend
// without holding the state lock and apply their changes only when the call
// succeeds, so a failed or canceled handler leaves the previous state intact.
package wizard

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"datapilot/domain/analysis"
	"datapilot/domain/catalog"
	"datapilot/domain/core"
	"datapilot/internal/errors"
	"datapilot/ports"

	"golang.org/x/sync/semaphore"
)

// MaxUploadSize is the largest file the upload step accepts
const MaxUploadSize = 50 * 1024 * 1024

var allowedExtensions = []string{".csv", ".xlsx", ".xls"}

// Wizard owns one session's analysis state for a single role
type Wizard struct {
	role     catalog.Role
	backend  ports.AnalyticsBackend
	exporter ports.ArtifactExporter
	clock    core.Clock

	gate  *semaphore.Weighted
	mu    sync.RWMutex
	state State
}

// Option customizes a Wizard
type Option func(*Wizard)

// WithClock overrides the clock used for insight and failure timestamps
func WithClock(clock core.Clock) Option {
	return func(w *Wizard) { w.clock = clock }
}

// New creates a wizard at step 1 for role
func New(role catalog.Role, backend ports.AnalyticsBackend, exporter ports.ArtifactExporter, opts ...Option) *Wizard {
	w := &Wizard{
		role:     role,
		backend:  backend,
		exporter: exporter,
		clock:    core.SystemClock{},
		gate:     semaphore.NewWeighted(1),
		state:    newState(role.ID),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Role returns the role the wizard was created for
func (w *Wizard) Role() catalog.Role {
	return w.role
}

// Snapshot returns a copy of the current state
func (w *Wizard) Snapshot() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.clone()
}

// UploadFile sends the file to the backend and replaces the session dataset
// with the returned preview. Derived results of a previous dataset are cleared.
func (w *Wizard) UploadFile(ctx context.Context, file analysis.Upload) (analysis.Dataset, error) {
	var result analysis.Dataset
	err := w.run(ctx, StepUpload, func(ctx context.Context) (func(*State), error) {
		if err := validateUpload(file.FileHandle); err != nil {
			return nil, err
		}

		ds, err := w.backend.Upload(ctx, w.role.ID, file)
		if err != nil {
			return nil, err
		}
		if ds == nil || len(ds.Rows) == 0 {
			return nil, errors.InvalidInput("the uploaded file produced no preview rows")
		}

		columns := append([]string(nil), ds.Columns...)
		if len(columns) == 0 {
			columns = analysis.ColumnsOf(ds.Rows[0])
		}
		result = analysis.Dataset{ID: ds.ID, Columns: columns, Rows: analysis.CloneRows(ds.Rows), RowCount: ds.RowCount}
		handle := file.FileHandle

		return func(s *State) {
			s.File = &handle
			s.Preview = analysis.CloneRows(ds.Rows)
			s.Columns = append([]string(nil), columns...)
			s.Cleaned = nil
			s.Charts = nil
			s.CompletedTasks = nil
			s.Insights = nil
			s.CurrentStep = StepClean
			s.Completed = []Step{StepUpload}
		}, nil
	})
	return result, err
}

// RequestPreview moves the wizard to the preview/clean step
func (w *Wizard) RequestPreview(ctx context.Context) ([]analysis.Row, error) {
	var rows []analysis.Row
	err := w.run(ctx, StepClean, func(ctx context.Context) (func(*State), error) {
		snap := w.Snapshot()
		if !snap.HasDataset() {
			return nil, errors.WithCode(errors.CodeInvalidInput, core.ErrNoDataset)
		}
		rows = snap.Preview
		return func(s *State) {
			s.advance(StepClean)
			s.markCompleted(StepClean)
		}, nil
	})
	return rows, err
}

// RunCleaningAction applies a cleaning operation to the preview rows
func (w *Wizard) RunCleaningAction(ctx context.Context, actionID string) ([]analysis.Row, error) {
	var cleaned []analysis.Row
	err := w.run(ctx, StepRoleTasks, func(ctx context.Context) (func(*State), error) {
		if _, ok := catalog.FindCleaningAction(actionID); !ok {
			return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("%w: %q", core.ErrUnknownAction, actionID))
		}
		snap := w.Snapshot()
		if !snap.HasDataset() {
			return nil, errors.WithCode(errors.CodeInvalidInput, core.ErrNoDataset)
		}

		rows, err := w.backend.Clean(ctx, w.role.ID, actionID, snap.Preview)
		if err != nil {
			return nil, err
		}
		cleaned = analysis.CloneRows(rows)

		return func(s *State) {
			s.Cleaned = analysis.CloneRows(rows)
			s.advance(StepRoleTasks)
			s.markCompleted(StepRoleTasks)
		}, nil
	})
	return cleaned, err
}

// RunTask runs one analysis task and records the chart it produces
func (w *Wizard) RunTask(ctx context.Context, taskID core.TaskID) (analysis.Chart, error) {
	var chart analysis.Chart
	err := w.run(ctx, StepVisualize, func(ctx context.Context) (func(*State), error) {
		if strings.TrimSpace(string(taskID)) == "" {
			return nil, errors.InvalidInput("task id is required")
		}
		snap := w.Snapshot()
		if !snap.HasDataset() {
			return nil, errors.WithCode(errors.CodeInvalidInput, core.ErrNoDataset)
		}

		payload := analysis.TaskPayload{Columns: snap.Columns, Data: snap.Preview}
		c, err := w.backend.Analyze(ctx, w.role.ID, taskID, payload)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, errors.ExternalServiceError("analytics", fmt.Errorf("task %s returned no chart", taskID))
		}
		chart = normalizeChart(*c, taskID)

		return func(s *State) {
			replaced := false
			for i := range s.Charts {
				if s.Charts[i].ID == chart.ID {
					s.Charts[i] = chart.Clone()
					replaced = true
					break
				}
			}
			if !replaced {
				s.Charts = append(s.Charts, chart.Clone())
			}
			if !s.TaskCompleted(taskID) {
				s.CompletedTasks = append(s.CompletedTasks, taskID)
			}
			s.advance(StepVisualize)
			s.markCompleted(StepVisualize)
		}, nil
	})
	return chart, err
}

// AskQuestion queries the AI insight backend and appends the answer to the log
func (w *Wizard) AskQuestion(ctx context.Context, question string) (analysis.Insight, error) {
	asked := w.clock.Now()
	var insight analysis.Insight
	err := w.run(ctx, StepInsights, func(ctx context.Context) (func(*State), error) {
		if strings.TrimSpace(question) == "" {
			return nil, errors.WithCode(errors.CodeInvalidInput, core.ErrEmptyQuestion)
		}
		if !w.Snapshot().HasDataset() {
			return nil, errors.WithCode(errors.CodeInvalidInput, core.ErrNoDataset)
		}

		response, err := w.backend.Insight(ctx, w.role.ID, question)
		if err != nil {
			return nil, err
		}
		insight = analysis.Insight{Question: question, Response: response, CreatedAt: asked}

		return func(s *State) {
			s.Insights = append(s.Insights, insight)
			s.advance(StepInsights)
			s.markCompleted(StepInsights)
		}, nil
	})
	return insight, err
}

// DownloadArtifact builds "<kind>.<format>" in memory and hands it to saver
// exactly once. It does not call the backend.
func (w *Wizard) DownloadArtifact(ctx context.Context, kind, format string, saver ports.FileSaver) (analysis.Artifact, error) {
	var artifact analysis.Artifact
	err := w.run(ctx, StepDownload, func(ctx context.Context) (func(*State), error) {
		kind, format = strings.TrimSpace(kind), strings.ToLower(strings.TrimSpace(format))
		if err := validateArtifactName(kind, format); err != nil {
			return nil, err
		}

		snap := w.Snapshot()
		built, err := w.exporter.Export(analysis.Bundle{
			RoleID:   w.role.ID,
			RoleName: w.role.Name,
			Columns:  snap.Columns,
			Preview:  snap.Preview,
			Cleaned:  snap.Cleaned,
			Charts:   snap.Charts,
			Insights: snap.Insights,
		}, kind, format)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build %s.%s", kind, format)
		}
		built.Name = kind + "." + format

		if err := saver.Save(ctx, *built); err != nil {
			return nil, errors.Wrapf(err, "failed to save %s", built.Name)
		}
		artifact = *built

		hasDataset := snap.HasDataset()
		return func(s *State) {
			if hasDataset {
				s.advance(StepDownload)
				s.markCompleted(StepDownload)
			}
		}, nil
	})
	return artifact, err
}

// run admits one handler at a time, marks the wizard Running(step) and
// applies the handler's mutation only on success.
func (w *Wizard) run(ctx context.Context, step Step, op func(context.Context) (func(*State), error)) error {
	if !w.gate.TryAcquire(1) {
		current := w.Snapshot().Status
		log.Printf("[Wizard] %s rejected: busy with %s (role=%s)", step, current.Step, w.role.ID)
		return errors.Busy(fmt.Sprintf("another action (%s) is still running", current.Step.Label()))
	}
	defer w.gate.Release(1)

	w.mu.Lock()
	w.state.Status = Running(step)
	w.mu.Unlock()

	apply, err := op(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	err = classify(err)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Status = Idle()
	if err != nil {
		w.state.LastFailure = &Failure{
			Step:    step,
			Code:    errors.GetCode(err),
			Message: err.Error(),
			At:      w.clock.Now(),
		}
		log.Printf("[Wizard] %s failed (role=%s, code=%s): %v", step, w.role.ID, errors.GetCode(err), err)
		return err
	}
	if apply != nil {
		apply(&w.state)
	}
	w.state.LastFailure = nil
	return nil
}

// classify gives every handler error an AppError code
func classify(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		if errors.HasCode(err, errors.CodeCanceled) {
			return err
		}
		return errors.Canceled(err)
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.ExternalServiceError("analytics", err)
}

func normalizeChart(c analysis.Chart, taskID core.TaskID) analysis.Chart {
	out := c.Clone()
	if out.ID == "" {
		out.ID = string(taskID)
	}
	if out.Title == "" {
		out.Title = fmt.Sprintf("%s Analysis", taskID)
	}
	if !out.Kind.Valid() {
		out.Kind = analysis.ChartBar
	}
	return out
}

func validateUpload(f analysis.FileHandle) error {
	if strings.TrimSpace(f.Name) == "" {
		return errors.InvalidInput("no file selected")
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	valid := false
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			valid = true
			break
		}
	}
	if !valid {
		return errors.InvalidInput("only Excel (.xlsx, .xls) and CSV (.csv) files are allowed")
	}
	if f.Size > MaxUploadSize {
		return errors.InvalidInput(fmt.Sprintf("file size (%.1f MB) exceeds the 50MB limit", float64(f.Size)/(1024*1024)))
	}
	return nil
}

func validateArtifactName(kind, format string) error {
	if kind == "" || format == "" {
		return errors.InvalidInput("download kind and format are required")
	}
	if strings.ContainsAny(kind, `/\`) || strings.HasPrefix(kind, ".") || strings.ContainsAny(format, `/\.`) {
		return errors.InvalidInput(fmt.Sprintf("invalid download name %q", kind+"."+format))
	}
	return nil
}
