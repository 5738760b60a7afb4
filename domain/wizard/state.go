package wizard

import (
	"fmt"

	"datapilot/domain/analysis"
	"datapilot/domain/core"
)

// Step is one of the six linear stages of the analysis flow
type Step int

const (
	StepUpload Step = iota + 1
	StepClean
	StepRoleTasks
	StepVisualize
	StepInsights
	StepDownload
)

// Steps lists every step in pipeline order
var Steps = []Step{StepUpload, StepClean, StepRoleTasks, StepVisualize, StepInsights, StepDownload}

// Valid reports whether s is within 1..6
func (s Step) Valid() bool {
	return s >= StepUpload && s <= StepDownload
}

// Label is the human name shown in the pipeline bar
func (s Step) Label() string {
	switch s {
	case StepUpload:
		return "Upload"
	case StepClean:
		return "Clean"
	case StepRoleTasks:
		return "Role Tasks"
	case StepVisualize:
		return "Visualize"
	case StepInsights:
		return "AI Insights"
	case StepDownload:
		return "Download"
	default:
		return fmt.Sprintf("Step %d", int(s))
	}
}

func (s Step) String() string {
	return fmt.Sprintf("%d:%s", int(s), s.Label())
}

// Phase is the processing mode of a wizard
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
)

// Status is Idle or Running(step)
type Status struct {
	Phase Phase `json:"phase"`
	Step  Step  `json:"step,omitempty"`
}

// Idle is the resting status
func Idle() Status { return Status{Phase: PhaseIdle} }

// Running marks a handler in flight for step
func Running(step Step) Status { return Status{Phase: PhaseRunning, Step: step} }

// IsRunning reports whether a handler is in flight
func (s Status) IsRunning() bool { return s.Phase == PhaseRunning }

// RunningStep reports whether a handler for step is in flight
func (s Status) RunningStep(step Step) bool { return s.IsRunning() && s.Step == step }

// Failure records the last handler error for the view
type Failure struct {
	Step    Step           `json:"step"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	At      core.Timestamp `json:"at"`
}

// State is the per-session wizard state. Values handed out by Snapshot are
// copies; the wizard never shares its slices.
type State struct {
	RoleID         core.RoleID          `json:"role_id"`
	CurrentStep    Step                 `json:"current_step"`
	Completed      []Step               `json:"completed_steps"`
	File           *analysis.FileHandle `json:"uploaded_file,omitempty"`
	Preview        []analysis.Row       `json:"preview"`
	Columns        []string             `json:"columns"`
	Cleaned        []analysis.Row       `json:"cleaned"`
	Charts         []analysis.Chart     `json:"charts"`
	Insights       []analysis.Insight   `json:"insights"`
	CompletedTasks []core.TaskID        `json:"completed_tasks"`
	Status         Status               `json:"status"`
	LastFailure    *Failure             `json:"last_failure,omitempty"`
}

func newState(role core.RoleID) State {
	return State{
		RoleID:      role,
		CurrentStep: StepUpload,
		Status:      Idle(),
	}
}

// IsCompleted reports whether step is in the completed set
func (s State) IsCompleted(step Step) bool {
	for _, c := range s.Completed {
		if c == step {
			return true
		}
	}
	return false
}

// HasDataset reports whether an upload has succeeded
func (s State) HasDataset() bool {
	return s.File != nil
}

// Processing mirrors the legacy boolean flag
func (s State) Processing() bool {
	return s.Status.IsRunning()
}

// TaskCompleted reports whether the task has produced a chart
func (s State) TaskCompleted(id core.TaskID) bool {
	for _, t := range s.CompletedTasks {
		if t == id {
			return true
		}
	}
	return false
}

// Chart finds a chart by id
func (s State) Chart(id string) (analysis.Chart, bool) {
	for _, c := range s.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return analysis.Chart{}, false
}

func (s *State) markCompleted(step Step) {
	if !s.IsCompleted(step) {
		s.Completed = append(s.Completed, step)
	}
}

// advance moves the pointer forward only
func (s *State) advance(step Step) {
	if step > s.CurrentStep {
		s.CurrentStep = step
	}
}

func (s State) clone() State {
	out := s
	out.Completed = append([]Step(nil), s.Completed...)
	if s.File != nil {
		f := *s.File
		out.File = &f
	}
	out.Preview = analysis.CloneRows(s.Preview)
	out.Columns = append([]string(nil), s.Columns...)
	out.Cleaned = analysis.CloneRows(s.Cleaned)
	if s.Charts != nil {
		out.Charts = make([]analysis.Chart, len(s.Charts))
		for i, c := range s.Charts {
			out.Charts[i] = c.Clone()
		}
	}
	out.Insights = append([]analysis.Insight(nil), s.Insights...)
	out.CompletedTasks = append([]core.TaskID(nil), s.CompletedTasks...)
	if s.LastFailure != nil {
		f := *s.LastFailure
		out.LastFailure = &f
	}
	return out
}
