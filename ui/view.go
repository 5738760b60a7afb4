package ui

import (
	"html/template"
	"net/url"

	"datapilot/adapters/export"
	"datapilot/domain/analysis"
	"datapilot/domain/catalog"
	"datapilot/domain/core"
	"datapilot/domain/wizard"
	"datapilot/ui/services"
)

type stepView struct {
	Number    int
	Label     string
	Current   bool
	Completed bool
	Running   bool
}

type taskView struct {
	catalog.Task
	Completed bool
	Running   bool
}

type chartView struct {
	analysis.Chart
	SVG       template.HTML
	Downloads []downloadOption
}

type insightView struct {
	Question string
	Answer   template.HTML
	AskedAt  string
}

type downloadOption struct {
	Label string
	URL   string
}

// wizardView is everything the wizard panel renders. It is built from a
// snapshot, so rendering never touches live wizard state.
type wizardView struct {
	Role            catalog.Role
	BasePath        string
	State           wizard.State
	Steps           []stepView
	Preview         services.Table
	ShowPreview     bool
	Cleaned         services.Table
	CleaningActions []catalog.CleaningAction
	Tasks           []taskView
	Charts          []chartView
	Insights        []insightView
	Downloads       []downloadOption
	Running         bool
	RunningLabel    string
	Error           string
	ErrorCode       string
}

type pageData struct {
	Title  string
	Roles  []catalog.Role
	Wizard *wizardView
}

var reportDownloads = []struct{ label, kind, format string }{
	{"Full report (Excel)", export.KindReport, "xlsx"},
	{"Full report (JSON)", export.KindReport, "json"},
	{"Full report (CSV)", export.KindReport, "csv"},
	{"Cleaned data (CSV)", export.KindCleaned, "csv"},
	{"Cleaned data (Excel)", export.KindCleaned, "xlsx"},
	{"AI insights (JSON)", export.KindInsights, "json"},
}

func downloadURL(base, kind, format string) string {
	q := url.Values{}
	q.Set("kind", kind)
	q.Set("format", format)
	return base + "/download?" + q.Encode()
}

func basePath(role core.RoleID) string {
	return "/analyze/" + url.PathEscape(string(role))
}

func (s *Server) buildWizardView(role catalog.Role, state wizard.State, actionErr error) *wizardView {
	base := basePath(role.ID)
	view := &wizardView{
		Role:            role,
		BasePath:        base,
		State:           state,
		Preview:         s.data.Table(state.Columns, state.Preview),
		Cleaned:         s.data.Table(state.Columns, state.Cleaned),
		CleaningActions: catalog.CleaningActions(),
		ShowPreview:     state.IsCompleted(wizard.StepClean),
		Running:         state.Status.IsRunning(),
	}
	if view.Running {
		view.RunningLabel = state.Status.Step.Label()
	}
	if actionErr != nil {
		view.Error = actionErr.Error()
		view.ErrorCode = errorCode(actionErr)
	}

	for _, step := range wizard.Steps {
		view.Steps = append(view.Steps, stepView{
			Number:    int(step),
			Label:     step.Label(),
			Current:   state.CurrentStep == step,
			Completed: state.IsCompleted(step),
			Running:   state.Status.RunningStep(step),
		})
	}

	for _, task := range catalog.TasksFor(role.ID) {
		view.Tasks = append(view.Tasks, taskView{
			Task:      task,
			Completed: state.TaskCompleted(task.ID),
			Running:   state.Status.RunningStep(wizard.StepVisualize),
		})
	}

	for _, chart := range state.Charts {
		view.Charts = append(view.Charts, chartView{
			Chart: chart,
			SVG:   services.ChartSVG(chart),
			Downloads: []downloadOption{
				{Label: "CSV", URL: downloadURL(base, chart.ID, "csv")},
				{Label: "JSON", URL: downloadURL(base, chart.ID, "json")},
			},
		})
	}

	for _, insight := range state.Insights {
		view.Insights = append(view.Insights, insightView{
			Question: insight.Question,
			Answer:   services.Markdown(insight.Response),
			AskedAt:  insight.CreatedAt.Time().Format("15:04:05"),
		})
	}

	for _, d := range reportDownloads {
		view.Downloads = append(view.Downloads, downloadOption{Label: d.label, URL: downloadURL(base, d.kind, d.format)})
	}
	return view
}
