// Package fragments provides template path constants for organized template management
package fragments

import "strings"

// Template path constants for organized fragment access
const (
	// Page templates
	Landing   = "landing.html"
	Dashboard = "dashboard.html"
	Analyze   = "analyze.html"
	NotFound  = "not_found.html"

	// Wizard fragments
	WizardPanel   = "fragments/wizard_panel.html"
	PipelineSteps = "fragments/pipeline_steps.html"
	FileUpload    = "fragments/file_upload.html"
	DataCleaning  = "fragments/data_cleaning.html"
	RoleTasks     = "fragments/role_tasks.html"
	Charts        = "fragments/charts.html"
	Insights      = "fragments/insights.html"
	Download      = "fragments/download.html"
	FailureBanner = "fragments/failure_banner.html"

	// Shared fragments
	RoleCard = "fragments/role_card.html"
)

// GetTemplatePath returns the full template path for a given fragment name
func GetTemplatePath(fragmentName string) string {
	if strings.HasSuffix(fragmentName, ".html") {
		return fragmentName
	}
	return "fragments/" + fragmentName + ".html"
}

// IsFragment reports whether the path names a partial rather than a full page
func IsFragment(path string) bool {
	return strings.HasPrefix(path, "fragments/")
}
