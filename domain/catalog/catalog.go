// Package catalog holds the static role, task and cleaning action definitions.
package catalog

import (
	"datapilot/domain/core"
)

// GeneralRoleID is the fallback role whose tasks serve any role without its own list
const GeneralRoleID core.RoleID = "general"

// Task is one selectable analysis operation scoped to a role
type Task struct {
	ID          core.TaskID `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Glyph       string      `json:"icon"`
}

// Role is an analytics persona with a fixed task list
type Role struct {
	ID          core.RoleID `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        Icon        `json:"icon"`
	Color       Color       `json:"color"`
	Tasks       []Task      `json:"tasks"`
}

// CleaningAction is one of the transformations offered in the cleaning step
type CleaningAction struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        Icon   `json:"icon"`
}

var roles = []Role{
	{
		ID:          "business-analyst",
		Name:        "Business Analyst",
		Description: "KPIs, segmentation and sales trends for business decisions",
		Icon:        IconBriefcase,
		Color:       ColorIndigo,
		Tasks: []Task{
			{ID: "kpi-dashboard", Name: "KPI Dashboard", Description: "Generate key performance indicators", Glyph: "📊"},
			{ID: "customer-segmentation", Name: "Customer Segmentation", Description: "KMeans clustering analysis", Glyph: "👥"},
			{ID: "sales-trend", Name: "Sales Trend Analysis", Description: "Time series trend analysis", Glyph: "📈"},
			{ID: "anomaly-detection", Name: "Anomaly Detection", Description: "Identify unusual patterns", Glyph: "🚨"},
		},
	},
	{
		ID:          "research-eda",
		Name:        "Research & EDA",
		Description: "Exploratory analysis, correlations and statistical tests",
		Icon:        IconMicroscope,
		Color:       ColorEmerald,
		Tasks: []Task{
			{ID: "correlation-matrix", Name: "Correlation Matrix", Description: "Variable correlation analysis", Glyph: "🔗"},
			{ID: "summary-stats", Name: "Summary Statistics", Description: "Descriptive statistics overview", Glyph: "📋"},
			{ID: "outlier-detection", Name: "Outlier Detection", Description: "Identify data outliers", Glyph: "🎯"},
			{ID: "hypothesis-testing", Name: "Hypothesis Testing", Description: "Statistical significance tests", Glyph: "🧪"},
		},
	},
	{
		ID:          "marketing",
		Name:        "Marketing Analyst",
		Description: "Campaign ROI, RFM scoring and engagement funnels",
		Icon:        IconMegaphone,
		Color:       ColorPink,
		Tasks: []Task{
			{ID: "roi-analysis", Name: "ROI Analysis", Description: "Return on investment metrics", Glyph: "💰"},
			{ID: "rfm-analysis", Name: "RFM Analysis", Description: "Recency, Frequency, Monetary analysis", Glyph: "🎯"},
			{ID: "engagement-funnel", Name: "Engagement Funnel", Description: "Customer journey analysis", Glyph: "🔄"},
			{ID: "persona-clusters", Name: "Persona Clusters", Description: "Customer persona identification", Glyph: "👤"},
		},
	},
	{
		ID:          "finance",
		Name:        "Finance Analyst",
		Description: "Forecasts, risk and investment metrics",
		Icon:        IconDollarSign,
		Color:       ColorAmber,
		Tasks: []Task{
			{ID: "forecasting", Name: "Financial Forecasting", Description: "Prophet-based predictions", Glyph: "🔮"},
			{ID: "risk-heatmap", Name: "Risk Heatmap", Description: "Risk assessment visualization", Glyph: "🌡️"},
			{ID: "roi-irr-npv", Name: "ROI/IRR/NPV", Description: "Investment analysis metrics", Glyph: "📊"},
			{ID: "volatility-analysis", Name: "Volatility Analysis", Description: "Market volatility assessment", Glyph: "📉"},
		},
	},
	{
		ID:          "predictive-modeling",
		Name:        "Predictive Modeling",
		Description: "AutoML, model evaluation and drift monitoring",
		Icon:        IconBrain,
		Color:       ColorViolet,
		Tasks: []Task{
			{ID: "automl", Name: "AutoML Pipeline", Description: "Automated machine learning", Glyph: "🤖"},
			{ID: "model-evaluation", Name: "Model Evaluation", Description: "ROC, Confusion Matrix, AUC", Glyph: "📏"},
			{ID: "feature-importance", Name: "Feature Importance", Description: "Variable importance analysis", Glyph: "⭐"},
			{ID: "drift-monitoring", Name: "Drift Monitoring", Description: "Model performance monitoring", Glyph: "📡"},
		},
	},
	{
		ID:          "healthcare",
		Name:        "Healthcare Analyst",
		Description: "Cohorts, prevalence and patient clustering",
		Icon:        IconHeartPulse,
		Color:       ColorRed,
		Tasks: []Task{
			{ID: "cohort-survival", Name: "Cohort Survival", Description: "Survival analysis", Glyph: "❤️"},
			{ID: "prevalence-graph", Name: "Prevalence Analysis", Description: "Disease prevalence trends", Glyph: "📊"},
			{ID: "patient-clustering", Name: "Patient Clustering", Description: "Patient group analysis", Glyph: "👥"},
			{ID: "hospital-stats", Name: "Hospital Statistics", Description: "Healthcare facility metrics", Glyph: "🏥"},
		},
	},
	{
		ID:          "ecommerce",
		Name:        "E-commerce Analyst",
		Description: "Basket analysis, order funnels and inventory",
		Icon:        IconShoppingCart,
		Color:       ColorCyan,
		Tasks: []Task{
			{ID: "market-basket", Name: "Market Basket Analysis", Description: "Product association rules", Glyph: "🛒"},
			{ID: "sales-trends", Name: "Sales Trends", Description: "E-commerce trend analysis", Glyph: "📈"},
			{ID: "order-funnel", Name: "Order Funnel", Description: "Purchase funnel analysis", Glyph: "🔄"},
			{ID: "inventory-forecast", Name: "Inventory Forecast", Description: "Stock prediction model", Glyph: "📦"},
		},
	},
	{
		ID:          GeneralRoleID,
		Name:        "General Analysis",
		Description: "A comprehensive overview for any dataset",
		Icon:        IconBarChart,
		Color:       ColorSlate,
		Tasks:       generalTasks,
	},
}

var generalTasks = []Task{
	{ID: "auto-eda", Name: "Auto EDA", Description: "Automated exploratory analysis", Glyph: "🔍"},
	{ID: "correlation-analysis", Name: "Correlation Analysis", Description: "Variable relationships", Glyph: "🔗"},
	{ID: "gpt-insights", Name: "GPT Insights", Description: "AI-powered data insights", Glyph: "🧠"},
	{ID: "auto-queries", Name: "Auto SQL Queries", Description: "Automated query generation", Glyph: "💾"},
}

var cleaningActions = []CleaningAction{
	{ID: "remove-nulls", Name: "Remove Nulls", Description: "Drop rows with missing values", Icon: IconTrash},
	{ID: "normalize", Name: "Normalize Data", Description: "Scale numerical columns to 0-1 range", Icon: IconTrendingUp},
	{ID: "one-hot-encode", Name: "One-Hot Encode", Description: "Convert categorical variables to binary", Icon: IconCopy},
	{ID: "drop-duplicates", Name: "Drop Duplicates", Description: "Remove duplicate rows", Icon: IconFilter},
	{ID: "aggregate", Name: "Aggregate Data", Description: "Group by columns and summarize", Icon: IconDatabase},
	{ID: "impute", Name: "Impute Missing", Description: "Fill missing values with mean/median", Icon: IconRotateCcw},
	{ID: "feature-engineering", Name: "Feature Engineering", Description: "Create new features from existing data", Icon: IconShuffle},
	{ID: "data-validation", Name: "Data Validation", Description: "Validate data quality and consistency", Icon: IconFilter},
}

var roleIndex = func() map[core.RoleID]int {
	idx := make(map[core.RoleID]int, len(roles))
	for i, r := range roles {
		idx[r.ID] = i
	}
	return idx
}()

// Roles returns every role in display order
func Roles() []Role {
	out := make([]Role, len(roles))
	for i, r := range roles {
		out[i] = r.clone()
	}
	return out
}

// Lookup returns the role with the given identifier
func Lookup(id core.RoleID) (Role, bool) {
	i, ok := roleIndex[id]
	if !ok {
		return Role{}, false
	}
	return roles[i].clone(), true
}

// clone detaches the task list from the package table
func (r Role) clone() Role {
	r.Tasks = append([]Task(nil), r.Tasks...)
	return r
}

// MustLookup is Lookup that panics on unknown ids; for static wiring only
func MustLookup(id core.RoleID) Role {
	r, ok := Lookup(id)
	if !ok {
		panic("catalog: unknown role " + string(id))
	}
	return r
}

// TasksFor returns the role's tasks, or the general task list when the role has none
func TasksFor(id core.RoleID) []Task {
	if r, ok := Lookup(id); ok && len(r.Tasks) > 0 {
		return append([]Task(nil), r.Tasks...)
	}
	return append([]Task(nil), generalTasks...)
}

// FindTask looks a task up within the role's task list
func FindTask(roleID core.RoleID, taskID core.TaskID) (Task, bool) {
	for _, t := range TasksFor(roleID) {
		if t.ID == taskID {
			return t, true
		}
	}
	return Task{}, false
}

// CleaningActions returns the cleaning step's actions in display order
func CleaningActions() []CleaningAction {
	out := make([]CleaningAction, len(cleaningActions))
	copy(out, cleaningActions)
	return out
}

// FindCleaningAction looks up a cleaning action by id
func FindCleaningAction(id string) (CleaningAction, bool) {
	for _, a := range cleaningActions {
		if a.ID == id {
			return a, true
		}
	}
	return CleaningAction{}, false
}
