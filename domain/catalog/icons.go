package catalog

// Icon is a closed set of icon tags understood by the templates
type Icon string

const (
	IconBriefcase    Icon = "briefcase"
	IconMicroscope   Icon = "microscope"
	IconMegaphone    Icon = "megaphone"
	IconDollarSign   Icon = "dollar-sign"
	IconBrain        Icon = "brain"
	IconHeartPulse   Icon = "heart-pulse"
	IconShoppingCart Icon = "shopping-cart"
	IconBarChart     Icon = "bar-chart"
	IconTrash        Icon = "trash"
	IconTrendingUp   Icon = "trending-up"
	IconCopy         Icon = "copy"
	IconFilter       Icon = "filter"
	IconDatabase     Icon = "database"
	IconRotateCcw    Icon = "rotate-ccw"
	IconShuffle      Icon = "shuffle"
)

// Valid reports whether the icon belongs to the closed set
func (i Icon) Valid() bool {
	return i.Glyph() != ""
}

// Glyph resolves the tag to the glyph rendered in the page
func (i Icon) Glyph() string {
	switch i {
	case IconBriefcase:
		return "💼"
	case IconMicroscope:
		return "🔬"
	case IconMegaphone:
		return "📣"
	case IconDollarSign:
		return "💲"
	case IconBrain:
		return "🧠"
	case IconHeartPulse:
		return "🩺"
	case IconShoppingCart:
		return "🛒"
	case IconBarChart:
		return "📊"
	case IconTrash:
		return "🗑️"
	case IconTrendingUp:
		return "📈"
	case IconCopy:
		return "📑"
	case IconFilter:
		return "🧹"
	case IconDatabase:
		return "🗄️"
	case IconRotateCcw:
		return "🔁"
	case IconShuffle:
		return "🔀"
	default:
		return ""
	}
}

// Color is a gradient token used by the role cards
type Color string

const (
	ColorIndigo  Color = "from-indigo-500 to-purple-600"
	ColorEmerald Color = "from-emerald-500 to-teal-600"
	ColorPink    Color = "from-pink-500 to-rose-600"
	ColorAmber   Color = "from-amber-500 to-orange-600"
	ColorViolet  Color = "from-violet-500 to-fuchsia-600"
	ColorRed     Color = "from-red-500 to-pink-600"
	ColorCyan    Color = "from-cyan-500 to-blue-600"
	ColorSlate   Color = "from-slate-500 to-gray-600"
)
