package styles

import "github.com/charmbracelet/lipgloss"

var (
	Accent  = lipgloss.Color("62")
	Muted   = lipgloss.Color("241")
	Warning = lipgloss.Color("214")
	Danger  = lipgloss.Color("196")
	Success = lipgloss.Color("72")
	UserFg  = lipgloss.Color("39")
)

func PaneStyle(width int, focused bool) lipgloss.Style {
	border := lipgloss.Color("238")
	if focused {
		border = Accent
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(max(width-2, 10))
}

func PaneTitleStyle(focused bool) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true).Foreground(Muted)
	if focused {
		s = s.Foreground(Accent)
	}
	return s
}

func InputStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Accent).
		Padding(0, 1).
		Width(max(width-4, 10))
}

func StatusStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(Muted).
		Background(lipgloss.Color("235")).
		Padding(0, 1).
		Width(width)
}

func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(Danger).Bold(true)
}

func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(Muted)
}

// CardStyle frames one pending tool call.
func CardStyle(cursor bool) lipgloss.Style {
	s := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color("238")).
		PaddingLeft(1)
	if cursor {
		s = s.BorderForeground(Accent)
	}
	return s
}

func ToolNameStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true)
}

func CodeStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Background(lipgloss.Color("236")).
		Padding(0, 1)
}

func EditedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(Warning)
}

func FileSystemStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(Warning).
		Border(lipgloss.NormalBorder()).
		BorderForeground(Warning).
		Padding(0, 1)
}

func NukeLaunchStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(Danger).
		Bold(true).
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Danger).
		Padding(0, 1)
}

func UserStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(UserFg).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(UserFg).
		Padding(0, 1).
		MarginLeft(2)
}

func ServerStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(Warning).
		Padding(0, 1)
}

func QuestionStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(Warning).Bold(true)
}
