package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/ragchat/pkg/controller"
	"github.com/go-go-golems/ragchat/pkg/notification"
)

type Style struct {
	Header            lipgloss.Style
	UnselectedMessage lipgloss.Style
	SelectedMessage   lipgloss.Style
	FocusedInput      lipgloss.Style
	BlurredInput      lipgloss.Style
	UserLabel         lipgloss.Style
	AssistantLabel    lipgloss.Style
	FileResult        lipgloss.Style
	Timestamp         lipgloss.Style
	Upload            lipgloss.Style
	Notifications     map[notification.Severity]lipgloss.Style
}

type palette struct {
	Unselected string
	Selected   string
	Focused    string
	Muted      string
	Accent     string
	Info       string
	Success    string
	Error      string
}

var lightPalette = palette{
	Unselected: "#CCCCCC",
	Selected:   "#FFB6C1", // Light pink
	Focused:    "#FFFF99", // Light yellow
	Muted:      "#888888",
	Accent:     "#5A56E0",
	Info:       "#1F6FEB",
	Success:    "#1A7F37",
	Error:      "#CF222E",
}

var darkPalette = palette{
	Unselected: "#444444",
	Selected:   "#DD7090", // Desaturated pink for dark mode
	Focused:    "#DDDD77", // Desaturated yellow for dark mode
	Muted:      "#777777",
	Accent:     "#A8A4FF",
	Info:       "#58A6FF",
	Success:    "#3FB950",
	Error:      "#F85149",
}

// StylesFor returns the styles of a display mode. The mode is chosen by the
// user, so colors are fixed per mode instead of adapting to the terminal.
func StylesFor(mode controller.DisplayMode) *Style {
	p := lightPalette
	if mode == controller.DisplayModeDark {
		p = darkPalette
	}

	bordered := func(b lipgloss.Border, color string) lipgloss.Style {
		return lipgloss.NewStyle().Border(b).Padding(0, 1).BorderForeground(lipgloss.Color(color))
	}
	banner := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color(color))
	}

	return &Style{
		Header:            lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Accent)),
		UnselectedMessage: bordered(lipgloss.NormalBorder(), p.Unselected),
		SelectedMessage:   bordered(lipgloss.ThickBorder(), p.Selected),
		FocusedInput:      bordered(lipgloss.NormalBorder(), p.Focused),
		BlurredInput:      bordered(lipgloss.NormalBorder(), p.Unselected),
		UserLabel:         lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Accent)),
		AssistantLabel:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Success)),
		FileResult:        lipgloss.NewStyle().Italic(true),
		Timestamp:         lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		Upload:            lipgloss.NewStyle().Foreground(lipgloss.Color(p.Muted)),
		Notifications: map[notification.Severity]lipgloss.Style{
			notification.SeverityInfo:    banner(p.Info),
			notification.SeveritySuccess: banner(p.Success),
			notification.SeverityError:   banner(p.Error),
		},
	}
}
