package export

import "github.com/charmbracelet/lipgloss"

// Solarized accent colors
var (
	solarizedYellow  = lipgloss.Color("#b58900")
	solarizedOrange  = lipgloss.Color("#cb4b16")
	solarizedRed     = lipgloss.Color("#dc322f")
	solarizedMagenta = lipgloss.Color("#d33682")
	solarizedViolet  = lipgloss.Color("#6c71c4")
	solarizedBlue    = lipgloss.Color("#268bd2")
	solarizedCyan    = lipgloss.Color("#2aa198")
	solarizedGreen   = lipgloss.Color("#859900")
	solarizedBase01  = lipgloss.Color("#586e75")
)

// Styles decides how tree labels are decorated in text output.
type Styles struct {
	enabled   bool
	protocols map[string]lipgloss.Style
	protocol  lipgloss.Style
	generated lipgloss.Style
	expert    lipgloss.Style
}

// PlainStyles leaves labels untouched.
func PlainStyles() Styles {
	return Styles{}
}

// SolarizedStyles colors protocol lines by protocol, dims generated items
// and highlights expert markers.
func SolarizedStyles() Styles {
	proto := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Bold(true).Foreground(c)
	}
	return Styles{
		enabled: true,
		protocols: map[string]lipgloss.Style{
			"frame": proto(solarizedViolet),
			"eth":   proto(solarizedMagenta),
			"ip":    proto(solarizedBlue),
			"ipv6":  proto(solarizedBlue),
			"tcp":   proto(solarizedCyan),
			"udp":   proto(solarizedGreen),
			"data":  proto(solarizedYellow),
		},
		protocol:  proto(solarizedOrange),
		generated: lipgloss.NewStyle().Foreground(solarizedBase01),
		expert:    lipgloss.NewStyle().Bold(true).Foreground(solarizedRed),
	}
}

// Enabled reports whether the styles add any decoration.
func (s Styles) Enabled() bool {
	return s.enabled
}

func (s Styles) renderProtocol(abbrev, label string) string {
	if !s.enabled {
		return label
	}
	if st, ok := s.protocols[abbrev]; ok {
		return st.Render(label)
	}
	return s.protocol.Render(label)
}

func (s Styles) renderGenerated(label string) string {
	if !s.enabled {
		return label
	}
	return s.generated.Render(label)
}

func (s Styles) renderExpert(label string) string {
	if !s.enabled {
		return label
	}
	return s.expert.Render(label)
}
