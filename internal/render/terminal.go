package render

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/artifactchat/internal/types"
)

type palette struct {
	primary lipgloss.Color
	accent  lipgloss.Color
	muted   lipgloss.Color
	danger  lipgloss.Color
}

var (
	lightPalette = palette{
		primary: lipgloss.Color("#101F38"),
		accent:  lipgloss.Color("#8BC34A"),
		muted:   lipgloss.Color("#6b7280"),
		danger:  lipgloss.Color("#e53935"),
	}
	darkPalette = palette{
		primary: lipgloss.Color("#8BC34A"),
		accent:  lipgloss.Color("#2196F3"),
		muted:   lipgloss.Color("#9ca3af"),
		danger:  lipgloss.Color("#e57373"),
	}
)

type styles struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	meta      lipgloss.Style
	failure   lipgloss.Style
	header    lipgloss.Style
	badge     lipgloss.Style
	tab       lipgloss.Style
	body      lipgloss.Style
}

func newStyles(theme Theme, compact bool) styles {
	p := lightPalette
	if theme == ThemeDark {
		p = darkPalette
	}
	body := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.muted)
	if !compact {
		body = body.Padding(0, 1)
	}
	return styles{
		user:      lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(p.primary).Bold(true),
		meta:      lipgloss.NewStyle().Foreground(p.muted),
		failure:   lipgloss.NewStyle().Foreground(p.danger).Bold(true),
		header:    lipgloss.NewStyle().Foreground(p.primary).Bold(true),
		badge:     lipgloss.NewStyle().Foreground(p.accent).Italic(true),
		tab:       lipgloss.NewStyle().Foreground(p.muted).Underline(true),
		body:      body,
	}
}

// Terminal renders messages for a text terminal. It is safe to reuse across
// renders but settings are fixed at construction.
type Terminal struct {
	settings Settings
	styles   styles
	markdown *glamour.TermRenderer
	width    int
}

// NewTerminal builds a renderer for settings. width bounds document wrapping.
func NewTerminal(settings Settings, width int) *Terminal {
	if width <= 0 {
		width = 80
	}
	style := "light"
	if settings.Theme == ThemeDark {
		style = "dark"
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		slog.Warn("markdown renderer unavailable, documents render as plain text", "style", style, "error", err)
	}
	return &Terminal{
		settings: settings,
		styles:   newStyles(settings.Theme, settings.CompactMode),
		markdown: md,
		width:    width,
	}
}

// Message renders one message with its artifacts.
func (t *Terminal) Message(msg types.Message) string {
	var sb strings.Builder

	who := t.styles.assistant.Render("assistant")
	if msg.Sender == types.SenderUser {
		who = t.styles.user.Render("you")
	}
	sb.WriteString(who)
	if t.settings.ShowTimestamps {
		sb.WriteString(" " + t.styles.meta.Render(msg.Timestamp.Local().Format("15:04")))
	}
	if msg.ToolName != "" {
		sb.WriteString(" " + t.styles.badge.Render("["+msg.ToolName+"]"))
	}
	if msg.Bookmarked {
		sb.WriteString(" " + t.styles.badge.Render("*bookmarked*"))
	}
	sb.WriteString(" " + t.styles.meta.Render(shortID(msg.ID)))
	sb.WriteString("\n")

	if msg.Failed() {
		sb.WriteString(t.styles.failure.Render(msg.Content))
		sb.WriteString("\n")
	} else if msg.Content != "" {
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	for _, f := range msg.Attachments {
		sb.WriteString(t.styles.meta.Render(fmt.Sprintf("  attached %s (%d bytes)", f.Name, f.Size)))
		sb.WriteString("\n")
	}

	if len(msg.Artifacts) > 0 {
		sb.WriteString(t.Artifacts(msg.Artifacts))
	}

	if len(msg.Reactions) > 0 {
		parts := make([]string, 0, len(msg.Reactions))
		for _, r := range msg.Reactions {
			parts = append(parts, fmt.Sprintf("%s %d", r.Kind, r.Count))
		}
		sb.WriteString(t.styles.meta.Render(strings.Join(parts, "  ")))
		sb.WriteString("\n")
	}

	if !t.settings.CompactMode {
		sb.WriteString("\n")
	}
	return sb.String()
}

// Artifacts renders an artifact set following Plan: inline for one, a tab
// strip followed by every tab in order for several. Unsupported tabs keep
// their label but render no body.
func (t *Terminal) Artifacts(artifacts []types.Artifact) string {
	layout := Plan(artifacts)

	var sb strings.Builder
	if layout.Kind == LayoutTabs {
		labels := make([]string, len(layout.Tabs))
		for i, tab := range layout.Tabs {
			labels[i] = t.styles.tab.Render(fmt.Sprintf("[%d] %s", i+1, tab.Title))
		}
		sb.WriteString(strings.Join(labels, " "))
		sb.WriteString("\n")
	}
	for i, a := range artifacts {
		if layout.Tabs[i].Strategy == StrategyUnsupported {
			continue
		}
		out, err := t.Artifact(a)
		if err != nil {
			out = t.styles.failure.Render(err.Error())
		}
		sb.WriteString(out)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Artifact renders a single artifact with the strategy Dispatch selects.
func (t *Terminal) Artifact(a types.Artifact) (string, error) {
	s, err := Dispatch(a)
	if err != nil {
		return "", err
	}

	var header, body string
	switch s {
	case StrategyCodeBlock:
		header = t.header(a.Title, a.Language)
		body = a.Content
	case StrategyComponent:
		header = t.header(a.Title, a.Framework)
		body = "Interactive Component Preview\n" + a.Title
	case StrategyChart:
		header = t.header(a.Title, "")
		body = "Chart Visualization\n" + chartBars(a.Data, t.width/2)
	case StrategyDocument:
		header = t.header(a.Title, "")
		body = t.document(a.Content)
	case StrategyImage:
		header = t.header(a.Title, "")
		body = "Image Preview\n" + a.Title
	}
	return header + "\n" + t.styles.body.Render(strings.TrimRight(body, "\n")), nil
}

func (t *Terminal) header(title, badge string) string {
	h := t.styles.header.Render(title)
	if badge != "" {
		h += " " + t.styles.badge.Render(badge)
	}
	return h
}

func (t *Terminal) document(content string) string {
	md := documentMarkdown(content)
	if t.markdown == nil {
		return md
	}
	out, err := t.markdown.Render(md)
	if err != nil {
		return md
	}
	return out
}

// documentMarkdown converts HTML document bodies to markdown and passes
// anything else through untouched.
func documentMarkdown(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "<") || !strings.HasSuffix(trimmed, ">") {
		return content
	}
	md, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		return content
	}
	return md
}

type chartData struct {
	Type   string    `json:"type"`
	Values []float64 `json:"values"`
}

// chartBars draws a horizontal bar per value. Payloads it cannot read are
// shown as-is since chart data is opaque.
func chartBars(raw json.RawMessage, width int) string {
	if len(raw) == 0 {
		return "(no data)"
	}
	var data chartData
	if err := json.Unmarshal(raw, &data); err != nil || len(data.Values) == 0 {
		return string(raw)
	}
	if width <= 0 {
		width = 40
	}

	maxVal := data.Values[0]
	for _, v := range data.Values {
		maxVal = max(maxVal, v)
	}

	var sb strings.Builder
	if data.Type != "" {
		sb.WriteString(data.Type + "\n")
	}
	for _, v := range data.Values {
		n := 0
		if maxVal > 0 && v > 0 {
			n = int(v / maxVal * float64(width))
		}
		fmt.Fprintf(&sb, "%s %g\n", strings.Repeat("█", n), v)
	}
	return sb.String()
}

func shortID(id types.MessageID) string {
	s := string(id)
	if len(s) > 8 {
		s = s[len(s)-8:]
	}
	return "#" + s
}
