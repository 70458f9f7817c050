package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/loginsight/internal/domain"
	"github.com/xoelrdgz/loginsight/pkg/sanitize"
)

var (
	colorPrimary    = lipgloss.Color("#00ff41")
	colorPrimaryDim = lipgloss.Color("#00aa2a")
	colorPrimaryBg  = lipgloss.Color("#0a1f0a")
	colorAmber      = lipgloss.Color("#ffb000")
	colorRed        = lipgloss.Color("#ff3333")
	colorBorder     = lipgloss.Color("#1a3a1a")
	colorText       = lipgloss.Color("#e5e5e5")
	colorMuted      = lipgloss.Color("#707070")
	colorDim        = lipgloss.Color("#404040")
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(colorPrimaryBg).
			Foreground(colorPrimary).
			Bold(true).
			Padding(0, 1)

	textPrimary = lipgloss.NewStyle().Foreground(colorPrimary)
	textDim     = lipgloss.NewStyle().Foreground(colorPrimaryDim)
	textAmber   = lipgloss.NewStyle().Foreground(colorAmber)
	textRed     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	textMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	textGhost   = lipgloss.NewStyle().Foreground(colorDim)
	textBold    = lipgloss.NewStyle().Foreground(colorText).Bold(true)
)

const (
	summaryBarWidth = 12
	summaryKeyWidth = 32
)

// RenderSummary draws the end-of-pass report for a terminal. Hosts and
// resources come straight from the log and are sanitized before display.
func RenderSummary(summary *domain.Summary, recent []*domain.BlockEvent) string {
	var sections []string

	sections = append(sections, headerStyle.Render("LOGINSIGHT  "+sanitize.String(summary.Source, 60)))
	sections = append(sections, renderStats(summary.Stats))
	sections = append(sections, boxStyle.Render(renderWindows(summary.BusyWindows)))
	sections = append(sections, boxStyle.Render(renderRanking("TOP HOSTS", summary.TopHosts, sanitize.Host)))
	sections = append(sections, boxStyle.Render(renderRanking("TOP RESOURCES", summary.TopResources, func(s string) string {
		return sanitize.String(s, summaryKeyWidth)
	})))
	if len(recent) > 0 {
		sections = append(sections, boxStyle.Render(renderBlocks(recent)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderStats(s domain.StatsSnapshot) string {
	blocked := textPrimary
	if s.Blocked > 0 {
		blocked = textRed
	}
	rejected := textPrimary
	if s.Rejected > 0 {
		rejected = textAmber
	}

	parts := []string{
		textMuted.Render("lines ") + textBold.Render(fmtLarge(s.LinesRead)),
		textMuted.Render("records ") + textBold.Render(fmtLarge(s.Records)),
		textMuted.Render("rejected ") + rejected.Render(fmtLarge(s.Rejected)),
		textMuted.Render("blocked ") + blocked.Render(fmtLarge(s.Blocked)),
		textMuted.Render("blocks ") + blocked.Render(fmtLarge(s.BlocksScheduled)),
		textMuted.Render("elapsed ") + textDim.Render(s.Elapsed.Round(1e6).String()),
	}
	return " " + strings.Join(parts, textGhost.Render("  │  "))
}

func renderWindows(windows []domain.HourWindow) string {
	lines := []string{textBold.Render("BUSIEST WINDOWS")}
	if len(windows) == 0 {
		return strings.Join(append(lines, textGhost.Italic(true).Render("  no records")), "\n")
	}

	peak := windows[0].Visits
	for i, w := range windows {
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			textMuted.Render(fmt.Sprintf("%2d.", i+1)),
			textPrimary.Render(w.Label),
			bar(w.Visits, peak),
			textBold.Render(fmt.Sprintf("%8d", w.Visits)),
		))
	}
	return strings.Join(lines, "\n")
}

func renderRanking(title string, items []domain.RankedItem, clean func(string) string) string {
	lines := []string{textBold.Render(title)}
	if len(items) == 0 {
		return strings.Join(append(lines, textGhost.Italic(true).Render("  no records")), "\n")
	}

	peak := items[0].Count
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			textMuted.Render(fmt.Sprintf("%2d.", i+1)),
			textDim.Render(padRight(clean(item.Key), summaryKeyWidth)),
			bar(item.Count, peak),
			textBold.Render(fmt.Sprintf("%8d", item.Count)),
		))
	}
	return strings.Join(lines, "\n")
}

func renderBlocks(events []*domain.BlockEvent) string {
	lines := []string{textRed.Render("RECENT BLOCKS")}
	for _, e := range events {
		lines = append(lines, fmt.Sprintf(" %s %s %s",
			textRed.Render(padRight(sanitize.Host(e.Host), summaryKeyWidth)),
			textMuted.Render(e.FailedAt.Format("2006-01-02 15:04:05Z")),
			textAmber.Render("until "+e.Until.Format("15:04:05Z")),
		))
	}
	return strings.Join(lines, "\n")
}

func bar(value, peak int64) string {
	fill := 0
	if peak > 0 {
		fill = int(value * summaryBarWidth / peak)
	}
	if fill > summaryBarWidth {
		fill = summaryBarWidth
	}
	return textPrimary.Render(strings.Repeat("█", fill)) +
		textGhost.Render(strings.Repeat("░", summaryBarWidth-fill))
}

func padRight(s string, length int) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return s + strings.Repeat(" ", length-n)
}

func fmtLarge(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fG", float64(n)/1e9)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 10_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	default:
		return fmt.Sprintf("%d", n)
	}
}
