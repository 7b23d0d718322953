package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"resizer/internal/pipeline"
)

type SummaryRow struct {
	Label string
	Value string
}

// SummaryRows lays out the totals of a finished batch.
func SummaryRows(s pipeline.Summary) []SummaryRow {
	return []SummaryRow{
		{Label: "Images resized", Value: fmt.Sprintf("%d", s.Succeeded)},
		{Label: "Skipped", Value: fmt.Sprintf("%d", s.Skipped)},
		{Label: "Failed", Value: fmt.Sprintf("%d", s.Failed)},
		{Label: "Written", Value: FormatBytes(s.BytesWritten)},
		{Label: "Elapsed", Value: s.Elapsed.Round(time.Millisecond).String()},
	}
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		valueWidth = max(valueWidth, lipgloss.Width(row.Value))
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), cellStyle.Render(value)))
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// RenderOutcomes lists skipped and failed inputs with their reasons. It
// returns "" when there is nothing to report.
func RenderOutcomes(s pipeline.Summary) string {
	var lines []string
	if len(s.Skips) > 0 {
		lines = append(lines, HeadingStyle.Render("Skipped:"))
		for _, skip := range s.Skips {
			reason := string(skip.Reason)
			if skip.Detail != "" {
				reason += ": " + skip.Detail
			}
			lines = append(lines, fmt.Sprintf("  %s %s %s",
				DimStyle.Render("-"), ValueStyle.Render(skip.Path), WarnStyle.Render("("+reason+")")))
		}
	}
	if len(s.Failures) > 0 {
		lines = append(lines, HeadingStyle.Render("Failed:"))
		for _, f := range s.Failures {
			lines = append(lines, fmt.Sprintf("  %s %s %s",
				DimStyle.Render("-"), ValueStyle.Render(f.Path), ErrorStyle.Render(fmt.Sprintf("(%v)", f.Err))))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

var (
	cellStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
)
