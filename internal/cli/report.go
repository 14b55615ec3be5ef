package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// RenderRunReport renders the end-of-run report shown after `basket run`.
func RenderRunReport(r *model.RunReport) string {
	if r == nil {
		return ""
	}

	label := func(s string) string { return SubtleStyle.Render(fmt.Sprintf("%-22s", s)) }
	var b strings.Builder

	status := FormatSuccess("success")
	if !r.Succeeded() {
		status = FormatError("failure (" + r.ErrorKind + ")")
	}

	fmt.Fprintf(&b, "%s%s\n", label("Status:"), status)
	fmt.Fprintf(&b, "%s%s\n", label("Date:"), r.RunDate)
	fmt.Fprintf(&b, "%s%s\n", label("Run:"), r.RunID)
	if r.Source != "" {
		fmt.Fprintf(&b, "%s%s %s input\n", label("Source:"), FolderIcon, r.Source)
	}
	fmt.Fprintf(&b, "%s%d in, %d skipped, %d transactions\n", label("Records:"),
		r.InputRecordCount, r.SkippedRecordCount, r.TransactionCount)

	if r.Succeeded() {
		fmt.Fprintf(&b, "%s%d (min support %g)\n", label("Frequent itemsets:"), r.ItemsetCount, r.EffectiveMinSupport)
		fmt.Fprintf(&b, "%s%s\n", label("Rules discovered:"), BoldStyle.Render(fmt.Sprint(r.RuleCount)))
		fmt.Fprintf(&b, "%s%.2fx\n", label("Max lift:"), r.Insights.TopLift)
		fmt.Fprintf(&b, "%s%.2fx\n", label(fmt.Sprintf("Avg top-%d lift:", r.Thresholds.TopN)), r.Insights.AvgLiftTopN)
		fmt.Fprintf(&b, "%s%.1f%%\n", label("Max confidence:"), r.Insights.MaxConfidence*100)
		fmt.Fprintf(&b, "%s%s\n", label("Top association:"), r.Insights.TopAssociation)

		impact := r.Insights.BusinessImpact
		fmt.Fprintf(&b, "%s%d high lift, %d medium lift, %d high confidence",
			label("Business impact:"), impact.HighLiftRules, impact.MediumLiftRules, impact.HighConfidenceRules)
	} else {
		fmt.Fprintf(&b, "%s%s", label("Error:"), ErrorStyle.Render(r.Error()))
	}

	for _, w := range r.Warnings {
		b.WriteString("\n" + FormatWarning(w))
	}

	return RenderBox(ChartIcon+" Market Basket Analysis", b.String())
}

// RenderHistory renders stored runs as a table, newest first.
func RenderHistory(runs []*model.RunReport) string {
	if len(runs) == 0 {
		return FormatInfo("No runs recorded yet")
	}

	headers := []string{"RUN", "DATE", "STATUS", "TXNS", "RULES", "TOP LIFT"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := SuccessStyle.Render(string(r.Status))
		if !r.Succeeded() {
			status = ErrorStyle.Render(string(r.Status))
		}
		rows = append(rows, []string{
			shortID(r.RunID),
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			status,
			fmt.Sprint(r.TransactionCount),
			fmt.Sprint(r.RuleCount),
			fmt.Sprintf("%.2f", r.Insights.TopLift),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(FormatTitle("Run history") + "\n")
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = TableCellStyle.Width(widths[i] + 2).Render(h)
	}
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, cells...)))
	for _, row := range rows {
		for i, cell := range row {
			cells[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		b.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
