package report

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Text renders the final report as plain text for the run log.
func Text(r *model.RunReport) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	b.WriteString(rule + "\n")
	b.WriteString("MARKET BASKET ANALYSIS REPORT\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Run: %s (%s)\n", r.RunID, r.RunDate)
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	if !r.Succeeded() {
		fmt.Fprintf(&b, "Error: %s\n", r.Error())
		b.WriteString(rule)
		return b.String()
	}

	ins := r.Insights
	fmt.Fprintf(&b, "Rules discovered: %d\n", r.RuleCount)
	fmt.Fprintf(&b, "Max lift: %.2fx\n", ins.TopLift)
	fmt.Fprintf(&b, "Avg top-%d lift: %.2fx\n", r.Thresholds.TopN, ins.AvgLiftTopN)
	fmt.Fprintf(&b, "Max confidence: %.1f%%\n", ins.MaxConfidence*100)
	fmt.Fprintf(&b, "Top association: %s\n", ins.TopAssociation)
	fmt.Fprintf(&b, "Business impact: %d high lift, %d medium lift, %d high confidence\n",
		ins.BusinessImpact.HighLiftRules, ins.BusinessImpact.MediumLiftRules, ins.BusinessImpact.HighConfidenceRules)
	b.WriteString(rule)
	return b.String()
}
