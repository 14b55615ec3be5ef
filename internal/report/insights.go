// Package report writes the pipeline artifacts and derives summary metrics.
package report

import (
	"math"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Impact bucket bounds.
const (
	HighLift       = 5.0
	MediumLift     = 3.0
	HighConfidence = 0.5
)

// Summarize computes the headline metrics of a rule set. rules may be in any
// order; top must already be the ranked top-N subset.
func Summarize(rules, top []model.Rule) model.Insights {
	var ins model.Insights
	if len(rules) == 0 {
		ins.TopAssociation = "N/A"
		return ins
	}

	for _, r := range rules {
		ins.TopLift = math.Max(ins.TopLift, r.Lift)
		ins.MaxConfidence = math.Max(ins.MaxConfidence, r.Confidence)

		switch {
		case r.Lift > HighLift:
			ins.BusinessImpact.HighLiftRules++
		case r.Lift >= MediumLift:
			ins.BusinessImpact.MediumLiftRules++
		}
		if r.Confidence > HighConfidence {
			ins.BusinessImpact.HighConfidenceRules++
		}
	}

	if len(top) > 0 {
		var sum float64
		for _, r := range top {
			sum += r.Lift
		}
		ins.AvgLiftTopN = round2(sum / float64(len(top)))
		ins.TopAssociation = top[0].String()
	} else {
		ins.TopAssociation = "N/A"
	}

	ins.TopLift = round2(ins.TopLift)
	ins.MaxConfidence = round2(ins.MaxConfidence)
	return ins
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
