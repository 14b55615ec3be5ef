package model

import (
	"fmt"
	"strings"
)

// Rule is an association rule antecedent => consequent.
// The two sides are non-empty, disjoint and sorted.
type Rule struct {
	Antecedent []string `json:"antecedents"`
	Consequent []string `json:"consequents"`
	Support    float64  `json:"support"`
	Confidence float64  `json:"confidence"`
	Lift       float64  `json:"lift"`
}

// AntecedentLabel joins the antecedent labels for display.
func (r Rule) AntecedentLabel() string {
	return strings.Join(r.Antecedent, LabelJoiner)
}

// ConsequentLabel joins the consequent labels for display.
func (r Rule) ConsequentLabel() string {
	return strings.Join(r.Consequent, LabelJoiner)
}

// String renders the rule as "a, b → c".
func (r Rule) String() string {
	return fmt.Sprintf("%s → %s", r.AntecedentLabel(), r.ConsequentLabel())
}
