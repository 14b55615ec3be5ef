package model

import "time"

// Status is the outcome of a pipeline run.
type Status string

const (
	// StatusSuccess indicates every artifact was written.
	StatusSuccess Status = "success"
	// StatusFailure indicates the run aborted; only the summary is guaranteed.
	StatusFailure Status = "failure"
)

// StageTiming records how long a pipeline stage took and how many items it produced.
type StageTiming struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
	Output     int    `json:"output"`
}

// BusinessImpact buckets rules by how they can be acted upon.
type BusinessImpact struct {
	HighLiftRules       int `json:"high_lift_rules"`       // lift > 5
	MediumLiftRules     int `json:"medium_lift_rules"`     // 3 <= lift <= 5
	HighConfidenceRules int `json:"high_confidence_rules"` // confidence > 0.5
}

// Insights summarizes the rule set for people reading the summary.
type Insights struct {
	TopAssociation string         `json:"top_association"`
	TopLift        float64        `json:"top_lift"`
	AvgLiftTopN    float64        `json:"avg_lift_top_n"`
	MaxConfidence  float64        `json:"max_confidence"`
	BusinessImpact BusinessImpact `json:"business_impact"`
}

// RunReport is the summary of one pipeline run. It is written once and never
// modified afterwards.
type RunReport struct {
	Timestamp             time.Time     `json:"timestamp"`
	ErrorDetail           *string       `json:"error_detail"`
	RunID                 string        `json:"run_id"`
	RunDate               string        `json:"run_date"`
	Status                Status        `json:"status"`
	ErrorKind             string        `json:"error_kind,omitempty"`
	Source                string        `json:"source,omitempty"`
	Grouping              string        `json:"grouping"`
	TopRules              []Rule        `json:"top_rules"`
	Stages                []StageTiming `json:"stages"`
	Warnings              []string      `json:"warnings"`
	Insights              Insights      `json:"insights"`
	Thresholds            Thresholds    `json:"thresholds"`
	EffectiveMinSupport   float64       `json:"effective_min_support"`
	InputRecordCount      int           `json:"input_record_count"`
	SkippedRecordCount    int           `json:"skipped_record_count"`
	NormalizedRecordCount int           `json:"normalized_record_count"`
	TransactionCount      int           `json:"transaction_count"`
	ItemsetCount          int           `json:"itemset_count"`
	RuleCount             int           `json:"rule_count"`
	DurationMS            int64         `json:"duration_ms"`
}

// Succeeded reports whether the run completed.
func (r *RunReport) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Error returns the error detail or the empty string.
func (r *RunReport) Error() string {
	if r.ErrorDetail == nil {
		return ""
	}
	return *r.ErrorDetail
}
