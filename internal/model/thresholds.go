package model

// Thresholds are the statistical filters applied during mining.
type Thresholds struct {
	MinSupport         float64 `json:"min_support" yaml:"min_support" mapstructure:"min_support" validate:"gt=0,lte=1"`
	FallbackMinSupport float64 `json:"fallback_min_support" yaml:"fallback_min_support" mapstructure:"fallback_min_support" validate:"gte=0,lte=1"`
	MinConfidence      float64 `json:"min_confidence" yaml:"min_confidence" mapstructure:"min_confidence" validate:"gte=0,lte=1"`
	MinLift            float64 `json:"min_lift" yaml:"min_lift" mapstructure:"min_lift" validate:"gte=0"`
	MaxItemsetSize     int     `json:"max_itemset_size" yaml:"max_itemset_size" mapstructure:"max_itemset_size" validate:"gte=0"`
	TopN               int     `json:"top_n" yaml:"top_n" mapstructure:"top_n" validate:"gte=0"`
}

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSupport:         0.01,
		FallbackMinSupport: 0.005,
		MinConfidence:      0.0,
		MinLift:            1.0,
		MaxItemsetSize:     0,
		TopN:               10,
	}
}
