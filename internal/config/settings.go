package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-basket-must-flow/internal/common"
	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Grouping strategy names accepted by basket.grouping.
const (
	GroupingCategory = "category"
	GroupingRecord   = "record"
	GroupingBatch    = "batch"
	GroupingPairs    = "pairs"
)

// Settings is the full runtime configuration of the pipeline.
type Settings struct {
	Paths    PathSettings     `mapstructure:"paths" yaml:"paths"`
	Database DatabaseSettings `mapstructure:"database" yaml:"database"`
	Logging  LoggingSettings  `mapstructure:"logging" yaml:"logging"`
	Basket   BasketSettings   `mapstructure:"basket" yaml:"basket"`
	Mining   model.Thresholds `mapstructure:"mining" yaml:"mining"`
}

// PathSettings locates the input and output files.
type PathSettings struct {
	DataDir      string `mapstructure:"data_dir" yaml:"data_dir" validate:"required"`
	InputFile    string `mapstructure:"input_file" yaml:"input_file" validate:"required"`
	FallbackFile string `mapstructure:"fallback_file" yaml:"fallback_file"`
	OutputDir    string `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	LogFile      string `mapstructure:"log_file" yaml:"log_file" validate:"required"`
}

// DatabaseSettings configures the run history store.
type DatabaseSettings struct {
	Path    string `mapstructure:"path" yaml:"path" validate:"required_if=Enabled true"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// LoggingSettings configures process logging.
type LoggingSettings struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=console json"`
}

// BasketSettings configures how transactions are built.
type BasketSettings struct {
	Grouping           string `mapstructure:"grouping" yaml:"grouping" validate:"oneof=category record batch pairs"`
	CollapseDuplicates bool   `mapstructure:"collapse_duplicates" yaml:"collapse_duplicates"`
	DropSingletons     bool   `mapstructure:"drop_singletons" yaml:"drop_singletons"`
}

// SetDefaults registers every key with its default so that environment
// variables and Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	th := model.DefaultThresholds()

	v.SetDefault("paths.data_dir", "./data")
	v.SetDefault("paths.input_file", "raw_products.json")
	v.SetDefault("paths.fallback_file", "")
	v.SetDefault("paths.output_dir", "./output")
	v.SetDefault("paths.log_file", "pipeline_log.txt")

	v.SetDefault("database.path", "$HOME/.local/share/basket/basket.db")
	v.SetDefault("database.enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("basket.grouping", GroupingCategory)
	v.SetDefault("basket.collapse_duplicates", false)
	v.SetDefault("basket.drop_singletons", false)

	v.SetDefault("mining.min_support", th.MinSupport)
	v.SetDefault("mining.fallback_min_support", th.FallbackMinSupport)
	v.SetDefault("mining.min_confidence", th.MinConfidence)
	v.SetDefault("mining.min_lift", th.MinLift)
	v.SetDefault("mining.max_itemset_size", th.MaxItemsetSize)
	v.SetDefault("mining.top_n", th.TopN)
}

// Default returns the settings produced by SetDefaults alone.
func Default() Settings {
	v := viper.New()
	SetDefaults(v)
	s, _ := Load(v)
	return s
}

// Load unmarshals and validates settings from v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// InputPath returns the primary input file location.
func (s Settings) InputPath() string {
	return ResolvePath(s.Paths.DataDir, s.Paths.InputFile)
}

// FallbackPath returns the fallback input file location, or "".
func (s Settings) FallbackPath() string {
	return ResolvePath(s.Paths.DataDir, s.Paths.FallbackFile)
}

// OutputDir returns the expanded output directory.
func (s Settings) OutputDir() string {
	return ExpandPath(s.Paths.OutputDir)
}

// LogPath returns the run log location.
func (s Settings) LogPath() string {
	return ResolvePath(s.Paths.OutputDir, s.Paths.LogFile)
}

// DatabasePath returns the expanded history database location.
func (s Settings) DatabasePath() string {
	return ExpandPath(s.Database.Path)
}

// Validate checks every field and returns the first violation as a
// ThresholdConfigError.
func (s Settings) Validate() error {
	return validateStruct(s)
}

// ValidateThresholds checks mining thresholds on their own.
func ValidateThresholds(th model.Thresholds) error {
	return validateStruct(th)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// report fields by their config key
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("mapstructure")
			if tag == "" || tag == "-" {
				return fld.Name
			}
			return tag
		})
	})
	return validate
}

func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	fe := fieldErrs[0]
	return common.NewThresholdError(fieldKey(fe.Namespace()), "%s, got %v", describeTag(fe), fe.Value())
}

// fieldKey turns "Settings.mining.min_support" into "mining.min_support".
func fieldKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	default:
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	}
}
