// Package config loads process settings from the environment and the
// benchmark plan from a TOML or YAML file.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/streamfold/coldstart-bench/internal/benchmark"
	"github.com/streamfold/coldstart-bench/internal/telemetry"
)

// Environment holds the settings read from process environment variables.
type Environment struct {
	Region        string `env:"AWS_REGION" envDefault:"us-east-1"`
	PlanPath      string `env:"COLDSTART_PLAN" envDefault:"coldstart.toml"`
	ResultsPath   string `env:"COLDSTART_RESULTS_PATH" envDefault:"lambda_benchmark_results.csv"`
	ResultsBucket string `env:"COLDSTART_RESULTS_BUCKET"`
	ResultsPrefix string `env:"COLDSTART_RESULTS_PREFIX" envDefault:"coldstart"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	Telemetry telemetry.Config
}

// Load parses the process environment.
func Load() (Environment, error) {
	cfg, err := env.ParseAs[Environment]()
	if err != nil {
		return Environment{}, errors.Wrap(err, "failed to parse environment")
	}
	return cfg, nil
}

// Duration decodes strings such as "5s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", string(text))
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Configuration is one deployment variant under test.
type Configuration struct {
	BaseName    string            `toml:"base_name" yaml:"base_name" validate:"required"`
	Layer       string            `toml:"layer" yaml:"layer"`
	Environment map[string]string `toml:"environment" yaml:"environment"`
}

// Plan describes a whole benchmark run.
type Plan struct {
	Region          string          `toml:"region" yaml:"region"`
	Artifact        string          `toml:"artifact" yaml:"artifact" validate:"required"`
	Role            string          `toml:"role" yaml:"role" validate:"required"`
	Handler         string          `toml:"handler" yaml:"handler" validate:"required"`
	Runtime         string          `toml:"runtime" yaml:"runtime" validate:"required"`
	Timeout         int64           `toml:"timeout" yaml:"timeout" validate:"gt=0,lte=900"`
	SamplesPerGroup int             `toml:"samples_per_group" yaml:"samples_per_group" validate:"gt=0"`
	Memory          []int64         `toml:"memory" yaml:"memory" validate:"required,min=1,dive,gte=128,lte=10240"`
	SettleDelay     Duration        `toml:"settle_delay" yaml:"settle_delay"`
	WaitActive      bool            `toml:"wait_active" yaml:"wait_active"`
	MaxActiveWait   Duration        `toml:"max_active_wait" yaml:"max_active_wait"`
	NameTemplate    string          `toml:"name_template" yaml:"name_template" validate:"required"`
	Operation       string          `toml:"operation" yaml:"operation" validate:"oneof=echo list_buckets"`
	Baseline        string          `toml:"baseline" yaml:"baseline"`
	Configurations  []Configuration `toml:"configuration" yaml:"configuration" validate:"required,min=1,dive"`
}

// DefaultPlan returns a plan populated with the values used when a key is
// absent from the file.
func DefaultPlan() Plan {
	return Plan{
		Handler:         "SimpleLambda.lambda_handler",
		Runtime:         "python3.13",
		Timeout:         benchmark.DefaultTimeout,
		SamplesPerGroup: benchmark.SamplesPerGroup,
		Memory:          []int64{128},
		SettleDelay:     Duration{benchmark.DefaultSettleDelay},
		MaxActiveWait:   Duration{benchmark.DefaultMaxActiveWait},
		NameTemplate:    benchmark.DefaultNameTemplate,
		Operation:       "list_buckets",
	}
}

// LoadPlan decodes the plan at path and validates it.
func LoadPlan(path string) (Plan, error) {
	plan, err := DecodePlan(path)
	if err != nil {
		return Plan{}, err
	}
	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// DecodePlan decodes the plan at path on top of DefaultPlan without
// validating it. Files ending in .yaml or .yml are read as YAML, anything else
// as TOML. Unknown keys are rejected so that typos do not silently fall back
// to defaults.
func DecodePlan(path string) (Plan, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAMLPlan(path)
	}

	plan := DefaultPlan()
	md, err := toml.DecodeFile(path, &plan)
	if err != nil {
		return Plan{}, errors.Wrapf(err, "failed to decode plan %s", path)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := lo.Map(undecoded, func(k toml.Key, _ int) string { return k.String() })
		return Plan{}, fmt.Errorf("unknown keys in plan %s: %s", path, strings.Join(keys, ", "))
	}
	return plan, nil
}

func decodeYAMLPlan(path string) (Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return Plan{}, errors.Wrapf(err, "failed to open plan %s", path)
	}
	defer f.Close()

	plan := DefaultPlan()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil && !errors.Is(err, io.EOF) {
		return Plan{}, errors.Wrapf(err, "failed to decode plan %s", path)
	}
	return plan, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules: unique base names
// and a baseline that names one of the configurations.
func (p Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(err, "invalid plan")
	}

	names := lo.Map(p.Configurations, func(c Configuration, _ int) string { return c.BaseName })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return fmt.Errorf("invalid plan: duplicate base_name %s", strings.Join(dups, ", "))
	}
	if dups := lo.FindDuplicates(p.Memory); len(dups) > 0 {
		return fmt.Errorf("invalid plan: duplicate memory size %v", dups)
	}
	if p.Baseline != "" && !lo.Contains(names, p.Baseline) {
		return fmt.Errorf("invalid plan: baseline %q is not a configured base_name", p.Baseline)
	}
	return nil
}

// ParseEnvironmentFlag parses "K=V,K2=V2" into a map. Whitespace around keys
// is trimmed; values keep everything after the first '='.
func ParseEnvironmentFlag(s string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid environment entry %q, expected KEY=VALUE", pair)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("duplicate environment key %q", key)
		}
		out[key] = value
	}
	return out, nil
}
