// Package config loads the settings of a normal form run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nodeadmin/snomed-dnf/normalform"
)

// Config is the full configuration of a run. Zero values are replaced by
// Default before validation.
type Config struct {
	// Input is the snapshot file; "-" reads stdin.
	Input string `yaml:"input" validate:"required"`
	// Output is the report file; "-" or empty writes stdout.
	Output string `yaml:"output"`
	Pretty bool   `yaml:"pretty"`
	// Progress draws a progress bar on stderr.
	Progress bool `yaml:"progress"`

	Generator GeneratorConfig `yaml:"generator"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type GeneratorConfig struct {
	Workers                 int    `yaml:"workers" validate:"gte=1,lte=256"`
	RelationshipRetention   string `yaml:"relationship_retention" validate:"retention"`
	ConcreteDomainRetention string `yaml:"concrete_domain_retention" validate:"retention"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type MetricsConfig struct {
	// Textfile, when set, receives the run's metrics in the Prometheus
	// text format (node exporter textfile collector).
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Input:  "-",
		Output: "-",
		Generator: GeneratorConfig{
			Workers:                 1,
			RelationshipRetention:   normalform.RetainUntilChildrenDone.String(),
			ConcreteDomainRetention: normalform.RetainAll.String(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("retention", func(fl validator.FieldLevel) bool {
		_, err := normalform.ParseRetentionPolicy(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads path (if not empty) over the defaults, applies DNF_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that apply further
// overrides first.
func Read(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DNF_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DNF_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("DNF_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DNF_WORKERS: %q is not a number", v)
		}
		c.Generator.Workers = n
	}
	if v := os.Getenv("DNF_METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}
	return nil
}

// Validate checks field constraints and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %w", errors.Join(msgs...))
}

// RelationshipPolicy returns the parsed relationship cache retention.
func (c *Config) RelationshipPolicy() normalform.RetentionPolicy {
	p, _ := normalform.ParseRetentionPolicy(c.Generator.RelationshipRetention)
	return p
}

// ConcreteDomainPolicy returns the parsed concrete domain cache retention.
func (c *Config) ConcreteDomainPolicy() normalform.RetentionPolicy {
	p, _ := normalform.ParseRetentionPolicy(c.Generator.ConcreteDomainRetention)
	return p
}
