package policy

import (
	"fmt"

	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk policy surface: one default policy plus named
// per-operation overrides.
type Config struct {
	Version    int                        `json:"version" yaml:"version"`
	Default    ExecutionPolicy            `json:"default" yaml:"default"`
	Operations map[string]ExecutionPolicy `json:"operations,omitempty" yaml:"operations,omitempty"`
}

// ParseConfig decodes YAML (yaml handles JSON too, so a single attempt is
// fine) into a Config. Fields are layered: the config default inherits from
// the documented engine defaults, and each override inherits every field it
// does not set from the config default.
func ParseConfig(data []byte) (Config, error) {
	var raw struct {
		Version    int                  `yaml:"version"`
		Default    yaml.Node            `yaml:"default"`
		Operations map[string]yaml.Node `yaml:"operations"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryBadInput, "invalid policy config").
			WithTextCode("POLICY_CONFIG_INVALID")
	}

	cfg := Config{Version: raw.Version, Default: Default()}
	if !raw.Default.IsZero() {
		if err := raw.Default.Decode(&cfg.Default); err != nil {
			return Config{}, errors.Wrap(err, errors.CategoryBadInput, "invalid default policy").
				WithTextCode("POLICY_CONFIG_INVALID")
		}
	}
	if len(raw.Operations) > 0 {
		cfg.Operations = make(map[string]ExecutionPolicy, len(raw.Operations))
		for name, node := range raw.Operations {
			p := cfg.Default
			if err := node.Decode(&p); err != nil {
				return Config{}, errors.Wrap(err, errors.CategoryBadInput,
					fmt.Sprintf("invalid policy override %q", name)).
					WithTextCode("POLICY_CONFIG_INVALID")
			}
			cfg.Operations[name] = p
		}
	}

	return cfg, cfg.Validate()
}

// Validate rejects nonsensical values. Zero values are left for Normalize.
func (c Config) Validate() error {
	if err := validatePolicy("default", c.Default); err != nil {
		return err
	}
	for name, p := range c.Operations {
		if name == "" {
			return errors.New("policy override requires an operation name", errors.CategoryValidation).
				WithTextCode("POLICY_CONFIG_INVALID")
		}
		if err := validatePolicy(name, p); err != nil {
			return err
		}
	}
	return nil
}

// Table builds the resolver table described by the config.
func (c Config) Table() *Table {
	return NewTable(c.Default, c.Operations)
}

func validatePolicy(name string, p ExecutionPolicy) error {
	if p.MaxAttempts < 0 {
		return policyFieldError(name, "max_attempts cannot be negative")
	}
	if p.RetryDelayBaseSeconds < 0 {
		return policyFieldError(name, "retry_delay_base_seconds cannot be negative")
	}
	if p.RetryDelayMaxSeconds < 0 {
		return policyFieldError(name, "retry_delay_max_seconds cannot be negative")
	}
	return nil
}

func policyFieldError(name, msg string) error {
	return errors.New(fmt.Sprintf("policy %q: %s", name, msg), errors.CategoryValidation).
		WithTextCode("POLICY_CONFIG_INVALID")
}
