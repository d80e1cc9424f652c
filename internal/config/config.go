// Package config reads signupflow settings from the environment.
//
// Every variable is prefixed with SIGNUPFLOW_. Command-line flags take
// precedence; the CLI only consults Config for flags the user did not set.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable name.
const Prefix = "SIGNUPFLOW_"

// Config holds the settings for an interactive run.
type Config struct {
	// DB is the SQLite emission log path. Empty disables logging.
	DB string `env:"DB"`

	// Policy is a CUE policy file. Empty uses the built-in rules.
	Policy string `env:"POLICY"`

	// UsernameCheckURL enables HTTP availability lookups against
	// <url>/<username>. Empty uses TakenUsernames instead.
	UsernameCheckURL string `env:"USERNAME_CHECK_URL"`

	// TakenUsernames is the static list used without UsernameCheckURL.
	TakenUsernames []string `env:"TAKEN_USERNAMES" envDefault:"admin,root" envSeparator:","`

	SignupDelay       time.Duration `env:"SIGNUP_DELAY" envDefault:"2s"`
	SignupFailureRate float64       `env:"SIGNUP_FAILURE_RATE" envDefault:"0.2"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `env:"METRICS_ADDR"`

	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.TakenUsernames = trimAll(cfg.TakenUsernames)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every out-of-range setting at once.
func (c Config) Validate() error {
	var problems []string

	if c.SignupDelay < 0 {
		problems = append(problems, fmt.Sprintf("%sSIGNUP_DELAY must not be negative, got %s", Prefix, c.SignupDelay))
	}
	if c.SignupFailureRate < 0 || c.SignupFailureRate > 1 {
		problems = append(problems, fmt.Sprintf("%sSIGNUP_FAILURE_RATE must be within [0, 1], got %g", Prefix, c.SignupFailureRate))
	}
	if c.HTTPTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("%sHTTP_TIMEOUT must be positive, got %s", Prefix, c.HTTPTimeout))
	}
	if c.UsernameCheckURL != "" {
		u, err := url.Parse(c.UsernameCheckURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("%sUSERNAME_CHECK_URL must be an absolute URL, got %q", Prefix, c.UsernameCheckURL))
		}
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

func trimAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
