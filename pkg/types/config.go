// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-agent/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchProviderName selects the search gateway implementation.
type SearchProviderName string

const (
	// ProviderLive is the network-backed provider (Tavily). It requires a credential.
	ProviderLive SearchProviderName = "live"

	// ProviderStub is the deterministic offline provider used for testing.
	ProviderStub SearchProviderName = "stub"
)

// ResearchConfig is the closed configuration of one research run.
type ResearchConfig struct {
	// DraftModel identifies the model used for planning, extraction, writing
	// and revising (default "gpt-4o").
	DraftModel string `json:"draft_model" yaml:"draft_model" validate:"required"`

	// VerifyModel identifies the cheaper model used to compile verification
	// claims (default "gpt-4o-mini").
	VerifyModel string `json:"verify_model" yaml:"verify_model" validate:"required"`

	// SearchProvider is live or stub.
	SearchProvider SearchProviderName `json:"search_provider" yaml:"search_provider" validate:"oneof=live stub"`

	// MaxSearches caps the number of planned sub-questions (default 6).
	MaxSearches int `json:"max_searches" yaml:"max_searches" validate:"gt=0"`

	// MaxSources caps the number of selected sources (default 8).
	MaxSources int `json:"max_sources" yaml:"max_sources" validate:"gt=0"`

	// MinUniqueDomains is the distinct-domain count below which a domain may
	// contribute at most two sources (default 4).
	MinUniqueDomains int `json:"min_unique_domains" yaml:"min_unique_domains" validate:"gte=0"`

	// EnableVerification adds the verify-then-revise branch. It is fixed
	// before the run starts.
	EnableVerification bool `json:"enable_verification" yaml:"enable_verification"`

	// ReportStyle selects the writer's presentation.
	ReportStyle ReportStyle `json:"report_style" yaml:"report_style" validate:"oneof=default executive academic bullet"`

	// StageTimeout bounds each stage; expiry fails the run (default 5m).
	StageTimeout time.Duration `json:"stage_timeout" yaml:"stage_timeout" validate:"gte=0"`

	// Concurrency bounds the fan-out of searches, extractions and claim
	// checks. 1 reproduces strictly sequential processing (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency" validate:"gte=0"`

	// SearchRPS limits live search requests per second; 0 disables the limit.
	SearchRPS float64 `json:"search_rps" yaml:"search_rps" validate:"gte=0"`

	// MaxRetries is the number of retries for failed model calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" validate:"gte=0"`

	HTTPConfig `yaml:",inline"`
}

// Defaults for ResearchConfig.
const (
	DefaultDraftModel       = "gpt-4o"
	DefaultVerifyModel      = "gpt-4o-mini"
	DefaultMaxSearches      = 6
	DefaultMaxSources       = 8
	DefaultMinUniqueDomains = 4
	DefaultStageTimeout     = 5 * time.Minute
	DefaultConcurrency      = 4
	DefaultMaxRetries       = 3
	DefaultUserAgent        = "research-agent/0.1"
)

// DefaultResearchConfig returns the configuration used when no flag or
// config file overrides a field.
func DefaultResearchConfig() ResearchConfig {
	return ResearchConfig{
		DraftModel:       DefaultDraftModel,
		VerifyModel:      DefaultVerifyModel,
		SearchProvider:   ProviderLive,
		MaxSearches:      DefaultMaxSearches,
		MaxSources:       DefaultMaxSources,
		MinUniqueDomains: DefaultMinUniqueDomains,
		ReportStyle:      StyleDefault,
		StageTimeout:     DefaultStageTimeout,
		Concurrency:      DefaultConcurrency,
		MaxRetries:       DefaultMaxRetries,
		HTTPConfig: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: DefaultUserAgent,
		},
	}
}

var configValidate = validator.New()

// Validate checks the configuration and returns a *ConfigError describing
// the first invalid field.
func (c ResearchConfig) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ConfigError{
			Field:  fe.Field(),
			Value:  fmt.Sprint(fe.Value()),
			Reason: describeRule(fe.Tag(), fe.Param()),
		}
	}
	return &ConfigError{Reason: err.Error()}
}

func describeRule(tag, param string) string {
	switch tag {
	case "required":
		return "must be set"
	case "oneof":
		return "must be one of: " + param
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be at least " + param
	default:
		return "failed " + tag + " rule"
	}
}

// Credentials holds the secrets needed by live providers. Credentials are
// passed explicitly to constructors; no component reads the environment.
type Credentials struct {
	SearchAPIKey string `json:"-" yaml:"-"`
	LLMAPIKey    string `json:"-" yaml:"-"`
}
