package detect

import "time"

// SpikeConfig configures the usage-spike detector.
type SpikeConfig struct {
	// ThresholdMultiplier is how many times above baseline usage must be
	// before a spike is considered. Default: 10.
	ThresholdMultiplier float64

	// MinUsage is the absolute usage floor below which no spike is ever
	// reported, suppressing false positives on near-zero baselines.
	MinUsage float64

	// BaselineLookback is how far back the baseline average reaches.
	BaselineLookback time.Duration
}

// DefaultSpikeConfig returns the platform spike-detection defaults.
func DefaultSpikeConfig() SpikeConfig {
	return SpikeConfig{
		ThresholdMultiplier: 10,
		MinUsage:            1000,
		BaselineLookback:    7 * 24 * time.Hour,
	}
}

// ErrorRateConfig configures the error-rate detector.
type ErrorRateConfig struct {
	// ThresholdPercent is the error percentage at which detection starts.
	// Default: 50.
	ThresholdPercent float64

	// MinRequests is the request-count floor below which no detection is
	// made, regardless of ratio.
	MinRequests int64

	// Window is the interval request counts are taken over.
	Window time.Duration
}

// DefaultErrorRateConfig returns the platform error-rate defaults.
func DefaultErrorRateConfig() ErrorRateConfig {
	return ErrorRateConfig{
		ThresholdPercent: 50,
		MinRequests:      100,
		Window:           time.Hour,
	}
}

// PatternRule is the effective configuration for one pattern sub-heuristic.
type PatternRule struct {
	// Enabled turns the sub-heuristic on or off.
	Enabled bool

	// MinOccurrences is the qualifying-event count needed within the
	// window to confirm the pattern (min_attempts / min_keys for the
	// brute-force and key-creation heuristics).
	MinOccurrences int64

	// Window is the rolling detection window.
	Window time.Duration

	// SuspendOnDetection suspends the project on confirmation instead of
	// only warning.
	SuspendOnDetection bool
}

// PatternConfig is the effective configuration for all three sub-heuristics.
type PatternConfig struct {
	SQLInjection   PatternRule
	AuthBruteForce PatternRule
	APIKeyCreation PatternRule
}

// Rule returns the rule for a pattern kind.
func (c PatternConfig) Rule(kind PatternKind) PatternRule {
	switch kind {
	case PatternSQLInjection:
		return c.SQLInjection
	case PatternAuthBruteForce:
		return c.AuthBruteForce
	case PatternAPIKeyCreation:
		return c.APIKeyCreation
	default:
		return PatternRule{}
	}
}

// DefaultPatternConfig returns the platform pattern-detection defaults.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		SQLInjection: PatternRule{
			Enabled:            true,
			MinOccurrences:     3,
			Window:             5 * time.Minute,
			SuspendOnDetection: true,
		},
		AuthBruteForce: PatternRule{
			Enabled:            true,
			MinOccurrences:     10,
			Window:             15 * time.Minute,
			SuspendOnDetection: true,
		},
		APIKeyCreation: PatternRule{
			Enabled:            true,
			MinOccurrences:     5,
			Window:             time.Hour,
			SuspendOnDetection: false,
		},
	}
}

// PatternRuleOverride holds per-project override values for one
// sub-heuristic. Nil fields mean "use the default"; the merge is
// field-by-field, not rule-by-rule.
type PatternRuleOverride struct {
	Enabled            *bool          `json:"enabled,omitempty"`
	MinOccurrences     *int64         `json:"min_occurrences,omitempty"`
	Window             *time.Duration `json:"window,omitempty"`
	SuspendOnDetection *bool          `json:"suspend_on_detection,omitempty"`
}

// PatternOverrides is the stored per-project pattern-config override.
// Absence of the whole record, a rule, or any field means the
// corresponding default applies.
type PatternOverrides struct {
	ProjectID      string               `json:"project_id"`
	SQLInjection   *PatternRuleOverride `json:"sql_injection,omitempty"`
	AuthBruteForce *PatternRuleOverride `json:"auth_bruteforce,omitempty"`
	APIKeyCreation *PatternRuleOverride `json:"api_key_creation,omitempty"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ResolveConfig merges a stored override into the defaults field-by-field.
// An override value wins only where it is explicitly set; everything else
// keeps the default. A nil override returns the defaults unchanged.
func ResolveConfig(override *PatternOverrides, defaults PatternConfig) PatternConfig {
	if override == nil {
		return defaults
	}
	return PatternConfig{
		SQLInjection:   resolveRule(override.SQLInjection, defaults.SQLInjection),
		AuthBruteForce: resolveRule(override.AuthBruteForce, defaults.AuthBruteForce),
		APIKeyCreation: resolveRule(override.APIKeyCreation, defaults.APIKeyCreation),
	}
}

// resolveRule merges one sub-heuristic's override into its default.
func resolveRule(override *PatternRuleOverride, def PatternRule) PatternRule {
	if override == nil {
		return def
	}
	rule := def
	if override.Enabled != nil {
		rule.Enabled = *override.Enabled
	}
	if override.MinOccurrences != nil {
		rule.MinOccurrences = *override.MinOccurrences
	}
	if override.Window != nil {
		rule.Window = *override.Window
	}
	if override.SuspendOnDetection != nil {
		rule.SuspendOnDetection = *override.SuspendOnDetection
	}
	return rule
}
