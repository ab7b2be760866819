// Package lzs implements the Lempel-Ziv stream tokenizer core: an online
// algorithm that consumes an unbounded stream of bytes one at a time and
// emits variable-length tokens such that frequently recurring subsequences
// are preserved as single tokens.
//
// The tokenizer is a greedy longest-known-prefix extender governed by three
// independent admission gates (statistical, frequency-count, trie-prefix).
// It is not a dictionary coder and does not attempt lossless round-trip
// compression; it is not safe for concurrent use.
package lzs

import "fmt"

// ZMode selects the source of the branching factor Z used by the MDL gate.
type ZMode int

const (
	// ZModeChildDegree derives Z from the trie's observed out-degree at the
	// current candidate's parent node (capped at 512).
	ZModeChildDegree ZMode = iota
	// ZModeFixed uses a constant Z regardless of trie shape.
	ZModeFixed
)

func (m ZMode) String() string {
	if m == ZModeFixed {
		return "fixed"
	}
	return "child-degree"
}

// GateOrder selects the order in which the three admission gates are
// consulted. The source the tokenizer was distilled from carried two
// different orderings across iterations; GateOrderMDLFirst is the canonical
// contract documented here, GateOrderTrustFirst preserves the alternative
// so callers who depended on it are not silently broken.
type GateOrder int

const (
	// GateOrderMDLFirst checks MDL, then frequency-trust, then trie-prefix.
	GateOrderMDLFirst GateOrder = iota
	// GateOrderTrustFirst checks frequency-trust, then MDL, then trie-prefix.
	GateOrderTrustFirst
)

// TrustStrengthMode resolves the ambiguity between the literal `strength >=
// 2` hot-path check and a threshold-relative one.
type TrustStrengthMode int

const (
	// TrustLiteralTwo admits whenever the candidate's observed strength is
	// at least 2, independent of the configured trust threshold.
	TrustLiteralTwo TrustStrengthMode = iota
	// TrustThresholdPlusOne admits whenever strength >= TrustThreshold+1,
	// the older iteration's behavior.
	TrustThresholdPlusOne
)

// EmissionStrengthIncrement resolves the ambiguity in how much strength an
// emitted-but-not-yet-trie-terminal candidate contributes on insertion.
type EmissionStrengthIncrement int

const (
	// IncrementOne always adds 1 (the newer iteration's behavior).
	IncrementOne EmissionStrengthIncrement = iota
	// IncrementStrengthPlusOne adds the candidate's own observed strength
	// plus 1 (the older iteration's behavior).
	IncrementStrengthPlusOne
)

// MDLConfig carries the parameters of the adaptive extension-admission
// gate. See Config for defaults.
type MDLConfig struct {
	Alpha   float64
	ZMode   ZMode
	ZFixed  int
	Beta    float64
	C       float64
	Tau     float64
}

// Config is the single construction-time configuration struct for a
// Tokenizer. Every field is optional; zero values are replaced by
// DefaultConfig's defaults in New.
type Config struct {
	// CacheSize bounds the number of entries kept in the Frequency Memory.
	CacheSize int
	// CacheImpl, if non-nil, replaces the built-in LRU-bounded Frequency
	// Memory. It must satisfy FrequencyMemory.
	CacheImpl FrequencyMemory

	// KeyGenerator, if non-nil, replaces the built-in rolling hash. It must
	// satisfy KeyGenerator.
	KeyGenerator KeyGenerator

	// TrustThreshold is the frequency-gate cut-off; clamped to a minimum of 1.
	TrustThreshold int
	// TrustStrengthMode resolves the strength>=2 vs strength>=threshold+1
	// ambiguity documented in spec.md's open questions.
	TrustStrengthMode TrustStrengthMode

	// TrieEnabled, if non-nil and false, installs a no-op trie so gate 3
	// never admits. A nil pointer means "unset": it is replaced by
	// DefaultConfig's true, the same as every other defaulted field. Use
	// BoolPtr to build one inline, e.g. Config{TrieEnabled: BoolPtr(false)}.
	TrieEnabled *bool
	// TrieImpl, if non-nil, replaces the built-in byte trie. It must
	// satisfy Trie.
	TrieImpl Trie
	// DoorkeeperThreshold is the trie node count at which the edge
	// doorkeeper bloom filter pre-check is installed. Zero disables it.
	DoorkeeperThreshold int

	// MDL carries the statistical gate's parameters.
	MDL MDLConfig

	// GateOrder selects the canonical or alternate gate ordering.
	GateOrder GateOrder

	// EmissionStrengthIncrement resolves the insertPreviousOrMark ambiguity.
	EmissionStrengthIncrement EmissionStrengthIncrement

	// AlphabetSize bounds the symbols process() will accept; 0 means 256
	// (the full byte alphabet).
	AlphabetSize int

	// Monitor, if non-nil, receives named-counter increments at well-defined
	// events. A nil Monitor is equivalent to NoopMonitor{}.
	Monitor Monitor
}

// BoolPtr returns a pointer to b, for setting Config.TrieEnabled inline.
func BoolPtr(b bool) *bool { return &b }

// DefaultConfig returns a Config populated with the defaults named in
// spec.md section 6.
func DefaultConfig() Config {
	return Config{
		CacheSize:      10000,
		TrustThreshold: 1,
		TrieEnabled:    BoolPtr(true),
		MDL: MDLConfig{
			Alpha:  0.1,
			ZMode:  ZModeChildDegree,
			ZFixed: 256,
			Beta:   0.02,
			C:      0.7,
			Tau:    0.8,
		},
		AlphabetSize: 256,
	}
}

// ConfigError collects every configuration problem found by Validate, so a
// caller sees the whole set of mistakes in one construction attempt instead
// of iterating error-fix-rebuild one field at a time.
type ConfigError struct {
	Issues []string
}

func (e *ConfigError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("lzs: invalid configuration: %s", e.Issues[0])
	}
	return fmt.Sprintf("lzs: invalid configuration (%d issues): %v", len(e.Issues), e.Issues)
}

// Unwrap lets errors.Is match a *ConfigError against ErrInvalidConfig.
func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks every field with a defined domain and returns a
// *ConfigError naming all violations, or nil if the configuration is
// usable as-is.
func (c Config) Validate() error {
	var issues []string
	if c.CacheSize <= 0 {
		issues = append(issues, "CacheSize must be positive")
	}
	if c.MDL.Alpha <= 0 {
		issues = append(issues, "MDL.Alpha must be > 0")
	}
	if c.MDL.Beta <= 0 || c.MDL.Beta > 1 {
		issues = append(issues, "MDL.Beta must be in (0, 1]")
	}
	if c.MDL.C < 0 {
		issues = append(issues, "MDL.C must be >= 0")
	}
	if c.MDL.Tau < 0 {
		issues = append(issues, "MDL.Tau must be >= 0")
	}
	if c.MDL.ZFixed < 1 {
		issues = append(issues, "MDL.ZFixed must be >= 1")
	}
	if c.AlphabetSize < 0 || c.AlphabetSize > 256 {
		issues = append(issues, "AlphabetSize must be in [0, 256]")
	}
	if len(issues) == 0 {
		return nil
	}
	return &ConfigError{Issues: issues}
}

// alphabetSize returns the effective alphabet size, substituting the
// 256-symbol default for the zero value.
func (c Config) alphabetSize() int {
	if c.AlphabetSize == 0 {
		return 256
	}
	return c.AlphabetSize
}

// trieEnabledOrDefault returns the effective TrieEnabled value, substituting
// the documented default of true for an unset (nil) pointer.
func (c Config) trieEnabledOrDefault() bool {
	if c.TrieEnabled == nil {
		return true
	}
	return *c.TrieEnabled
}
