package lzs

import "github.com/pkg/errors"

// Sentinel errors forming the three-category taxonomy from spec.md section
// 7. Wrap them with errors.Wrap/Wrapf so callers can still errors.Is against
// the sentinel while getting a human-readable cause.
var (
	// ErrInvalidConfig is what the *ConfigError returned synchronously from
	// New unwraps to when a configuration parameter is out of its
	// documented domain.
	ErrInvalidConfig = errors.New("lzs: invalid configuration")

	// ErrSymbolOutOfRange is returned from Process when a symbol falls
	// outside the configured alphabet. The operation is rejected without
	// mutating any state.
	ErrSymbolOutOfRange = errors.New("lzs: symbol out of range")

	// ErrSubcomponentRejected is not returned from New; it wraps the cause
	// recorded whenever a caller-supplied CacheImpl, KeyGenerator, or
	// TrieImpl fails its construction-time contract probe and the built-in
	// implementation is substituted in its place. Retrieve the wrapped
	// causes from Tokenizer.SubcomponentFallbacks so tests and diagnostics
	// can assert on the fallback having occurred.
	ErrSubcomponentRejected = errors.New("lzs: subcomponent rejected, falling back to built-in")
)

// outOfRange wraps ErrSymbolOutOfRange with the offending symbol and the
// configured alphabet size.
func outOfRange(symbol byte, alphabetSize int) error {
	return errors.Wrapf(ErrSymbolOutOfRange, "symbol %d is outside alphabet of size %d", symbol, alphabetSize)
}
