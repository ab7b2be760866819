package lzs

import "github.com/pkg/errors"

// Stats is a read-only snapshot of a Tokenizer's internal state, filling in
// the shape of the "stats" read-only property spec.md section 6 mentions
// but never defines.
type Stats struct {
	CandidateLength int
	Fingerprint     uint32
	HasPrevKey      bool
	CursorValid     bool
	ParentValid     bool
	MemorySize      int
}

// FlushResult is the return value of Tokenizer.Flush: a pure read of the
// current candidate and the current Frequency Memory, with no mutation.
type FlushResult struct {
	Memory  FrequencyMemory
	Current []byte
}

// HasCurrent reports whether the candidate buffer is non-empty.
func (r FlushResult) HasCurrent() bool { return r.Current != nil }

// Tokenizer is the per-symbol state machine described in spec.md section
// 4.E: it owns the candidate buffer and drives the rolling hash, frequency
// memory, trie, and MDL gate to decide, on every symbol, whether to keep
// extending the current candidate or emit it as a token.
type Tokenizer struct {
	cfg Config

	hash   KeyGenerator
	memory FrequencyMemory
	trie   Trie
	mdl    *MDLGate
	mon    Monitor
	heavy  *HeavyHitters

	buffer         []byte
	hasPrevKey     bool
	trustThreshold int

	fallbacks []error
}

// New constructs a Tokenizer from cfg, applying DefaultConfig's values for
// any zero-valued field cfg does not set. It returns a *ConfigError
// synchronously if cfg fails validation.
func New(cfg Config) (*Tokenizer, error) {
	merged := mergeDefaults(cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	t := &Tokenizer{cfg: merged}

	if merged.KeyGenerator != nil {
		if err := probeKeyGenerator(merged.KeyGenerator); err != nil {
			t.fallbacks = append(t.fallbacks, err)
			t.hash = NewRollingHash()
		} else {
			t.hash = merged.KeyGenerator
		}
	} else {
		t.hash = NewRollingHash()
	}

	if merged.CacheImpl != nil {
		if err := probeCacheImpl(merged.CacheImpl); err != nil {
			t.fallbacks = append(t.fallbacks, err)
			t.memory = NewLRUMemory(merged.CacheSize)
		} else {
			t.memory = merged.CacheImpl
		}
	} else {
		t.memory = NewLRUMemory(merged.CacheSize)
	}

	if !*merged.TrieEnabled {
		t.trie = NoopTrie{}
	} else if merged.TrieImpl != nil {
		if err := probeTrieImpl(merged.TrieImpl); err != nil {
			t.fallbacks = append(t.fallbacks, err)
			t.trie = NewTrie(merged.DoorkeeperThreshold)
		} else {
			t.trie = merged.TrieImpl
		}
	} else {
		t.trie = NewTrie(merged.DoorkeeperThreshold)
	}

	t.mdl = NewMDLGate(merged.MDL)

	if merged.Monitor != nil {
		t.mon = merged.Monitor
	} else {
		t.mon = NoopMonitor{}
	}
	if hh, ok := t.mon.(*HeavyHitters); ok {
		t.heavy = hh
	}

	t.trustThreshold = clampTrustThreshold(merged.TrustThreshold)
	return t, nil
}

func mergeDefaults(cfg Config) Config {
	def := DefaultConfig()

	if cfg.CacheSize == 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.TrustThreshold == 0 {
		cfg.TrustThreshold = def.TrustThreshold
	}
	if cfg.TrieEnabled == nil {
		cfg.TrieEnabled = def.TrieEnabled
	}
	if cfg.MDL.Alpha == 0 {
		cfg.MDL.Alpha = def.MDL.Alpha
	}
	if cfg.MDL.ZFixed == 0 {
		cfg.MDL.ZFixed = def.MDL.ZFixed
	}
	if cfg.MDL.Beta == 0 {
		cfg.MDL.Beta = def.MDL.Beta
	}
	if cfg.MDL.C == 0 {
		cfg.MDL.C = def.MDL.C
	}
	if cfg.MDL.Tau == 0 {
		cfg.MDL.Tau = def.MDL.Tau
	}
	if cfg.AlphabetSize == 0 {
		cfg.AlphabetSize = def.AlphabetSize
	}
	return cfg
}

func clampTrustThreshold(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// probeFingerprint is a sentinel fingerprint the contract probes below use
// that a real candidate is vanishingly unlikely to collide with; every probe
// scrubs it back out (or wipes the whole structure) so it never lingers as a
// bogus learned entry.
const probeFingerprint uint32 = 0xA5A5A5A5

// probeCacheImpl exercises a caller-supplied FrequencyMemory's Set/Get
// round-trip contract (spec.md section 7.3's subcomponent-replacement
// category). It assumes the caller passed a freshly constructed, empty
// FrequencyMemory, since a successful probe clears it afterward. A panic
// during the probe counts as a contract failure, not a crash.
func probeCacheImpl(impl FrequencyMemory) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrSubcomponentRejected, "CacheImpl panicked during contract probe: %v", r)
		}
	}()
	impl.Set(probeFingerprint, 1)
	v, ok := impl.Get(probeFingerprint)
	if !ok || v != 1 {
		return errors.Wrap(ErrSubcomponentRejected, "CacheImpl failed its Set/Get round-trip contract probe")
	}
	impl.Clear()
	return nil
}

// probeKeyGenerator exercises a caller-supplied KeyGenerator's Update/
// Value/Recalculate agreement, then resets it to its seed state. A panic
// during the probe counts as a contract failure, not a crash.
func probeKeyGenerator(kg KeyGenerator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrSubcomponentRejected, "KeyGenerator panicked during contract probe: %v", r)
		}
	}()
	kg.Reset()
	viaUpdate := kg.Update('x')
	if viaUpdate != kg.Value() {
		return errors.Wrap(ErrSubcomponentRejected, "KeyGenerator.Value() disagreed with Update()'s return")
	}
	viaRecalc := kg.Recalculate([]byte{'x'})
	if viaRecalc != viaUpdate {
		return errors.Wrap(ErrSubcomponentRejected, "KeyGenerator.Recalculate() disagreed with a single Update()")
	}
	kg.Reset()
	return nil
}

// probeTrieImpl exercises a caller-supplied Trie's InsertToken/HasPrefix
// contract. It assumes the caller passed a freshly constructed, empty Trie:
// a successful probe leaves one disposable single-byte token installed,
// which is harmless on an otherwise-empty trie. A panic during the probe
// counts as a contract failure, not a crash.
func probeTrieImpl(tr Trie) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrSubcomponentRejected, "TrieImpl panicked during contract probe: %v", r)
		}
	}()
	probeByte := byte(probeFingerprint & 0xff)
	tr.InsertToken([]byte{probeByte}, 1, 0, false)
	if !tr.HasPrefix([]byte{probeByte}) {
		return errors.Wrap(ErrSubcomponentRejected, "TrieImpl failed its InsertToken/HasPrefix contract probe")
	}
	tr.CursorReset()
	return nil
}

// Process consumes one symbol. It returns (token, true) when the symbol
// triggered an emission, or (nil, false) when the candidate is still being
// extended. An alphabet violation returns (nil, false, err) without
// mutating any state.
func (t *Tokenizer) Process(symbol byte) ([]byte, bool, error) {
	if int(symbol) >= t.cfg.alphabetSize() {
		return nil, false, outOfRange(symbol, t.cfg.alphabetSize())
	}

	t.mon.Add(CounterBytesIn, uint32(symbol), 1)

	candKey := t.hash.Update(symbol)
	strength, _ := t.memory.Get(candKey)

	if len(t.buffer) == 0 {
		t.buffer = append(t.buffer, symbol)
		t.memory.Set(candKey, strength+1)
		t.trie.CursorInitFirst(symbol)
		t.mdl.Start(candKey)
		t.hasPrevKey = true
		t.mon.Add(CounterCandidatesStarted, candKey, 1)
		if t.heavy != nil {
			t.heavy.Track(candKey)
		}
		return nil, false, nil
	}

	t.buffer = append(t.buffer, symbol)
	t.trie.CursorAdvance(symbol, false)
	t.memory.Set(candKey, strength+1)

	if t.checkGates(candKey, strength) {
		return nil, false, nil
	}

	token := t.emit()
	return token, true, nil
}

// checkGates runs the three admission gates in the configured order and,
// if any admits, advances prev-key bookkeeping as spec.md section 4.E
// describes. It returns true iff the candidate should keep extending.
func (t *Tokenizer) checkGates(candKey uint32, strength uint32) bool {
	switch t.cfg.GateOrder {
	case GateOrderTrustFirst:
		if t.checkTrust(candKey, strength) {
			t.hasPrevKey = true
			return true
		}
		if t.checkMDL(candKey) {
			return true
		}
		return t.checkTriePrefix(candKey)
	default: // GateOrderMDLFirst
		if t.checkMDL(candKey) {
			return true
		}
		if t.checkTrust(candKey, strength) {
			t.hasPrevKey = true
			return true
		}
		return t.checkTriePrefix(candKey)
	}
}

func (t *Tokenizer) checkMDL(candKey uint32) bool {
	t.mon.Add(CounterMDLGateChecked, candKey, 1)
	decision := t.mdl.Admit(candKey, t.memory, t.trie.ChildDegreeAtParent())
	t.mon.Add(CounterMDLSumBaselineMean, candKey, floatBits(decision.BaselineMean))
	t.mon.Add(CounterMDLSumBaselineStd, candKey, floatBits(decision.BaselineStd))
	t.mon.Add(CounterMDLSumSurprisal, candKey, floatBits(surprisal(decision.P)))
	if decision.Admit {
		t.mon.Add(CounterMDLGatePassed, candKey, 1)
		t.hasPrevKey = true
		return true
	}
	t.mon.Add(CounterMDLGateFailed, candKey, 1)
	return false
}

func (t *Tokenizer) checkTrust(candKey uint32, strength uint32) bool {
	t.mon.Add(CounterCacheGateChecked, 0, 1)
	trusted := false
	switch t.cfg.TrustStrengthMode {
	case TrustThresholdPlusOne:
		trusted = strength >= uint32(t.trustThreshold)+1
	default: // TrustLiteralTwo
		trusted = strength >= 2
	}
	if trusted {
		t.mon.Add(CounterCacheGatePassed, 0, 1)
		t.mdl.Advance(candKey)
		return true
	}
	t.mon.Add(CounterCacheGateFailed, 0, 1)
	return false
}

func (t *Tokenizer) checkTriePrefix(candKey uint32) bool {
	t.mon.Add(CounterTrieGateChecked, 0, 1)
	if t.trie.CursorValid() {
		t.mon.Add(CounterTrieGatePassed, 0, 1)
		t.hasPrevKey = true
		t.mdl.Advance(candKey)
		return true
	}
	t.mon.Add(CounterTrieGateFailed, 0, 1)
	return false
}

// emit performs the emission procedure from spec.md section 4.E step 7,
// including the empty-prev special case for a single-symbol candidate that
// fails every gate.
func (t *Tokenizer) emit() []byte {
	last := t.buffer[len(t.buffer)-1]
	prev := t.buffer[:len(t.buffer)-1]

	var token []byte
	if len(prev) == 0 {
		token = append([]byte(nil), t.buffer...)
	} else {
		token = append([]byte(nil), prev...)
		t.mon.Add(CounterEmissionSumChildDegree, 0, uint64(t.trie.ChildDegreeAtParent()))
		if t.trie.ChildDegreeAtParent() > 0 {
			t.mon.Add(CounterEmissionHadLongerOptions, 0, 1)
		}
	}

	inc := uint32(1)
	if t.cfg.EmissionStrengthIncrement == IncrementStrengthPlusOne {
		strength, _ := t.memory.Get(t.hash.Value())
		inc = strength + 1
	}
	t.trie.InsertPreviousOrMark(prev, inc)

	t.buffer = append(t.buffer[:0], last)
	t.hash.Recalculate(t.buffer)
	t.trie.ResetToSingle(last)
	t.mdl.Start(t.hash.Value())
	t.hasPrevKey = false

	t.mon.Add(CounterTokensEmitted, 0, 1)
	t.mon.Add(CounterBytesOut, 0, uint64(len(token)))

	return token
}

// Flush returns the current candidate without clearing it; it is a pure
// read and never mutates state.
func (t *Tokenizer) Flush() FlushResult {
	if len(t.buffer) == 0 {
		return FlushResult{Memory: t.memory, Current: nil}
	}
	return FlushResult{Memory: t.memory, Current: append([]byte(nil), t.buffer...)}
}

// Clear empties the candidate buffer and the Frequency Memory and resets the
// rolling hash, the trie cursor and the MDL gate. Nodes already inserted
// into the trie are kept, so gate 3 can still admit prefixes learned before
// Clear.
func (t *Tokenizer) Clear() {
	t.buffer = t.buffer[:0]
	t.memory.Clear()
	t.hash.Reset()
	t.trie.CursorReset()
	t.mdl.Clear()
	t.hasPrevKey = false
}

// SetTrustThreshold clamps n to a minimum of 1, stores it, and returns the
// clamped value.
func (t *Tokenizer) SetTrustThreshold(n int) int {
	t.trustThreshold = clampTrustThreshold(n)
	return t.trustThreshold
}

// Stats returns a read-only snapshot of the tokenizer's current state.
func (t *Tokenizer) Stats() Stats {
	return Stats{
		CandidateLength: len(t.buffer),
		Fingerprint:     t.hash.Value(),
		HasPrevKey:      t.hasPrevKey,
		CursorValid:     t.trie.CursorValid(),
		ParentValid:     t.trie.ParentValid(),
		MemorySize:      t.memory.Size(),
	}
}

// Memory exposes the Frequency Memory backing this tokenizer, for callers
// who want to inspect learned counts directly.
func (t *Tokenizer) Memory() FrequencyMemory { return t.memory }

// KeyGeneratorInUse exposes the rolling hash backing this tokenizer.
func (t *Tokenizer) KeyGeneratorInUse() KeyGenerator { return t.hash }

// SubcomponentFallbacks returns the causes recorded whenever New rejected a
// caller-supplied CacheImpl, KeyGenerator, or TrieImpl for failing its
// contract probe and substituted the built-in implementation instead. Each
// wraps ErrSubcomponentRejected. An empty slice means every caller-supplied
// subcomponent (if any) passed its probe.
func (t *Tokenizer) SubcomponentFallbacks() []error { return t.fallbacks }
