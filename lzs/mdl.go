package lzs

import "math"

const mdlEpsilon = 1e-9

// GateDecision reports the intermediate quantities of one MDLGate.Admit
// call, so the tokenizer can feed them to a Monitor (spec.md section 6's
// mdl_sum_surprisal / mdl_sum_baseline_mean / mdl_sum_baseline_std
// counters) without the gate depending on the Monitor interface itself.
type GateDecision struct {
	Admit        bool
	P            float64
	BaselineMean float64
	BaselineStd  float64
}

// mdlPhase tracks the Cold/Warm state machine from spec.md section 4.D.
type mdlPhase int

const (
	mdlCold mdlPhase = iota
	mdlWarm
)

// MDLGate is the adaptive statistical admission test: an EWMA mean/variance
// over conditional next-symbol probabilities, plus a degree-based entropy
// floor. No teacher component computes EWMA statistics; the entropy-floor
// table is precomputed once per gate, in the branch-free, flat-slice style
// of sketch.go's cmRow (precompute once, read without allocation).
type MDLGate struct {
	cfg MDLConfig

	phase   mdlPhase
	prevKey uint32
	mean    float64
	mean2   float64

	floor [513]float64
}

// NewMDLGate builds an MDLGate from cfg, precomputing the entropy floor
// table indexed by Z in [0, 512].
func NewMDLGate(cfg MDLConfig) *MDLGate {
	g := &MDLGate{cfg: cfg}
	g.floor[0] = 0 // zFor never returns 0, so Admit does not read this entry
	for z := 1; z <= 512; z++ {
		g.floor[z] = math.Exp(-cfg.Tau * math.Log(float64(z)))
	}
	return g
}

// Clear resets the gate to its just-constructed state (Cold, zeroed EWMA).
func (g *MDLGate) Clear() {
	g.phase = mdlCold
	g.prevKey = 0
	g.mean = 0
	g.mean2 = 0
}

// Start transitions Cold -> Warm, recording key as the new prev-key. Called
// on the first symbol of a new candidate.
func (g *MDLGate) Start(key uint32) {
	g.phase = mdlWarm
	g.prevKey = key
}

// Advance moves prev_key to key without touching the EWMA statistics. Gate
// 2 (frequency-trust) and gate 3 (trie-prefix) call this on admit: spec.md
// section 4.E steps 5-6 advance prev_key on ANY gate's admission, not only
// the MDL gate's own, so the next Admit call measures against the symbol
// the candidate actually extended to rather than a stale key.
func (g *MDLGate) Advance(key uint32) {
	g.prevKey = key
}

// zFor derives the branching factor Z from the configured mode.
func (g *MDLGate) zFor(childDegreeAtParent uint32) uint64 {
	var z uint64
	if g.cfg.ZMode == ZModeFixed {
		z = uint64(g.cfg.ZFixed)
	} else {
		z = uint64(childDegreeAtParent)
		if z > 512 {
			z = 512
		}
	}
	if z < 1 {
		z = 1
	}
	return z
}

// Admit runs one MDL check for the extension to candKey, given the trie's
// observed out-degree at the candidate's parent. It must only be called in
// the Warm phase (i.e. after Start has been called for the current
// candidate). On admit, prev_key is advanced to candKey. On reject,
// prev_key is left unchanged. The EWMA state is always updated.
func (g *MDLGate) Admit(candKey uint32, freq FrequencyMemory, childDegreeAtParent uint32) GateDecision {
	z := g.zFor(childDegreeAtParent)

	prevCount, _ := freq.Get(g.prevKey)
	candCount, _ := freq.Get(candKey)

	p := (float64(candCount) + g.cfg.Alpha) / (float64(prevCount) + g.cfg.Alpha*float64(z))
	if p < mdlEpsilon {
		p = mdlEpsilon
	}
	if p > 1-1e-12 {
		p = 1 - 1e-12
	}

	meanPrev := g.mean
	g.mean = (1-g.cfg.Beta)*g.mean + g.cfg.Beta*p
	g.mean2 = (1-g.cfg.Beta)*g.mean2 + g.cfg.Beta*p*p

	variance := g.mean2 - g.mean*g.mean
	if variance < 1e-12 {
		variance = 1e-12
	}
	std := math.Sqrt(variance)

	drop := meanPrev - p
	bigDrop := drop > 0 && drop*drop >= g.cfg.C*g.cfg.C*variance

	floorIdx := z
	if floorIdx > 512 {
		floorIdx = 512
	}
	floorOK := p >= g.floor[floorIdx]

	admit := !bigDrop && floorOK
	if admit {
		g.prevKey = candKey
	}

	return GateDecision{Admit: admit, P: p, BaselineMean: meanPrev, BaselineStd: std}
}
