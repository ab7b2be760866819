package lzs

import "math"

// NodeID identifies a trie node. Root is always NodeID(0). absentNode (-1)
// means "no such path".
type NodeID int32

const absentNode NodeID = -1

// Trie is the byte-trie interface: a structural API for building/querying
// prefix paths plus a streaming cursor API for the tokenizer's hot path.
// Config.TrieEnabled set to false installs NoopTrie, which implements the
// same interface as a set of constants, so the tokenizer never branches on
// whether the trie is active.
type Trie interface {
	Root() NodeID
	Child(node NodeID, s byte) NodeID
	EnsureChild(node NodeID, s byte) NodeID
	MarkTerminal(node NodeID, strengthInc uint32, tick float64, hasTick bool)
	InsertToken(buf []byte, strengthInc uint32, tick float64, hasTick bool) NodeID
	HasPrefix(buf []byte) bool
	ChildDegreeByID(node NodeID) uint32
	ChildDegree(buf []byte) uint32

	CursorReset()
	CursorInitFirst(s byte)
	CursorAdvance(s byte, allowRootFallback bool) bool
	CursorValid() bool
	ParentValid() bool
	ChildDegreeAtParent() uint32
	MarkParentTerminal(strengthInc uint32, tick float64, hasTick bool)
	ResetToSingle(s byte)
	InsertPreviousOrMark(prevBuffer []byte, strengthInc uint32)
}

// nodeTable holds per-node metadata in growable dense slices, doubled on
// exhaustion, grounded on arena.go's power-of-two size-classed slabs but
// simplified to a single-owner, non-concurrent table: the tokenizer's
// contract (spec.md section 5) guarantees no concurrent access, so the
// atomics and sync.Map the teacher needs for its shared slab allocator
// would be pure overhead here.
type nodeTable struct {
	terminal  []bool
	strength  []uint32
	outDegree []uint32
	lastSeen  []float64
	hasTick   []bool
	n         int32
}

const nodeTableInitialCap = 64

func newNodeTable() *nodeTable {
	t := &nodeTable{
		terminal:  make([]bool, 1, nodeTableInitialCap),
		strength:  make([]uint32, 1, nodeTableInitialCap),
		outDegree: make([]uint32, 1, nodeTableInitialCap),
		lastSeen:  make([]float64, 1, nodeTableInitialCap),
		hasTick:   make([]bool, 1, nodeTableInitialCap),
		n:         1, // node 0, the root, exists at construction
	}
	return t
}

// alloc reserves a new node id, doubling every slice once capacity is
// exhausted.
func (t *nodeTable) alloc() NodeID {
	if int(t.n) == cap(t.terminal) {
		t.grow()
	}
	id := t.n
	t.terminal = t.terminal[:id+1]
	t.strength = t.strength[:id+1]
	t.outDegree = t.outDegree[:id+1]
	t.lastSeen = t.lastSeen[:id+1]
	t.hasTick = t.hasTick[:id+1]
	t.n++
	return NodeID(id)
}

func (t *nodeTable) grow() {
	newCap := cap(t.terminal) * 2
	t.terminal = growBool(t.terminal, newCap)
	t.strength = growUint32(t.strength, newCap)
	t.outDegree = growUint32(t.outDegree, newCap)
	t.lastSeen = growFloat64(t.lastSeen, newCap)
	t.hasTick = growBool(t.hasTick, newCap)
}

func growBool(s []bool, newCap int) []bool {
	n := make([]bool, len(s), newCap)
	copy(n, s)
	return n
}

func growUint32(s []uint32, newCap int) []uint32 {
	n := make([]uint32, len(s), newCap)
	copy(n, s)
	return n
}

func growFloat64(s []float64, newCap int) []float64 {
	n := make([]float64, len(s), newCap)
	copy(n, s)
	return n
}

func (t *nodeTable) reset() {
	*t = *newNodeTable()
}

// packEdge packs (node, symbol) into one uint64 key for the flat edge map,
// per spec.md section 4.C's implementation note.
func packEdge(node NodeID, s byte) uint64 {
	return uint64(uint32(node))<<8 | uint64(s)
}

// byteTrie is the built-in Trie: one flat map of packed (node,symbol)
// edges plus the nodeTable above. An optional bloom-filter doorkeeper
// (edgeDoorkeeper, adapted from filter.go) pre-checks edge existence to
// skip the map probe on a filter miss; it is installed once the trie reaches
// DoorkeeperThreshold nodes, since the filter's own memory only pays
// for itself on larger tries.
type byteTrie struct {
	nodes *nodeTable
	edges map[uint64]NodeID

	cur, par NodeID

	doorkeeper          *edgeDoorkeeper
	doorkeeperThreshold int
}

// NewTrie returns the built-in byte trie. doorkeeperThreshold <= 0 disables
// the bloom-filter pre-check entirely.
func NewTrie(doorkeeperThreshold int) Trie {
	return &byteTrie{
		nodes:               newNodeTable(),
		edges:                make(map[uint64]NodeID),
		cur:                  absentNode,
		par:                  absentNode,
		doorkeeperThreshold:  doorkeeperThreshold,
	}
}

func (t *byteTrie) Root() NodeID { return 0 }

func (t *byteTrie) Child(node NodeID, s byte) NodeID {
	if node < 0 {
		return absentNode
	}
	key := packEdge(node, s)
	if t.doorkeeper != nil && !t.doorkeeper.Has(key) {
		return absentNode
	}
	if child, ok := t.edges[key]; ok {
		return child
	}
	return absentNode
}

func (t *byteTrie) EnsureChild(node NodeID, s byte) NodeID {
	if child := t.Child(node, s); child != absentNode {
		return child
	}
	child := t.nodes.alloc()
	t.edges[packEdge(node, s)] = child
	t.nodes.outDegree[node]++
	t.maybeInstallDoorkeeper()
	if t.doorkeeper != nil {
		t.doorkeeper.Set(packEdge(node, s))
	}
	return child
}

func (t *byteTrie) maybeInstallDoorkeeper() {
	if t.doorkeeper != nil || t.doorkeeperThreshold <= 0 {
		return
	}
	if int(t.nodes.n) < t.doorkeeperThreshold {
		return
	}
	dk := newEdgeDoorkeeper(uint64(t.doorkeeperThreshold)*4, 0.01)
	for key := range t.edges {
		dk.Set(key)
	}
	t.doorkeeper = dk
}

func (t *byteTrie) MarkTerminal(node NodeID, strengthInc uint32, tick float64, hasTick bool) {
	if node < 0 {
		return
	}
	t.nodes.terminal[node] = true
	t.nodes.strength[node] += strengthInc
	if hasTick {
		t.nodes.lastSeen[node] = tick
		t.nodes.hasTick[node] = true
	}
}

func (t *byteTrie) InsertToken(buf []byte, strengthInc uint32, tick float64, hasTick bool) NodeID {
	node := t.Root()
	for _, s := range buf {
		node = t.EnsureChild(node, s)
	}
	t.MarkTerminal(node, strengthInc, tick, hasTick)
	return node
}

func (t *byteTrie) HasPrefix(buf []byte) bool {
	node := t.Root()
	for _, s := range buf {
		node = t.Child(node, s)
		if node == absentNode {
			return false
		}
	}
	return true
}

func (t *byteTrie) ChildDegreeByID(node NodeID) uint32 {
	if node < 0 || int(node) >= int(t.nodes.n) {
		return 0
	}
	return t.nodes.outDegree[node]
}

func (t *byteTrie) ChildDegree(buf []byte) uint32 {
	node := t.Root()
	for _, s := range buf {
		node = t.Child(node, s)
		if node == absentNode {
			return 0
		}
	}
	return t.ChildDegreeByID(node)
}

func (t *byteTrie) CursorReset() {
	t.cur, t.par = absentNode, absentNode
}

func (t *byteTrie) CursorInitFirst(s byte) {
	t.par = t.Root()
	t.cur = t.Child(t.Root(), s)
}

func (t *byteTrie) CursorAdvance(s byte, allowRootFallback bool) bool {
	prev := t.cur
	if prev >= 0 {
		t.par = prev
		t.cur = t.Child(prev, s)
	} else if allowRootFallback {
		t.par = t.Root()
		t.cur = t.Child(t.Root(), s)
	} else {
		t.par = absentNode
		t.cur = absentNode
	}
	return t.cur >= 0
}

func (t *byteTrie) CursorValid() bool  { return t.cur >= 0 }
func (t *byteTrie) ParentValid() bool  { return t.par >= 0 }

func (t *byteTrie) ChildDegreeAtParent() uint32 {
	if t.par < 0 {
		return 0
	}
	return t.ChildDegreeByID(t.par)
}

func (t *byteTrie) MarkParentTerminal(strengthInc uint32, tick float64, hasTick bool) {
	if t.par < 0 {
		return
	}
	t.MarkTerminal(t.par, strengthInc, tick, hasTick)
}

func (t *byteTrie) ResetToSingle(s byte) {
	t.par = t.Root()
	t.cur = t.Child(t.Root(), s)
}

func (t *byteTrie) InsertPreviousOrMark(prevBuffer []byte, strengthInc uint32) {
	if t.par >= 0 {
		t.MarkTerminal(t.par, strengthInc, 0, false)
		return
	}
	t.InsertToken(prevBuffer, strengthInc, 0, false)
}

// NoopTrie is the "runtime-off switch" variant from spec.md section 9: every
// method is a constant, so the cursor is permanently absent and gate 3
// never admits, without the tokenizer branching on whether the trie is
// enabled.
type NoopTrie struct{}

func (NoopTrie) Root() NodeID                                                  { return 0 }
func (NoopTrie) Child(NodeID, byte) NodeID                                     { return absentNode }
func (NoopTrie) EnsureChild(NodeID, byte) NodeID                               { return absentNode }
func (NoopTrie) MarkTerminal(NodeID, uint32, float64, bool)                    {}
func (NoopTrie) InsertToken([]byte, uint32, float64, bool) NodeID              { return absentNode }
func (NoopTrie) HasPrefix([]byte) bool                                        { return false }
func (NoopTrie) ChildDegreeByID(NodeID) uint32                                 { return 0 }
func (NoopTrie) ChildDegree([]byte) uint32                                    { return 0 }
func (NoopTrie) CursorReset()                                                 {}
func (NoopTrie) CursorInitFirst(byte)                                         {}
func (NoopTrie) CursorAdvance(byte, bool) bool                                { return false }
func (NoopTrie) CursorValid() bool                                            { return false }
func (NoopTrie) ParentValid() bool                                            { return false }
func (NoopTrie) ChildDegreeAtParent() uint32                                  { return 0 }
func (NoopTrie) MarkParentTerminal(uint32, float64, bool)                     {}
func (NoopTrie) ResetToSingle(byte)                                           {}
func (NoopTrie) InsertPreviousOrMark([]byte, uint32)                          {}

// edgeDoorkeeper is a bloom filter over packed edge keys, adapted from
// filter.go's TinyLFU doorkeeper: same k-hash/block/bit layout, but mixing
// a uint64 key directly with splitmix64 instead of hashing a string with
// fnv, since the caller already has a well-mixed integer key.
type edgeDoorkeeper struct {
	keys uint64
	data []byte
	mask uint64
}

func newEdgeDoorkeeper(size uint64, rate float64) *edgeDoorkeeper {
	if size == 0 {
		size = 1
	}
	m := -1 * float64(size) * math.Log(rate) / (math.Ln2 * math.Ln2)
	b := uint64(math.Ceil(m / 8))
	if b == 0 {
		b = 1
	}
	return &edgeDoorkeeper{
		keys: uint64(math.Ceil(math.Ln2 * m / float64(size))),
		data: make([]byte, nextPow2(b)),
		mask: nextPow2(b) - 1,
	}
}

func (f *edgeDoorkeeper) Set(key uint64) bool {
	changed := false
	for i := uint64(0); i < f.keys; i++ {
		block, bit := f.index(splitmix64(key + i*0x9E3779B97F4A7C15))
		if !f.has(block, bit) {
			changed = true
			f.data[block] |= 1 << bit
		}
	}
	return changed
}

func (f *edgeDoorkeeper) Has(key uint64) bool {
	for i := uint64(0); i < f.keys; i++ {
		block, bit := f.index(splitmix64(key + i*0x9E3779B97F4A7C15))
		if !f.has(block, bit) {
			return false
		}
	}
	return true
}

func (f *edgeDoorkeeper) Reset() {
	for i := range f.data {
		f.data[i] = 0
	}
}

func (f *edgeDoorkeeper) has(block, bit uint64) bool {
	return f.data[block]<<(7-bit)>>7 == 1
}

func (f *edgeDoorkeeper) index(hashed uint64) (uint64, uint64) {
	return hashed & f.mask, hashed & 7
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x = x ^ (x >> 31)
	return x
}

func nextPow2(x uint64) uint64 {
	if x == 0 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	return x
}
