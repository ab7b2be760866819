package lzs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{CacheSize: -1})
	require.Error(t, err)
	_, ok := err.(*ConfigError)
	require.True(t, ok)
}

func TestNew_AppliesBuiltinsOnZeroConfig(t *testing.T) {
	tk, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, tk.hash)
	require.NotNil(t, tk.memory)
	require.NotNil(t, tk.trie)
	require.NotNil(t, tk.mdl)
	require.NotNil(t, tk.mon)
}

func TestNew_HonorsCallerSuppliedSubcomponents(t *testing.T) {
	customMem := NewLRUMemory(8)
	tk, err := New(Config{CacheSize: 100, CacheImpl: customMem})
	require.NoError(t, err)
	require.Same(t, customMem, tk.memory)
	require.Empty(t, tk.SubcomponentFallbacks())
}

func TestNew_TrieEnabledDefaultsTrueEvenWhenOtherFieldsAreSet(t *testing.T) {
	tk, err := New(Config{CacheSize: 5000})
	require.NoError(t, err)
	_, isNoop := tk.trie.(NoopTrie)
	require.False(t, isNoop)
}

// brokenCache always fails to report back what was just Set, violating
// FrequencyMemory's Set/Get round-trip contract.
type brokenCache struct{}

func (brokenCache) Get(fp uint32) (uint32, bool)               { return 0, false }
func (brokenCache) Set(fp uint32, count uint32)                {}
func (brokenCache) Clear()                                     {}
func (brokenCache) Size() int                                  { return 0 }
func (brokenCache) Each(fn func(fp uint32, count uint32) bool) {}

// brokenKeyGenerator's Update return disagrees with its own Value(),
// violating KeyGenerator's contract.
type brokenKeyGenerator struct{}

func (brokenKeyGenerator) Value() uint32                 { return 111 }
func (brokenKeyGenerator) Update(b byte) uint32          { return 222 }
func (brokenKeyGenerator) Reset()                        {}
func (brokenKeyGenerator) Recalculate(buf []byte) uint32 { return 0 }

// brokenTrie's HasPrefix always reports false regardless of InsertToken,
// violating Trie's contract. Embeds a nil Trie since the probe never calls
// any other method.
type brokenTrie struct {
	Trie
}

func (brokenTrie) InsertToken(buf []byte, strengthInc uint32, tick float64, hasTick bool) NodeID {
	return absentNode
}
func (brokenTrie) HasPrefix(buf []byte) bool { return false }
func (brokenTrie) CursorReset()              {}

func TestNew_FallsBackWhenCacheImplFailsContractProbe(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000, CacheImpl: brokenCache{}})
	require.NoError(t, err)

	_, stillBroken := tk.memory.(brokenCache)
	require.False(t, stillBroken)

	fallbacks := tk.SubcomponentFallbacks()
	require.Len(t, fallbacks, 1)
	require.True(t, errors.Is(fallbacks[0], ErrSubcomponentRejected))
}

func TestNew_FallsBackWhenKeyGeneratorFailsContractProbe(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000, KeyGenerator: brokenKeyGenerator{}})
	require.NoError(t, err)

	_, stillBroken := tk.hash.(brokenKeyGenerator)
	require.False(t, stillBroken)

	fallbacks := tk.SubcomponentFallbacks()
	require.Len(t, fallbacks, 1)
	require.True(t, errors.Is(fallbacks[0], ErrSubcomponentRejected))
}

func TestNew_FallsBackWhenTrieImplFailsContractProbe(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000, TrieImpl: brokenTrie{}})
	require.NoError(t, err)

	_, stillBroken := tk.trie.(brokenTrie)
	require.False(t, stillBroken)

	fallbacks := tk.SubcomponentFallbacks()
	require.Len(t, fallbacks, 1)
	require.True(t, errors.Is(fallbacks[0], ErrSubcomponentRejected))
}

func TestCheckTrust_AdvancesMDLPrevKeyOnAdmit(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000})
	require.NoError(t, err)

	tk.mdl.Start(1)
	admitted := tk.checkTrust(42, 2) // strength 2 passes the default TrustLiteralTwo mode
	require.True(t, admitted)
	require.Equal(t, uint32(42), tk.mdl.prevKey)
}

func TestCheckTriePrefix_AdvancesMDLPrevKeyOnAdmit(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000})
	require.NoError(t, err)

	tk.mdl.Start(1)
	tk.trie.InsertToken([]byte("ab"), 1, 0, false)
	tk.trie.CursorInitFirst('a')
	tk.trie.CursorAdvance('b', false)

	admitted := tk.checkTriePrefix(99)
	require.True(t, admitted)
	require.Equal(t, uint32(99), tk.mdl.prevKey)
}

func TestTokenizer_Process_RejectsOutOfRangeSymbol(t *testing.T) {
	tk, err := New(Config{CacheSize: 100, AlphabetSize: 10})
	require.NoError(t, err)

	before := tk.Stats()
	_, ok, err := tk.Process(200)
	require.Error(t, err)
	require.False(t, ok)
	require.Equal(t, before, tk.Stats())
}

func TestTokenizer_Process_FirstSymbolNeverEmits(t *testing.T) {
	tk, err := New(Config{CacheSize: 100})
	require.NoError(t, err)

	token, ok, err := tk.Process('a')
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, token)
	require.Equal(t, 1, tk.Stats().CandidateLength)
}

func TestTokenizer_Process_NovelBytesEmitOneAtATime(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000})
	require.NoError(t, err)

	input := []byte("abcdef")
	var tokens [][]byte
	for _, b := range input {
		token, ok, err := tk.Process(b)
		require.NoError(t, err)
		if ok {
			tokens = append(tokens, token)
		}
	}

	require.Equal(t, [][]byte{
		[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e"),
	}, tokens)

	flushed := tk.Flush()
	require.Equal(t, []byte("f"), flushed.Current)
}

func TestTokenizer_EmittedTokensAndFlushReconstructInput(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000})
	require.NoError(t, err)

	input := []byte("the quick brown fox jumps over the lazy dog, the quick brown fox runs")
	total := 0
	var rebuilt []byte
	for _, b := range input {
		token, ok, err := tk.Process(b)
		require.NoError(t, err)
		if ok {
			total += len(token)
			rebuilt = append(rebuilt, token...)
		}
	}
	flushed := tk.Flush()
	total += len(flushed.Current)
	rebuilt = append(rebuilt, flushed.Current...)

	require.Equal(t, len(input), total)
	require.Equal(t, input, rebuilt)
}

func TestTokenizer_Clear_ResetsState(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000})
	require.NoError(t, err)

	for _, b := range []byte("abcdef") {
		tk.Process(b)
	}
	require.Greater(t, tk.Stats().CandidateLength, 0)

	tk.Clear()
	stats := tk.Stats()
	require.Equal(t, 0, stats.CandidateLength)
	require.Equal(t, 0, stats.MemorySize)
	require.Equal(t, uint32(0), stats.Fingerprint)
}

func TestTokenizer_SetTrustThreshold_ClampsToMinimumOne(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000})
	require.NoError(t, err)

	require.Equal(t, 1, tk.SetTrustThreshold(0))
	require.Equal(t, 1, tk.SetTrustThreshold(-5))
	require.Equal(t, 3, tk.SetTrustThreshold(3))
}

func TestTokenizer_Flush_DoesNotMutateState(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000})
	require.NoError(t, err)

	tk.Process('a')
	tk.Process('b') // likely emits "a", leaves "b" in the buffer

	first := tk.Flush()
	second := tk.Flush()
	require.Equal(t, first.Current, second.Current)
}

func TestTokenizer_TrieDisabled_UsesNoopTrie(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000, TrieEnabled: BoolPtr(false)})
	require.NoError(t, err)

	_, isNoop := tk.trie.(NoopTrie)
	require.True(t, isNoop)
}

func TestTokenizer_WithMonitor_RecordsCounters(t *testing.T) {
	mon := NewMonitor()
	tk, err := New(Config{CacheSize: 1000, Monitor: mon})
	require.NoError(t, err)

	for _, b := range []byte("abcdef") {
		tk.Process(b)
	}

	require.Equal(t, uint64(6), mon.Get(CounterBytesIn))
	require.Greater(t, mon.Get(CounterTokensEmitted), uint64(0))
}

func TestTokenizer_GateOrderTrustFirst_StillProducesValidTokenStream(t *testing.T) {
	tk, err := New(Config{CacheSize: 1000, GateOrder: GateOrderTrustFirst})
	require.NoError(t, err)

	input := []byte("mississippi river mississippi delta")
	total := 0
	for _, b := range input {
		token, ok, _ := tk.Process(b)
		if ok {
			total += len(token)
		}
	}
	total += len(tk.Flush().Current)
	require.Equal(t, len(input), total)
}
