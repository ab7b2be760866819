package lzs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteTrie_InsertAndHasPrefix(t *testing.T) {
	tr := NewTrie(0)
	tr.InsertToken([]byte("abc"), 1, 0, false)

	require.True(t, tr.HasPrefix([]byte("a")))
	require.True(t, tr.HasPrefix([]byte("ab")))
	require.True(t, tr.HasPrefix([]byte("abc")))
	require.False(t, tr.HasPrefix([]byte("abd")))
	require.False(t, tr.HasPrefix([]byte("x")))
}

func TestByteTrie_ChildDegree(t *testing.T) {
	tr := NewTrie(0)
	tr.InsertToken([]byte("ab"), 1, 0, false)
	tr.InsertToken([]byte("ac"), 1, 0, false)
	tr.InsertToken([]byte("ad"), 1, 0, false)

	require.Equal(t, uint32(3), tr.ChildDegree([]byte("a")))
	require.Equal(t, uint32(0), tr.ChildDegree([]byte("ab")))
}

func TestByteTrie_CursorAdvance(t *testing.T) {
	tr := NewTrie(0)
	tr.InsertToken([]byte("abc"), 1, 0, false)

	tr.CursorInitFirst('a')
	require.True(t, tr.CursorValid())

	ok := tr.CursorAdvance('b', false)
	require.True(t, ok)
	require.True(t, tr.CursorValid())

	ok = tr.CursorAdvance('z', false)
	require.False(t, ok)
	require.False(t, tr.CursorValid())
}

func TestByteTrie_ResetToSingle(t *testing.T) {
	tr := NewTrie(0)
	tr.InsertToken([]byte("ab"), 1, 0, false)

	tr.CursorInitFirst('a')
	tr.CursorAdvance('b', false)
	require.True(t, tr.CursorValid())

	tr.ResetToSingle('a')
	require.True(t, tr.CursorValid())
	require.True(t, tr.ParentValid())
}

func TestByteTrie_InsertPreviousOrMark_InsertsWhenParentAbsent(t *testing.T) {
	tr := NewTrie(0)
	tr.CursorReset() // cur and par both absent

	tr.InsertPreviousOrMark([]byte("ab"), 1)
	require.True(t, tr.HasPrefix([]byte("ab")))
}

func TestByteTrie_InsertPreviousOrMark_MarksExistingParent(t *testing.T) {
	tr := NewTrie(0)
	tr.InsertToken([]byte("ab"), 1, 0, false)

	tr.CursorInitFirst('a')
	tr.CursorAdvance('b', false)
	require.True(t, tr.ParentValid()) // par now points at the 'a' node

	bt := tr.(*byteTrie)
	before := bt.nodes.strength[bt.par]

	tr.InsertPreviousOrMark([]byte("a"), 5)
	require.Equal(t, before+5, bt.nodes.strength[bt.par])
}

func TestByteTrie_DoorkeeperInstallsAfterThreshold(t *testing.T) {
	tr := NewTrie(2).(*byteTrie)
	require.Nil(t, tr.doorkeeper)

	tr.InsertToken([]byte("a"), 1, 0, false)
	tr.InsertToken([]byte("b"), 1, 0, false)
	tr.InsertToken([]byte("c"), 1, 0, false)

	require.NotNil(t, tr.doorkeeper)
	require.True(t, tr.HasPrefix([]byte("a")))
	require.False(t, tr.HasPrefix([]byte("z")))
}

func TestNoopTrie_AlwaysAbsent(t *testing.T) {
	tr := NoopTrie{}
	tr.CursorInitFirst('a')
	require.False(t, tr.CursorValid())
	require.False(t, tr.ParentValid())
	require.Equal(t, uint32(0), tr.ChildDegreeAtParent())
	require.False(t, tr.HasPrefix([]byte("a")))
}

func TestEdgeDoorkeeper_SetAndHas(t *testing.T) {
	dk := newEdgeDoorkeeper(1024, 0.01)
	key := packEdge(3, 'x')
	require.False(t, dk.Has(key))
	dk.Set(key)
	require.True(t, dk.Has(key))
}

func TestNextPow2(t *testing.T) {
	require.Equal(t, uint64(1), nextPow2(0))
	require.Equal(t, uint64(1), nextPow2(1))
	require.Equal(t, uint64(8), nextPow2(5))
	require.Equal(t, uint64(16), nextPow2(16))
}
