package conflict

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type item struct{ key int }

func lessItems(a, b any) bool { return a.(*item).key < b.(*item).key }

func newCtx(key int) *Ctx {
	c := &Ctx{}
	c.Init(&item{key: key}, lessItems)
	return c
}

func TestAcquire_FreeWord(t *testing.T) {
	c := newCtx(1)
	var w Word

	require.NoError(t, c.Acquire(&w))
	require.Same(t, c, w.Owner())
	require.Equal(t, 1, c.Holding())
}

func TestAcquire_Reentrant(t *testing.T) {
	c := newCtx(1)
	var w Word

	require.NoError(t, c.Acquire(&w))
	require.NoError(t, c.Acquire(&w))
	require.Equal(t, 1, c.Holding(), "reacquiring an owned word must not duplicate the record")
}

func TestAcquire_EarlierStealsAndDisablesIncumbent(t *testing.T) {
	late := newCtx(5)
	early := newCtx(3)
	var w Word

	require.NoError(t, late.Acquire(&w))
	require.NoError(t, early.Acquire(&w))

	require.Same(t, early, w.Owner())
	require.False(t, late.IsSource(), "incumbent losing the word must be disabled")
	require.True(t, early.IsSource())
}

func TestAcquire_LaterLosesToIncumbent(t *testing.T) {
	early := newCtx(3)
	late := newCtx(5)
	var w Word

	require.NoError(t, early.Acquire(&w))
	err := late.Acquire(&w)

	require.ErrorIs(t, err, ErrConflict)
	require.Same(t, early, w.Owner())
	require.True(t, early.IsSource())
	// The loser is disabled by the round driver, not by Acquire.
	require.True(t, late.IsSource())
}

func TestAcquire_TieFavorsIncumbent(t *testing.T) {
	a := newCtx(4)
	b := newCtx(4)
	var w Word

	require.NoError(t, a.Acquire(&w))
	require.ErrorIs(t, b.Acquire(&w), ErrConflict)
	require.Same(t, a, w.Owner())
}

func TestReleaseAll_FreesOwnedWords(t *testing.T) {
	c := newCtx(1)
	var w1, w2 Word

	require.NoError(t, c.Acquire(&w1))
	require.NoError(t, c.Acquire(&w2))
	c.ReleaseAll()

	require.Nil(t, w1.Owner())
	require.Nil(t, w2.Owner())
	require.Equal(t, 0, c.Holding())
}

func TestReleaseAll_SkipsStolenWords(t *testing.T) {
	late := newCtx(9)
	early := newCtx(2)
	var w Word

	require.NoError(t, late.Acquire(&w))
	require.NoError(t, early.Acquire(&w))

	late.ReleaseAll()
	require.Same(t, early, w.Owner(), "victim must not free a word it no longer owns")
}

func TestDisableEnable(t *testing.T) {
	c := newCtx(1)
	require.True(t, c.IsSource())
	c.Disable()
	require.False(t, c.IsSource())
	c.Enable()
	require.True(t, c.IsSource())
}

func TestSlots(t *testing.T) {
	s := NewSlots(4)
	c := newCtx(7)

	require.Nil(t, s.Get(2))
	s.Set(2, c)
	require.Same(t, c, s.Get(2))
	require.Nil(t, s.Get(1))
	s.Clear(2)
	require.Nil(t, s.Get(2))
}
