package elide

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarkUnmarkSequence(t *testing.T) {
	e := New(3, nil)
	t0 := time.Unix(1000, 0)
	t1 := time.Unix(1001, 0)
	t2 := time.Unix(1002, 0)

	assert.EqualValues(t, 3, e.Mark("k", t0))
	assert.EqualValues(t, 4, e.Mark("k", t1))
	assert.EqualValues(t, 3, e.Unmark("k", t2))
	assert.EqualValues(t, 3, e.Mark("k", t2))
}

func TestMarkCreatesMissingEntry(t *testing.T) {
	e := New(5, nil)
	assert.EqualValues(t, 5, e.Mark("fresh", time.Unix(0, 0)))
}

func TestUnmarkCreatesMissingEntry(t *testing.T) {
	e := New(7, nil)
	assert.EqualValues(t, 7, e.Unmark("fresh", time.Unix(0, 0)))
	assert.EqualValues(t, 7, e.Mark("fresh", time.Unix(1, 0)))
}

func TestGCRemovesOnlyStaleEntries(t *testing.T) {
	e := New(0, nil)
	e.Mark("old", time.Unix(100, 0))
	e.Mark("fresh", time.Unix(200, 0))

	removed := e.GC(time.Unix(150, 0))

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, e.Size())
	_, stillThere := e.entries.Get("fresh")
	assert.True(t, stillThere)
}

func TestGCBoundaryIsInclusive(t *testing.T) {
	e := New(0, nil)
	e.Mark("boundary", time.Unix(100, 0))

	removed := e.GC(time.Unix(100, 0))

	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, e.Size())
}

func TestDestroyClearsAllEntries(t *testing.T) {
	e := New(0, nil)
	e.Mark("a", time.Unix(0, 0))
	e.Mark("b", time.Unix(0, 0))
	e.Destroy()
	assert.Equal(t, 0, e.Size())
}
