package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTouchAndCount(t *testing.T) {
	r := NewRegistry(time.Minute, time.Hour)
	defer r.Close()

	r.Touch("alice")
	r.Touch("bob")
	r.Touch("alice")

	assert.Equal(t, 2, r.Count())
	assert.ElementsMatch(t, []string{"alice", "bob"}, r.Active())
}

func TestEmptySessionIgnored(t *testing.T) {
	r := NewRegistry(time.Minute, time.Hour)
	defer r.Close()

	r.Touch("")
	assert.Equal(t, 0, r.Count())
}

func TestExpiredEntriesNotCounted(t *testing.T) {
	r := NewRegistry(time.Minute, time.Hour)
	defer r.Close()

	now := time.Now()
	r.now = func() time.Time { return now }
	r.Touch("alice")

	r.now = func() time.Time { return now.Add(2 * time.Minute) }
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.Active())
}

func TestPruneRemovesExpired(t *testing.T) {
	r := NewRegistry(time.Minute, time.Hour)
	defer r.Close()

	now := time.Now()
	r.now = func() time.Time { return now }
	r.Touch("alice")
	r.Touch("bob")

	r.now = func() time.Time { return now.Add(2 * time.Minute) }
	r.Touch("carol")
	r.prune()

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.Len(t, r.seen, 1)
	_, ok := r.seen["carol"]
	assert.True(t, ok)
}

func TestCloseIsIdempotent(t *testing.T) {
	r := NewRegistry(time.Minute, time.Millisecond)
	r.Close()
	r.Close()
}
