package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryUpsertAndSnapshotOrder(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Entry{Source: "bzcc", Key: "2", Name: "beta"})
	r.Upsert(Entry{Source: "bz98r", Key: "1", Name: "zulu"})
	r.Upsert(Entry{Source: "bz98r", Key: "3", Name: "alpha"})

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"alpha", "zulu", "beta"}, []string{snap[0].Name, snap[1].Name, snap[2].Name})
	assert.Equal(t, "bz98r", snap[0].Source)
	assert.Equal(t, "bzcc", snap[2].Source)
}

func TestRegistryUpsertReplaces(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Entry{Source: "bz98r", Key: "1", Name: "old", Players: "1/8"})
	r.Upsert(Entry{Source: "bz98r", Key: "1", Name: "new", Players: "2/8"})

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "new", snap[0].Name)
	assert.Equal(t, "2/8", snap[0].Players)
	assert.False(t, snap[0].Seen.IsZero(), "Seen is stamped on upsert")
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Entry{Source: "bz98r", Key: "1", Name: "a"})
	r.Remove("bz98r", "1")
	assert.Zero(t, r.Len())

	r.Remove("bz98r", "missing")
}

func TestRegistryRegisterPong(t *testing.T) {
	r := NewRegistry()
	r.RegisterPong("bzcc", "10.0.0.1:61111", "MyLobby|4/8|canyon")

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "10.0.0.1:61111", snap[0].Key)
	assert.Equal(t, "MyLobby|4/8|canyon", snap[0].Status)
}
