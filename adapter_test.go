package strongbox

import (
	"errors"
	"testing"

	"github.com/illarion/strongbox/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestUpsertInsertsNewKey(t *testing.T) {
	m := store.NewMemory()
	a := adapter{store: m}

	res := a.upsert("App.Token", []byte("v1"), TierAlways)
	assert.True(t, res.OK())
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, m.Calls(store.OpInsert))
	assert.Equal(t, 0, m.Calls(store.OpDelete))

	rec, err := m.Query("App.Token")
	require.NoError(t, err)
	assert.Equal(t, TierAlways, rec.Tier)
}

func TestUpsertReplacesDuplicate(t *testing.T) {
	m := store.NewMemory()
	a := adapter{store: m}
	require.True(t, a.upsert("App.Token", []byte("v1"), TierWhenUnlocked).OK())

	res := a.upsert("App.Token", []byte("v2"), TierAfterFirstUnlock)
	assert.True(t, res.OK())
	assert.Equal(t, 3, m.Calls(store.OpInsert))
	assert.Equal(t, 1, m.Calls(store.OpDelete))

	rec, err := m.Query("App.Token")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(rec.Data))
	assert.Equal(t, TierAfterFirstUnlock, rec.Tier)
}

func TestUpsertDeleteFailureKeepsOldValue(t *testing.T) {
	m := store.NewMemory()
	a := adapter{store: m}
	require.True(t, a.upsert("App.Token", []byte("v1"), TierWhenUnlocked).OK())

	m.FailNext(store.OpDelete, errBoom)
	res := a.upsert("App.Token", []byte("v2"), TierWhenUnlocked)
	assert.False(t, res.OK())
	assert.Equal(t, StatusFailure, res.Status)
	assert.ErrorIs(t, res.Err, errBoom)

	rec, err := m.Query("App.Token")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(rec.Data))
}

func TestUpsertReinsertFailureLeavesKeyDeleted(t *testing.T) {
	m := store.NewMemory()
	a := adapter{store: m}
	require.True(t, a.upsert("App.Token", []byte("v1"), TierWhenUnlocked).OK())

	m.FailNext(store.OpInsert, store.ErrDuplicateKey)
	m.FailNext(store.OpInsert, errBoom)
	res := a.upsert("App.Token", []byte("v2"), TierWhenUnlocked)
	assert.False(t, res.OK())
	assert.Equal(t, StatusFailure, res.Status)

	_, err := m.Query("App.Token")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertRetriesWhenDuplicateVanished(t *testing.T) {
	m := store.NewMemory()
	a := adapter{store: m}

	m.FailNext(store.OpInsert, store.ErrDuplicateKey)
	res := a.upsert("App.Token", []byte("v1"), TierWhenUnlocked)
	assert.True(t, res.OK())
	assert.Equal(t, 2, m.Calls(store.OpInsert))
}

func TestUpsertRetriesOnce(t *testing.T) {
	m := store.NewMemory()
	a := adapter{store: m}

	m.FailNext(store.OpInsert, store.ErrDuplicateKey)
	m.FailNext(store.OpInsert, store.ErrDuplicateKey)
	res := a.upsert("App.Token", []byte("v1"), TierWhenUnlocked)
	assert.False(t, res.OK())
	assert.Equal(t, StatusDuplicateKey, res.Status)
	assert.Equal(t, 2, m.Calls(store.OpInsert))
}

func TestFetch(t *testing.T) {
	m := store.NewMemory()
	a := adapter{store: m}

	data, res := a.fetch("App.Missing")
	assert.Nil(t, data)
	assert.False(t, res.OK())
	assert.Equal(t, StatusNotFound, res.Status)
	assert.NoError(t, res.Err)

	require.NoError(t, m.Insert(store.Record{Key: "App.Token", Data: []byte("x")}))
	data, res = a.fetch("App.Token")
	assert.True(t, res.OK())
	assert.Equal(t, "x", string(data))

	m.FailNext(store.OpQuery, errBoom)
	data, res = a.fetch("App.Token")
	assert.Nil(t, data)
	assert.False(t, res.OK())
	assert.Equal(t, StatusFailure, res.Status)
	assert.ErrorIs(t, res.Err, errBoom)
}

func TestDelete(t *testing.T) {
	m := store.NewMemory()
	a := adapter{store: m}
	require.NoError(t, m.Insert(store.Record{Key: "App.Token"}))

	res := a.delete("App.Token")
	assert.True(t, res.OK())
	assert.Equal(t, StatusSuccess, res.Status)

	res = a.delete("App.Token")
	assert.True(t, res.OK())
	assert.Equal(t, StatusNotFound, res.Status)
	assert.NoError(t, res.Err)

	m.FailNext(store.OpDelete, errBoom)
	res = a.delete("App.Token")
	assert.False(t, res.OK())
	assert.Equal(t, StatusFailure, res.Status)
	assert.Contains(t, res.String(), "boom")
}
