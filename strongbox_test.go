package strongbox

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/illarion/strongbox/codec"
	"github.com/illarion/strongbox/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type versionOne struct {
	S string
}

type versionTwo struct {
	S string
	T int
}

type unsupported struct {
	C chan int
}

func newBox(t *testing.T, ns string) (*Strongbox, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	return New(m, WithNamespace(ns)), m
}

func TestTokenLifecycle(t *testing.T) {
	sb, m := newBox(t, "App")

	res := sb.Archive("abc123", "Token", TierWhenUnlocked)
	require.True(t, res.OK())
	assert.Equal(t, "App.Token", res.Key)
	assert.Equal(t, []string{"App.Token"}, m.Keys())

	v, res := sb.Unarchive("Token")
	require.True(t, res.OK())
	assert.Equal(t, "abc123", v)

	assert.True(t, sb.Remove("Token").OK())

	v, res = sb.Unarchive("Token")
	assert.Nil(t, v)
	assert.False(t, res.OK())
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Equal(t, StatusNotFound, sb.LastStatus())
}

func TestNamespace(t *testing.T) {
	sb, _ := newBox(t, "TestPrefix")
	assert.Equal(t, "TestPrefix", sb.Namespace())
	assert.Equal(t, "TestPrefix.TestKey", sb.Key("TestKey"))

	empty, m := newBox(t, "")
	assert.Equal(t, ".TestKey", empty.Key("TestKey"))
	require.True(t, empty.Archive("x", "TestKey", TierWhenUnlocked).OK())
	assert.Equal(t, []string{".TestKey"}, m.Keys())

	fromIdentity := New(store.NewMemory(), WithIdentity(IdentityFunc(func() (string, bool) {
		return "com.example.app", true
	})))
	assert.Equal(t, "com.example.app.TestKey", fromIdentity.Key("TestKey"))

	noIdentity := New(store.NewMemory(), WithIdentity(IdentityFunc(func() (string, bool) {
		return "", false
	})))
	assert.Equal(t, "", noIdentity.Namespace())

	explicit := New(store.NewMemory(), WithNamespace(""), WithIdentity(IdentityFunc(func() (string, bool) {
		return "ignored", true
	})))
	assert.Equal(t, "", explicit.Namespace())
}

func TestDefaultNamespaceFromEnvironment(t *testing.T) {
	t.Setenv("STRONGBOX_NAMESPACE", "from.env")
	sb := New(store.NewMemory())
	assert.Equal(t, "from.env", sb.Namespace())

	t.Setenv("STRONGBOX_NAMESPACE", "")
	sb = New(store.NewMemory())
	assert.Equal(t, "", sb.Namespace())
	assert.Equal(t, ".Token", sb.Key("Token"))
}

func TestNamespacesIsolateKeys(t *testing.T) {
	m := store.NewMemory()
	a := New(m, WithNamespace("A"))
	b := New(m, WithNamespace("B"))

	require.True(t, a.Archive("a", "Token", TierWhenUnlocked).OK())
	_, ok := UnarchiveAs[string](b, "Token")
	assert.False(t, ok)
	require.True(t, b.Archive("b", "Token", TierWhenUnlocked).OK())

	got, ok := UnarchiveAs[string](a, "Token")
	require.True(t, ok)
	assert.Equal(t, "a", got)
}

func TestRoundTrip(t *testing.T) {
	sb, _ := newBox(t, "StrongBoxTests")
	date := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	values := map[string]any{
		"String":        "TestString",
		"Int":           42,
		"Bool":          true,
		"Float":         2.5,
		"Bytes":         []byte("raw"),
		"Array":         []string{"A", "B", "C"},
		"Dictionary":    map[string]string{"Key 1": "A", "Key 2": "B", "Key 3": "C"},
		"ArrayOfDict":   []map[string]string{{"Key 1": "A", "Key 2": "B"}},
		"Set":           map[string]bool{"A": true, "B": true, "C": true},
		"Heterogeneous": []any{"A", 1, false},
		"NestedDict":    map[string]any{"list": []any{"x", 2}, "n": 1},
	}

	for key, value := range values {
		t.Run(key, func(t *testing.T) {
			require.True(t, sb.Archive(value, key, TierWhenUnlocked).OK())
			got, res := sb.Unarchive(key)
			require.True(t, res.OK(), res.String())
			assert.Equal(t, value, got)
		})
	}

	t.Run("Date", func(t *testing.T) {
		require.True(t, sb.Archive(date, "Date", TierWhenUnlocked).OK())
		got, ok := UnarchiveAs[time.Time](sb, "Date")
		require.True(t, ok)
		assert.True(t, date.Equal(got))
		assert.True(t, sb.Archive(nil, "Date", TierWhenUnlocked).OK())
	})
}

func TestOverwrite(t *testing.T) {
	sb, m := newBox(t, "StrongBoxTests")

	require.True(t, sb.Archive("1", "TestKey", TierWhenUnlocked).OK())
	got, ok := UnarchiveAs[string](sb, "TestKey")
	require.True(t, ok)
	assert.Equal(t, "1", got)

	require.True(t, sb.Archive("2", "TestKey", TierAlways).OK())
	got, ok = UnarchiveAs[string](sb, "TestKey")
	require.True(t, ok)
	assert.Equal(t, "2", got)

	rec, err := m.Query("StrongBoxTests.TestKey")
	require.NoError(t, err)
	assert.Equal(t, TierAlways, rec.Tier)

	require.True(t, sb.Archive(map[string]string{"b": "2"}, "Dict", TierWhenUnlocked).OK())
	require.True(t, sb.Archive(map[string]string{"a": "1"}, "Dict", TierWhenUnlocked).OK())
	dict, ok := UnarchiveAs[map[string]string](sb, "Dict")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"a": "1"}, dict)
}

func TestRemoveIsIdempotent(t *testing.T) {
	sb, _ := newBox(t, "StrongBoxTests")
	require.True(t, sb.Archive("Foobar", "TestKey", TierWhenUnlocked).OK())

	first := sb.Remove("TestKey")
	assert.True(t, first.OK())
	assert.Equal(t, StatusSuccess, first.Status)

	second := sb.Remove("TestKey")
	assert.True(t, second.OK())
	assert.Equal(t, StatusNotFound, second.Status)
}

func TestArchiveNilRemoves(t *testing.T) {
	sb, m := newBox(t, "StrongBoxTests")

	require.True(t, sb.Archive("TestString", "TestStringKey", TierWhenUnlocked).OK())
	assert.True(t, sb.Archive(nil, "TestStringKey", TierWhenUnlocked).OK())
	_, res := sb.Unarchive("TestStringKey")
	assert.False(t, res.OK())
	assert.Empty(t, m.Keys())

	assert.True(t, sb.Archive(nil, "TestFakeKey", TierWhenUnlocked).OK())

	var nilMap map[string]string
	var nilPtr *versionOne
	require.True(t, sb.Archive("x", "Typed", TierWhenUnlocked).OK())
	assert.True(t, sb.Archive(nilMap, "Typed", TierWhenUnlocked).OK())
	assert.Empty(t, m.Keys())
	require.True(t, sb.Archive("x", "Typed", TierWhenUnlocked).OK())
	assert.True(t, sb.Archive(nilPtr, "Typed", TierWhenUnlocked).OK())
	assert.Empty(t, m.Keys())
}

func TestArchiveUnsupportedValueRemoves(t *testing.T) {
	sb, m := newBox(t, "StrongBoxTests")
	require.True(t, sb.Archive("old", "TestKey", TierWhenUnlocked).OK())

	res := sb.Archive(unsupported{C: make(chan int)}, "TestKey", TierWhenUnlocked)
	assert.True(t, res.OK())
	assert.Empty(t, m.Keys())

	res = sb.Archive(func() {}, "TestKey", TierWhenUnlocked)
	assert.True(t, res.OK())
}

func TestMissingKey(t *testing.T) {
	sb, _ := newBox(t, "StrongBoxTests")
	v, res := sb.Unarchive("MissingKey")
	assert.Nil(t, v)
	assert.False(t, res.OK())
	assert.NoError(t, res.Err)
}

func TestChangedStruct(t *testing.T) {
	sb, _ := newBox(t, "StrongBoxTests")
	require.NoError(t, codec.Register[versionOne](sb.Graph(), "tests.version-one"))
	require.NoError(t, codec.Register[versionTwo](sb.Graph(), "tests.version-two"))

	require.True(t, sb.Archive(versionOne{S: "version1"}, "StructVersion", TierWhenUnlocked).OK())

	v1, ok := UnarchiveAs[versionOne](sb, "StructVersion")
	require.True(t, ok)
	assert.Equal(t, "version1", v1.S)

	v2, ok := UnarchiveAs[versionTwo](sb, "StructVersion")
	assert.False(t, ok)
	assert.Equal(t, versionTwo{}, v2)

	_, ok = UnarchiveAs[string](sb, "StructVersion")
	assert.False(t, ok)
}

func TestRegisteredShapeChanged(t *testing.T) {
	m := store.NewMemory()

	before := codec.NewGraph()
	require.NoError(t, codec.Register[versionOne](before, "tests.version"))
	writer := New(m, WithNamespace("App"), WithGraph(before))
	require.True(t, writer.Archive(versionOne{S: "a"}, "Record", TierWhenUnlocked).OK())

	after := codec.NewGraph()
	require.NoError(t, codec.Register[versionTwo](after, "tests.version"))
	reader := New(m, WithNamespace("App"), WithGraph(after))

	v, res := reader.Unarchive("Record")
	assert.Nil(t, v)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, codec.ErrShapeMismatch)
	assert.Equal(t, StatusSuccess, res.Status)
}

func TestUnarchiveCorruptPayload(t *testing.T) {
	sb, m := newBox(t, "App")
	require.NoError(t, m.Insert(store.Record{Key: "App.Junk", Data: []byte("garbage")}))

	v, res := sb.Unarchive("Junk")
	assert.Nil(t, v)
	assert.False(t, res.OK())
	assert.Error(t, res.Err)
}

func TestStoreFailures(t *testing.T) {
	sb, m := newBox(t, "App")
	require.True(t, sb.Archive("abc123", "Token", TierWhenUnlocked).OK())

	m.FailNext(store.OpQuery, errBoom)
	v, res := sb.Unarchive("Token")
	assert.Nil(t, v)
	assert.False(t, res.OK())
	assert.Equal(t, StatusFailure, sb.LastStatus())

	m.FailNext(store.OpDelete, errBoom)
	assert.False(t, sb.Remove("Token").OK())
	assert.Equal(t, StatusFailure, sb.LastStatus())

	m.FailNext(store.OpInsert, errBoom)
	res = sb.Archive("other", "Fresh", TierWhenUnlocked)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, errBoom)

	assert.True(t, sb.Archive("other", "Fresh", TierWhenUnlocked).OK())
	assert.Equal(t, StatusSuccess, sb.LastStatus())
}

func TestConcurrentArchive(t *testing.T) {
	sb, _ := newBox(t, "App")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				value := fmt.Sprintf("%d-%d", i, j)
				assert.True(t, sb.Archive(value, "Shared", TierWhenUnlocked).OK())
				_, ok := UnarchiveAs[string](sb, "Shared")
				assert.True(t, ok)
				_ = sb.LastStatus()
			}
		}(i)
	}
	wg.Wait()

	got, ok := UnarchiveAs[string](sb, "Shared")
	require.True(t, ok)
	assert.Regexp(t, `^\d+-49$`, got)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := store.NewMemory()
	sb := New(m, WithNamespace("App"), WithLogger(logger))

	require.True(t, sb.Archive("s3cret-value", "Token", TierWhenUnlocked).OK())
	m.FailNext(store.OpQuery, errBoom)
	sb.Unarchive("Token")

	out := buf.String()
	assert.Contains(t, out, "key=App.Token")
	assert.Contains(t, out, "namespace=App")
	assert.Contains(t, out, "status=failure")
	assert.NotContains(t, out, "s3cret-value")
}

func TestKeyringBackend(t *testing.T) {
	keyring.MockInit()
	sb := New(NewKeyringStore("tests"), WithNamespace("App"))

	require.True(t, sb.Archive([]string{"A", "B"}, "List", TierAfterFirstUnlock).OK())
	require.True(t, sb.Archive([]string{"C"}, "List", TierAfterFirstUnlock).OK())

	list, ok := UnarchiveAs[[]string](sb, "List")
	require.True(t, ok)
	assert.Equal(t, []string{"C"}, list)

	assert.True(t, sb.Remove("List").OK())
	assert.True(t, sb.Remove("List").OK())
	_, ok = UnarchiveAs[[]string](sb, "List")
	assert.False(t, ok)
}

func TestFileVaultBackend(t *testing.T) {
	vault, err := OpenFileVault(filepath.Join(t.TempDir(), "vault"), WithVaultIterations(1000))
	require.NoError(t, err)
	defer vault.Close()

	sb := New(vault, WithNamespace("App"))
	res := sb.Archive("abc123", "Token", TierWhenUnlocked)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, ErrLocked)

	require.NoError(t, vault.Initialize([]byte("pw")))
	require.True(t, sb.Archive("abc123", "Token", TierWhenUnlocked).OK())
	require.True(t, sb.Archive("def456", "Token", TierWhenUnlocked).OK())

	got, ok := UnarchiveAs[string](sb, "Token")
	require.True(t, ok)
	assert.Equal(t, "def456", got)

	index, err := vault.Index()
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, "App.Token", index[0].Key)
}
