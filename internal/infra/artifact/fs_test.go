package artifact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alhassan/smart-sales-agent-go/internal/infra/artifact"
)

func TestFSStore_PutGet(t *testing.T) {
	store, err := artifact.NewFSStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Put("invoice_000001.pdf", []byte("%PDF-1.4 data"))
	require.NoError(t, err)
	assert.Equal(t, "invoice_000001.pdf", ref)

	data, err := store.Get(ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 data"), data)
}

func TestFSStore_GetMissing(t *testing.T) {
	store, err := artifact.NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("nope.pdf")
	require.Error(t, err)
}

func TestFSStore_RejectsPathTraversal(t *testing.T) {
	store, err := artifact.NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"", "../escape.pdf", "a/b.pdf", `a\b.pdf`, ".."} {
		if _, err := store.Put(ref, []byte("x")); err == nil {
			t.Errorf("expected Put(%q) to be rejected", ref)
		}
		if _, err := store.Get(ref); err == nil {
			t.Errorf("expected Get(%q) to be rejected", ref)
		}
	}
}

func TestFSStore_Overwrite(t *testing.T) {
	store, err := artifact.NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put("invoice_000001.pdf", []byte("v1"))
	require.NoError(t, err)
	_, err = store.Put("invoice_000001.pdf", []byte("v2"))
	require.NoError(t, err)

	data, err := store.Get("invoice_000001.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}
