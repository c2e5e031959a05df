package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarjala/curio/internal/appraisal"
	"github.com/mkarjala/curio/internal/llm"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), DeriveKey("test-passphrase"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func clockItem() NewItem {
	return NewItem{
		PrincipalID: "principal-1",
		Image:       llm.ImageBlob{Data: []byte{0xff, 0xd8, 0x01}, MIMEType: "image/jpeg"},
		Appraisal: appraisal.Record{
			DescriptiveName:     "Vintage Clock",
			EstimatedValueRange: appraisal.ValueRange{Low: "$80", High: "$120"},
			Reasoning:           "Working mid-century mantel clock.",
			ComparableSales:     []appraisal.ComparableSale{},
			Tags:                []string{"vintage", "clock", "decor"},
			OtherMetadata:       []appraisal.MetadataEntry{},
		},
	}
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Append(clockItem())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	items, err := store.GetAll()
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, id, item.ID)
	assert.Equal(t, "principal-1", item.PrincipalID)
	assert.Equal(t, "Vintage Clock", item.Appraisal.DescriptiveName)
	assert.WithinDuration(t, time.Now().UTC(), item.CreatedAt, time.Minute)
}

func TestImageSurvivesEncryptedRoundTrip(t *testing.T) {
	store := newTestStore(t)

	original := clockItem()
	_, err := store.Append(original)
	require.NoError(t, err)

	items, err := store.GetAll()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, original.Image, items[0].Image)
}

func TestGetAllNewestFirst(t *testing.T) {
	store := newTestStore(t)

	first := clockItem()
	_, err := store.Append(first)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	second := clockItem()
	second.Appraisal.DescriptiveName = "Antique Mirror"
	_, err = store.Append(second)
	require.NoError(t, err)

	items, err := store.GetAll()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Antique Mirror", items[0].Appraisal.DescriptiveName)
	assert.Equal(t, "Vintage Clock", items[1].Appraisal.DescriptiveName)
}

func TestGetAllOrderStableForSameInstantAppends(t *testing.T) {
	store := newTestStore(t)

	// No sleeps: rapid appends can land on the same created_at, and the
	// order must still be newest insertion first.
	names := []string{"Vintage Clock", "Antique Mirror", "Brass Lamp", "Oak Side Table"}
	for _, name := range names {
		item := clockItem()
		item.Appraisal.DescriptiveName = name
		_, err := store.Append(item)
		require.NoError(t, err)
	}

	items, err := store.GetAll()
	require.NoError(t, err)
	require.Len(t, items, len(names))
	for i, name := range names {
		assert.Equal(t, name, items[len(names)-1-i].Appraisal.DescriptiveName)
	}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Append(clockItem())
	require.NoError(t, err)

	updates, cancel := store.Subscribe()
	defer cancel()

	select {
	case snapshot := <-updates:
		require.Len(t, snapshot, 1)
		assert.Equal(t, "Vintage Clock", snapshot[0].Appraisal.DescriptiveName)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot delivered")
	}
}

func TestSubscribeReplacesSnapshotOnAppend(t *testing.T) {
	store := newTestStore(t)

	updates, cancel := store.Subscribe()
	defer cancel()

	// Appends while the subscriber is idle: the buffered snapshot is
	// replaced, not queued, so one receive yields the latest state.
	_, err := store.Append(clockItem())
	require.NoError(t, err)

	second := clockItem()
	second.Appraisal.DescriptiveName = "Antique Mirror"
	_, err = store.Append(second)
	require.NoError(t, err)

	select {
	case snapshot := <-updates:
		assert.Len(t, snapshot, 2)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered after append")
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	store := newTestStore(t)

	updates, cancel := store.Subscribe()
	<-updates
	cancel()

	_, ok := <-updates
	assert.False(t, ok)

	// Appending after cancel must not panic or block.
	_, err := store.Append(clockItem())
	require.NoError(t, err)
}

func TestAppraisalCacheRoundTrip(t *testing.T) {
	store := newTestStore(t)

	cached, err := store.GetAppraisalCache("no-such-hash")
	require.NoError(t, err)
	assert.Nil(t, cached)

	record := clockItem().Appraisal
	require.NoError(t, store.SetAppraisalCache("hash-1", &record))

	cached, err = store.GetAppraisalCache("hash-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, record, *cached)
}

func TestPrincipalRoundTrip(t *testing.T) {
	store := newTestStore(t)

	id, err := store.GetPrincipal()
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, store.SavePrincipal("principal-1"))

	id, err = store.GetPrincipal()
	require.NoError(t, err)
	assert.Equal(t, "principal-1", id)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	store := newTestStore(t)

	token, err := store.GetSessionToken()
	require.NoError(t, err)
	assert.Empty(t, token)

	// A token cannot be attached before a principal exists.
	assert.Error(t, store.SaveSessionToken("signed-token"))

	require.NoError(t, store.SavePrincipal("principal-1"))
	require.NoError(t, store.SaveSessionToken("signed-token"))

	token, err = store.GetSessionToken()
	require.NoError(t, err)
	assert.Equal(t, "signed-token", token)
}
