package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Documents: []*Document{
			{ID: "itinerary_day_1_0", Content: "DAY 1: Lisbon", Source: "data/itinerary.txt",
				Metadata: map[string]any{"source": "data/itinerary.txt", "section": "day_1", "chunk_index": 0}},
			{ID: "itinerary_day_2_0", Content: "DAY 2: Porto", Source: "data/itinerary.txt",
				Metadata: map[string]any{"source": "data/itinerary.txt", "section": "day_2", "chunk_index": 0}},
		},
		Embeddings: [][]float32{{0.1, 0.2, 0.3}, {-1, 0, 1.5}},
		State: map[string]string{
			StateKeyEmbeddingModel: "static",
			StateKeyEmbeddingDim:   "3",
		},
	}
}

func TestSnapshotStore_SaveLoad_RoundTrip(t *testing.T) {
	// Given: a file-backed store
	path := filepath.Join(t.TempDir(), "data", "index.db")
	s, err := OpenSnapshotStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	// When: saving and loading a snapshot
	require.NoError(t, s.Save(context.Background(), sampleSnapshot()))
	got, err := s.Load(context.Background())
	require.NoError(t, err)

	// Then: documents keep their order, metadata types and vectors
	require.Len(t, got.Documents, 2)
	assert.Equal(t, "itinerary_day_1_0", got.Documents[0].ID)
	assert.Equal(t, "data/itinerary.txt", got.Documents[0].Source)
	assert.Equal(t, 0, got.Documents[0].Metadata["chunk_index"])
	assert.Equal(t, "day_2", got.Documents[1].Section())
	assert.Equal(t, [][]float32{{0.1, 0.2, 0.3}, {-1, 0, 1.5}}, got.Embeddings)
	assert.Equal(t, "static", got.State[StateKeyEmbeddingModel])
	assert.Equal(t, path, s.Path())
}

func TestSnapshotStore_SaveReplacesPrevious(t *testing.T) {
	s, err := OpenSnapshotStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Save(context.Background(), sampleSnapshot()))

	// When: saving a smaller snapshot without embeddings
	next := &Snapshot{
		Documents: []*Document{{ID: "notes_header_0", Content: "notes"}},
		State:     map[string]string{StateKeyTokenizer: "rune"},
	}
	require.NoError(t, s.Save(context.Background(), next))

	// Then: nothing from the first snapshot survives
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Documents, 1)
	assert.Nil(t, got.Embeddings)
	assert.Equal(t, map[string]string{StateKeyTokenizer: "rune"}, got.State)

	_, ok, err := s.GetState(context.Background(), StateKeyEmbeddingModel)
	require.NoError(t, err)
	assert.False(t, ok)
	v, ok, err := s.GetState(context.Background(), StateKeyTokenizer)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "rune", v)
}

func TestSnapshotStore_LoadEmpty(t *testing.T) {
	s, err := OpenSnapshotStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotStore_RejectsMisalignedEmbeddings(t *testing.T) {
	s, err := OpenSnapshotStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	snap := sampleSnapshot()
	snap.Embeddings = snap.Embeddings[:1]
	assert.Error(t, s.Save(context.Background(), snap))
}

func TestVectorEncoding_RoundTrip(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}
