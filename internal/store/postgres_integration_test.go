package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aixone/knowledge-agent/internal/knowledge"
	"github.com/aixone/knowledge-agent/internal/store"
	"github.com/aixone/knowledge-agent/internal/testutil"
)

// Requires Docker; skipped with -short.
func TestPostgresStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	pg := store.NewPostgres(db.Pool, 0, testutil.DiscardLogger())

	doc, err := pg.CreateDocument(ctx, "alpha beta gamma", map[string]string{
		"title":      "Greek letters",
		"source":     "test",
		"created_by": "u-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	require.Equal(t, knowledge.StatusActive, doc.Status)

	got, err := pg.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.ID, got.ID)
	require.Equal(t, "Greek letters", got.Title)

	chunks, err := pg.SaveChunks(ctx, doc.ID, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.Equal(t, 1, chunks[1].Order)

	// Embed two of three; search must only surface embedded chunks.
	emb := make([]float32, 1536)
	emb[0] = 1
	_, err = pg.AttachEmbedding(ctx, chunks[0], emb)
	require.NoError(t, err)

	far := make([]float32, 1536)
	far[1] = 1
	_, err = pg.AttachEmbedding(ctx, chunks[1], far)
	require.NoError(t, err)

	results, err := pg.Search(ctx, emb, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, chunks[0].ID, results[0].ID, "closest embedding ranks first")

	filtered, err := pg.Search(ctx, emb, map[string]string{"document_id": doc.ID})
	require.NoError(t, err)
	require.Len(t, filtered, 2)

	_, err = pg.Search(ctx, emb, map[string]string{"owner": "x"})
	require.ErrorIs(t, err, knowledge.ErrRetrieval)

	listed, err := pg.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestPostgresStoreNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	pg := store.NewPostgres(db.Pool, 0, testutil.DiscardLogger())

	_, err := pg.GetDocument(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, knowledge.ErrNotFound)

	emb := make([]float32, 1536)
	_, err = pg.AttachEmbedding(ctx, knowledge.Chunk{ID: "00000000-0000-0000-0000-000000000001"}, emb)
	require.ErrorIs(t, err, knowledge.ErrNotFound)
}

func TestPostgresResourceAttributes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	pg := store.NewPostgres(db.Pool, 0, testutil.DiscardLogger())

	doc, err := pg.CreateDocument(ctx, "secret", nil)
	require.NoError(t, err)
	chunks, err := pg.SaveChunks(ctx, doc.ID, []string{"secret"})
	require.NoError(t, err)

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO resource_attributes (resource_id, resource_type, name, value)
		VALUES ($1, $2, $3, $4)`,
		chunks[0].ID, knowledge.ResourceTypeChunk, "department", "engineering")
	require.NoError(t, err)

	attrs, err := pg.ResourceAttributes(ctx, chunks)
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	require.Equal(t, "department", attrs[0].Name)
	require.Equal(t, "engineering", attrs[0].Value)

	none, err := pg.ResourceAttributes(ctx, nil)
	require.NoError(t, err)
	require.Nil(t, none)
}
