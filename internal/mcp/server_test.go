package mcp

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vault-md/versioned/internal/database"
	"github.com/vault-md/versioned/internal/readingmode"
	"github.com/vault-md/versioned/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dbCtx, err := database.CreateDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, database.CloseDatabase(dbCtx))
	})
	svc := services.NewVersionedService(dbCtx, services.Options{
		Now: func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) },
	})
	return NewServer(svc, "", "test")
}

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }
func boolPtr(b bool) *bool    { return &b }

func TestWriteGetPublish(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, written, err := s.handleWrite(ctx, nil, WriteInput{Table: "Page", Fields: map[string]string{"Title": "hello"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), written.ID)
	assert.Equal(t, int64(1), written.Version)
	assert.Equal(t, "2024-06-01 08:00:00", written.LastEdited)

	_, _, err = s.handleGet(ctx, nil, GetInput{Table: "Page", ID: 1})
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, got, err := s.handleGet(ctx, nil, GetInput{Table: "Page", ID: 1, Stage: strPtr("Draft")})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Fields["Title"])
	assert.Equal(t, "", got.Fields["Content"])

	_, published, err := s.handlePublish(ctx, nil, PublishInput{Table: "Page", ID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), published.Version)

	_, got, err = s.handleGet(ctx, nil, GetInput{Table: "Page", ID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)

	_, got, err = s.handleGet(ctx, nil, GetInput{Table: "Page", ID: 1, Version: int64Ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	_, st, err := s.handleStatus(ctx, nil, StatusInput{Table: "Page", ID: 1})
	require.NoError(t, err)
	assert.Equal(t, "published", st.Status)
	assert.Equal(t, "Published", st.Label)
}

func TestListModes(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two"} {
		_, _, err := s.handleWrite(ctx, nil, WriteInput{Table: "page", Fields: map[string]string{"Title": title}})
		require.NoError(t, err)
	}
	_, _, err := s.handlePublish(ctx, nil, PublishInput{Table: "page", ID: 1})
	require.NoError(t, err)

	_, live, err := s.handleList(ctx, nil, ListInput{Table: "page"})
	require.NoError(t, err)
	assert.Equal(t, "Stage.Live", live.Mode)
	require.Len(t, live.Records, 1)
	assert.Equal(t, int64(1), live.Records[0].ID)

	_, draft, err := s.handleList(ctx, nil, ListInput{Table: "page", Stage: strPtr("Draft")})
	require.NoError(t, err)
	assert.Len(t, draft.Records, 2)

	_, drafts, err := s.handleList(ctx, nil, ListInput{Table: "page", Status: []string{"draft"}})
	require.NoError(t, err)
	assert.Equal(t, "status", drafts.Mode)
	require.Len(t, drafts.Records, 1)
	assert.Equal(t, int64(2), drafts.Records[0].ID)

	_, all, err := s.handleList(ctx, nil, ListInput{Table: "page", AllVersions: boolPtr(true)})
	require.NoError(t, err)
	assert.Len(t, all.Records, 3)

	_, archive, err := s.handleList(ctx, nil, ListInput{Table: "page", ArchiveDate: strPtr("2024-06-01")})
	require.NoError(t, err)
	assert.Equal(t, "Archive.2024-06-01.Draft", archive.Mode)
	assert.Len(t, archive.Records, 2)

	_, archive, err = s.handleList(ctx, nil, ListInput{Table: "page", ArchiveDate: strPtr("2024-05-31")})
	require.NoError(t, err)
	assert.Empty(t, archive.Records)
}

func TestInvalidInput(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, _, err := s.handleList(ctx, nil, ListInput{Table: "page", Stage: strPtr("Preview")})
	assert.ErrorIs(t, err, readingmode.ErrInvalidArgument)

	_, _, err = s.handleList(ctx, nil, ListInput{Table: "widgets"})
	assert.ErrorIs(t, err, database.ErrUnknownEntity)

	_, _, err = s.handleWrite(ctx, nil, WriteInput{Table: "page", Fields: map[string]string{"Body": "x"}})
	assert.Error(t, err)

	_, _, err = s.handleStatus(ctx, nil, StatusInput{Table: "page", ID: 42})
	assert.ErrorIs(t, err, database.ErrNotFound)
}
