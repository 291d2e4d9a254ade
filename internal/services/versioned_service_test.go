package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vault-md/versioned/internal/cache"
	"github.com/vault-md/versioned/internal/database"
	"github.com/vault-md/versioned/internal/readingmode"
	"github.com/vault-md/versioned/internal/versioned"
)

func setupServiceDB(t *testing.T) *database.Context {
	t.Helper()
	ctx, err := database.CreateDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, database.CloseDatabase(ctx))
	})
	return ctx
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newService(t *testing.T, opts Options) (*VersionedService, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts.Now = c.Now
	return NewVersionedService(setupServiceDB(t), opts), c
}

func contextWithMode(t *testing.T, mode string) context.Context {
	t.Helper()
	state := readingmode.NewState()
	require.NoError(t, state.Set(mode, false))
	return readingmode.NewContext(context.Background(), state)
}

func TestArgsFromContext(t *testing.T) {
	assert.Equal(t, versioned.QueryArgs{Mode: versioned.ModeLive}, ArgsFromContext(context.Background()))
	assert.Equal(t, versioned.QueryArgs{Mode: versioned.ModeDraft}, ArgsFromContext(contextWithMode(t, "Stage.Draft")))

	archive := ArgsFromContext(contextWithMode(t, "Archive.2024-02-01.Live"))
	assert.Equal(t, versioned.ModeArchive, archive.Mode)
	require.NotNil(t, archive.ArchiveDate)
	assert.Equal(t, "2024-02-01", *archive.ArchiveDate)
	assert.Equal(t, readingmode.StageLive, archive.ArchiveStage)

	empty := readingmode.NewState()
	require.NoError(t, empty.SetDefault("Stage.Draft"))
	assert.Equal(t, versioned.QueryArgs{Mode: versioned.ModeDraft}, ArgsFromContext(readingmode.NewContext(context.Background(), empty)))
}

func TestServiceWriteAndPublishFlow(t *testing.T) {
	svc, _ := newService(t, Options{})
	draft := contextWithMode(t, "Stage.Draft")
	live := contextWithMode(t, "Stage.Live")

	rec, err := svc.WriteDraft(draft, "page", 0, map[string]string{"Title": "hello"})
	require.NoError(t, err)

	got, err := svc.Get(draft, "page", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Fields["Title"])

	_, err = svc.Get(live, "page", rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Publish(draft, "Page", rec.ID)
	require.NoError(t, err)

	got, err = svc.Get(live, "page", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Fields["Title"])

	status, err := svc.Status(live, "page", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, versioned.StatusPublished, status.Status)
}

func TestServiceGetIsCachedPerMode(t *testing.T) {
	backend := cache.NewMemory()
	reg := prometheus.NewRegistry()
	metrics := cache.NewMetrics(reg)
	svc, _ := newService(t, Options{Cache: backend, Metrics: metrics, CacheTTL: time.Minute})
	draft := contextWithMode(t, "Stage.Draft")

	rec, err := svc.WriteDraft(draft, "page", 0, map[string]string{"Title": "v1"})
	require.NoError(t, err)

	_, err = svc.Get(draft, "page", rec.ID)
	require.NoError(t, err)
	_, err = svc.Get(draft, "page", rec.ID)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Misses.WithLabelValues(cache.SegmentDraft)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Hits.WithLabelValues(cache.SegmentDraft)))
	assert.Equal(t, 1, backend.Len())

	// writes clear the cache so the next read sees the new version
	_, err = svc.WriteDraft(draft, "page", rec.ID, map[string]string{"Title": "v2"})
	require.NoError(t, err)
	assert.Equal(t, 0, backend.Len())

	got, err := svc.Get(draft, "page", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Fields["Title"])
	assert.Equal(t, int64(2), got.Version)
}

func TestServiceGetDoesNotLeakDefaultModeReads(t *testing.T) {
	backend := cache.NewMemory()
	svc, _ := newService(t, Options{Cache: backend, CacheTTL: time.Minute})

	rec, err := svc.WriteDraft(context.Background(), "page", 0, map[string]string{"Title": "secret draft"})
	require.NoError(t, err)

	state := readingmode.NewState()
	require.NoError(t, state.SetDefault("Stage.Draft"))
	byDefault := readingmode.NewContext(context.Background(), state)

	got, err := svc.Get(byDefault, "page", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret draft", got.Fields["Title"])
	assert.Equal(t, 1, backend.Len())

	_, err = svc.Get(context.Background(), "page", rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(contextWithMode(t, "Stage.Live"), "page", rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	session := readingmode.NewMemorySession()
	session.Set(readingmode.SessionKey, "Stage.Draft")
	overridden := readingmode.NewContext(context.Background(), readingmode.NewStateWithSession(session))
	got, err = svc.Get(overridden, "page", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Version, got.Version)

	_, err = svc.Get(context.Background(), "page", rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceListAndHistory(t *testing.T) {
	svc, clk := newService(t, Options{})
	ctx := context.Background()

	a, err := svc.WriteDraft(ctx, "page", 0, map[string]string{"Title": "a"})
	require.NoError(t, err)
	b, err := svc.WriteDraft(ctx, "page", 0, map[string]string{"Title": "b"})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, "page", b.ID)
	require.NoError(t, err)

	clk.now = clk.now.Add(48 * time.Hour)
	require.NoError(t, svc.Archive(ctx, "page", b.ID))

	records, err := svc.List(ctx, "page", versioned.QueryArgs{Mode: versioned.ModeStatus, Status: []versioned.StatusFilter{versioned.FilterArchived}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, b.ID, records[0].ID)

	date := "2024-03-01"
	records, err = svc.List(ctx, "page", versioned.QueryArgs{Mode: versioned.ModeArchive, ArchiveDate: &date, ArchiveStage: readingmode.StageLive})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, b.ID, records[0].ID)

	history, err := svc.History(ctx, "page", b.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[2].WasDeleted)

	v, err := svc.Version(ctx, "page", a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", v.Fields["Title"])

	_, err = svc.Version(ctx, "page", a.ID, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.History(ctx, "page", 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceStageTransitions(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()

	rec, err := svc.WriteDraft(ctx, "page", 0, map[string]string{"Title": "one"})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, "page", rec.ID)
	require.NoError(t, err)
	_, err = svc.WriteDraft(ctx, "page", rec.ID, map[string]string{"Title": "two"})
	require.NoError(t, err)

	status, err := svc.Status(ctx, "page", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, versioned.StatusModifiedOnDraft, status.Status)

	reverted, err := svc.RevertToLive(ctx, "page", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "one", reverted.Fields["Title"])

	rolled, err := svc.Rollback(ctx, "page", rec.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "two", rolled.Fields["Title"])

	require.NoError(t, svc.DeleteFromDraft(ctx, "page", rec.ID))
	status, err = svc.Status(ctx, "page", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, versioned.StatusOnLiveOnly, status.Status)

	require.NoError(t, svc.Unpublish(ctx, "page", rec.ID))
	status, err = svc.Status(ctx, "page", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, versioned.StatusArchived, status.Status)
}

func TestServiceUnknownTable(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()

	_, err := svc.List(ctx, "post", versioned.QueryArgs{Mode: versioned.ModeLive})
	assert.ErrorIs(t, err, database.ErrUnknownEntity)
	_, err = svc.Get(ctx, "post", 1)
	assert.ErrorIs(t, err, database.ErrUnknownEntity)
	_, err = svc.WriteDraft(ctx, "post", 0, nil)
	assert.ErrorIs(t, err, database.ErrUnknownEntity)
}

func TestServiceRejectsInvalidArgs(t *testing.T) {
	svc, _ := newService(t, Options{})

	_, err := svc.List(context.Background(), "page", versioned.QueryArgs{Mode: versioned.ModeArchive})
	assert.ErrorIs(t, err, versioned.ErrInvalidArgument)
}
