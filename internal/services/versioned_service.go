// Package services exposes the read and write operations on versioned
// entities that the transports share.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vault-md/versioned/internal/cache"
	"github.com/vault-md/versioned/internal/database"
	"github.com/vault-md/versioned/internal/logging"
	"github.com/vault-md/versioned/internal/readingmode"
	"github.com/vault-md/versioned/internal/versioned"
)

// ErrNotFound is returned when a record or version does not exist or is not
// visible under the reading mode.
var ErrNotFound = database.ErrNotFound

// Options configures a VersionedService. Zero values are usable.
type Options struct {
	// Cache holds single-record reads. It is wrapped in a segmented cache.
	Cache    cache.Cache
	CacheTTL time.Duration
	Metrics  *cache.Metrics
	Logger   *logrus.Entry
	Now      func() time.Time
}

// VersionedService reads entities under the request's reading mode and
// performs the stage transitions.
type VersionedService struct {
	ctx   *database.Context
	cache *cache.Segmented
	ttl   time.Duration
	log   *logrus.Entry
	now   func() time.Time
}

func NewVersionedService(ctx *database.Context, opts Options) *VersionedService {
	backend := opts.Cache
	if backend == nil {
		backend = cache.NewMemory()
	}
	log := opts.Logger
	if log == nil {
		log = logging.For("services")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &VersionedService{
		ctx:   ctx,
		cache: cache.NewSegmented(backend, opts.Metrics),
		ttl:   opts.CacheTTL,
		log:   log,
		now:   now,
	}
}

// ArgsFromContext maps the reading mode of ctx onto query arguments. A
// context without a reading mode reads the live stage.
func ArgsFromContext(ctx context.Context) versioned.QueryArgs {
	return versioned.ArgsForMode(readingmode.FromContext(ctx).EffectiveMode())
}

// List returns the records of table visible under args.
func (s *VersionedService) List(ctx context.Context, table string, args versioned.QueryArgs) ([]database.Record, error) {
	entity, err := database.LookupEntity(table)
	if err != nil {
		return nil, err
	}
	return database.NewVersionedQuery(s.ctx, entity).List(ctx, args)
}

// Get returns one record under the effective reading mode of ctx. Results
// are cached per reading mode.
func (s *VersionedService) Get(ctx context.Context, table string, id int64) (*database.Record, error) {
	entity, err := database.LookupEntity(table)
	if err != nil {
		return nil, err
	}

	// pin the mode the rows are read under, so the cache segment matches it
	pinned := readingmode.NewState()
	if err := pinned.Set(readingmode.FromContext(ctx).EffectiveMode().String(), false); err != nil {
		return nil, err
	}
	ctx = readingmode.NewContext(ctx, pinned)

	key := cacheKey(entity, id)
	if raw, err := s.cache.Get(ctx, key, nil); err != nil {
		s.log.WithError(err).Warn("cache read failed")
	} else if raw != nil {
		var record database.Record
		if err := json.Unmarshal(raw, &record); err == nil {
			return &record, nil
		}
		s.log.WithField("key", key).Warn("dropping undecodable cache entry")
	}

	record, err := s.Find(ctx, table, ArgsFromContext(ctx), id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(record); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.log.WithError(err).Warn("cache write failed")
		}
	}
	return record, nil
}

// Find returns one record under explicit args, bypassing the cache.
func (s *VersionedService) Find(ctx context.Context, table string, args versioned.QueryArgs, id int64) (*database.Record, error) {
	entity, err := database.LookupEntity(table)
	if err != nil {
		return nil, err
	}
	record, err := database.NewVersionedQuery(s.ctx, entity).Get(ctx, args, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s #%d", ErrNotFound, entity.Table, id)
	}
	return record, nil
}

// Status classifies one record.
func (s *VersionedService) Status(ctx context.Context, table string, id int64) (*database.StatusRecord, error) {
	repo, err := s.repository(table)
	if err != nil {
		return nil, err
	}
	return repo.Status(ctx, id)
}

// History returns every version of a record, oldest first.
func (s *VersionedService) History(ctx context.Context, table string, id int64) ([]database.VersionRecord, error) {
	repo, err := s.repository(table)
	if err != nil {
		return nil, err
	}
	versions, err := repo.ListVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s #%d", ErrNotFound, table, id)
	}
	return versions, nil
}

// Version returns one history row.
func (s *VersionedService) Version(ctx context.Context, table string, id, version int64) (*database.VersionRecord, error) {
	repo, err := s.repository(table)
	if err != nil {
		return nil, err
	}
	record, err := repo.FindVersion(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s #%d v%d", ErrNotFound, table, id, version)
	}
	return record, nil
}

// WriteDraft saves fields to the draft stage. An id of 0 creates a record.
func (s *VersionedService) WriteDraft(ctx context.Context, table string, id int64, fields map[string]string) (*database.Record, error) {
	repo, err := s.repository(table)
	if err != nil {
		return nil, err
	}
	record, err := repo.WriteDraft(ctx, id, fields, s.now())
	if err != nil {
		return nil, err
	}
	s.written(ctx, "write", repo.Entity(), record.ID)
	return record, nil
}

func (s *VersionedService) Publish(ctx context.Context, table string, id int64) (*database.Record, error) {
	repo, err := s.repository(table)
	if err != nil {
		return nil, err
	}
	record, err := repo.Publish(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.written(ctx, "publish", repo.Entity(), id)
	return record, nil
}

func (s *VersionedService) Unpublish(ctx context.Context, table string, id int64) error {
	repo, err := s.repository(table)
	if err != nil {
		return err
	}
	if err := repo.Unpublish(ctx, id, s.now()); err != nil {
		return err
	}
	s.written(ctx, "unpublish", repo.Entity(), id)
	return nil
}

func (s *VersionedService) DeleteFromDraft(ctx context.Context, table string, id int64) error {
	repo, err := s.repository(table)
	if err != nil {
		return err
	}
	if err := repo.DeleteFromDraft(ctx, id, s.now()); err != nil {
		return err
	}
	s.written(ctx, "delete", repo.Entity(), id)
	return nil
}

func (s *VersionedService) Archive(ctx context.Context, table string, id int64) error {
	repo, err := s.repository(table)
	if err != nil {
		return err
	}
	if err := repo.Archive(ctx, id, s.now()); err != nil {
		return err
	}
	s.written(ctx, "archive", repo.Entity(), id)
	return nil
}

func (s *VersionedService) RevertToLive(ctx context.Context, table string, id int64) (*database.Record, error) {
	repo, err := s.repository(table)
	if err != nil {
		return nil, err
	}
	record, err := repo.RevertToLive(ctx, id)
	if err != nil {
		return nil, err
	}
	s.written(ctx, "revert", repo.Entity(), id)
	return record, nil
}

func (s *VersionedService) Rollback(ctx context.Context, table string, id, version int64) (*database.Record, error) {
	repo, err := s.repository(table)
	if err != nil {
		return nil, err
	}
	record, err := repo.Rollback(ctx, id, version, s.now())
	if err != nil {
		return nil, err
	}
	s.written(ctx, "rollback", repo.Entity(), id)
	return record, nil
}

// PruneCache drops expired cache entries when the backend supports it.
func (s *VersionedService) PruneCache(ctx context.Context) error {
	return s.cache.Prune(ctx)
}

// written logs a stage transition and empties the cache. Entries are
// segmented by a hash of the reading mode, so the entries of one record
// cannot be found across modes and the whole cache goes.
func (s *VersionedService) written(ctx context.Context, op string, entity database.Entity, id int64) {
	s.log.WithFields(logrus.Fields{"op": op, "table": entity.Table, "id": id}).Debug("stage transition")
	if err := s.cache.Clear(ctx); err != nil {
		s.log.WithError(err).Warn("cache clear failed")
	}
}

func (s *VersionedService) repository(table string) (*database.StageRepository, error) {
	if s.ctx == nil || s.ctx.DB == nil {
		return nil, errors.New("versioned service: missing database context")
	}
	entity, err := database.LookupEntity(table)
	if err != nil {
		return nil, err
	}
	return database.NewStageRepository(s.ctx, entity), nil
}

func cacheKey(entity database.Entity, id int64) string {
	return entity.Table + "." + strconv.FormatInt(id, 10)
}
