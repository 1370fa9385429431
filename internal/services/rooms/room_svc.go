package rooms

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisCatalogKey = "rooms:catalog"
	catalogTTL      = 5 * time.Minute
	uniqueViolation = "23505"

	// catalogFilled is stored alongside the slugs once the set has been
	// loaded from Postgres. Slugs are never empty, so it cannot collide.
	catalogFilled = ""
)

var (
	ErrRoomExists  = errors.New("room already exists")
	ErrInvalidSlug = errors.New("room slug is required")
)

type RoomRecord struct {
	Slug      string `json:"slug"`
	CreatorID string `json:"created_by"`
}

// IRoomStore is the durable room catalog. It knows nothing about who is
// currently connected to a room.
type IRoomStore interface {
	Create(ctx context.Context, slug, creator string) (RoomRecord, error)
	List(ctx context.Context) ([]string, error)
}

type roomStore struct {
	rdc *redis.Client
	db  *sql.DB
}

var _ IRoomStore = (*roomStore)(nil)

func NewRoomStore(rdc *redis.Client, db *sql.DB) IRoomStore {
	return &roomStore{rdc: rdc, db: db}
}

// Create inserts the room into Postgres and adds it to the cached catalog.
// The cache only ever grows between expiries, so a List racing with Create
// cannot drop the new slug.
func (svc *roomStore) Create(ctx context.Context, slug, creator string) (RoomRecord, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return RoomRecord{}, ErrInvalidSlug
	}

	rec := RoomRecord{CreatorID: creator}
	err := svc.db.QueryRowContext(ctx,
		`INSERT INTO rooms (slug, creator_id) VALUES ($1, $2) RETURNING slug`,
		slug, creator,
	).Scan(&rec.Slug)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return RoomRecord{}, ErrRoomExists
		}
		return RoomRecord{}, err
	}

	if err := svc.addToCache(ctx, rec.Slug); err != nil {
		zap.L().Warn("rooms.cache_add", zap.String("slug", rec.Slug), zap.Error(err))
	}
	return rec, nil
}

// List returns every catalogued slug, sorted. The Redis set is the fast
// path; Postgres is the source of truth.
func (svc *roomStore) List(ctx context.Context) ([]string, error) {
	// 1. Fast-path - cached catalog
	cached, err := svc.rdc.SMembers(ctx, redisCatalogKey).Result()
	if err != nil {
		zap.L().Warn("rooms.cache_read", zap.Error(err))
	}
	if i := slices.Index(cached, catalogFilled); i >= 0 {
		cached = slices.Delete(cached, i, i+1)
		slices.Sort(cached)
		return cached, nil
	}

	// 2. Otherwise go to Postgres
	rows, err := svc.db.QueryContext(ctx, `SELECT slug FROM rooms ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slugs := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slugs = append(slugs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := svc.addToCache(ctx, append([]string{catalogFilled}, slugs...)...); err != nil {
		zap.L().Warn("rooms.cache_fill", zap.Error(err))
	}
	return slugs, nil
}

// addToCache merges members into the catalog set and refreshes its TTL in
// one MULTI/EXEC, so the key is never left without an expiry.
func (svc *roomStore) addToCache(ctx context.Context, slugs ...string) error {
	members := make([]any, len(slugs))
	for i, s := range slugs {
		members[i] = s
	}
	_, err := svc.rdc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, redisCatalogKey, members...)
		pipe.Expire(ctx, redisCatalogKey, catalogTTL)
		return nil
	})
	return err
}
