package rooms

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	insertQ = regexp.QuoteMeta(`INSERT INTO rooms (slug, creator_id) VALUES ($1, $2) RETURNING slug`)
	listQ   = regexp.QuoteMeta(`SELECT slug FROM rooms ORDER BY slug`)
)

func newStore(t *testing.T) (IRoomStore, sqlmock.Sqlmock, redismock.ClientMock) {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rdc, redisMock := redismock.NewClientMock()
	t.Cleanup(func() { _ = rdc.Close() })

	return NewRoomStore(rdc, db), sqlMock, redisMock
}

func expectCacheAdd(m redismock.ClientMock, members ...any) {
	m.ExpectTxPipeline()
	m.ExpectSAdd(redisCatalogKey, members...).SetVal(int64(len(members)))
	m.ExpectExpire(redisCatalogKey, catalogTTL).SetVal(true)
	m.ExpectTxPipelineExec()
}

func TestCreateAddsToCache(t *testing.T) {
	store, sqlMock, redisMock := newStore(t)
	sqlMock.ExpectQuery(insertQ).WithArgs("lobby", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("lobby"))
	expectCacheAdd(redisMock, "lobby")

	rec, err := store.Create(context.Background(), "lobby", "u-1")
	require.NoError(t, err)
	assert.Equal(t, RoomRecord{Slug: "lobby", CreatorID: "u-1"}, rec)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCreateConflict(t *testing.T) {
	store, sqlMock, redisMock := newStore(t)
	sqlMock.ExpectQuery(insertQ).WithArgs("lobby", "u-1").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := store.Create(context.Background(), "lobby", "u-1")
	assert.ErrorIs(t, err, ErrRoomExists)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCreateRequiresSlug(t *testing.T) {
	store, sqlMock, _ := newStore(t)

	_, err := store.Create(context.Background(), "   ", "u-1")
	assert.ErrorIs(t, err, ErrInvalidSlug)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestListFromCache(t *testing.T) {
	store, sqlMock, redisMock := newStore(t)
	redisMock.ExpectSMembers(redisCatalogKey).SetVal([]string{"zoo", catalogFilled, "lobby"})

	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lobby", "zoo"}, got)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestListFallsBackToPostgresAndFillsCache(t *testing.T) {
	store, sqlMock, redisMock := newStore(t)
	redisMock.ExpectSMembers(redisCatalogKey).SetVal([]string{})
	sqlMock.ExpectQuery(listQ).
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("lobby").AddRow("zoo"))
	expectCacheAdd(redisMock, catalogFilled, "lobby", "zoo")

	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lobby", "zoo"}, got)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestListEmptyCatalogIsCached(t *testing.T) {
	store, sqlMock, redisMock := newStore(t)
	redisMock.ExpectSMembers(redisCatalogKey).SetVal([]string{catalogFilled})

	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

// A Create against a cold cache leaves only its own slug in the set. List
// must not serve that partial set.
func TestCreateThenListReloadsPartialCache(t *testing.T) {
	store, sqlMock, redisMock := newStore(t)
	ctx := context.Background()

	sqlMock.ExpectQuery(insertQ).WithArgs("zoo", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("zoo"))
	expectCacheAdd(redisMock, "zoo")
	_, err := store.Create(ctx, "zoo", "u-1")
	require.NoError(t, err)

	redisMock.ExpectSMembers(redisCatalogKey).SetVal([]string{"zoo"})
	sqlMock.ExpectQuery(listQ).
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("lobby").AddRow("zoo"))
	expectCacheAdd(redisMock, catalogFilled, "lobby", "zoo")

	got, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lobby", "zoo"}, got)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

// List reads Postgres before a concurrent Create commits, then fills the
// cache after Create has added its slug. The fill only merges, so the new
// slug survives and the next List serves it.
func TestStaleFillAfterCreateKeepsNewRoom(t *testing.T) {
	store, sqlMock, redisMock := newStore(t)
	ctx := context.Background()
	rs := store.(*roomStore)

	sqlMock.ExpectQuery(insertQ).WithArgs("zoo", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("zoo"))
	expectCacheAdd(redisMock, "zoo")
	expectCacheAdd(redisMock, catalogFilled, "lobby")
	redisMock.ExpectSMembers(redisCatalogKey).SetVal([]string{catalogFilled, "lobby", "zoo"})

	_, err := store.Create(ctx, "zoo", "u-1")
	require.NoError(t, err)
	require.NoError(t, rs.addToCache(ctx, catalogFilled, "lobby"))

	got, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lobby", "zoo"}, got)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestListSurvivesCacheOutage(t *testing.T) {
	store, sqlMock, redisMock := newStore(t)
	redisMock.ExpectSMembers(redisCatalogKey).SetErr(errors.New("redis down"))
	sqlMock.ExpectQuery(listQ).WillReturnRows(sqlmock.NewRows([]string{"slug"}))

	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestListDatabaseError(t *testing.T) {
	store, sqlMock, redisMock := newStore(t)
	redisMock.ExpectSMembers(redisCatalogKey).SetVal(nil)
	sqlMock.ExpectQuery(listQ).WillReturnError(errors.New("db down"))

	_, err := store.List(context.Background())
	assert.Error(t, err)
}
