package watchlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animetracker/internal/auth"
	"animetracker/internal/show"
	"animetracker/pkg/database"
	"animetracker/pkg/logger"
	"animetracker/pkg/models"
)

var (
	alice = auth.Identity{ID: 1, Username: "alice"}
	bob   = auth.Identity{ID: 2, Username: "bob"}
)

type fixture struct {
	ledger *Ledger
	events chan models.WatchlistEvent
	showID int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := show.NewRegistry(db)
	showID, err := registry.Create(context.Background(), models.Show{
		Title: "Frieren", Type: show.TypeAnime, Genre: "Fantasy", TotalEpisodes: 28, ImageURL: "https://img/frieren.jpg",
	})
	require.NoError(t, err)

	events := make(chan models.WatchlistEvent, 16)
	l := NewLedger(NewSQLStore(db), registry, logger.Discard(), WithEvents(events))
	return fixture{ledger: l, events: events, showID: showID}
}

func intPtr(v int) *int { return &v }
func strPtr(v string) *string { return &v }

func TestListEmptyIsNotAnError(t *testing.T) {
	f := newFixture(t)

	items, err := f.ledger.List(context.Background(), alice, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCreateThenListHasDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.ledger.Create(ctx, alice, f.showID, StatusWatching)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	items, err := f.ledger.List(ctx, alice, alice.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, id, it.ID)
	assert.Equal(t, alice.ID, it.UserID)
	assert.Equal(t, StatusWatching, it.Status)
	assert.Equal(t, 0, it.Progress)
	assert.Nil(t, it.Rating)
	assert.Nil(t, it.Notes)
	assert.Equal(t, "Frieren", it.Title)
	assert.Equal(t, 28, it.TotalEpisodes)
	assert.Equal(t, "https://img/frieren.jpg", it.ImageURL)

	evt := <-f.events
	assert.Equal(t, "created", evt.Type)
	assert.Equal(t, alice.ID, evt.UserID)
	assert.Equal(t, id, evt.EntryID)
}

func TestCreateAllowsDuplicatesButRejectsUnknownShow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Create(ctx, alice, f.showID, StatusWatching)
	require.NoError(t, err)
	_, err = f.ledger.Create(ctx, alice, f.showID, StatusCompleted)
	require.NoError(t, err)

	items, err := f.ledger.List(ctx, alice, alice.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = f.ledger.Create(ctx, alice, 999, StatusWatching)
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = f.ledger.Create(ctx, alice, f.showID, "binging")
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestCrossUserAccessIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.ledger.Create(ctx, alice, f.showID, StatusWatching)
	require.NoError(t, err)

	_, err = f.ledger.List(ctx, bob, alice.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	bobs, err := f.ledger.List(ctx, bob, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, bobs)

	_, err = f.ledger.Update(ctx, bob, id, Changes{Status: StatusDropped})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.ledger.Delete(ctx, bob, id)
	assert.ErrorIs(t, err, ErrForbidden)

	items, err := f.ledger.List(ctx, alice, alice.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, StatusWatching, items[0].Status)
}

func TestAliceBobScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.ledger.Create(ctx, alice, f.showID, StatusWatching)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	_, err = f.ledger.Update(ctx, bob, 1, Changes{Status: StatusCompleted, Progress: 12})
	assert.ErrorIs(t, err, ErrForbidden)

	n, err := f.ledger.Update(ctx, alice, 1, Changes{
		Status: StatusCompleted, Progress: 12, Rating: intPtr(9), Notes: strPtr("great"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	items, err := f.ledger.List(ctx, alice, alice.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, StatusCompleted, items[0].Status)
	assert.Equal(t, 12, items[0].Progress)
	require.NotNil(t, items[0].Rating)
	assert.Equal(t, 9, *items[0].Rating)
	require.NotNil(t, items[0].Notes)
	assert.Equal(t, "great", *items[0].Notes)
}

func TestUpdateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.ledger.Create(ctx, alice, f.showID, StatusWatching)
	require.NoError(t, err)

	c := Changes{Status: StatusOnHold, Progress: 3, Rating: intPtr(7), Notes: strPtr("paused")}
	var snapshots [][]Item
	for i := 0; i < 2; i++ {
		n, err := f.ledger.Update(ctx, alice, id, c)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		items, err := f.ledger.List(ctx, alice, alice.ID)
		require.NoError(t, err)
		snapshots = append(snapshots, items)
	}
	assert.Equal(t, snapshots[0], snapshots[1])
}

func TestUpdateClearsOptionalFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.ledger.Create(ctx, alice, f.showID, StatusWatching)
	require.NoError(t, err)

	_, err = f.ledger.Update(ctx, alice, id, Changes{Status: StatusWatching, Progress: 1, Rating: intPtr(5), Notes: strPtr("ok")})
	require.NoError(t, err)
	_, err = f.ledger.Update(ctx, alice, id, Changes{Status: StatusWatching, Progress: 2})
	require.NoError(t, err)

	items, err := f.ledger.List(ctx, alice, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, items[0].Rating)
	assert.Nil(t, items[0].Notes)
	assert.Equal(t, 2, items[0].Progress)
}

func TestUpdateValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.ledger.Create(ctx, alice, f.showID, StatusWatching)
	require.NoError(t, err)

	for name, c := range map[string]Changes{
		"unknown status":  {Status: "rewatching"},
		"negative":        {Status: StatusWatching, Progress: -1},
		"rating too high": {Status: StatusWatching, Rating: intPtr(11)},
		"rating too low":  {Status: StatusWatching, Rating: intPtr(0)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.ledger.Update(ctx, alice, id, c)
			assert.ErrorIs(t, err, ErrInvalidEntry)
		})
	}
}

func TestDeleteThenMutateIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.ledger.Create(ctx, alice, f.showID, StatusWatching)
	require.NoError(t, err)

	n, err := f.ledger.Delete(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.ledger.Update(ctx, alice, id, Changes{Status: StatusWatching})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.ledger.Delete(ctx, alice, id)
	assert.ErrorIs(t, err, ErrForbidden)

	items, err := f.ledger.List(ctx, alice, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDanglingShowIsExcludedFromList(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db)
	_, err = store.Insert(context.Background(), models.WatchlistEntry{UserID: alice.ID, ShowID: 77, Status: StatusWatching})
	require.NoError(t, err)

	items, err := store.ListByUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEventsAreDroppedWhenChannelIsFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	full := make(chan models.WatchlistEvent)
	f.ledger.events = full

	_, err := f.ledger.Create(ctx, alice, f.showID, StatusWatching)
	require.NoError(t, err)
}

// racyRepo simulates a row that disappears between the ownership check and the write.
type racyRepo struct {
	Repository
	entry models.WatchlistEntry
}

func (r *racyRepo) InTx(ctx context.Context, fn func(Tx) error) error {
	return fn(racyTx{entry: r.entry})
}

type racyTx struct {
	entry models.WatchlistEntry
}

func (t racyTx) Get(ctx context.Context, entryID int64) (models.WatchlistEntry, error) {
	return t.entry, nil
}

func (t racyTx) Update(ctx context.Context, ownerID, entryID int64, c Changes) (int64, error) {
	return 0, nil
}

func (t racyTx) Delete(ctx context.Context, ownerID, entryID int64) (int64, error) {
	return 0, nil
}

func TestZeroRowsAfterCheckIsConflict(t *testing.T) {
	repo := &racyRepo{entry: models.WatchlistEntry{ID: 1, UserID: alice.ID, ShowID: 1, Status: StatusWatching}}
	l := NewLedger(repo, nil, logger.Discard())
	ctx := context.Background()

	_, err := l.Update(ctx, alice, 1, Changes{Status: StatusCompleted})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = l.Delete(ctx, alice, 1)
	assert.ErrorIs(t, err, ErrConflict)
}
