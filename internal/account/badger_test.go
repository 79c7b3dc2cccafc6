package account

import (
	"context"
	"sync"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBadger(t *testing.T, dir string) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	return db
}

func TestBadgerStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	db := openBadger(t, t.TempDir())
	defer db.Close()
	store := NewBadgerStore(db)

	created, err := store.Create(ctx, Account{Email: " Jane@Example.com ", Role: RoleViewer, Name: "Jane", PasswordHash: "hash"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "jane@example.com", created.Email)

	byID, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)
	assert.Equal(t, "hash", byID.PasswordHash)
	assert.Equal(t, RoleViewer, byID.Role)

	byEmail, err := store.FindByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)
}

func TestBadgerStoreNotFoundAndConflict(t *testing.T) {
	ctx := context.Background()
	db := openBadger(t, t.TempDir())
	defer db.Close()
	store := NewBadgerStore(db)

	_, err := store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Create(ctx, Account{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = store.Create(ctx, Account{Email: "A@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBadgerStoreConcurrentCreateSameEmail(t *testing.T) {
	ctx := context.Background()
	db := openBadger(t, t.TempDir())
	defer db.Close()
	store := NewBadgerStore(db)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, Account{Email: "race@example.com"})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrConflict)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db := openBadger(t, dir)
	created, err := NewBadgerStore(db).Create(ctx, Account{Email: "admin@example.com", Role: RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db = openBadger(t, dir)
	defer db.Close()
	got, err := NewBadgerStore(db).FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, RoleAdmin, got.Role)
}
