package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDocumentStore exercises the DocumentStore contract shared by every backend.
func testDocumentStore(t *testing.T, ds interface {
	DocumentStore
	Lister
}) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := ds.Get(ctx, "users", "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("create is insert-if-absent", func(t *testing.T) {
		v1, err := ds.Create(ctx, "users", "c1", Fields{"name": "Ana", "progress": map[string]any{}})
		require.NoError(t, err)
		assert.Positive(t, v1)

		_, err = ds.Create(ctx, "users", "c1", Fields{"name": "Other"})
		assert.ErrorIs(t, err, ErrAlreadyExists)

		doc, err := ds.Get(ctx, "users", "c1")
		require.NoError(t, err)
		assert.Equal(t, "Ana", doc.Data["name"])
		assert.Equal(t, v1, doc.Version)
	})

	t.Run("merge keeps untouched fields", func(t *testing.T) {
		_, err := ds.Create(ctx, "users", "m1", Fields{
			"name":     "Léa",
			"level":    "Beginner",
			"progress": map[string]any{"greetings-1": true},
		})
		require.NoError(t, err)

		v, err := ds.MergeWrite(ctx, "users", "m1", Fields{"progress.food-1": true})
		require.NoError(t, err)

		doc, err := ds.Get(ctx, "users", "m1")
		require.NoError(t, err)
		assert.Equal(t, v, doc.Version)
		assert.Equal(t, "Léa", doc.Data["name"])
		assert.Equal(t, "Beginner", doc.Data["level"])
		assert.Equal(t, map[string]any{"greetings-1": true, "food-1": true}, doc.Data["progress"])
	})

	t.Run("merge upserts", func(t *testing.T) {
		_, err := ds.MergeWrite(ctx, "users", "up1", Fields{"level": "Advanced"})
		require.NoError(t, err)
		doc, err := ds.Get(ctx, "users", "up1")
		require.NoError(t, err)
		assert.Equal(t, "Advanced", doc.Data["level"])
	})

	t.Run("versions increase", func(t *testing.T) {
		v1, err := ds.MergeWrite(ctx, "users", "v1", Fields{"n": "a"})
		require.NoError(t, err)
		v2, err := ds.MergeWrite(ctx, "users", "v1", Fields{"n": "b"})
		require.NoError(t, err)
		assert.Greater(t, v2, v1)
	})

	t.Run("update sees current document", func(t *testing.T) {
		_, err := ds.Create(ctx, "users", "x1", Fields{"dailyStreak": "4"})
		require.NoError(t, err)

		var seen Fields
		_, err = ds.Update(ctx, "users", "x1", func(cur *Document) (Fields, error) {
			require.NotNil(t, cur)
			seen = cur.Data
			return Fields{"dailyStreak": "5"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "4", seen["dailyStreak"])

		doc, err := ds.Get(ctx, "users", "x1")
		require.NoError(t, err)
		assert.Equal(t, "5", doc.Data["dailyStreak"])
	})

	t.Run("update nil patch skips write", func(t *testing.T) {
		v1, err := ds.Create(ctx, "users", "n1", Fields{"a": "b"})
		require.NoError(t, err)
		v2, err := ds.Update(ctx, "users", "n1", func(*Document) (Fields, error) { return nil, nil })
		require.NoError(t, err)
		assert.Equal(t, v1, v2)
	})

	t.Run("update error aborts", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := ds.Update(ctx, "users", "e1", func(*Document) (Fields, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
		_, err = ds.Get(ctx, "users", "e1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("subscribe delivers initial and changes", func(t *testing.T) {
		snaps := make(chan Snapshot, 16)
		cancel, err := ds.Subscribe(ctx, "users", "s1", func(s Snapshot) { snaps <- s })
		require.NoError(t, err)
		defer cancel()

		first := waitSnapshot(t, snaps)
		assert.False(t, first.Exists)

		_, err = ds.Create(ctx, "users", "s1", Fields{"name": "Zoé"})
		require.NoError(t, err)

		next := waitSnapshot(t, snaps)
		assert.True(t, next.Exists)
		assert.Equal(t, "Zoé", next.Data["name"])
	})

	t.Run("cancel stops delivery", func(t *testing.T) {
		snaps := make(chan Snapshot, 16)
		cancel, err := ds.Subscribe(ctx, "users", "s2", func(s Snapshot) { snaps <- s })
		require.NoError(t, err)
		waitSnapshot(t, snaps)
		cancel()
		cancel()

		_, err = ds.MergeWrite(ctx, "users", "s2", Fields{"name": "x"})
		require.NoError(t, err)
		select {
		case s := <-snaps:
			t.Fatalf("unexpected snapshot after cancel: %+v", s)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("keys", func(t *testing.T) {
		_, err := ds.MergeWrite(ctx, "other", "k2", Fields{"a": "b"})
		require.NoError(t, err)
		_, err = ds.MergeWrite(ctx, "other", "k1", Fields{"a": "b"})
		require.NoError(t, err)
		keys, err := ds.Keys(ctx, "other")
		require.NoError(t, err)
		assert.Equal(t, []string{"k1", "k2"}, keys)
	})
}

func testAccountRepo(t *testing.T, repo AccountRepo) {
	ctx := context.Background()
	a := &Account{
		ID:           "acc-1",
		Email:        "Marie@Example.com",
		PasswordHash: "hash",
		Provider:     "password",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.CreateAccount(ctx, a))

	dup := *a
	dup.ID = "acc-2"
	dup.Email = "marie@example.com"
	assert.ErrorIs(t, repo.CreateAccount(ctx, &dup), ErrAlreadyExists)

	got, err := repo.AccountByEmail(ctx, "MARIE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)
	assert.Equal(t, "marie@example.com", got.Email)

	require.NoError(t, repo.SetDisplayName(ctx, "acc-1", "Marie"))
	got, err = repo.AccountByID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Marie", got.DisplayName)

	_, err = repo.AccountByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.SetDisplayName(ctx, "missing", "x"), ErrNotFound)
}

func waitSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}
