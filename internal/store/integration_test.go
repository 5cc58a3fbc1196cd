//go:build integration
// +build integration

package store_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/petermazzocco/bboard/internal/store"
	"github.com/petermazzocco/bboard/internal/store/storetest"
	"github.com/petermazzocco/bboard/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a PostgreSQL container and returns a migrated store.
func setupPostgres(t *testing.T) *store.Store {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("bboard"),
		postgres.WithUsername("bboard"),
		postgres.WithPassword("bboard"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := store.Open(dsn, zerolog.New(io.Discard))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	return store.New(db)
}

func TestPostgres(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	top := storetest.Rubric(t, s, "Realty", 0, nil)
	sub := storetest.Rubric(t, s, "Flats", 0, top)
	alice := storetest.User(t, s, "alice", true)
	l := storetest.Listing(t, s, alice, sub, "100% sunny_flat", "city", true)
	storetest.Listing(t, s, alice, sub, "100 sunnyXflat", "city", true)
	require.NoError(t, s.CreateAdditionalImage(ctx, &models.AdditionalImage{ListingID: l.ID, Image: "a.png"}))
	require.NoError(t, s.CreateComment(ctx, &models.Comment{ListingID: l.ID, Author: "bob", Content: "hi", IsActive: true}))

	t.Run("keyword wildcards are literal", func(t *testing.T) {
		got, err := s.ActiveListings(ctx, store.ListingFilter{Keyword: "% SUNNY_"}, 0, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, l.ID, got[0].ID)
	})

	t.Run("rubrics in use are protected", func(t *testing.T) {
		assert.Error(t, s.DeleteRubric(ctx, sub.ID))
		assert.Error(t, s.DeleteRubric(ctx, top.ID))
	})

	t.Run("duplicate usernames are reported", func(t *testing.T) {
		err := s.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "!"})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("listing rows cascade", func(t *testing.T) {
		require.NoError(t, s.DeleteListing(ctx, l.ID))
		images, err := s.AdditionalImages(ctx, l.ID)
		require.NoError(t, err)
		assert.Empty(t, images)
		comments, err := s.ActiveComments(ctx, l.ID)
		require.NoError(t, err)
		assert.Empty(t, comments)
	})
}
