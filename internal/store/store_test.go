package store_test

import (
	"context"
	"testing"

	"github.com/petermazzocco/bboard/internal/store"
	"github.com/petermazzocco/bboard/internal/store/storetest"
	"github.com/petermazzocco/bboard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(rubrics []models.Rubric) []string {
	out := make([]string, 0, len(rubrics))
	for _, r := range rubrics {
		out = append(out, r.String())
	}
	return out
}

func TestRubricViewsPartitionTable(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	realty := storetest.Rubric(t, s, "Realty", 1, nil)
	transport := storetest.Rubric(t, s, "Transport", 0, nil)
	storetest.Rubric(t, s, "Houses", 2, realty)
	storetest.Rubric(t, s, "Flats", 2, realty)
	storetest.Rubric(t, s, "Land", 1, realty)
	storetest.Rubric(t, s, "Cars", 0, transport)

	supers, err := s.SuperRubrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Transport", "Realty"}, names(supers))

	subs, err := s.SubRubrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Transport - Cars",
		"Realty - Land",
		"Realty - Flats",
		"Realty - Houses",
	}, names(subs))

	seen := map[uint]int{}
	for _, r := range supers {
		assert.True(t, r.IsSuper())
		seen[r.ID]++
	}
	for _, r := range subs {
		assert.False(t, r.IsSuper())
		seen[r.ID]++
	}
	var total int64
	require.NoError(t, s.DB().Model(&models.Rubric{}).Count(&total).Error)
	assert.Len(t, seen, int(total))
	for id, n := range seen {
		assert.Equal(t, 1, n, "rubric %d in more than one view", id)
	}
}

func TestSubRubricRejectsSuperRubric(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	top := storetest.Rubric(t, s, "Realty", 0, nil)
	sub := storetest.Rubric(t, s, "Flats", 0, top)

	got, err := s.SubRubric(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SuperRubric)
	assert.Equal(t, "Realty", got.SuperRubric.Name)

	_, err = s.SubRubric(ctx, top.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRubricNamesUnique(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	top := storetest.Rubric(t, s, "Realty", 0, nil)

	err := s.CreateRubric(ctx, &models.Rubric{Name: "Realty", SuperRubricID: &top.ID})
	assert.Error(t, err)
}

func TestDeleteRubricProtected(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.User(t, s, "alice", false)
	top := storetest.Rubric(t, s, "Realty", 0, nil)
	sub := storetest.Rubric(t, s, "Flats", 0, top)
	storetest.Listing(t, s, u, sub, "Flat", "two rooms", true)

	assert.Error(t, s.DeleteRubric(ctx, sub.ID), "referenced by a listing")
	assert.Error(t, s.DeleteRubric(ctx, top.ID), "referenced by a sub-rubric")

	empty := storetest.Rubric(t, s, "Empty", 0, top)
	assert.NoError(t, s.DeleteRubric(ctx, empty.ID))
	assert.ErrorIs(t, s.DeleteRubric(ctx, empty.ID), store.ErrNotFound)
}

func TestActiveListingsSearch(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.User(t, s, "alice", false)
	top := storetest.Rubric(t, s, "Realty", 0, nil)
	flats := storetest.Rubric(t, s, "Flats", 0, top)
	houses := storetest.Rubric(t, s, "Houses", 1, top)

	a := storetest.Listing(t, s, u, flats, "FOO flat", "nice", true)
	b := storetest.Listing(t, s, u, houses, "House", "has a Foo garden", true)
	storetest.Listing(t, s, u, flats, "foo hidden", "inactive", false)
	storetest.Listing(t, s, u, flats, "Bar", "nothing here", true)
	pct := storetest.Listing(t, s, u, flats, "100% new", "literal percent", true)

	ids := func(ls []models.Listing) []uint {
		out := []uint{}
		for _, l := range ls {
			out = append(out, l.ID)
		}
		return out
	}

	f := store.ListingFilter{Keyword: "foo"}
	n, err := s.CountActive(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	got, err := s.ActiveListings(ctx, f, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, a.ID}, ids(got), "newest first, inactive excluded")

	got, err = s.ActiveListings(ctx, store.ListingFilter{Keyword: "foo", RubricID: flats.ID}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, ids(got))

	got, err = s.ActiveListings(ctx, store.ListingFilter{Keyword: "%"}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, []uint{pct.ID}, ids(got), "wildcards in the keyword are literal")

	n, err = s.CountActive(ctx, store.ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	got, err = s.ActiveListings(ctx, store.ListingFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.NotNil(t, got[0].Rubric)
}

func TestOwnedListing(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	alice := storetest.User(t, s, "alice", false)
	bob := storetest.User(t, s, "bob", false)
	top := storetest.Rubric(t, s, "Realty", 0, nil)
	sub := storetest.Rubric(t, s, "Flats", 0, top)
	l := storetest.Listing(t, s, alice, sub, "Flat", "two rooms", false)

	got, err := s.OwnedListing(ctx, l.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)

	_, err = s.OwnedListing(ctx, l.ID, bob.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	mine, err := s.ListingsByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1, "inactive listings are part of the profile")
}

func TestCommentsOrderAndVisibility(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.User(t, s, "alice", false)
	top := storetest.Rubric(t, s, "Realty", 0, nil)
	sub := storetest.Rubric(t, s, "Flats", 0, top)
	l := storetest.Listing(t, s, u, sub, "Flat", "two rooms", true)

	for _, c := range []models.Comment{
		{ListingID: l.ID, Author: "first", Content: "1", IsActive: true},
		{ListingID: l.ID, Author: "hidden", Content: "2", IsActive: false},
		{ListingID: l.ID, Author: "second", Content: "3", IsActive: true},
	} {
		c := c
		require.NoError(t, s.CreateComment(ctx, &c))
	}

	got, err := s.ActiveComments(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Author)
	assert.Equal(t, "second", got[1].Author)
}

func TestUserLookups(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	alice := storetest.User(t, s, "alice", true)

	got, err := s.UserByEmail(ctx, " ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	taken, err := s.UsernameTaken(ctx, "alice", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.UsernameTaken(ctx, "alice", alice.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = s.EmailTaken(ctx, "Alice@Example.com", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = s.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
