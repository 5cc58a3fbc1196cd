// Package storetest opens migrated in-memory databases for tests.
package storetest

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/petermazzocco/bboard/internal/store"
	"github.com/petermazzocco/bboard/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var seq atomic.Int64

// Open returns a fresh, migrated SQLite database with foreign keys enforced.
// Every call gets its own named in-memory database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:bboard%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), store.Config(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// New is Open wrapped in a Store.
func New(t testing.TB) *store.Store {
	return store.New(Open(t))
}

func User(t testing.TB, s *store.Store, username string, sendMessages bool) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "!",
		IsActive:     true,
		IsActivated:  true,
		SendMessages: sendMessages,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// Rubric creates a rubric; a nil parent makes a super-rubric.
func Rubric(t testing.TB, s *store.Store, name string, order int16, parent *models.Rubric) *models.Rubric {
	t.Helper()
	r := &models.Rubric{Name: name, SortOrder: order}
	if parent != nil {
		r.SuperRubricID = &parent.ID
	}
	if err := s.CreateRubric(context.Background(), r); err != nil {
		t.Fatalf("create rubric: %v", err)
	}
	return r
}

func Listing(t testing.TB, s *store.Store, author *models.User, rubric *models.Rubric, title, content string, active bool) *models.Listing {
	t.Helper()
	l := &models.Listing{
		RubricID: rubric.ID,
		AuthorID: author.ID,
		Title:    title,
		Content:  content,
		Contacts: "call me",
		IsActive: active,
	}
	if err := s.CreateListing(context.Background(), l); err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return l
}
