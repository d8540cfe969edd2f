package mongodb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/p-iacone88/booksearch/internal/db"
	"github.com/p-iacone88/booksearch/internal/domain/user"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestDuplicateField(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "username index",
			err: mongo.WriteException{WriteErrors: mongo.WriteErrors{{
				Code:    11000,
				Message: `E11000 duplicate key error collection: booksearch.users index: username_1 dup key: { username: "alice" }`,
			}}},
			want: "username",
		},
		{
			name: "email index",
			err: mongo.WriteException{WriteErrors: mongo.WriteErrors{{
				Code:    11000,
				Message: `E11000 duplicate key error collection: booksearch.users index: email_1 dup key: { email: "a@x.com" }`,
			}}},
			want: "email",
		},
		{
			name: "email index with a username-like value",
			err: mongo.WriteException{WriteErrors: mongo.WriteErrors{{
				Code:    11000,
				Message: `E11000 duplicate key error collection: booksearch.users index: email_1 dup key: { email: "username@x.com" }`,
			}}},
			want: "email",
		},
		{
			name: "username index with an email-like value",
			err: mongo.WriteException{WriteErrors: mongo.WriteErrors{{
				Code:    11000,
				Message: `E11000 duplicate key error collection: booksearch.users index: username_1 dup key: { username: "email" }`,
			}}},
			want: "username",
		},
		{name: "plain error", err: errors.New("E11000 index: username_1"), want: "username"},
		{name: "no index name", err: errors.New("E11000 duplicate key username"), want: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := duplicateField(tt.err); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

// Integration tests run against a real server when TEST_MONGO_URI is set.
func setupRepo(t *testing.T) *UsersRepo {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	client, err := db.NewClient(uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	database := client.Database("booksearch_test_" + uuid.NewString()[:8])

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = database.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.EnsureUserIndexes(ctx, database); err != nil {
		t.Fatalf("indexes: %v", err)
	}

	repo := NewUsersRepo(database, nil)
	// keep bcrypt out of the hot path
	repo.hash = func(p string) (string, error) { return "hashed:" + p, nil }

	return repo
}

func TestUsersRepoIntegration_Lifecycle(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, user.CreateUserRequest{Username: "alice", Email: "A@x.com", Password: "pw"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.PasswordHash != "" {
		t.Fatalf("create must not return the hash")
	}

	withHash, err := repo.GetByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if withHash.PasswordHash != "hashed:pw" {
		t.Fatalf("stored hash: got %q", withHash.PasswordHash)
	}

	id := created.ID.Hex()

	u, err := repo.AddBook(ctx, id, user.SavedBook{BookID: "B1", Title: "Dune", Authors: []string{"Frank Herbert"}})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	if u.BookCount() != 1 {
		t.Fatalf("book count after add: got %d", u.BookCount())
	}

	u, err = repo.AddBook(ctx, id, user.SavedBook{BookID: "B1", Title: "Dune again"})
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if u.BookCount() != 1 || u.SavedBooks[0].Title != "Dune" {
		t.Fatalf("duplicate add must be a no-op, got %+v", u.SavedBooks)
	}

	u, err = repo.RemoveBook(ctx, id, "B1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if u.HasBook("B1") {
		t.Fatalf("B1 still present after remove")
	}

	if _, err := repo.RemoveBook(ctx, id, "B1"); err != nil {
		t.Fatalf("removing an absent id must succeed, got %v", err)
	}

	profile, err := repo.GetProfile(ctx, id)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.PasswordHash != "" {
		t.Fatalf("profile leaked password hash")
	}
}

func TestUsersRepoIntegration_Duplicates(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, user.CreateUserRequest{Username: "alice", Email: "a@x.com", Password: "pw"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := repo.Create(ctx, user.CreateUserRequest{Username: "alice", Email: "other@x.com", Password: "pw"})

	var dup *user.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "username" {
		t.Fatalf("expected username duplicate, got %v", err)
	}

	_, err = repo.Create(ctx, user.CreateUserRequest{Username: "bob", Email: "A@X.com", Password: "pw"})
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("expected email duplicate, got %v", err)
	}
}

func TestUsersRepoIntegration_UnknownUser(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	missing := "507f1f77bcf86cd799439011"

	if _, err := repo.GetProfile(ctx, missing); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("get profile: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.AddBook(ctx, missing, user.SavedBook{BookID: "B1"}); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("add book: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.RemoveBook(ctx, "not-hex", "B1"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("remove book: expected ErrNotFound, got %v", err)
	}
}
