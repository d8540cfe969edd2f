package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/p-iacone88/booksearch/internal/domain/user"
)

func fastHash(p string) (string, error) { return "hashed:" + p, nil }

func newRepo() *UsersRepo {
	return NewUsersRepo().WithHasher(fastHash)
}

func mustCreate(t *testing.T, r *UsersRepo, username, email string) user.User {
	t.Helper()

	u, err := r.Create(context.Background(), user.CreateUserRequest{Username: username, Email: email, Password: "pw"})
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return u
}

func TestCreate_HashesAndHides(t *testing.T) {
	r := newRepo()
	u := mustCreate(t, r, "alice", "a@x.com")

	if u.PasswordHash != "" {
		t.Fatalf("create returned the hash")
	}

	stored, err := r.GetByEmail(context.Background(), "A@X.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if stored.PasswordHash != "hashed:pw" {
		t.Fatalf("stored hash: got %q", stored.PasswordHash)
	}
}

func TestCreate_Duplicates(t *testing.T) {
	r := newRepo()
	mustCreate(t, r, "alice", "a@x.com")

	var dup *user.DuplicateError

	_, err := r.Create(context.Background(), user.CreateUserRequest{Username: "bob", Email: "a@x.com", Password: "pw"})
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("expected email duplicate, got %v", err)
	}

	_, err = r.Create(context.Background(), user.CreateUserRequest{Username: "alice", Email: "b@x.com", Password: "pw"})
	if !errors.As(err, &dup) || dup.Field != "username" {
		t.Fatalf("expected username duplicate, got %v", err)
	}
}

func TestCreate_EmailReportedFirstAcrossRecords(t *testing.T) {
	r := newRepo()
	mustCreate(t, r, "alice", "a@x.com")
	mustCreate(t, r, "bob", "b@x.com")

	// username matches one record, email matches the other
	for i := 0; i < 20; i++ {
		_, err := r.Create(context.Background(), user.CreateUserRequest{Username: "alice", Email: "b@x.com", Password: "pw"})

		var dup *user.DuplicateError
		if !errors.As(err, &dup) || dup.Field != "email" {
			t.Fatalf("attempt %d: expected email duplicate, got %v", i, err)
		}
	}
}

func TestAddBook_DeduplicatesByBookID(t *testing.T) {
	r := newRepo()
	ctx := context.Background()
	id := mustCreate(t, r, "alice", "a@x.com").ID.Hex()

	for i := 0; i < 3; i++ {
		if _, err := r.AddBook(ctx, id, user.SavedBook{BookID: fmt.Sprintf("B%d", i)}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	u, err := r.AddBook(ctx, id, user.SavedBook{BookID: "B1", Title: "other"})
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if u.BookCount() != 3 {
		t.Fatalf("book count: got %d want 3", u.BookCount())
	}
}

func TestRemoveBook_Idempotent(t *testing.T) {
	r := newRepo()
	ctx := context.Background()
	id := mustCreate(t, r, "alice", "a@x.com").ID.Hex()

	_, _ = r.AddBook(ctx, id, user.SavedBook{BookID: "B1"})
	_, _ = r.AddBook(ctx, id, user.SavedBook{BookID: "B2"})

	u, err := r.RemoveBook(ctx, id, "B1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if u.HasBook("B1") || !u.HasBook("B2") {
		t.Fatalf("unexpected list after remove: %+v", u.SavedBooks)
	}

	u, err = r.RemoveBook(ctx, id, "missing")
	if err != nil {
		t.Fatalf("removing absent id: %v", err)
	}
	if u.BookCount() != 1 {
		t.Fatalf("list changed on no-op remove: %+v", u.SavedBooks)
	}
}

func TestUnknownUser(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	if _, err := r.GetProfile(ctx, "nope"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("get profile: %v", err)
	}
	if _, err := r.AddBook(ctx, "nope", user.SavedBook{BookID: "B1"}); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("add book: %v", err)
	}
	if _, err := r.RemoveBook(ctx, "nope", "B1"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("remove book: %v", err)
	}
	if _, err := r.GetByEmail(ctx, "nobody@x.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("get by email: %v", err)
	}
}

func TestReturnedUserDoesNotAliasStore(t *testing.T) {
	r := newRepo()
	ctx := context.Background()
	id := mustCreate(t, r, "alice", "a@x.com").ID.Hex()

	u, _ := r.AddBook(ctx, id, user.SavedBook{BookID: "B1", Authors: []string{"A"}})
	u.SavedBooks[0].Authors[0] = "mutated"

	fresh, _ := r.GetProfile(ctx, id)
	if fresh.SavedBooks[0].Authors[0] != "A" {
		t.Fatalf("store state was mutated through a returned value")
	}
}

func TestConcurrentAddBook(t *testing.T) {
	r := newRepo()
	ctx := context.Background()
	id := mustCreate(t, r, "alice", "a@x.com").ID.Hex()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = r.AddBook(ctx, id, user.SavedBook{BookID: fmt.Sprintf("B%d", i)})
		}(i)
	}
	wg.Wait()

	u, _ := r.GetProfile(ctx, id)
	if u.BookCount() != 50 {
		t.Fatalf("lost updates: got %d want 50", u.BookCount())
	}
}
