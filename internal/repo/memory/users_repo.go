package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/p-iacone88/booksearch/internal/domain/user"
	"github.com/p-iacone88/booksearch/internal/security"
)

// UsersRepo is an in-process stand-in for the Mongo store. It enforces the
// same unique email/username indexes and the same save/remove semantics.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // {"id hex": user}

	hash func(string) (string, error)
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
		hash:  security.HashPassword,
	}
}

// WithHasher swaps the password hash function, mostly to keep tests fast.
func (r *UsersRepo) WithHasher(hash func(string) (string, error)) *UsersRepo {
	r.hash = hash
	return r
}

func (r *UsersRepo) Ping(context.Context) error {
	return nil
}

func (r *UsersRepo) Create(_ context.Context, req user.CreateUserRequest) (user.User, error) {
	u, err := user.NewFromCreateRequest(req, r.hash)

	if err != nil {
		return user.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// email wins when both collide, whichever records they belong to
	for _, existing := range r.items {
		if existing.Email == u.Email {
			return user.User{}, &user.DuplicateError{Field: "email"}
		}
	}

	for _, existing := range r.items {
		if existing.Username == u.Username {
			return user.User{}, &user.DuplicateError{Field: "username"}
		}
	}

	r.items[u.ID.Hex()] = u

	return clone(u).Profile(), nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return clone(u), nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetProfile(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return clone(u).Profile(), nil
}

func (r *UsersRepo) AddBook(_ context.Context, id string, book user.SavedBook) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if !u.HasBook(book.BookID) {
		book.Authors = append([]string{}, book.Authors...)
		u = clone(u)
		u.SavedBooks = append(u.SavedBooks, book)
		r.items[id] = u
	}

	return clone(u).Profile(), nil
}

func (r *UsersRepo) RemoveBook(_ context.Context, id string, bookID string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	kept := make([]user.SavedBook, 0, len(u.SavedBooks))

	for _, b := range u.SavedBooks {
		if b.BookID != bookID {
			kept = append(kept, b)
		}
	}

	u.SavedBooks = kept
	r.items[id] = u

	return clone(u).Profile(), nil
}

// clone deep-copies the saved list so callers never alias stored state.
func clone(u user.User) user.User {
	books := make([]user.SavedBook, len(u.SavedBooks))

	for i, b := range u.SavedBooks {
		b.Authors = append([]string{}, b.Authors...)
		books[i] = b
	}

	u.SavedBooks = books

	return u
}
