package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/p-iacone88/booksearch/internal/cache"
	"github.com/p-iacone88/booksearch/internal/domain/user"
	"github.com/p-iacone88/booksearch/internal/observability"
	"github.com/p-iacone88/booksearch/internal/security"
	"github.com/p-iacone88/booksearch/internal/session"
)

// storeTimeout bounds each resolver's store round trips.
const storeTimeout = 3 * time.Second

type UserStore interface {
	Create(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetProfile(ctx context.Context, id string) (user.User, error)
	AddBook(ctx context.Context, id string, book user.SavedBook) (user.User, error)
	RemoveBook(ctx context.Context, id string, bookID string) (user.User, error)
}

type TokenIssuer interface {
	IssueToken(u user.User) (string, error)
}

type Deps struct {
	Users    UserStore
	Tokens   TokenIssuer
	Profiles cache.Profiles // optional
	Log      *slog.Logger
	Prom     *observability.Prom // optional
}

type Resolver struct {
	users    UserStore
	tokens   TokenIssuer
	profiles cache.Profiles
	log      *slog.Logger
	prom     *observability.Prom

	// generations counts invalidations per user id. me only keeps what it
	// cached if no mutation landed while it was reading the store.
	genMu       sync.Mutex
	generations map[string]uint64
}

func NewResolver(d Deps) *Resolver {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	return &Resolver{
		users:    d.Users,
		tokens:   d.Tokens,
		profiles: d.Profiles,
		log:      log,
		prom:     d.Prom,

		generations: make(map[string]uint64),
	}
}

// authPayload is the Auth object returned by login and addUser.
type authPayload struct {
	Token string
	User  user.User
}

func contextOf(p graphql.ResolveParams) context.Context {
	if p.Context == nil {
		return context.Background()
	}
	return p.Context
}

func requireSession(ctx context.Context) (session.Session, error) {
	s, ok := session.From(ctx)

	if !ok {
		return session.Session{}, errNotLoggedIn
	}

	return s, nil
}

func (r *Resolver) me(p graphql.ResolveParams) (interface{}, error) {
	s, err := requireSession(contextOf(p))

	if err != nil {
		return nil, err
	}

	if u, ok := r.cachedProfile(contextOf(p), s.UserID); ok {
		return u, nil
	}

	gen := r.generation(s.UserID)

	ctx, cancel := context.WithTimeout(contextOf(p), storeTimeout)
	defer cancel()

	u, err := r.users.GetProfile(ctx, s.UserID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, Unauthenticated("You need to be logged in!")
		}

		return nil, fmt.Errorf("load profile: %w", err)
	}

	r.rememberProfile(contextOf(p), u, gen)

	return u, nil
}

func (r *Resolver) login(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)
	password, _ := p.Args["password"].(string)

	ctx, cancel := context.WithTimeout(contextOf(p), storeTimeout)
	defer cancel()

	found, err := r.users.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			security.BurnComparison(password)
			return nil, BadUserInput("email", "No user found with this email address")
		}

		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if !security.VerifyPassword(found.PasswordHash, password) {
		return nil, Unauthenticated("Incorrect credentials")
	}

	return r.issue(found.Profile())
}

func (r *Resolver) addUser(p graphql.ResolveParams) (interface{}, error) {
	req := user.CreateUserRequest{
		Username: stringArg(p.Args, "username"),
		Email:    stringArg(p.Args, "email"),
		Password: stringArg(p.Args, "password"),
	}.Normalize()

	err := user.Validate(req)

	if err != nil {
		return nil, inputError(err)
	}

	ctx, cancel := context.WithTimeout(contextOf(p), storeTimeout)
	defer cancel()

	created, err := r.users.Create(ctx, req)

	if err != nil {
		var dup *user.DuplicateError

		if errors.As(err, &dup) {
			return nil, BadUserInput(dup.Field, dup.Error())
		}

		return nil, fmt.Errorf("create user: %w", err)
	}

	return r.issue(created)
}

func (r *Resolver) saveBook(p graphql.ResolveParams) (interface{}, error) {
	s, err := requireSession(contextOf(p))

	if err != nil {
		return nil, err
	}

	book := bookFromInput(p.Args["newBook"])

	err = user.Validate(book)

	if err != nil {
		return nil, inputError(err)
	}

	ctx, cancel := context.WithTimeout(contextOf(p), storeTimeout)
	defer cancel()

	updated, err := r.users.AddBook(ctx, s.UserID, book)

	if err != nil {
		return nil, r.mutationError(contextOf(p), s.UserID, "save book", err)
	}

	r.forgetProfile(contextOf(p), s.UserID)

	return updated, nil
}

func (r *Resolver) removeBook(p graphql.ResolveParams) (interface{}, error) {
	s, err := requireSession(contextOf(p))

	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(contextOf(p), storeTimeout)
	defer cancel()

	updated, err := r.users.RemoveBook(ctx, s.UserID, stringArg(p.Args, "bookId"))

	if err != nil {
		return nil, r.mutationError(contextOf(p), s.UserID, "remove book", err)
	}

	r.forgetProfile(contextOf(p), s.UserID)

	return updated, nil
}

func (r *Resolver) issue(u user.User) (interface{}, error) {
	token, err := r.tokens.IssueToken(u)

	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return authPayload{Token: token, User: u}, nil
}

// mutationError maps a failed save/remove. A vanished user also drops any
// cached profile so me stops serving it.
func (r *Resolver) mutationError(ctx context.Context, userID, op string, err error) error {
	if errors.Is(err, user.ErrNotFound) {
		r.forgetProfile(ctx, userID)
		return BadUserInput("userId", "Couldn't find user with this id!")
	}

	return fmt.Errorf("%s: %w", op, err)
}

func inputError(err error) error {
	var fe *user.FieldError

	if errors.As(err, &fe) {
		return BadUserInput(fe.Field, fmt.Sprintf("%s is invalid (%s)", fe.Field, fe.Rule))
	}

	return err
}

// profile cache helpers; cache trouble never fails a request

func (r *Resolver) cachedProfile(ctx context.Context, id string) (user.User, bool) {
	if r.profiles == nil {
		return user.User{}, false
	}

	u, ok, err := r.profiles.Get(ctx, id)

	switch {
	case err != nil:
		r.log.WarnContext(ctx, "profile cache read failed", "user_id", id, "err", err)
		r.observeCache("error")
		return user.User{}, false
	case ok:
		r.observeCache("hit")
	default:
		r.observeCache("miss")
	}

	return u, ok
}

func (r *Resolver) generation(id string) uint64 {
	r.genMu.Lock()
	defer r.genMu.Unlock()

	return r.generations[id]
}

// rememberProfile caches a profile read at generation gen. If a mutation
// bumped the generation meanwhile, the entry is dropped again.
func (r *Resolver) rememberProfile(ctx context.Context, u user.User, gen uint64) {
	if r.profiles == nil {
		return
	}

	id := u.ID.Hex()

	if r.generation(id) != gen {
		return
	}

	err := r.profiles.Set(ctx, u)

	if err != nil {
		r.log.WarnContext(ctx, "profile cache write failed", "user_id", id, "err", err)
		_ = r.profiles.Delete(ctx, id)
		return
	}

	if r.generation(id) != gen {
		_ = r.profiles.Delete(ctx, id)
	}
}

// forgetProfile invalidates after a write. Mutations never fill the cache:
// concurrent writes can finish out of order, only a fresh store read is safe.
func (r *Resolver) forgetProfile(ctx context.Context, id string) {
	if r.profiles == nil {
		return
	}

	r.genMu.Lock()
	r.generations[id]++
	r.genMu.Unlock()

	err := r.profiles.Delete(ctx, id)

	if err != nil {
		r.log.WarnContext(ctx, "profile cache invalidation failed", "user_id", id, "err", err)
	}
}

func (r *Resolver) observeCache(result string) {
	if r.prom != nil {
		r.prom.ObserveCache(result)
	}
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func bookFromInput(raw interface{}) user.SavedBook {
	in, _ := raw.(map[string]interface{})

	book := user.SavedBook{
		BookID:      stringArg(in, "bookId"),
		Title:       stringArg(in, "title"),
		Description: stringArg(in, "description"),
		Image:       stringArg(in, "image"),
		Link:        stringArg(in, "link"),
		Authors:     []string{},
	}

	authors, _ := in["authors"].([]interface{})

	for _, a := range authors {
		if s, ok := a.(string); ok {
			book.Authors = append(book.Authors, s)
		}
	}

	return book
}
