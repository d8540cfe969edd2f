package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/p-iacone88/booksearch/internal/db"
	"github.com/p-iacone88/booksearch/internal/domain/user"
	"github.com/p-iacone88/booksearch/internal/observability"
	"github.com/p-iacone88/booksearch/internal/security"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// profileProjection hides the hash and the document version.
var profileProjection = bson.D{
	{Key: "password", Value: 0},
	{Key: "__v", Value: 0},
}

type UsersRepo struct {
	coll *mongo.Collection
	prom *observability.Prom
	hash func(string) (string, error)
}

func NewUsersRepo(database *mongo.Database, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		coll: database.Collection(db.UsersCollection),
		prom: prom,
		hash: security.HashPassword,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *UsersRepo) Create(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	u, err := user.NewFromCreateRequest(req, r.hash)

	if err != nil {
		return user.User{}, err
	}

	err = r.observe("users.create", func() error {
		_, err := r.coll.InsertOne(ctx, u)
		return err
	})

	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, &user.DuplicateError{Field: duplicateField(err)}
		}

		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u.Profile(), nil
}

// GetByEmail is the only read that returns the password hash.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		return r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, fmt.Errorf("find user by email: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetProfile(ctx context.Context, id string) (user.User, error) {
	oid, err := user.ParseID(id)

	if err != nil {
		return user.User{}, user.ErrNotFound
	}

	var u user.User

	err = r.observe("users.get_profile", func() error {
		opts := options.FindOne().SetProjection(profileProjection)
		return r.coll.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&u)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, fmt.Errorf("find user profile: %w", err)
	}

	return u.Profile(), nil
}

// AddBook pushes book onto the user's list unless an entry with the same
// bookId is already there; in that case the stored list is returned as is.
func (r *UsersRepo) AddBook(ctx context.Context, id string, book user.SavedBook) (user.User, error) {
	oid, err := user.ParseID(id)

	if err != nil {
		return user.User{}, user.ErrNotFound
	}

	if book.Authors == nil {
		book.Authors = []string{}
	}

	filter := bson.M{
		"_id":               oid,
		"savedBooks.bookId": bson.M{"$ne": book.BookID},
	}
	update := bson.M{"$push": bson.M{"savedBooks": book}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(profileProjection)

	var u user.User

	err = r.observe("users.add_book", func() error {
		return r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// either the book is already saved or the user is gone
			return r.GetProfile(ctx, id)
		}

		return user.User{}, fmt.Errorf("push saved book: %w", err)
	}

	return u.Profile(), nil
}

// RemoveBook pulls every entry with bookID. Removing an absent id is not an error.
func (r *UsersRepo) RemoveBook(ctx context.Context, id string, bookID string) (user.User, error) {
	oid, err := user.ParseID(id)

	if err != nil {
		return user.User{}, user.ErrNotFound
	}

	update := bson.M{"$pull": bson.M{"savedBooks": bson.M{"bookId": bookID}}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(profileProjection)

	var u user.User

	err = r.observe("users.remove_book", func() error {
		return r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&u)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, fmt.Errorf("pull saved book: %w", err)
	}

	return u.Profile(), nil
}

// duplicateField reads the violated index name out of an E11000 error,
// e.g. "index: username_1 dup key: { ... }". The dup key value is ignored
// since it is user input.
func duplicateField(err error) string {
	var we mongo.WriteException

	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if field := indexField(e.Message); field != "" {
				return field
			}
		}
		return "email"
	}

	if field := indexField(err.Error()); field != "" {
		return field
	}

	return "email"
}

func indexField(msg string) string {
	_, rest, ok := strings.Cut(msg, "index: ")

	if !ok {
		return ""
	}

	name, _, _ := strings.Cut(rest, " ")

	switch {
	case strings.HasPrefix(name, "username"):
		return "username"
	case strings.HasPrefix(name, "email"):
		return "email"
	}

	return ""
}
