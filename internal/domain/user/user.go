package user

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrInvalidID = errors.New("invalid user id")
)

// DuplicateError reports a uniqueness violation on Field ("email" or "username").
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s is already in use", e.Field)
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password,omitempty" json:"-"` // never expose hash in JSON
	SavedBooks   []SavedBook        `bson:"savedBooks" json:"savedBooks"`
	Version      int                `bson:"__v" json:"-"`
}

// BookCount is derived, never stored.
func (u User) BookCount() int {
	return len(u.SavedBooks)
}

func (u User) HasBook(bookID string) bool {
	for _, b := range u.SavedBooks {
		if b.BookID == bookID {
			return true
		}
	}
	return false
}

type SavedBook struct {
	BookID      string   `bson:"bookId" json:"bookId" validate:"required"`
	Authors     []string `bson:"authors" json:"authors"`
	Description string   `bson:"description" json:"description"`
	Title       string   `bson:"title" json:"title"`
	Image       string   `bson:"image" json:"image"`
	Link        string   `bson:"link" json:"link"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims the identity fields and lower-cases the email so
// uniqueness checks are case-insensitive.
func (r CreateUserRequest) Normalize() CreateUserRequest {
	return CreateUserRequest{
		Username: strings.TrimSpace(r.Username),
		Email:    strings.ToLower(strings.TrimSpace(r.Email)),
		Password: r.Password,
	}
}

// NewFromCreateRequest is the persistence hook shared by the stores: it
// normalizes the identity fields and replaces the plaintext password with
// its hash before the document is written.
func NewFromCreateRequest(req CreateUserRequest, hash func(string) (string, error)) (User, error) {
	req = req.Normalize()

	hashed, err := hash(req.Password)

	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	return User{
		ID:           primitive.NewObjectID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
		SavedBooks:   []SavedBook{},
	}, nil
}

// Profile strips the fields that never leave the store layer.
func (u User) Profile() User {
	u.PasswordHash = ""
	u.Version = 0
	if u.SavedBooks == nil {
		u.SavedBooks = []SavedBook{}
	}
	return u
}

// ParseID converts a hex session id into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)

	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}

	return oid, nil
}
