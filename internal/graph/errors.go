package graph

import "errors"

// Error codes reported under extensions.code.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

const internalMessage = "Internal server error"

// AuthenticationError: not logged in, or bad credentials.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

func (e *AuthenticationError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": CodeUnauthenticated}
}

// UserInputError: a referenced entity is missing or an argument is invalid.
type UserInputError struct {
	Field   string
	Message string
}

func (e *UserInputError) Error() string { return e.Message }

func (e *UserInputError) Extensions() map[string]interface{} {
	return map[string]interface{}{
		"code":  CodeBadUserInput,
		"field": e.Field,
	}
}

// InternalError is what callers see for every unexpected failure.
type InternalError struct{}

func (e *InternalError) Error() string { return internalMessage }

func (e *InternalError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": CodeInternal}
}

func Unauthenticated(msg string) error {
	return &AuthenticationError{Message: msg}
}

func BadUserInput(field, msg string) error {
	return &UserInputError{Field: field, Message: msg}
}

var errNotLoggedIn = Unauthenticated("You need to be logged in!")

// asPublic unwraps err to one of the typed errors that may reach the caller,
// or returns nil. The executor only reads extensions off the outermost error,
// so wrapped typed errors must be unwrapped before they leave the boundary.
func asPublic(err error) error {
	var (
		authErr     *AuthenticationError
		inputErr    *UserInputError
		internalErr *InternalError
	)

	switch {
	case errors.As(err, &authErr):
		return authErr
	case errors.As(err, &inputErr):
		return inputErr
	case errors.As(err, &internalErr):
		return internalErr
	default:
		return nil
	}
}

func outcomeOf(err error) string {
	var (
		authErr  *AuthenticationError
		inputErr *UserInputError
	)

	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &authErr):
		return "unauthenticated"
	case errors.As(err, &inputErr):
		return "bad_user_input"
	default:
		return "internal"
	}
}
