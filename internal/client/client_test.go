package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/p-iacone88/booksearch/internal/auth"
	"github.com/p-iacone88/booksearch/internal/client"
	"github.com/p-iacone88/booksearch/internal/graph"
	"github.com/p-iacone88/booksearch/internal/repo/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentsValidateAgainstSchema(t *testing.T) {
	tokens, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	srv, err := graph.NewServer(graph.Deps{Users: memory.NewUsersRepo(), Tokens: tokens})
	require.NoError(t, err)

	schema := srv.Schema()

	for name, doc := range client.Documents {
		t.Run(name, func(t *testing.T) {
			ast, err := parser.Parse(parser.ParseParams{Source: doc})
			require.NoError(t, err)

			res := graphql.ValidateDocument(&schema, ast, graphql.SpecifiedRules)
			assert.True(t, res.IsValid, "validation errors: %+v", res.Errors)
		})
	}
}

type capturedRequest struct {
	Auth string
	Body struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables"`
	}
}

func stubServer(t *testing.T, status int, response string, seen *capturedRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen.Auth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&seen.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestClient_SendsDocumentVariablesAndToken(t *testing.T) {
	var seen capturedRequest

	srv := stubServer(t, http.StatusOK, `{"data":{"removeBook":{"_id":"u1","username":"ann","email":"a@x.io","bookCount":0,"savedBooks":[]}}}`, &seen)

	u, err := client.New(srv.URL, srv.Client()).WithToken("tok").RemoveBook(context.Background(), "B1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", seen.Auth)
	assert.Equal(t, client.RemoveBook, seen.Body.Query)
	assert.Equal(t, "B1", seen.Body.Variables["bookId"])
	assert.Equal(t, "u1", u.ID)
	assert.Empty(t, u.SavedBooks)
}

func TestClient_WithTokenDoesNotMutateOriginal(t *testing.T) {
	var seen capturedRequest

	srv := stubServer(t, http.StatusOK, `{"data":{"me":{"_id":"u1","username":"ann","email":"a@x.io","bookCount":0,"savedBooks":[]}}}`, &seen)

	base := client.New(srv.URL, srv.Client())
	_ = base.WithToken("tok")

	_, err := base.Me(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seen.Auth)
}

func TestClient_ErrorsArray(t *testing.T) {
	srv := stubServer(t, http.StatusOK, `{"data":{"saveBook":null},"errors":[{"message":"You need to be logged in!","extensions":{"code":"UNAUTHENTICATED"}}]}`, nil)

	_, err := client.New(srv.URL, srv.Client()).SaveBook(context.Background(), client.Book{BookID: "B1"})

	var errs client.Errors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "UNAUTHENTICATED", errs[0].Code())
	assert.Empty(t, errs[0].Field())
	assert.Contains(t, err.Error(), "You need to be logged in!")
}

func TestClient_UnexpectedResponses(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"non-200":    {http.StatusTooManyRequests, `{"error":{"code":"rate_limited"}}`},
		"null data":  {http.StatusOK, `{"data":{"me":null}}`},
		"bad json":   {http.StatusOK, `{"data":`},
		"no payload": {http.StatusOK, `{"data":{}}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := stubServer(t, tc.status, tc.body, nil)

			_, err := client.New(srv.URL, srv.Client()).Me(context.Background())
			require.Error(t, err)

			var errs client.Errors
			assert.False(t, errors.As(err, &errs))
		})
	}
}
