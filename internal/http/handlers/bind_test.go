package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/p-iacone88/booksearch/internal/graph"
	"github.com/p-iacone88/booksearch/internal/http/handlers"
	"github.com/p-iacone88/booksearch/internal/http/middlewares"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindRouter(maxBody int64) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middlewares.MaxBodyBytes(maxBody))
	r.POST("/graphql", func(ctx *gin.Context) {
		var req graph.Request
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusNoContent)
	})

	return r
}

func postBind(t *testing.T, r *gin.Engine, body string) (*httptest.ResponseRecorder, bindErrorResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp bindErrorResponse
	if w.Code != http.StatusNoContent {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
		}
	}

	return w, resp
}

func TestBindJSON_MissingQueryUsesJSONFieldName(t *testing.T) {
	w, resp := postBind(t, bindRouter(0), `{"variables":{}}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	if len(resp.Error.Details.Fields) != 1 {
		t.Fatalf("expected one field error, got %+v", resp.Error.Details.Fields)
	}

	fieldErr := resp.Error.Details.Fields[0]
	if fieldErr.Field != "query" || fieldErr.Rule != "required" {
		t.Fatalf("unexpected field error: %+v", fieldErr)
	}
	if fieldErr.Message == "" {
		t.Fatalf("field error should include a non-empty message")
	}
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	w, resp := postBind(t, bindRouter(0), `{"query":"{ me { _id } }","variables":"nope"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("unexpected json reason: %q", resp.Error.Details.JSON)
	}

	if resp.Error.Details.Field != "variables" {
		t.Fatalf("unexpected field: %q", resp.Error.Details.Field)
	}

	if len(resp.Error.Details.Fields) != 1 || resp.Error.Details.Fields[0].Rule != "type" {
		t.Fatalf("unexpected fields: %+v", resp.Error.Details.Fields)
	}
}

func TestBindJSON_SyntaxAndEmptyBody(t *testing.T) {
	r := bindRouter(0)

	cases := map[string]string{
		`{"query":`: "invalid_json_syntax",
		`{query}`:   "invalid_json_syntax",
		``:          "empty_body",
	}

	for body, want := range cases {
		w, resp := postBind(t, r, body)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: got status %d, want %d", body, w.Code, http.StatusBadRequest)
		}
		if resp.Error.Details.JSON != want {
			t.Fatalf("body %q: got reason %q, want %q", body, resp.Error.Details.JSON, want)
		}
	}
}

func TestBindJSON_OversizedBodyIs413(t *testing.T) {
	body := `{"query":"` + strings.Repeat("a", 256) + `"}`

	w, resp := postBind(t, bindRouter(64), body)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
	if resp.Error.Code != "payload_too_large" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}
}

func TestBindJSON_ValidBody(t *testing.T) {
	w, _ := postBind(t, bindRouter(1024), `{"query":"{ me { _id } }","operationName":"me","variables":{"a":1}}`)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusNoContent, w.Body.String())
	}
}
