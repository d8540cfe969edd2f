package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type Book struct {
	BookID      string   `json:"bookId"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Title       string   `json:"title"`
	Image       string   `json:"image"`
	Link        string   `json:"link"`
}

type User struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	BookCount  int    `json:"bookCount"`
	SavedBooks []Book `json:"savedBooks"`
}

type Auth struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Error is one entry of a GraphQL errors array.
type Error struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions"`
}

func (e Error) Code() string {
	s, _ := e.Extensions["code"].(string)
	return s
}

func (e Error) Field() string {
	s, _ := e.Extensions["field"].(string)
	return s
}

// Errors is returned when the response carried a non-empty errors array.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

type Client struct {
	endpoint string
	http     *http.Client
	token    string
}

func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{endpoint: endpoint, http: httpClient}
}

// WithToken returns a copy that sends the bearer token on every request.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Login(ctx context.Context, email, password string) (Auth, error) {
	var out Auth
	err := c.do(ctx, LoginUser, "login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) AddUser(ctx context.Context, username, email, password string) (Auth, error) {
	var out Auth
	err := c.do(ctx, AddUser, "addUser", map[string]interface{}{
		"username": username,
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) SaveBook(ctx context.Context, book Book) (User, error) {
	var out User
	err := c.do(ctx, SaveBook, "saveBook", map[string]interface{}{"newBook": book}, &out)
	return out, err
}

func (c *Client) RemoveBook(ctx context.Context, bookID string) (User, error) {
	var out User
	err := c.do(ctx, RemoveBook, "removeBook", map[string]interface{}{"bookId": bookID}, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, GetMe, "me", nil, &out)
	return out, err
}

type response struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors Errors                     `json:"errors"`
}

func (c *Client) do(ctx context.Context, query, field string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graphql: unexpected status %d", resp.StatusCode)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if len(r.Errors) > 0 {
		return r.Errors
	}

	raw, ok := r.Data[field]
	if !ok || string(raw) == "null" {
		return fmt.Errorf("graphql: empty %s result", field)
	}

	return json.Unmarshal(raw, out)
}
