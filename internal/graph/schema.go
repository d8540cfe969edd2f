package graph

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/p-iacone88/booksearch/internal/domain/user"
)

// Request is the POST /graphql body.
type Request struct {
	Query         string                 `json:"query" binding:"required"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Server executes requests against the schema built from a Resolver.
type Server struct {
	schema graphql.Schema
}

func NewServer(d Deps) (*Server, error) {
	schema, err := NewSchema(NewResolver(d))

	if err != nil {
		return nil, err
	}

	return &Server{schema: schema}, nil
}

func (s *Server) Schema() graphql.Schema {
	return s.schema
}

func (s *Server) Execute(ctx context.Context, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

func asUser(src interface{}) (user.User, bool) {
	switch u := src.(type) {
	case user.User:
		return u, true
	case *user.User:
		if u != nil {
			return *u, true
		}
	}
	return user.User{}, false
}

func userField(t graphql.Output, get func(u user.User) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			u, ok := asUser(p.Source)
			if !ok {
				return nil, nil
			}
			return get(u), nil
		},
	}
}

var bookType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Book",
	Fields: graphql.Fields{
		"bookId":      &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"authors":     &graphql.Field{Type: graphql.NewList(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"title":       &graphql.Field{Type: graphql.String},
		"image":       &graphql.Field{Type: graphql.String},
		"link":        &graphql.Field{Type: graphql.String},
	},
})

// password and __v have no field here, so they cannot be selected.
var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"_id":       userField(graphql.NewNonNull(graphql.ID), func(u user.User) interface{} { return u.ID.Hex() }),
		"username":  userField(graphql.NewNonNull(graphql.String), func(u user.User) interface{} { return u.Username }),
		"email":     userField(graphql.NewNonNull(graphql.String), func(u user.User) interface{} { return u.Email }),
		"bookCount": userField(graphql.NewNonNull(graphql.Int), func(u user.User) interface{} { return u.BookCount() }),
		"savedBooks": userField(
			graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(bookType))),
			func(u user.User) interface{} { return u.Profile().SavedBooks },
		),
	},
})

var authType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Auth",
	Fields: graphql.Fields{
		"token": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				a, _ := p.Source.(authPayload)
				return a.Token, nil
			},
		},
		"user": &graphql.Field{
			Type: graphql.NewNonNull(userType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				a, _ := p.Source.(authPayload)
				return a.User, nil
			},
		},
	},
})

var bookInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "BookInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"bookId":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"authors":     &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.String)},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"title":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"image":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"link":        &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

func nonNullString() *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
}

// NewSchema builds the schema. Every root field goes through guard.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: r.guardAll(graphql.Fields{
			"me": &graphql.Field{
				Type:    userType,
				Resolve: r.me,
			},
		}),
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: r.guardAll(graphql.Fields{
			"login": &graphql.Field{
				Type: authType,
				Args: graphql.FieldConfigArgument{
					"email":    nonNullString(),
					"password": nonNullString(),
				},
				Resolve: r.login,
			},
			"addUser": &graphql.Field{
				Type: authType,
				Args: graphql.FieldConfigArgument{
					"username": nonNullString(),
					"email":    nonNullString(),
					"password": nonNullString(),
				},
				Resolve: r.addUser,
			},
			"saveBook": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"newBook": &graphql.ArgumentConfig{Type: graphql.NewNonNull(bookInputType)},
				},
				Resolve: r.saveBook,
			},
			"removeBook": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"bookId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.removeBook,
			},
		}),
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
