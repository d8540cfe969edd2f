package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/p-iacone88/booksearch/internal/graph"
)

type GraphQLExecutor interface {
	Execute(ctx context.Context, req graph.Request) *graphql.Result
}

type GraphQLHandler struct {
	exec GraphQLExecutor
}

func NewGraphQLHandler(exec GraphQLExecutor) *GraphQLHandler {
	return &GraphQLHandler{exec: exec}
}

// Serve executes one request. GraphQL-level failures, including auth
// failures, come back as 200 with an errors array.
func (h *GraphQLHandler) Serve(ctx *gin.Context) {
	var req graph.Request

	if !BindJSON(ctx, &req) {
		return
	}

	res := h.exec.Execute(ctx.Request.Context(), req)

	ctx.JSON(http.StatusOK, res)
}
