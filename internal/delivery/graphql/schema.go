// Package graphql exposes the conversation usecases as a GraphQL schema.
package graphql

import (
	_ "embed"
	"log/slog"

	"chatql/internal/usecase"

	"github.com/graph-gophers/graphql-go"
)

//go:embed schema.graphql
var schemaSDL string

// NewSchema parses the schema and binds it to the conversation usecase.
// The session of every operation is read from its context.
func NewSchema(conversationUc usecase.ConversationUsecase, logger *slog.Logger) *graphql.Schema {
	return graphql.MustParseSchema(schemaSDL, NewResolver(conversationUc, logger))
}
