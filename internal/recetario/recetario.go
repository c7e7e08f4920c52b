// Package recetario defines the GraphQL schema of the recipe book and the
// resolvers that map each of its fields onto the document store.
package recetario

import (
	"context"
	_ "embed"

	"github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"github.com/recetario/recetario/internal/loader"
	"github.com/recetario/recetario/internal/log"
	"github.com/recetario/recetario/internal/store"
)

// Schema is the GraphQL SDL served by recetario.
//
//go:embed schema.graphql
var Schema string

// NewSchema parses Schema against a root resolver over s.
func NewSchema(s store.Store, logger *zap.Logger, opts ...graphql.SchemaOpt) (*graphql.Schema, error) {
	return graphql.ParseSchema(Schema, NewResolver(s, logger), opts...)
}

// Resolver is the root resolver. Query and Mutation fields are its methods.
// It holds the store shared by all requests and never changes it.
type Resolver struct {
	store  store.Store
	logger *zap.Logger
}

// NewResolver returns the root resolver over s. A nil logger discards logs.
func NewResolver(s store.Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: s, logger: logger}
}

// loaders returns the request's loaders. Requests that did not come through
// the HTTP handler get a private, unbatched set.
func (r *Resolver) loaders(ctx context.Context) *loader.Loaders {
	if l, ok := loader.FromContext(ctx); ok {
		return l
	}
	return loader.New(r.store, 0)
}

// storeError logs a failed database call and turns it into the error
// reported on the field.
func (r *Resolver) storeError(ctx context.Context, op string, err error) error {
	log.FromContext(ctx, r.logger).Error("store call failed", zap.String("op", op), zap.Error(err))
	return internalError(err)
}

// GetAuthor resolves getAuthor. An id matching no author yields null.
func (r *Resolver) GetAuthor(ctx context.Context, args struct{ ID graphql.ID }) (*authorResolver, error) {
	id, err := parseID("id", args.ID)
	if err != nil {
		return nil, err
	}
	a, err := r.store.Author(ctx, id)
	if err != nil {
		return nil, r.storeError(ctx, "getAuthor", err)
	}
	if a == nil {
		return nil, nil
	}
	return &authorResolver{root: r, a: a}, nil
}

// GetAuthors resolves getAuthors.
func (r *Resolver) GetAuthors(ctx context.Context) ([]*authorResolver, error) {
	authors, err := r.store.Authors(ctx)
	if err != nil {
		return nil, r.storeError(ctx, "getAuthors", err)
	}
	return r.authorResolvers(authors), nil
}

// GetRecipes resolves getRecipes.
func (r *Resolver) GetRecipes(ctx context.Context) ([]*recipeResolver, error) {
	recipes, err := r.store.Recipes(ctx)
	if err != nil {
		return nil, r.storeError(ctx, "getRecipes", err)
	}
	return r.recipeResolvers(recipes), nil
}

// GetIngredients resolves getIngredients.
func (r *Resolver) GetIngredients(ctx context.Context) ([]*ingredientResolver, error) {
	ingredients, err := r.store.Ingredients(ctx)
	if err != nil {
		return nil, r.storeError(ctx, "getIngredients", err)
	}
	return r.ingredientResolvers(ingredients), nil
}

func (r *Resolver) authorResolvers(authors []*store.Author) []*authorResolver {
	out := make([]*authorResolver, len(authors))
	for i, a := range authors {
		out[i] = &authorResolver{root: r, a: a}
	}
	return out
}

func (r *Resolver) recipeResolvers(recipes []*store.Recipe) []*recipeResolver {
	out := make([]*recipeResolver, len(recipes))
	for i, rec := range recipes {
		out[i] = &recipeResolver{root: r, r: rec}
	}
	return out
}

func (r *Resolver) ingredientResolvers(ingredients []*store.Ingredient) []*ingredientResolver {
	out := make([]*ingredientResolver, len(ingredients))
	for i, ing := range ingredients {
		out[i] = &ingredientResolver{root: r, i: ing}
	}
	return out
}

func toGraphQLID(id store.ID) graphql.ID {
	return graphql.ID(id.Hex())
}
