package recetario

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"github.com/recetario/recetario/internal/store"
)

type authorResolver struct {
	root *Resolver
	a    *store.Author
}

func (r *authorResolver) ID() graphql.ID {
	return toGraphQLID(r.a.ID)
}

func (r *authorResolver) Name() string {
	return r.a.Name
}

func (r *authorResolver) Email() string {
	return r.a.Email
}

func (r *authorResolver) Recipes(ctx context.Context) ([]*recipeResolver, error) {
	recipes, err := r.root.loaders(ctx).RecipesByAuthor(ctx, r.a.ID)
	if err != nil {
		return nil, r.root.storeError(ctx, "Author.recipes", err)
	}
	return r.root.recipeResolvers(recipes), nil
}

type ingredientResolver struct {
	root *Resolver
	i    *store.Ingredient
}

func (r *ingredientResolver) ID() graphql.ID {
	return toGraphQLID(r.i.ID)
}

func (r *ingredientResolver) Name() string {
	return r.i.Name
}

func (r *ingredientResolver) Recipes(ctx context.Context) ([]*recipeResolver, error) {
	recipes, err := r.root.loaders(ctx).RecipesByIngredient(ctx, r.i.ID)
	if err != nil {
		return nil, r.root.storeError(ctx, "Ingredient.recipes", err)
	}
	return r.root.recipeResolvers(recipes), nil
}

type recipeResolver struct {
	root *Resolver
	r    *store.Recipe
}

func (r *recipeResolver) ID() graphql.ID {
	return toGraphQLID(r.r.ID)
}

func (r *recipeResolver) Name() string {
	return r.r.Name
}

func (r *recipeResolver) Description() string {
	return r.r.Description
}

// Author is null when the referenced author does not exist; the engine then
// reports the non-null violation on this field.
func (r *recipeResolver) Author(ctx context.Context) (*authorResolver, error) {
	a, err := r.root.loaders(ctx).Author(ctx, r.r.Author)
	if err != nil {
		return nil, r.root.storeError(ctx, "Recipe.author", err)
	}
	if a == nil {
		return nil, nil
	}
	return &authorResolver{root: r.root, a: a}, nil
}

// Ingredients skips references to ingredients that do not exist.
func (r *recipeResolver) Ingredients(ctx context.Context) (*[]*ingredientResolver, error) {
	ingredients, err := r.root.loaders(ctx).Ingredients(ctx, r.r.Ingredients)
	if err != nil {
		return nil, r.root.storeError(ctx, "Recipe.ingredients", err)
	}
	out := r.root.ingredientResolvers(ingredients)
	return &out, nil
}
