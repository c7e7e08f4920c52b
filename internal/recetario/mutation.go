package recetario

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"github.com/recetario/recetario/internal/store"
)

// AddAuthor resolves addAuthor.
func (r *Resolver) AddAuthor(ctx context.Context, args struct {
	Name  string
	Email string
}) (*authorResolver, error) {
	a := &store.Author{Name: args.Name, Email: args.Email}
	if err := r.store.InsertAuthor(ctx, a); err != nil {
		return nil, r.storeError(ctx, "addAuthor", err)
	}
	return &authorResolver{root: r, a: a}, nil
}

// AddIngredient resolves addIngredient.
func (r *Resolver) AddIngredient(ctx context.Context, args struct{ Name string }) (*ingredientResolver, error) {
	i := &store.Ingredient{Name: args.Name}
	if err := r.store.InsertIngredient(ctx, i); err != nil {
		return nil, r.storeError(ctx, "addIngredient", err)
	}
	return &ingredientResolver{root: r, i: i}, nil
}

type addRecipeArgs struct {
	Name        string
	Description string
	Author      graphql.ID
	Ingredients *[]graphql.ID
}

// AddRecipe stores the author and ingredients as references. Whether they
// point at existing documents is not checked.
func (r *Resolver) AddRecipe(ctx context.Context, args addRecipeArgs) (*recipeResolver, error) {
	author, err := parseID("author", args.Author)
	if err != nil {
		return nil, err
	}
	ingredients := []store.ID{}
	if args.Ingredients != nil {
		for _, raw := range *args.Ingredients {
			id, err := parseID("ingredients", raw)
			if err != nil {
				return nil, err
			}
			ingredients = append(ingredients, id)
		}
	}

	rec := &store.Recipe{
		Name:        args.Name,
		Description: args.Description,
		Author:      author,
		Ingredients: ingredients,
	}
	if err := r.store.InsertRecipe(ctx, rec); err != nil {
		return nil, r.storeError(ctx, "addRecipe", err)
	}
	return &recipeResolver{root: r, r: rec}, nil
}
