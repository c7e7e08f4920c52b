// Package store defines the documents persisted by recetario and the
// operations the resolvers need from a backing document database.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ID identifies a document. Generated by the store on insert.
type ID = primitive.ObjectID

// NewID returns a fresh document id.
func NewID() ID {
	return primitive.NewObjectID()
}

// ParseID parses the hex form of an id as sent by clients.
func ParseID(s string) (ID, error) {
	return primitive.ObjectIDFromHex(s)
}

// Author writes recipes.
type Author struct {
	ID    ID     `bson:"_id,omitempty"`
	Name  string `bson:"name"`
	Email string `bson:"email"`
}

// Ingredient is referenced by recipes.
type Ingredient struct {
	ID   ID     `bson:"_id,omitempty"`
	Name string `bson:"name"`
}

// Recipe references its author and ingredients by id. Nothing checks
// that the referenced documents exist.
type Recipe struct {
	ID          ID     `bson:"_id,omitempty"`
	Name        string `bson:"name"`
	Description string `bson:"description"`
	Author      ID     `bson:"author"`
	Ingredients []ID   `bson:"ingredients"`
}

// Store is the document database as seen by the resolvers. Lookups that
// find nothing return a nil value or an empty slice, never an error.
type Store interface {
	Author(ctx context.Context, id ID) (*Author, error)
	Authors(ctx context.Context) ([]*Author, error)
	AuthorsByID(ctx context.Context, ids []ID) ([]*Author, error)
	InsertAuthor(ctx context.Context, a *Author) error

	Ingredients(ctx context.Context) ([]*Ingredient, error)
	IngredientsByID(ctx context.Context, ids []ID) ([]*Ingredient, error)
	InsertIngredient(ctx context.Context, i *Ingredient) error

	Recipes(ctx context.Context) ([]*Recipe, error)
	RecipesByAuthor(ctx context.Context, authorIDs []ID) ([]*Recipe, error)
	RecipesByIngredient(ctx context.Context, ingredientIDs []ID) ([]*Recipe, error)
	InsertRecipe(ctx context.Context, r *Recipe) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// HasIngredient reports whether r references the ingredient id.
func (r *Recipe) HasIngredient(id ID) bool {
	for _, i := range r.Ingredients {
		if i == id {
			return true
		}
	}
	return false
}
