// Package memstore is an in-memory store.Store. Documents are kept in
// insertion order, which is the order every scan returns them in.
package memstore

import (
	"context"
	"sync"

	"github.com/recetario/recetario/internal/store"
)

// Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	authors     []*store.Author
	ingredients []*store.Ingredient
	recipes     []*store.Recipe
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) Author(ctx context.Context, id store.ID) (*store.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.authors {
		if a.ID == id {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) Authors(ctx context.Context) ([]*store.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Author, 0, len(s.authors))
	for _, a := range s.authors {
		c := *a
		out = append(out, &c)
	}
	return out, nil
}

func (s *Store) AuthorsByID(ctx context.Context, ids []store.ID) ([]*store.Author, error) {
	want := idSet(ids)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Author
	for _, a := range s.authors {
		if _, ok := want[a.ID]; ok {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) InsertAuthor(ctx context.Context, a *store.Author) error {
	a.ID = store.NewID()
	c := *a
	s.mu.Lock()
	s.authors = append(s.authors, &c)
	s.mu.Unlock()
	return nil
}

func (s *Store) Ingredients(ctx context.Context) ([]*store.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Ingredient, 0, len(s.ingredients))
	for _, i := range s.ingredients {
		c := *i
		out = append(out, &c)
	}
	return out, nil
}

func (s *Store) IngredientsByID(ctx context.Context, ids []store.ID) ([]*store.Ingredient, error) {
	want := idSet(ids)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Ingredient
	for _, i := range s.ingredients {
		if _, ok := want[i.ID]; ok {
			c := *i
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) InsertIngredient(ctx context.Context, i *store.Ingredient) error {
	i.ID = store.NewID()
	c := *i
	s.mu.Lock()
	s.ingredients = append(s.ingredients, &c)
	s.mu.Unlock()
	return nil
}

func (s *Store) Recipes(ctx context.Context) ([]*store.Recipe, error) {
	return s.filterRecipes(func(*store.Recipe) bool { return true }), nil
}

func (s *Store) RecipesByAuthor(ctx context.Context, authorIDs []store.ID) ([]*store.Recipe, error) {
	want := idSet(authorIDs)
	return s.filterRecipes(func(r *store.Recipe) bool {
		_, ok := want[r.Author]
		return ok
	}), nil
}

func (s *Store) RecipesByIngredient(ctx context.Context, ingredientIDs []store.ID) ([]*store.Recipe, error) {
	want := idSet(ingredientIDs)
	return s.filterRecipes(func(r *store.Recipe) bool {
		for _, id := range r.Ingredients {
			if _, ok := want[id]; ok {
				return true
			}
		}
		return false
	}), nil
}

func (s *Store) InsertRecipe(ctx context.Context, r *store.Recipe) error {
	r.ID = store.NewID()
	c := copyRecipe(r)
	s.mu.Lock()
	s.recipes = append(s.recipes, c)
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

func (s *Store) filterRecipes(keep func(*store.Recipe) bool) []*store.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*store.Recipe{}
	for _, r := range s.recipes {
		if keep(r) {
			out = append(out, copyRecipe(r))
		}
	}
	return out
}

func copyRecipe(r *store.Recipe) *store.Recipe {
	c := *r
	c.Ingredients = append([]store.ID(nil), r.Ingredients...)
	return &c
}

func idSet(ids []store.ID) map[store.ID]struct{} {
	m := make(map[store.ID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
