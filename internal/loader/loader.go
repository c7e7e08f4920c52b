// Package loader coalesces the id lookups issued by sibling field
// resolvers of one request into a single $in query per relationship.
//
// Loaders never cache: two loads of the same key issue two lookups (in the
// same batch or not), so results always reflect the database at the time
// of the field's resolution, exactly as unbatched lookups would.
package loader

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/recetario/recetario/internal/store"
)

// Loaders batches the store lookups of one request.
type Loaders struct {
	authors      *dataloader.Loader[store.ID, *store.Author]
	ingredients  *dataloader.Loader[store.ID, *store.Ingredient]
	byAuthor     *dataloader.Loader[store.ID, []*store.Recipe]
	byIngredient *dataloader.Loader[store.ID, []*store.Recipe]
}

// New returns loaders over s that wait up to wait for sibling loads
// before issuing a batch. Build one set per request.
func New(s store.Store, wait time.Duration) *Loaders {
	return &Loaders{
		authors:      newLoader(authorBatch(s), wait),
		ingredients:  newLoader(ingredientBatch(s), wait),
		byAuthor:     newLoader(recipesByAuthorBatch(s), wait),
		byIngredient: newLoader(recipesByIngredientBatch(s), wait),
	}
}

func newLoader[V any](fn dataloader.BatchFunc[store.ID, V], wait time.Duration) *dataloader.Loader[store.ID, V] {
	return dataloader.NewBatchedLoader(fn,
		dataloader.WithWait[store.ID, V](wait),
		dataloader.WithCache[store.ID, V](&dataloader.NoCache[store.ID, V]{}),
	)
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the loaders stored in ctx, if any.
func FromContext(ctx context.Context) (*Loaders, bool) {
	l, ok := ctx.Value(ctxKey{}).(*Loaders)
	return l, ok
}

// Author returns the author with the given id, or nil if there is none.
func (l *Loaders) Author(ctx context.Context, id store.ID) (*store.Author, error) {
	return l.authors.Load(ctx, id)()
}

// Ingredients returns the existing ingredients among ids, in the order of
// ids and without duplicates.
func (l *Loaders) Ingredients(ctx context.Context, ids []store.ID) ([]*store.Ingredient, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []*store.Ingredient{}, nil
	}
	found, errs := l.ingredients.LoadMany(ctx, ids)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	out := make([]*store.Ingredient, 0, len(found))
	for _, i := range found {
		if i != nil {
			out = append(out, i)
		}
	}
	return out, nil
}

// RecipesByAuthor returns the recipes written by authorID.
func (l *Loaders) RecipesByAuthor(ctx context.Context, authorID store.ID) ([]*store.Recipe, error) {
	return l.byAuthor.Load(ctx, authorID)()
}

// RecipesByIngredient returns the recipes that use ingredientID.
func (l *Loaders) RecipesByIngredient(ctx context.Context, ingredientID store.ID) ([]*store.Recipe, error) {
	return l.byIngredient.Load(ctx, ingredientID)()
}

func authorBatch(s store.Store) dataloader.BatchFunc[store.ID, *store.Author] {
	return func(ctx context.Context, ids []store.ID) []*dataloader.Result[*store.Author] {
		found, err := s.AuthorsByID(ctx, dedupe(ids))
		if err != nil {
			return failed[*store.Author](len(ids), err)
		}
		byID := make(map[store.ID]*store.Author, len(found))
		for _, a := range found {
			byID[a.ID] = a
		}
		out := make([]*dataloader.Result[*store.Author], len(ids))
		for i, id := range ids {
			out[i] = &dataloader.Result[*store.Author]{Data: byID[id]}
		}
		return out
	}
}

func ingredientBatch(s store.Store) dataloader.BatchFunc[store.ID, *store.Ingredient] {
	return func(ctx context.Context, ids []store.ID) []*dataloader.Result[*store.Ingredient] {
		found, err := s.IngredientsByID(ctx, dedupe(ids))
		if err != nil {
			return failed[*store.Ingredient](len(ids), err)
		}
		byID := make(map[store.ID]*store.Ingredient, len(found))
		for _, i := range found {
			byID[i.ID] = i
		}
		out := make([]*dataloader.Result[*store.Ingredient], len(ids))
		for i, id := range ids {
			out[i] = &dataloader.Result[*store.Ingredient]{Data: byID[id]}
		}
		return out
	}
}

func recipesByAuthorBatch(s store.Store) dataloader.BatchFunc[store.ID, []*store.Recipe] {
	return func(ctx context.Context, ids []store.ID) []*dataloader.Result[[]*store.Recipe] {
		found, err := s.RecipesByAuthor(ctx, dedupe(ids))
		if err != nil {
			return failed[[]*store.Recipe](len(ids), err)
		}
		groups := make(map[store.ID][]*store.Recipe)
		for _, r := range found {
			groups[r.Author] = append(groups[r.Author], r)
		}
		return grouped(ids, groups)
	}
}

// A recipe lands in the group of every requested ingredient it contains.
func recipesByIngredientBatch(s store.Store) dataloader.BatchFunc[store.ID, []*store.Recipe] {
	return func(ctx context.Context, ids []store.ID) []*dataloader.Result[[]*store.Recipe] {
		keys := dedupe(ids)
		found, err := s.RecipesByIngredient(ctx, keys)
		if err != nil {
			return failed[[]*store.Recipe](len(ids), err)
		}
		groups := make(map[store.ID][]*store.Recipe)
		for _, r := range found {
			for _, id := range keys {
				if r.HasIngredient(id) {
					groups[id] = append(groups[id], r)
				}
			}
		}
		return grouped(ids, groups)
	}
}

func grouped(ids []store.ID, groups map[store.ID][]*store.Recipe) []*dataloader.Result[[]*store.Recipe] {
	out := make([]*dataloader.Result[[]*store.Recipe], len(ids))
	for i, id := range ids {
		recipes := groups[id]
		if recipes == nil {
			recipes = []*store.Recipe{}
		}
		out[i] = &dataloader.Result[[]*store.Recipe]{Data: recipes}
	}
	return out
}

func failed[V any](n int, err error) []*dataloader.Result[V] {
	out := make([]*dataloader.Result[V], n)
	for i := range out {
		out[i] = &dataloader.Result[V]{Error: err}
	}
	return out
}

func dedupe(ids []store.ID) []store.ID {
	seen := make(map[store.ID]struct{}, len(ids))
	out := make([]store.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
