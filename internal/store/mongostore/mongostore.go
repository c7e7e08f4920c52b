// Package mongostore implements store.Store on top of MongoDB.
package mongostore

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/recetario/recetario/internal/config"
	"github.com/recetario/recetario/internal/store"
)

// Store holds the single client shared by every request, plus handles on
// the three collections of the recetario database.
type Store struct {
	client      *mongo.Client
	authors     *mongo.Collection
	ingredients *mongo.Collection
	recipes     *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Connect dials the server described by cfg and pings it, so an
// unreachable server or rejected credentials fail here rather than on the
// first request. There is no retry.
func Connect(ctx context.Context, cfg config.Mongo, monitor *event.CommandMonitor) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.ConnectionURI())
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	if monitor != nil {
		opts.SetMonitor(monitor)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrapf(err, "pinging mongo at %s", cfg.Host)
	}
	return New(client.Database(cfg.Database), cfg.Collections), nil
}

// New wraps an existing database handle.
func New(db *mongo.Database, names config.Collections) *Store {
	return &Store{
		client:      db.Client(),
		authors:     db.Collection(names.Authors),
		ingredients: db.Collection(names.Ingredients),
		recipes:     db.Collection(names.Recipes),
	}
}

func (s *Store) Author(ctx context.Context, id store.ID) (*store.Author, error) {
	var a store.Author
	err := s.authors.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding author %s", id.Hex())
	}
	return &a, nil
}

func (s *Store) Authors(ctx context.Context) ([]*store.Author, error) {
	var out []*store.Author
	if err := find(ctx, s.authors, bson.M{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) AuthorsByID(ctx context.Context, ids []store.ID) ([]*store.Author, error) {
	var out []*store.Author
	if err := find(ctx, s.authors, bson.M{"_id": bson.M{"$in": ids}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) InsertAuthor(ctx context.Context, a *store.Author) error {
	id, err := insert(ctx, s.authors, a)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (s *Store) Ingredients(ctx context.Context) ([]*store.Ingredient, error) {
	var out []*store.Ingredient
	if err := find(ctx, s.ingredients, bson.M{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) IngredientsByID(ctx context.Context, ids []store.ID) ([]*store.Ingredient, error) {
	var out []*store.Ingredient
	if err := find(ctx, s.ingredients, bson.M{"_id": bson.M{"$in": ids}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) InsertIngredient(ctx context.Context, i *store.Ingredient) error {
	id, err := insert(ctx, s.ingredients, i)
	if err != nil {
		return err
	}
	i.ID = id
	return nil
}

func (s *Store) Recipes(ctx context.Context) ([]*store.Recipe, error) {
	var out []*store.Recipe
	if err := find(ctx, s.recipes, bson.M{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) RecipesByAuthor(ctx context.Context, authorIDs []store.ID) ([]*store.Recipe, error) {
	var out []*store.Recipe
	if err := find(ctx, s.recipes, bson.M{"author": bson.M{"$in": authorIDs}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecipesByIngredient relies on $in matching any element of the
// ingredients array.
func (s *Store) RecipesByIngredient(ctx context.Context, ingredientIDs []store.ID) ([]*store.Recipe, error) {
	var out []*store.Recipe
	if err := find(ctx, s.recipes, bson.M{"ingredients": bson.M{"$in": ingredientIDs}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) InsertRecipe(ctx context.Context, r *store.Recipe) error {
	if r.Ingredients == nil {
		r.Ingredients = []store.ID{}
	}
	id, err := insert(ctx, s.recipes, r)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return errors.Wrap(s.client.Ping(ctx, nil), "pinging mongo")
}

func (s *Store) Close(ctx context.Context) error {
	return errors.Wrap(s.client.Disconnect(ctx), "disconnecting from mongo")
}

func find(ctx context.Context, c *mongo.Collection, filter interface{}, out interface{}) error {
	cur, err := c.Find(ctx, filter)
	if err != nil {
		return errors.Wrapf(err, "querying %s", c.Name())
	}
	return errors.Wrapf(cur.All(ctx, out), "reading %s", c.Name())
}

func insert(ctx context.Context, c *mongo.Collection, doc interface{}) (store.ID, error) {
	res, err := c.InsertOne(ctx, doc)
	if err != nil {
		return store.ID{}, errors.Wrapf(err, "inserting into %s", c.Name())
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return store.ID{}, errors.Errorf("inserting into %s: unexpected id type %T", c.Name(), res.InsertedID)
	}
	return id, nil
}
