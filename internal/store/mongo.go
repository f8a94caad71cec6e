package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"oski/internal/models"
)

const mongoOpTimeout = 10 * time.Second

// Mongo stores articles in a MongoDB collection with a unique title index.
type Mongo struct {
	client   *mongo.Client
	articles *mongo.Collection
}

var _ Store = (*Mongo)(nil)

// OpenMongo connects to uri and prepares the collection. The collection and
// its index are created on first use; existing ones are reused.
func OpenMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, wrap("connect", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, wrap("ping", err)
	}

	m := &Mongo{
		client:   client,
		articles: client.Database(database).Collection(collection),
	}

	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.articles.Indexes().CreateOne(ctx, index); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, wrap("create title index", err)
	}

	return m, nil
}

// Add inserts the article unless its title is already present.
func (m *Mongo) Add(ctx context.Context, article models.Article) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	n, err := m.articles.CountDocuments(ctx, bson.M{"title": article.Title}, options.Count().SetLimit(1))
	if err != nil {
		return false, wrap("lookup", err)
	}

	if n > 0 {
		return false, nil
	}

	if _, err := m.articles.InsertOne(ctx, article); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}

		return false, wrap("insert", err)
	}

	return true, nil
}

// AddMany adds each article in order and returns the newly inserted ones.
func (m *Mongo) AddMany(ctx context.Context, articles []models.Article) ([]models.Article, error) {
	return addEach(ctx, m, articles)
}

// Get returns the article with the given title.
func (m *Mongo) Get(ctx context.Context, title string) (models.Article, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var a models.Article

	err := m.articles.FindOne(ctx, bson.M{"title": title}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Article{}, false, nil
	}

	if err != nil {
		return models.Article{}, false, wrap("get", err)
	}

	return a, true, nil
}

// GetAll returns every article ordered by insertion (_id).
func (m *Mongo) GetAll(ctx context.Context) ([]models.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	cursor, err := m.articles.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, wrap("list", err)
	}
	defer cursor.Close(ctx)

	var all []models.Article
	if err := cursor.All(ctx, &all); err != nil {
		return nil, wrap("list", err)
	}

	return all, nil
}

// Delete removes the article with the given title.
func (m *Mongo) Delete(ctx context.Context, title string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := m.articles.DeleteMany(ctx, bson.M{"title": title})
	if err != nil {
		return false, wrap("delete", err)
	}

	return res.DeletedCount > 0, nil
}

// Len returns the number of stored articles.
func (m *Mongo) Len(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	n, err := m.articles.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrap("count", err)
	}

	return int(n), nil
}

// Close disconnects from the server.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	if err := m.client.Disconnect(ctx); err != nil {
		return wrap("disconnect", err)
	}

	return nil
}
