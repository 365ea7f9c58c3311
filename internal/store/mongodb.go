package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"game-ladder/internal/models"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

func NewMongoDB(ctx context.Context, uri, database string, logger *zap.Logger) (*MongoDB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}

	db := &MongoDB{
		Client:   client,
		Database: client.Database(database),
		logger:   logger.Named("mongodb"),
	}

	// Create indexes in the background (non-blocking)
	go db.ensureIndexes()

	return db, nil
}

// ensureIndexes creates all required indexes. Called once on startup.
func (m *MongoDB) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{
			"users",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "rating", Value: -1}}},
			},
		},
		{
			"matches",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "date", Value: -1}}},
				{Keys: bson.D{{Key: "winnerId", Value: 1}, {Key: "date", Value: -1}}},
				{Keys: bson.D{{Key: "loserId", Value: 1}, {Key: "date", Value: -1}}},
				{Keys: bson.D{{Key: "players.userId", Value: 1}, {Key: "date", Value: -1}}},
			},
		},
		{
			"challenges",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "createdAt", Value: -1}}},
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}}},
			},
		},
		{
			"feed_events",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "createdAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(60)},
			},
		},
	}

	for _, idx := range indexes {
		coll := m.Database.Collection(idx.collection)
		_, err := coll.Indexes().CreateMany(ctx, idx.models)
		if err != nil {
			m.logger.Warn("failed to create indexes", zap.String("collection", idx.collection), zap.Error(err))
		}
	}
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Users() *mongo.Collection {
	return m.Database.Collection("users")
}

func (m *MongoDB) Matches() *mongo.Collection {
	return m.Database.Collection("matches")
}

func (m *MongoDB) Challenges() *mongo.Collection {
	return m.Database.Collection("challenges")
}

func (m *MongoDB) Games() *mongo.Collection {
	return m.Database.Collection("games")
}

func (m *MongoDB) FeedEvents() *mongo.Collection {
	return m.Database.Collection("feed_events")
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, id string) (*T, error) {
	var v T
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(ErrNotFound, "%s %s", coll.Name(), id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s %s", coll.Name(), id)
	}
	return &v, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, opts *options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", coll.Name())
	}
	defer cursor.Close(ctx)

	items := make([]T, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", coll.Name())
	}
	return items, nil
}

func upsert(ctx context.Context, coll *mongo.Collection, id string, doc any) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return errors.Wrapf(err, "failed to save %s %s", coll.Name(), id)
}

func (m *MongoDB) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := findOne[models.User](ctx, m.Users(), id)
	if err != nil {
		return nil, err
	}
	if u.GameStats == nil {
		u.GameStats = make(map[string]models.GameStats)
	}
	return u, nil
}

func (m *MongoDB) ListUsers(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, m.Users(), options.Find().SetSort(bson.D{{Key: "rating", Value: -1}}))
}

func (m *MongoDB) SaveUser(ctx context.Context, u *models.User) error {
	return upsert(ctx, m.Users(), u.ID, u)
}

func (m *MongoDB) AppendMatch(ctx context.Context, match *models.Match) (*models.Match, error) {
	if _, err := m.Matches().InsertOne(ctx, match); err != nil {
		return nil, errors.Wrapf(err, "failed to insert match %s", match.ID)
	}
	return cloneMatch(match), nil
}

func (m *MongoDB) ListMatches(ctx context.Context) ([]models.Match, error) {
	return findAll[models.Match](ctx, m.Matches(), options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}))
}

func (m *MongoDB) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	return findOne[models.Challenge](ctx, m.Challenges(), id)
}

func (m *MongoDB) ListChallenges(ctx context.Context) ([]models.Challenge, error) {
	return findAll[models.Challenge](ctx, m.Challenges(), options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
}

func (m *MongoDB) SaveChallenge(ctx context.Context, c *models.Challenge) error {
	return upsert(ctx, m.Challenges(), c.ID, c)
}

func (m *MongoDB) DeleteChallenge(ctx context.Context, id string) error {
	res, err := m.Challenges().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "failed to delete challenge %s", id)
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(ErrNotFound, "challenge %s", id)
	}
	return nil
}

func (m *MongoDB) ListGames(ctx context.Context) ([]models.Game, error) {
	return findAll[models.Game](ctx, m.Games(), nil)
}

func (m *MongoDB) AddGame(ctx context.Context, g models.Game) error {
	_, err := m.Games().InsertOne(ctx, g)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(ErrDuplicate, "game %s", g.Slug)
	}
	return errors.Wrapf(err, "failed to add game %s", g.Slug)
}

func (m *MongoDB) DeleteGame(ctx context.Context, slug string) error {
	_, err := m.Games().DeleteOne(ctx, bson.M{"_id": slug})
	return errors.Wrapf(err, "failed to delete game %s", slug)
}
