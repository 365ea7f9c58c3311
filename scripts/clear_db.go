package main

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"game-ladder/internal/config"
	"game-ladder/internal/elo"
	"game-ladder/internal/logging"
	"game-ladder/internal/models"
	"game-ladder/internal/store"
)

// Clears match history and challenges from the configured MongoDB database
// and resets every user to the initial rating. Users and the game catalog
// are kept.
func main() {
	logger, err := logging.New("info", true)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	config.LoadDotEnv()
	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.Storage.Driver != "mongodb" {
		logger.Fatal("clear_db only works against mongodb storage", zap.String("driver", cfg.Storage.Driver))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongodb, err := store.NewMongoDB(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongodb.Close(context.Background())

	matches, err := mongodb.Matches().DeleteMany(ctx, bson.M{})
	if err != nil {
		logger.Fatal("failed to delete matches", zap.Error(err))
	}
	challenges, err := mongodb.Challenges().DeleteMany(ctx, bson.M{})
	if err != nil {
		logger.Fatal("failed to delete challenges", zap.Error(err))
	}

	users, err := mongodb.ListUsers(ctx)
	if err != nil {
		logger.Fatal("failed to list users", zap.Error(err))
	}
	now := time.Now().UTC()
	for i := range users {
		u := &users[i]
		u.Rating = elo.InitialRating
		u.TotalWins = 0
		u.TotalLosses = 0
		u.GameStats = map[string]models.GameStats{}
		u.UpdatedAt = now
		if err := mongodb.SaveUser(ctx, u); err != nil {
			logger.Fatal("failed to reset user", zap.String("userId", u.ID), zap.Error(err))
		}
	}

	logger.Info("database cleared",
		zap.Int64("matches", matches.DeletedCount),
		zap.Int64("challenges", challenges.DeletedCount),
		zap.Int("usersReset", len(users)),
	)
}
