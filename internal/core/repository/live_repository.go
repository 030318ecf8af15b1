package repository

import (
	"context"
	"time"

	"fieldtrack/internal/core/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LiveLocationRepository interface {
	Upsert(state *model.LiveLocationState) error
	FindByUserID(userID string) (*model.LiveLocationState, error)
	FindUpdatedSince(since time.Time) ([]*model.LiveLocationState, error)
}

type MongoLiveLocationRepository struct {
	collection *mongo.Collection
}

func NewMongoLiveLocationRepository(db *mongo.Database) *MongoLiveLocationRepository {
	return &MongoLiveLocationRepository{
		collection: db.Collection("live_locations"),
	}
}

func (r *MongoLiveLocationRepository) Upsert(state *model.LiveLocationState) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"userId": state.UserID}, state, opts)
	return err
}

func (r *MongoLiveLocationRepository) FindByUserID(userID string) (*model.LiveLocationState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var state model.LiveLocationState
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&state)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &state, err
}

func (r *MongoLiveLocationRepository) FindUpdatedSince(since time.Time) ([]*model.LiveLocationState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"lastUpdated": bson.M{"$gte": since}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var states []*model.LiveLocationState
	if err = cursor.All(ctx, &states); err != nil {
		return nil, err
	}
	return states, nil
}
