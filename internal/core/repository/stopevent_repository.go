package repository

import (
	"context"
	"time"

	"fieldtrack/internal/core/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type StopEventRepository interface {
	Create(event *model.StopEvent) error
	Update(event *model.StopEvent) error
	FindActiveByUserID(userID string) (*model.StopEvent, error)
	FindByUserAndRange(userID string, from, to time.Time) ([]*model.StopEvent, error)
}

type MongoStopEventRepository struct {
	collection *mongo.Collection
}

func NewMongoStopEventRepository(db *mongo.Database) *MongoStopEventRepository {
	return &MongoStopEventRepository{
		collection: db.Collection("stop_events"),
	}
}

func (r *MongoStopEventRepository) Create(event *model.StopEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, event)
	return err
}

func (r *MongoStopEventRepository) Update(event *model.StopEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": event.ID}, event)
	return err
}

func (r *MongoStopEventRepository) FindActiveByUserID(userID string) (*model.StopEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var event model.StopEvent
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "isActive": true}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &event, err
}

func (r *MongoStopEventRepository) FindByUserAndRange(userID string, from, to time.Time) ([]*model.StopEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{
		"userId":    userID,
		"startTime": bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.M{"startTime": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*model.StopEvent
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
