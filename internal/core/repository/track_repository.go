package repository

import (
	"context"
	"time"

	"fieldtrack/internal/core/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TrackSegmentRepository interface {
	Save(segment *model.TrackSegment) error
	FindByUserAndRange(userID string, from, to time.Time, page, pageSize int) ([]*model.TrackSegment, int64, error)
}

type MongoTrackSegmentRepository struct {
	collection *mongo.Collection
}

func NewMongoTrackSegmentRepository(db *mongo.Database) *MongoTrackSegmentRepository {
	return &MongoTrackSegmentRepository{
		collection: db.Collection("track_segments"),
	}
}

// Save upserts by segment ID so the active segment can be re-persisted
// on every append without duplicating documents.
func (r *MongoTrackSegmentRepository) Save(segment *model.TrackSegment) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": segment.ID}, segment, opts)
	return err
}

func (r *MongoTrackSegmentRepository) FindByUserAndRange(userID string, from, to time.Time, page, pageSize int) ([]*model.TrackSegment, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{
		"userId":       userID,
		"sessionStart": bson.M{"$lt": to},
		"sessionEnd":   bson.M{"$gte": from},
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.M{"sessionStart": 1}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var segments []*model.TrackSegment
	if err = cursor.All(ctx, &segments); err != nil {
		return nil, 0, err
	}
	return segments, total, nil
}
