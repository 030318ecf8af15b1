package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRecord is the slice of the employee document this pipeline
// cares about. The full employee model belongs to the CRUD layer.
type UserRecord struct {
	ID       string `bson:"_id"`
	IsActive bool   `bson:"isActive"`
}

// UserDirectory validates that a sample belongs to a known, active
// user. It is the only dependency on the excluded employee module.
type UserDirectory interface {
	FindByID(userID string) (*UserRecord, error)
}

type MongoUserDirectory struct {
	collection *mongo.Collection
}

func NewMongoUserDirectory(db *mongo.Database) *MongoUserDirectory {
	return &MongoUserDirectory{
		collection: db.Collection("employees"),
	}
}

func (r *MongoUserDirectory) FindByID(userID string) (*UserRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var record UserRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &record, err
}
