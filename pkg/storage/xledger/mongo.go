package xledger

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoStore 基于 MongoDB 集合的账本存储，_id 为记录 ID。
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore 创建 MongoDB 账本存储。
func NewMongoStore(coll *mongo.Collection) (*MongoStore, error) {
	if coll == nil {
		return nil, ErrNilClient
	}
	return &MongoStore{coll: coll}, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id int64) (Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("xledger: find record %d: %w", id, err)
	}
	return rec, nil
}

func (s *MongoStore) Save(ctx context.Context, rec Record) (Record, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": rec.ID, "version": rec.Version},
		bson.M{
			"$set": bson.M{"balance": rec.Balance},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return Record{}, fmt.Errorf("xledger: save record %d: %w", rec.ID, err)
	}
	if res.MatchedCount == 0 {
		// 区分记录不存在与版本冲突
		n, err := s.coll.CountDocuments(ctx, bson.M{"_id": rec.ID})
		if err != nil {
			return Record{}, fmt.Errorf("xledger: save record %d: %w", rec.ID, err)
		}
		if n == 0 {
			return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, rec.ID)
		}
		return Record{}, fmt.Errorf("%w: id %d expected version %d", ErrVersionConflict, rec.ID, rec.Version)
	}
	rec.Version++
	return rec, nil
}

func (s *MongoStore) Create(ctx context.Context, rec Record) (Record, error) {
	rec.Version = 0
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Record{}, fmt.Errorf("%w: id %d", ErrAlreadyExists, rec.ID)
		}
		return Record{}, fmt.Errorf("xledger: create record %d: %w", rec.ID, err)
	}
	return rec, nil
}

var _ Store = (*MongoStore)(nil)
