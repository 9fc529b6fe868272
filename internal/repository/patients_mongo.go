package repository

import (
	"context"                         // Request-scoped cancellation
	"errors"                          // Error matching
	"fmt"                             // Error wrapping
	"stroke_registry/internal/domain" // Importing domain models

	"go.mongodb.org/mongo-driver/bson"           // BSON documents
	"go.mongodb.org/mongo-driver/bson/primitive" // ObjectID refs
	"go.mongodb.org/mongo-driver/mongo"          // MongoDB client
)

// MongoPatientStore keeps patients in a MongoDB collection. The client
// behind the collection is shared by all requests.
type MongoPatientStore struct {
	coll *mongo.Collection
}

// NewMongoPatientStore wraps the patients collection
func NewMongoPatientStore(coll *mongo.Collection) *MongoPatientStore {
	return &MongoPatientStore{coll: coll}
}

func (s *MongoPatientStore) Insert(ctx context.Context, p *domain.Patient) (string, error) {
	doc := *p
	doc.Ref = primitive.NilObjectID // Omitted, so the driver generates the _id
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert patient: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert patient: unexpected id type %T", res.InsertedID)
	}
	p.Ref = id
	return id.Hex(), nil
}

func (s *MongoPatientStore) FindAll(ctx context.Context) ([]domain.Patient, error) {
	cur, err := s.coll.Find(ctx, bson.D{}) // Natural order
	if err != nil {
		return nil, fmt.Errorf("find patients: %w", err)
	}
	patients := []domain.Patient{}
	// All drains and closes the cursor
	if err := cur.All(ctx, &patients); err != nil {
		return nil, fmt.Errorf("decode patients: %w", err)
	}
	return patients, nil
}

func (s *MongoPatientStore) FindByRef(ctx context.Context, ref string) (*domain.Patient, error) {
	id, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	var p domain.Patient
	err = s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound // Well-formed but absent
	}
	if err != nil {
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return &p, nil
}

func (s *MongoPatientStore) UpdateByRef(ctx context.Context, ref string, fields bson.M) error {
	id, err := parseRef(ref)
	if err != nil {
		return err
	}
	set := updatable(fields)
	if len(set) == 0 {
		// nothing to write, but the ref must still exist
		_, err := s.FindByRef(ctx, ref)
		return err
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}) // Untouched fields keep their values
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	// No document with that _id
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoPatientStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return n, nil
}
