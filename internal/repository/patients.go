package repository

import (
	"context"                         // Request-scoped cancellation
	"stroke_registry/internal/domain" // Importing domain models

	"go.mongodb.org/mongo-driver/bson"           // BSON documents
	"go.mongodb.org/mongo-driver/bson/primitive" // ObjectID refs
)

// PatientStore persists patient documents. Refs are ObjectID hex strings.
type PatientStore interface {
	Insert(ctx context.Context, p *domain.Patient) (string, error)
	FindAll(ctx context.Context) ([]domain.Patient, error)
	FindByRef(ctx context.Context, ref string) (*domain.Patient, error)
	// UpdateByRef sets only the named fields; all others are untouched.
	UpdateByRef(ctx context.Context, ref string, fields bson.M) error
	Count(ctx context.Context) (int64, error)
}

func parseRef(ref string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return primitive.NilObjectID, ErrMalformedRef
	}
	return id, nil
}

// updatable strips keys a caller must never $set
func updatable(fields bson.M) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		out[k] = v
	}
	return out
}
