package repository

import (
	"context"                         // Request-scoped cancellation
	"fmt"                             // Error wrapping
	"stroke_registry/internal/domain" // Importing domain models
	"sync"                            // Mutex for in-process state

	"go.mongodb.org/mongo-driver/bson"           // BSON documents
	"go.mongodb.org/mongo-driver/bson/primitive" // ObjectID refs
)

// MemoryPatientStore keeps documents in process. Documents go through the
// same BSON codec as MongoPatientStore, so field names and coercions match.
type MemoryPatientStore struct {
	mu    sync.RWMutex
	docs  map[primitive.ObjectID]bson.M
	order []primitive.ObjectID
}

// NewMemoryPatientStore returns an empty store
func NewMemoryPatientStore() *MemoryPatientStore {
	return &MemoryPatientStore{docs: make(map[primitive.ObjectID]bson.M)}
}

func (s *MemoryPatientStore) Insert(_ context.Context, p *domain.Patient) (string, error) {
	doc := *p
	doc.Ref = primitive.NewObjectID() // Store-generated ref, like MongoDB's _id
	m, err := toDocument(&doc)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.Ref] = m
	s.order = append(s.order, doc.Ref) // Remember insertion order for FindAll

	p.Ref = doc.Ref
	return doc.Ref.Hex(), nil
}

func (s *MemoryPatientStore) FindAll(_ context.Context) ([]domain.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patients := make([]domain.Patient, 0, len(s.order)) // Never nil, even when empty
	for _, id := range s.order {
		p, err := fromDocument(s.docs[id])
		if err != nil {
			return nil, err
		}
		patients = append(patients, *p)
	}
	return patients, nil
}

func (s *MemoryPatientStore) FindByRef(_ context.Context, ref string) (*domain.Patient, error) {
	id, err := parseRef(ref)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound // Well-formed but absent
	}
	return fromDocument(m)
}

func (s *MemoryPatientStore) UpdateByRef(_ context.Context, ref string, fields bson.M) error {
	id, err := parseRef(ref)
	if err != nil {
		return err
	}
	set, err := normalize(updatable(fields))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	// Same effect as $set: named fields only
	for k, v := range set {
		m[k] = v
	}
	return nil
}

func (s *MemoryPatientStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.order)), nil
}

func toDocument(p *domain.Patient) (bson.M, error) {
	raw, err := bson.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode patient: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode patient: %w", err)
	}
	return m, nil
}

// normalize converts Go values to the types a round trip through the store yields
func normalize(fields bson.M) (bson.M, error) {
	raw, err := bson.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return m, nil
}

func fromDocument(m bson.M) (*domain.Patient, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("decode patient: %w", err)
	}
	var p domain.Patient
	if err := bson.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode patient: %w", err)
	}
	return &p, nil
}
