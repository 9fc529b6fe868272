package service

import (
	"context"                             // Request-scoped cancellation
	"errors"                              // Error matching
	"fmt"                                 // Error wrapping
	"net/url"                             // Submitted form values
	"stroke_registry/internal/domain"     // Importing domain models
	"stroke_registry/internal/repository" // Credential and patient stores
	"time"                                // Time durations

	"github.com/sirupsen/logrus"       // Logging library
	"go.mongodb.org/mongo-driver/bson" // BSON documents
)

// PatientService manages patient records. There is no delete.
type PatientService struct {
	store repository.PatientStore
}

func NewPatientService(store repository.PatientStore) *PatientService {
	return &PatientService{store: store}
}

// List returns every patient, unpaged.
// TODO: paginate once the collection outgrows a single page.
func (s *PatientService) List(ctx context.Context) ([]domain.Patient, error) {
	return s.store.FindAll(ctx)
}

func (s *PatientService) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// Create coerces a submitted form into a patient and stores it, returning its ref
func (s *PatientService) Create(ctx context.Context, form url.Values) (string, error) {
	fields, err := parsePatientFields(form, false) // Every non-flag field is required
	if err != nil {
		return "", err
	}
	var p domain.Patient
	// Round trip through BSON so the struct gets exactly the stored field names
	raw, err := bson.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode patient: %w", err)
	}
	if err := bson.Unmarshal(raw, &p); err != nil {
		return "", fmt.Errorf("decode patient: %w", err)
	}
	ref, err := s.store.Insert(ctx, &p) // Insert into the patient store
	if err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"ref":       ref,
		"type":      "create_patient",
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("Patient created")
	return ref, nil
}

// View fetches one patient; malformed and absent refs are both ErrNotFound
func (s *PatientService) View(ctx context.Context, ref string) (*domain.Patient, error) {
	p, err := s.store.FindByRef(ctx, ref)
	if err != nil {
		return nil, notFound(ref, err)
	}
	return p, nil
}

// Edit applies the submitted fields to an existing patient, leaving the rest untouched
func (s *PatientService) Edit(ctx context.Context, ref string, form url.Values) error {
	fields, err := parsePatientFields(form, true) // Only submitted fields
	if err != nil {
		return err
	}
	if err := s.store.UpdateByRef(ctx, ref, fields); err != nil {
		return notFound(ref, err)
	}
	logrus.WithFields(logrus.Fields{
		"ref":       ref,
		"fields":    len(fields),
		"type":      "edit_patient",
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("Patient updated")
	return nil
}

// notFound folds both lookup misses into ErrNotFound, logging which one it was
func notFound(ref string, err error) error {
	switch {
	case errors.Is(err, repository.ErrMalformedRef):
		logrus.WithFields(logrus.Fields{"ref": ref, "reason": "malformed_ref"}).Warn("Patient lookup failed")
		return ErrNotFound
	case errors.Is(err, repository.ErrNotFound):
		logrus.WithFields(logrus.Fields{"ref": ref, "reason": "absent"}).Info("Patient lookup failed")
		return ErrNotFound
	default:
		return err
	}
}
