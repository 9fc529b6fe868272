package service

import (
	"fmt"     // Error wrapping
	"math"    // NaN and Inf checks
	"net/url" // Submitted form values
	"slices"  // Slice helpers
	"strconv" // String conversion
	"strings" // String trimming

	"go.mongodb.org/mongo-driver/bson" // BSON documents
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindFlag // checkbox: true iff a submitted value is "1"
)

// patientFields is the one schema used by both create and edit
var patientFields = []struct {
	name string
	kind fieldKind
}{
	{"id", kindInt},
	{"age", kindInt},
	{"gender", kindString},
	{"hypertension", kindFlag},
	{"heart_disease", kindFlag},
	{"ever_married", kindString},
	{"work_type", kindString},
	{"residence_type", kindString},
	{"avg_glucose_level", kindFloat},
	{"bmi", kindFloat},
	{"smoking_status", kindString},
	{"stroke", kindInt},
}

// parsePatientFields coerces form values into store types keyed by document
// field name. With partial set, absent fields are skipped; otherwise every
// non-flag field is required and absent flags are false.
func parsePatientFields(form url.Values, partial bool) (bson.M, error) {
	out := bson.M{}
	for _, f := range patientFields {
		values, present := form[f.name] // Absent and empty are told apart
		if f.kind == kindFlag {
			if present || !partial {
				out[f.name] = slices.Contains(values, "1")
			}
			continue
		}
		if !present {
			if partial {
				continue
			}
			return nil, fmt.Errorf("%w: %s is required", ErrMalformedInput, f.name)
		}
		raw := ""
		if len(values) > 0 {
			raw = strings.TrimSpace(values[0]) // First value wins
		}
		// Present but blank counts as missing
		if raw == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrMalformedInput, f.name)
		}
		v, ok := coerce(f.kind, raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be %s", ErrMalformedInput, f.name, kindNames[f.kind])
		}
		out[f.name] = v
	}
	return out, nil
}

var kindNames = map[fieldKind]string{
	kindInt:   "a whole number",
	kindFloat: "a number",
}

func coerce(kind fieldKind, raw string) (any, bool) {
	switch kind {
	case kindInt:
		v, err := strconv.Atoi(raw)
		return v, err == nil
	case kindFloat:
		v, err := strconv.ParseFloat(raw, 64)
		return v, err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) // Finite numbers only
	default:
		return raw, true
	}
}
