package domain

import "go.mongodb.org/mongo-driver/bson/primitive" // ObjectID for the store-generated ref

// Patient is one stroke-risk record in the patient collection.
// ID is supplied by the data-entry form and is not unique; Ref is.
type Patient struct {
	Ref             primitive.ObjectID `bson:"_id,omitempty"`
	ID              int                `bson:"id"`
	Age             int                `bson:"age"`
	Gender          string             `bson:"gender"`
	Hypertension    bool               `bson:"hypertension"`
	HeartDisease    bool               `bson:"heart_disease"`
	EverMarried     string             `bson:"ever_married"`
	WorkType        string             `bson:"work_type"`
	ResidenceType   string             `bson:"residence_type"`
	AvgGlucoseLevel float64            `bson:"avg_glucose_level"`
	BMI             float64            `bson:"bmi"`
	SmokingStatus   string             `bson:"smoking_status"`
	Stroke          int                `bson:"stroke"`
}

// RefHex returns the ref as used in URLs
func (p Patient) RefHex() string {
	return p.Ref.Hex()
}
