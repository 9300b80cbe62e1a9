package intake

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("intake record not found")
	ErrClientNotFound = errors.New("client not found")
	ErrInvalid        = errors.New("invalid intake record")
)

// Kind selects one of the two questionnaires a client can have.
type Kind string

const (
	KindFacial Kind = "facial"
	KindBody   Kind = "body"
)

var Kinds = []Kind{KindFacial, KindBody}

func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindFacial:
		return KindFacial, true
	case KindBody:
		return KindBody, true
	}
	return "", false
}

const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)

// Answer is one yes/no question with optional details. An empty Value
// means the question was left unanswered.
type Answer struct {
	Value   string `json:"value"`
	Details string `json:"details,omitempty"`
}

// PartMeasurement holds the start and end circumference of a body part, as
// typed on the form.
type PartMeasurement struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Measurements is the anthropometric section of the body questionnaire.
// Numbers are kept as entered; BMI parses them on demand.
type Measurements struct {
	Height           string                     `json:"height,omitempty"`
	StartWeight      string                     `json:"start_weight,omitempty"`
	EndWeight        string                     `json:"end_weight,omitempty"`
	Observations     string                     `json:"observations,omitempty"`
	MeasurementNotes string                     `json:"measurement_notes,omitempty"`
	Parts            map[string]PartMeasurement `json:"parts,omitempty"`
}

// BodyParts lists the standard measurement rows in form order.
var BodyParts = []string{
	"Bust", "Left Arm", "Right Arm", "Abdomen", "Waist", "Hip",
	"Saddlebags", "Left Thigh", "Right Thigh", "Left Calf", "Right Calf",
}

// Note is one entry of the append-only evolution log.
type Note struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Time string `json:"time"`
	Text string `json:"text"`
}

// Record is the stored questionnaire of one kind for one client.
// SkinAssessment is only used by facial records and Measurements only by
// body records. Notes are newest first.
type Record struct {
	ID             uuid.UUID              `json:"id"`
	ClientID       uuid.UUID              `json:"client_id"`
	Kind           Kind                   `json:"kind"`
	Answers        map[string]Answer      `json:"answers"`
	SkinAssessment map[string]interface{} `json:"skin_assessment,omitempty"`
	Measurements   *Measurements          `json:"measurements,omitempty"`
	Notes          []Note                 `json:"notes"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Empty is the record shown when a client has not filled kind yet.
func Empty(clientID uuid.UUID, kind Kind) *Record {
	return &Record{ClientID: clientID, Kind: kind, Answers: map[string]Answer{}, Notes: []Note{}}
}
