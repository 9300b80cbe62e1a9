package intake

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/clinic/clinic/internal/domain/clients"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/events"
	"github.com/clinic/clinic/internal/platform/telemetry"
)

// ClientDirectory resolves the client an intake record belongs to.
// *clients.Service implements it.
type ClientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*clients.Client, error)
}

type Options struct {
	ClinicName string
	// PublicAppURL, when set, is encoded as a QR code on exported PDFs
	// pointing at the client's profile.
	PublicAppURL string
	Location     *time.Location
}

type Service struct {
	records   RecordRepository
	directory ClientDirectory
	tx        db.TxBeginner
	events    events.Publisher
	opts      Options
	now       func() time.Time
}

// NewService wires the intake service. tx may be nil, in which case saves
// run without an explicit transaction.
func NewService(records RecordRepository, directory ClientDirectory, tx db.TxBeginner, pub events.Publisher, opts Options) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{records: records, directory: directory, tx: tx, events: pub, opts: opts, now: time.Now}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return db.RunInTx(ctx, s.tx, fn)
}

func (s *Service) client(ctx context.Context, id uuid.UUID) (*clients.Client, error) {
	c, err := s.directory.Get(ctx, id)
	if errors.Is(err, clients.ErrNotFound) {
		return nil, ErrClientNotFound
	}
	return c, err
}

// Get returns the stored record, or an empty one when the client has not
// filled this questionnaire yet.
func (s *Service) Get(ctx context.Context, clientID uuid.UUID, kind Kind) (*Record, error) {
	rec, err := s.records.Get(ctx, clientID, kind)
	if errors.Is(err, ErrNotFound) {
		if _, err := s.client(ctx, clientID); err != nil {
			return nil, err
		}
		return Empty(clientID, kind), nil
	}
	return rec, err
}

// GetAll returns both questionnaires of a client, empty ones included.
func (s *Service) GetAll(ctx context.Context, clientID uuid.UUID) (map[Kind]*Record, error) {
	if _, err := s.client(ctx, clientID); err != nil {
		return nil, err
	}
	stored, err := s.records.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make(map[Kind]*Record, len(Kinds))
	for _, k := range Kinds {
		out[k] = Empty(clientID, k)
	}
	for _, rec := range stored {
		out[rec.Kind] = rec
	}
	return out, nil
}

// SaveRequest carries the questionnaire as edited on the form plus an
// optional note to add to the log. Notes already stored are never taken
// from the request.
type SaveRequest struct {
	Answers        map[string]Answer      `json:"answers"`
	SkinAssessment map[string]interface{} `json:"skin_assessment,omitempty"`
	Measurements   *Measurements          `json:"measurements,omitempty"`
	PendingNote    string                 `json:"pending_note,omitempty"`
}

func normalizeAnswers(in map[string]Answer) (map[string]Answer, error) {
	out := make(map[string]Answer, len(in))
	for key, a := range in {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: empty question key", ErrInvalid)
		}
		a.Details = strings.TrimSpace(a.Details)
		switch strings.ToLower(strings.TrimSpace(a.Value)) {
		case "":
			a.Value = ""
		case AnswerYes, "sim":
			a.Value = AnswerYes
		case AnswerNo, "nao", "não":
			a.Value = AnswerNo
		default:
			return nil, fmt.Errorf("%w: answer to %q must be yes or no", ErrInvalid, key)
		}
		if a.Value == "" && a.Details == "" {
			continue
		}
		out[key] = a
	}
	return out, nil
}

// IntakeSaved is the payload of intake.saved.
type IntakeSaved struct {
	ClientID  uuid.UUID `json:"client_id"`
	Kind      Kind      `json:"kind"`
	NoteAdded bool      `json:"note_added"`
}

// Save replaces the questionnaire fields of (clientID, kind), appends the
// pending note at most once and upserts the record.
func (s *Service) Save(ctx context.Context, clientID uuid.UUID, kind Kind, req SaveRequest) (*Record, error) {
	answers, err := normalizeAnswers(req.Answers)
	if err != nil {
		return nil, err
	}

	var (
		saved *Record
		added bool
	)
	err = s.inTx(ctx, func(ctx context.Context) error {
		rec, err := s.records.GetForUpdate(ctx, clientID, kind)
		if errors.Is(err, ErrNotFound) {
			if _, err := s.client(ctx, clientID); err != nil {
				return err
			}
			rec = Empty(clientID, kind)
		} else if err != nil {
			return err
		}

		rec.Answers = answers
		rec.SkinAssessment = nil
		rec.Measurements = nil
		switch kind {
		case KindFacial:
			rec.SkinAssessment = req.SkinAssessment
		case KindBody:
			rec.Measurements = req.Measurements
		}
		rec.Notes, added = appendOnce(rec.Notes, req.PendingNote, s.now(), s.opts.Location)

		if err := s.records.Upsert(ctx, rec); err != nil {
			return err
		}
		saved = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.events, events.IntakeSaved, clientID.String(),
		IntakeSaved{ClientID: clientID, Kind: kind, NoteAdded: added})
	return saved, nil
}

// BMIResult is the BMI card of the body questionnaire. BMI is nil when
// height or weight is missing.
type BMIResult struct {
	BMI     *float64 `json:"bmi"`
	Band    Band     `json:"band,omitempty"`
	Message string   `json:"message,omitempty"`
}

const bmiMissingMessage = "fill in height and weight"

// Evaluate computes the BMI card for a set of measurements.
func Evaluate(m *Measurements) BMIResult {
	v, ok := m.BMI()
	if !ok {
		return BMIResult{Message: bmiMissingMessage}
	}
	rounded := math.Round(v*100) / 100
	return BMIResult{BMI: &rounded, Band: Classify(v)}
}

// BMI reads the body questionnaire of a client.
func (s *Service) BMI(ctx context.Context, clientID uuid.UUID) (BMIResult, error) {
	rec, err := s.Get(ctx, clientID, KindBody)
	if err != nil {
		return BMIResult{}, err
	}
	return Evaluate(rec.Measurements), nil
}

// PDF renders the (clientID, kind) record.
func (s *Service) PDF(ctx context.Context, clientID uuid.UUID, kind Kind) ([]byte, error) {
	c, err := s.client(ctx, clientID)
	if err != nil {
		return nil, err
	}
	rec, err := s.Get(ctx, clientID, kind)
	if err != nil {
		return nil, err
	}
	doc := Document{
		ClinicName:  s.opts.ClinicName,
		Client:      c,
		Record:      rec,
		GeneratedAt: s.now().In(s.opts.Location),
	}
	if s.opts.PublicAppURL != "" {
		doc.Link = strings.TrimRight(s.opts.PublicAppURL, "/") + "/clients/" + clientID.String()
	}

	_, span := telemetry.Tracer().Start(ctx, "intake.BuildPDF")
	defer span.End()
	span.SetAttributes(
		attribute.String("intake.kind", string(kind)),
		attribute.Int("intake.notes", len(rec.Notes)),
	)
	data, err := BuildPDF(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render pdf")
		return nil, err
	}
	span.SetAttributes(attribute.Int("pdf.bytes", len(data)))
	return data, nil
}
