package intake

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/clinic/clinic/internal/domain/clients"
	"github.com/clinic/clinic/internal/platform/events"
)

type recordKey struct {
	client uuid.UUID
	kind   Kind
}

type mockRecordRepo struct {
	records map[recordKey]*Record
	upserts int
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[recordKey]*Record)}
}

func clone(r *Record) *Record {
	cp := *r
	cp.Notes = append([]Note(nil), r.Notes...)
	return &cp
}

func (m *mockRecordRepo) Get(_ context.Context, clientID uuid.UUID, kind Kind) (*Record, error) {
	r, ok := m.records[recordKey{clientID, kind}]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r), nil
}

func (m *mockRecordRepo) GetForUpdate(ctx context.Context, clientID uuid.UUID, kind Kind) (*Record, error) {
	return m.Get(ctx, clientID, kind)
}

func (m *mockRecordRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]*Record, error) {
	var out []*Record
	for k, r := range m.records {
		if k.client == clientID {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func (m *mockRecordRepo) Upsert(_ context.Context, r *Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
		r.CreatedAt = time.Now()
	}
	r.UpdatedAt = time.Now()
	m.records[recordKey{r.ClientID, r.Kind}] = clone(r)
	m.upserts++
	return nil
}

type mockDirectory struct {
	clients map[uuid.UUID]*clients.Client
}

func (m *mockDirectory) Get(_ context.Context, id uuid.UUID) (*clients.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return c, nil
}

func newTestService() (*Service, *mockRecordRepo, *events.Recorder, uuid.UUID) {
	repo := newMockRecordRepo()
	clientID := uuid.New()
	dir := &mockDirectory{clients: map[uuid.UUID]*clients.Client{
		clientID: {ID: clientID, Name: "Ana Paula Silva", Phone: "11999991111", CPF: "123.456.789-00", BirthDate: "1990-05-20"},
	}}
	rec := &events.Recorder{}
	svc := NewService(repo, dir, nil, rec, Options{ClinicName: "Clínica Bela", PublicAppURL: "https://clinic.example", Location: time.UTC})
	svc.now = func() time.Time { return testNow }
	return svc, repo, rec, clientID
}

func TestService_Get_EmptyWhenMissing(t *testing.T) {
	svc, _, _, clientID := newTestService()
	rec, err := svc.Get(context.Background(), clientID, KindFacial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != uuid.Nil || len(rec.Notes) != 0 || rec.Answers == nil {
		t.Errorf("expected empty record, got %+v", rec)
	}
}

func TestService_Get_UnknownClient(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.Get(context.Background(), uuid.New(), KindBody); !errors.Is(err, ErrClientNotFound) {
		t.Errorf("expected ErrClientNotFound, got %v", err)
	}
}

func TestService_Save_AppendsPendingNoteOnce(t *testing.T) {
	svc, repo, _, clientID := newTestService()
	req := SaveRequest{
		Answers:     map[string]Answer{"sono": {Value: "yes"}},
		PendingNote: "first session",
	}
	rec, err := svc.Save(context.Background(), clientID, KindFacial, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.Notes) != 1 || rec.Notes[0].Text != "first session" {
		t.Fatalf("expected one note, got %+v", rec.Notes)
	}

	// Same form submitted again within the minute.
	rec, err = svc.Save(context.Background(), clientID, KindFacial, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.Notes) != 1 {
		t.Errorf("expected resubmission to be ignored, got %d notes", len(rec.Notes))
	}

	svc.now = func() time.Time { return testNow.Add(24 * time.Hour) }
	req.PendingNote = "second session"
	rec, _ = svc.Save(context.Background(), clientID, KindFacial, req)
	if len(rec.Notes) != 2 || rec.Notes[0].Text != "second session" || rec.Notes[1].Text != "first session" {
		t.Errorf("expected newest first, got %+v", rec.Notes)
	}
	if repo.upserts != 3 {
		t.Errorf("expected 3 upserts, got %d", repo.upserts)
	}
}

func TestService_Save_KeepsStoredNotesWithoutPending(t *testing.T) {
	svc, _, _, clientID := newTestService()
	svc.Save(context.Background(), clientID, KindBody, SaveRequest{PendingNote: "baseline"})

	rec, err := svc.Save(context.Background(), clientID, KindBody, SaveRequest{
		Answers: map[string]Answer{"diabetes": {Value: "no"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.Notes) != 1 || rec.Notes[0].Text != "baseline" {
		t.Errorf("expected stored note kept, got %+v", rec.Notes)
	}
	if rec.Answers["diabetes"].Value != AnswerNo {
		t.Errorf("expected answers replaced, got %+v", rec.Answers)
	}
}

func TestService_Save_KindSections(t *testing.T) {
	svc, _, _, clientID := newTestService()
	req := SaveRequest{
		SkinAssessment: map[string]interface{}{"fototipo": "III"},
		Measurements:   &Measurements{Height: "170", StartWeight: "70"},
	}
	facial, _ := svc.Save(context.Background(), clientID, KindFacial, req)
	if facial.Measurements != nil || facial.SkinAssessment["fototipo"] != "III" {
		t.Errorf("unexpected facial sections %+v", facial)
	}
	body, _ := svc.Save(context.Background(), clientID, KindBody, req)
	if body.SkinAssessment != nil || body.Measurements == nil {
		t.Errorf("unexpected body sections %+v", body)
	}
}

func TestService_Save_NormalizesAnswers(t *testing.T) {
	svc, _, _, clientID := newTestService()
	rec, err := svc.Save(context.Background(), clientID, KindFacial, SaveRequest{
		Answers: map[string]Answer{
			"sono":    {Value: "SIM"},
			"alcool":  {Value: "não", Details: " socially "},
			"alergia": {},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Answers["sono"].Value != AnswerYes || rec.Answers["alcool"].Value != AnswerNo {
		t.Errorf("unexpected answers %+v", rec.Answers)
	}
	if rec.Answers["alcool"].Details != "socially" {
		t.Errorf("expected trimmed details, got %q", rec.Answers["alcool"].Details)
	}
	if _, ok := rec.Answers["alergia"]; ok {
		t.Error("expected blank answer to be dropped")
	}

	_, err = svc.Save(context.Background(), clientID, KindFacial, SaveRequest{
		Answers: map[string]Answer{"sono": {Value: "maybe"}},
	})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestService_Save_EmitsEvent(t *testing.T) {
	svc, _, rec, clientID := newTestService()
	svc.Save(context.Background(), clientID, KindBody, SaveRequest{PendingNote: "hello"})
	evts := rec.Events()
	if len(evts) != 1 || evts[0].Type != events.IntakeSaved {
		t.Fatalf("expected intake.saved, got %v", rec.Types())
	}
	if !bytes.Contains(evts[0].Payload, []byte(`"note_added":true`)) {
		t.Errorf("unexpected payload %s", evts[0].Payload)
	}
}

func TestService_Save_UnknownClient(t *testing.T) {
	svc, repo, _, _ := newTestService()
	if _, err := svc.Save(context.Background(), uuid.New(), KindBody, SaveRequest{}); !errors.Is(err, ErrClientNotFound) {
		t.Errorf("expected ErrClientNotFound, got %v", err)
	}
	if repo.upserts != 0 {
		t.Error("expected nothing written")
	}
}

func TestService_BMI(t *testing.T) {
	svc, _, _, clientID := newTestService()
	res, err := svc.BMI(context.Background(), clientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.BMI != nil || res.Message != "fill in height and weight" {
		t.Errorf("expected missing message, got %+v", res)
	}

	svc.Save(context.Background(), clientID, KindBody, SaveRequest{
		Measurements: &Measurements{Height: "160", StartWeight: "95"},
	})
	res, _ = svc.BMI(context.Background(), clientID)
	if res.BMI == nil || *res.BMI != 37.11 || res.Band != BandObesityII {
		t.Errorf("unexpected bmi %+v", res)
	}
}

func TestService_GetAll(t *testing.T) {
	svc, _, _, clientID := newTestService()
	svc.Save(context.Background(), clientID, KindBody, SaveRequest{PendingNote: "x"})
	all, err := svc.GetAll(context.Background(), clientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both kinds, got %d", len(all))
	}
	if len(all[KindBody].Notes) != 1 || all[KindFacial].ID != uuid.Nil {
		t.Errorf("unexpected records %+v", all)
	}
}

func TestService_PDF(t *testing.T) {
	svc, _, _, clientID := newTestService()
	svc.Save(context.Background(), clientID, KindBody, SaveRequest{
		Answers:      map[string]Answer{"diabetes": {Value: "no"}},
		Measurements: &Measurements{Height: "170", StartWeight: "70", Parts: map[string]PartMeasurement{"Waist": {Start: "80", End: "76"}}},
		PendingNote:  "Sessão de drenagem",
	})
	data, err := svc.PDF(context.Background(), clientID, KindBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("expected a PDF document, got %q", data[:8])
	}
}

func TestService_PDF_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	svc, _, _, clientID := newTestService()
	svc.Save(context.Background(), clientID, KindFacial, SaveRequest{PendingNote: "Limpeza"})
	if _, err := svc.PDF(context.Background(), clientID, KindFacial); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ended := sr.Ended()
	if len(ended) != 1 || ended[0].Name() != "intake.BuildPDF" {
		t.Fatalf("expected one intake.BuildPDF span, got %d", len(ended))
	}
	var kind string
	for _, kv := range ended[0].Attributes() {
		if kv.Key == "intake.kind" {
			kind = kv.Value.AsString()
		}
	}
	if kind != string(KindFacial) {
		t.Errorf("expected kind attribute %q, got %q", KindFacial, kind)
	}
}
