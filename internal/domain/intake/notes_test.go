package intake

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 10, 17, 45, 30, 0, time.UTC)

func TestAppendNote_Prepends(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	prior := []Note{
		{ID: "2", Date: "09/03/2025", Time: "10:00", Text: "second"},
		{ID: "1", Date: "01/03/2025", Time: "09:00", Text: "first"},
	}
	got := AppendNote(prior, "  session went well  ", testNow, loc)
	if len(got) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(got))
	}
	n := got[0]
	if n.Text != "session went well" || n.Date != "10/03/2025" || n.Time != "14:45" {
		t.Errorf("unexpected new note %+v", n)
	}
	if n.ID == "" {
		t.Error("expected note id")
	}
	if got[1].ID != "2" || got[2].ID != "1" {
		t.Error("expected prior notes to keep their order")
	}
	if len(prior) != 2 || prior[0].ID != "2" {
		t.Error("expected input slice untouched")
	}
}

func TestAppendNote_BlankIgnored(t *testing.T) {
	prior := []Note{{ID: "1", Text: "first"}}
	got := AppendNote(prior, " \n\t ", testNow, time.UTC)
	if len(got) != 1 {
		t.Errorf("expected notes unchanged, got %d", len(got))
	}
	if got := AppendNote(nil, "", testNow, time.UTC); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestAppendOnce_DuplicateGuard(t *testing.T) {
	notes, added := appendOnce(nil, "peeling day 1", testNow, time.UTC)
	if !added || len(notes) != 1 {
		t.Fatalf("expected note to be added, got %d added=%v", len(notes), added)
	}
	again, added := appendOnce(notes, "peeling day 1", testNow.Add(10*time.Second), time.UTC)
	if added || len(again) != 1 {
		t.Errorf("expected resubmission within the minute to be ignored, got %d", len(again))
	}
	later, added := appendOnce(notes, "peeling day 1", testNow.Add(2*time.Minute), time.UTC)
	if !added || len(later) != 2 {
		t.Errorf("expected same text at a later minute to be added, got %d", len(later))
	}
}
