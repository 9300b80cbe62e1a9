package session

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
)

var owner = auth.Identity{UserID: "u-1", Email: "owner@clinic.test", Role: auth.RoleAuthenticated}

func TestHolder_EmptyByDefault(t *testing.T) {
	h := NewHolder()
	if _, ok := h.Current(); ok {
		t.Error("expected no identity before any auth event")
	}
}

func TestHolder_SetNotifiesOnChangeOnly(t *testing.T) {
	h := NewHolder()
	var events []Event
	h.Subscribe(func(e Event) { events = append(events, e) })

	h.Set(owner)
	h.Set(owner)

	if len(events) != 1 {
		t.Fatalf("expected 1 event for repeated identity, got %d", len(events))
	}
	if events[0].Type != SignedIn || events[0].Identity != owner {
		t.Errorf("unexpected event: %+v", events[0])
	}
	got, ok := h.Current()
	if !ok || got != owner {
		t.Errorf("expected current identity %+v, got %+v", owner, got)
	}
}

func TestHolder_Clear(t *testing.T) {
	h := NewHolder()
	var events []Event
	h.Subscribe(func(e Event) { events = append(events, e) })

	h.Clear()
	if len(events) != 0 {
		t.Fatal("expected clearing an empty holder to be silent")
	}

	h.Set(owner)
	h.Clear()
	if _, ok := h.Current(); ok {
		t.Error("expected no identity after sign-out")
	}
	if len(events) != 2 || events[1].Type != SignedOut || events[1].Identity != owner {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestHolder_Unsubscribe(t *testing.T) {
	h := NewHolder()
	calls := 0
	unsubscribe := h.Subscribe(func(Event) { calls++ })

	h.Set(owner)
	unsubscribe()
	unsubscribe()
	h.Clear()

	if calls != 1 {
		t.Errorf("expected 1 call before unsubscribe, got %d", calls)
	}
	if h.Subscribers() != 0 {
		t.Errorf("expected no subscribers, got %d", h.Subscribers())
	}
}

func TestHolder_CloseDropsEverything(t *testing.T) {
	h := NewHolder()
	calls := 0
	h.Subscribe(func(Event) { calls++ })
	h.Set(owner)

	h.Close()
	h.Set(auth.Identity{UserID: "u-2"})
	h.Subscribe(func(Event) { calls++ })

	if calls != 1 {
		t.Errorf("expected no notifications after close, got %d calls", calls)
	}
	if _, ok := h.Current(); ok {
		t.Error("expected closed holder to report no identity")
	}
	if h.Subscribers() != 0 {
		t.Errorf("expected no subscribers after close, got %d", h.Subscribers())
	}
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h := NewHolder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unsub := h.Subscribe(func(Event) {})
			h.Set(auth.Identity{UserID: string(rune('a' + i%5))})
			h.Current()
			unsub()
		}(i)
	}
	wg.Wait()
	if h.Subscribers() != 0 {
		t.Errorf("expected all subscriptions released, got %d", h.Subscribers())
	}
}

func TestHandler_CurrentAndSignOut(t *testing.T) {
	h := NewHolder()
	handler := NewHandler(h)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := handler.Current(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 with no session, got %d", rec.Code)
	}

	h.Set(owner)
	rec = httptest.NewRecorder()
	handler.Current(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.SignOut(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if _, ok := h.Current(); ok {
		t.Error("expected sign-out to clear the holder")
	}
}
