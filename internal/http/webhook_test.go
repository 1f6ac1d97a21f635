package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmehdipour/domofon-gateway/internal/dispatch"
	"github.com/jmehdipour/domofon-gateway/internal/model"
	"github.com/labstack/echo/v4"
)

type stubDispatcher struct {
	outcome dispatch.Outcome
	err     error
	events  []model.CallEvent
}

func (s *stubDispatcher) Dispatch(ctx context.Context, event model.CallEvent) (dispatch.Outcome, error) {
	s.events = append(s.events, event)
	return s.outcome, s.err
}

func invokeWebhook(t *testing.T, d callDispatcher, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook/call", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := callWebhookHandler(d)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	return rec
}

func TestWebhookSuccess(t *testing.T) {
	d := &stubDispatcher{outcome: dispatch.Outcome{Success: true, Stage: dispatch.StageDelivered}}

	rec := invokeWebhook(t, d, `{"domofon_id":7,"tenant_id":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["success"] != true {
		t.Fatalf("body = %s", rec.Body.String())
	}

	if len(d.events) != 1 || d.events[0].DeviceID != 7 || d.events[0].TenantID != 100 {
		t.Fatalf("events = %+v", d.events)
	}
}

func TestWebhookInvalidEvent(t *testing.T) {
	d := &stubDispatcher{err: dispatch.ErrInvalidEvent}

	rec := invokeWebhook(t, d, `{"domofon_id":0,"tenant_id":100}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookMalformedBody(t *testing.T) {
	d := &stubDispatcher{}

	rec := invokeWebhook(t, d, `{"domofon_id":"seven"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(d.events) != 0 {
		t.Fatal("dispatch invoked for malformed body")
	}
}

func TestWebhookRecipientUnresolved(t *testing.T) {
	d := &stubDispatcher{err: dispatch.ErrRecipientUnresolved}

	rec := invokeWebhook(t, d, `{"domofon_id":7,"tenant_id":100}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "error" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestWebhookDeliveryFailure(t *testing.T) {
	d := &stubDispatcher{err: dispatch.ErrDeliveryFailed}

	rec := invokeWebhook(t, d, `{"domofon_id":7,"tenant_id":100}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
