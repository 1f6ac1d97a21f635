package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/jmehdipour/domofon-gateway/internal/access"
	"github.com/jmehdipour/domofon-gateway/internal/gateway"
	"github.com/jmehdipour/domofon-gateway/internal/model"
	"github.com/jmehdipour/domofon-gateway/internal/session"
)

type fakeAccess struct {
	identity     model.TenantIdentity
	identityErr  error
	snapshot     model.SnapshotReference
	snapshotErr  error
	checkCalls   int
	snapshotCall int
}

func (f *fakeAccess) CheckTenant(ctx context.Context, tenantID int64) (model.TenantIdentity, error) {
	f.checkCalls++
	return f.identity, f.identityErr
}

func (f *fakeAccess) CameraSnapshot(ctx context.Context, deviceID, tenantID int64) (model.SnapshotReference, error) {
	f.snapshotCall++
	return f.snapshot, f.snapshotErr
}

type fakeGateway struct {
	delivered []struct {
		Address string
		Note    model.Notification
	}
	err error
}

func (f *fakeGateway) Deliver(ctx context.Context, address string, note model.Notification) (gateway.DeliveryReceipt, error) {
	if f.err != nil {
		return gateway.DeliveryReceipt{}, f.err
	}
	f.delivered = append(f.delivered, struct {
		Address string
		Note    model.Notification
	}{address, note})
	return gateway.DeliveryReceipt{MessageID: "msg-1"}, nil
}

func TestDispatchDelivered(t *testing.T) {
	api := &fakeAccess{
		identity: model.TenantIdentity{TenantID: 100, NotifyAddress: "chat-1"},
		snapshot: model.SnapshotReference{ImageURL: "http://x/y.jpg"},
	}
	gw := &fakeGateway{}
	d := NewDispatcher(api, gw, nil, nil)

	outcome, err := d.Dispatch(context.Background(), model.CallEvent{DeviceID: 7, TenantID: 100})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !outcome.Success || outcome.Stage != StageDelivered {
		t.Fatalf("outcome = %+v, want delivered success", outcome)
	}
	if outcome.EventID == "" {
		t.Fatal("missing event correlation id")
	}

	if len(gw.delivered) != 1 {
		t.Fatalf("delivered = %d, want 1", len(gw.delivered))
	}
	got := gw.delivered[0]
	if got.Address != "chat-1" {
		t.Fatalf("address = %q, want chat-1", got.Address)
	}
	if got.Note.ImageURL != "http://x/y.jpg" {
		t.Fatalf("image = %q", got.Note.ImageURL)
	}
	if len(got.Note.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(got.Note.Actions))
	}
}

func TestDispatchInvalidEventNoBackendCall(t *testing.T) {
	for _, event := range []model.CallEvent{
		{DeviceID: 0, TenantID: 100},
		{DeviceID: 7, TenantID: 0},
		{DeviceID: -1, TenantID: -1},
	} {
		api := &fakeAccess{}
		gw := &fakeGateway{}
		d := NewDispatcher(api, gw, nil, nil)

		_, err := d.Dispatch(context.Background(), event)
		if !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("event %+v: err = %v, want ErrInvalidEvent", event, err)
		}
		if api.checkCalls != 0 || api.snapshotCall != 0 {
			t.Fatalf("event %+v: backend called (%d, %d), want none", event, api.checkCalls, api.snapshotCall)
		}
		if len(gw.delivered) != 0 {
			t.Fatalf("event %+v: delivery attempted", event)
		}
	}
}

func TestDispatchRecipientNotFound(t *testing.T) {
	api := &fakeAccess{identityErr: access.ErrNotFound}
	gw := &fakeGateway{}
	d := NewDispatcher(api, gw, nil, nil)

	_, err := d.Dispatch(context.Background(), model.CallEvent{DeviceID: 7, TenantID: 100})
	if !errors.Is(err, ErrRecipientUnresolved) {
		t.Fatalf("err = %v, want ErrRecipientUnresolved", err)
	}
	if len(gw.delivered) != 0 {
		t.Fatal("delivery attempted for unresolved recipient")
	}
}

func TestDispatchEmptyAddressUnresolved(t *testing.T) {
	api := &fakeAccess{identity: model.TenantIdentity{TenantID: 100}}
	d := NewDispatcher(api, &fakeGateway{}, nil, nil)

	_, err := d.Dispatch(context.Background(), model.CallEvent{DeviceID: 7, TenantID: 100})
	if !errors.Is(err, ErrRecipientUnresolved) {
		t.Fatalf("err = %v, want ErrRecipientUnresolved", err)
	}
}

func TestDispatchSessionFallbackAddress(t *testing.T) {
	api := &fakeAccess{identity: model.TenantIdentity{TenantID: 100}}
	gw := &fakeGateway{}
	sessions := session.NewStore()
	sessions.Bind("555", 100)
	d := NewDispatcher(api, gw, sessions, nil)

	outcome, err := d.Dispatch(context.Background(), model.CallEvent{DeviceID: 7, TenantID: 100})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome.Address != "555" {
		t.Fatalf("address = %q, want session-bound 555", outcome.Address)
	}
}

func TestDispatchSnapshotFailureDegrades(t *testing.T) {
	api := &fakeAccess{
		identity:    model.TenantIdentity{TenantID: 100, NotifyAddress: "chat-1"},
		snapshotErr: errors.New("camera backend down"),
	}
	gw := &fakeGateway{}
	d := NewDispatcher(api, gw, nil, nil)

	outcome, err := d.Dispatch(context.Background(), model.CallEvent{DeviceID: 7, TenantID: 100})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !outcome.Success {
		t.Fatal("snapshot failure changed the dispatch outcome")
	}
	if gw.delivered[0].Note.ImageURL != "" {
		t.Fatal("image present despite snapshot failure")
	}
}

func TestDispatchAccessFailurePropagates(t *testing.T) {
	api := &fakeAccess{identityErr: &access.APIError{Op: "check-tenant", Status: 500, Message: "boom"}}
	d := NewDispatcher(api, &fakeGateway{}, nil, nil)

	_, err := d.Dispatch(context.Background(), model.CallEvent{DeviceID: 7, TenantID: 100})
	var apiErr *access.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want wrapped APIError", err)
	}
}

func TestDispatchDeliveryFailed(t *testing.T) {
	api := &fakeAccess{identity: model.TenantIdentity{TenantID: 100, NotifyAddress: "chat-1"}}
	gw := &fakeGateway{err: errors.New("telegram unavailable")}
	d := NewDispatcher(api, gw, nil, nil)

	_, err := d.Dispatch(context.Background(), model.CallEvent{DeviceID: 7, TenantID: 100})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("err = %v, want ErrDeliveryFailed", err)
	}
}
