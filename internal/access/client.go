// Package access wraps the building-access backend ("domo" API). All
// transport and HTTP failures collapse into one APIError kind: the
// caller's recovery action is identical either way (log, fail the event,
// never retry automatically).
package access

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jmehdipour/domofon-gateway/internal/model"
	"go.uber.org/zap"
)

// ErrNotFound marks an expected "tenant not known" outcome so callers can
// branch without string-matching error text.
var ErrNotFound = errors.New("tenant not found")

// APIError is the single error taxonomy for every backend operation.
type APIError struct {
	Op      string
	Status  int // 0 for transport-level failures
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("access api: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("access api: %s: status=%d %s", e.Op, e.Status, e.Message)
}

// Validation reports whether the failure is a backend validation error
// (user-correctable) rather than a server/transport fault.
func (e *APIError) Validation() bool { return e.Status == http.StatusUnprocessableEntity }

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     *zap.Logger
}

// NewClient builds a client with a bounded request timeout. An unbounded
// hang on a door-open call is a safety fault, so timeout must be set;
// zero falls back to 5s.
func NewClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL: trimSlash(baseURL),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		log:     log.With(zap.String("component", "access")),
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

type checkTenantReq struct {
	TenantID int64  `json:"tenant_id,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// CheckTenant resolves a tenant id into a TenantIdentity. A backend 404
// returns ErrNotFound (expected outcome); anything else abnormal is an
// *APIError. No retries at this layer.
func (c *Client) CheckTenant(ctx context.Context, tenantID int64) (model.TenantIdentity, error) {
	return c.checkTenant(ctx, checkTenantReq{TenantID: tenantID})
}

// CheckTenantByPhone resolves a normalized phone number (7XXXXXXXXXX)
// into a TenantIdentity. Used by the chat authorization flow.
func (c *Client) CheckTenantByPhone(ctx context.Context, phone string) (model.TenantIdentity, error) {
	return c.checkTenant(ctx, checkTenantReq{Phone: phone})
}

func (c *Client) checkTenant(ctx context.Context, req checkTenantReq) (model.TenantIdentity, error) {
	var ident model.TenantIdentity
	err := c.do(ctx, "check-tenant", http.MethodPost, "/check-tenant", nil, req, &ident)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return model.TenantIdentity{}, ErrNotFound
		}
		return model.TenantIdentity{}, err
	}
	return ident, nil
}

type snapshotReq struct {
	IntercomsID []int64  `json:"intercoms_id"`
	MediaType   []string `json:"media_type"`
}

// CameraSnapshot fetches a best-effort snapshot URL for a device. It never
// fails: a missing or malformed snapshot yields an empty reference,
// because a dead camera must not block the door notification.
func (c *Client) CameraSnapshot(ctx context.Context, deviceID, tenantID int64) (model.SnapshotReference, error) {
	var refs []model.SnapshotReference
	err := c.do(ctx, "camera-snapshot", http.MethodPost, "/domo.domofon/urlsOnType",
		url.Values{"tenant_id": {strconv.FormatInt(tenantID, 10)}},
		snapshotReq{IntercomsID: []int64{deviceID}, MediaType: []string{"JPEG"}},
		&refs,
	)
	if err != nil {
		c.log.Warn("snapshot fetch failed, degrading to no image",
			zap.Int64("device_id", deviceID), zap.Error(err))
		return model.SnapshotReference{}, nil
	}
	if len(refs) == 0 {
		return model.SnapshotReference{}, nil
	}
	return refs[0], nil
}

type openDoorReq struct {
	DoorID int64 `json:"door_id"`
}

// OpenDoor issues the open command on the given door channel (channel 0
// in the current deployment). At-most-once: never retried here, a
// duplicated open command is a safety hazard.
func (c *Client) OpenDoor(ctx context.Context, deviceID, tenantID, doorID int64) error {
	return c.do(ctx, "open-door", http.MethodPost,
		"/domo.domofon/"+strconv.FormatInt(deviceID, 10)+"/open",
		url.Values{"tenant_id": {strconv.FormatInt(tenantID, 10)}},
		openDoorReq{DoorID: doorID},
		nil,
	)
}

// ListApartments returns the tenant's apartments.
func (c *Client) ListApartments(ctx context.Context, tenantID int64) ([]model.Apartment, error) {
	var apartments []model.Apartment
	err := c.do(ctx, "list-apartments", http.MethodGet, "/domo.apartment",
		url.Values{"tenant_id": {strconv.FormatInt(tenantID, 10)}}, nil, &apartments)
	if err != nil {
		return nil, err
	}
	return apartments, nil
}

// ListDevices returns the intercom devices of one apartment.
func (c *Client) ListDevices(ctx context.Context, apartmentID, tenantID int64) ([]model.Device, error) {
	var devices []model.Device
	err := c.do(ctx, "list-devices", http.MethodGet,
		"/domo.apartment/"+strconv.FormatInt(apartmentID, 10)+"/domofon",
		url.Values{"tenant_id": {strconv.FormatInt(tenantID, 10)}}, nil, &devices)
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// validationBody is the backend's 422 payload shape.
type validationBody struct {
	Detail []struct {
		Msg string `json:"msg"`
	} `json:"detail"`
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &APIError{Op: op, Message: "marshal request: " + err.Error()}
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &APIError{Op: op, Message: err.Error()}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return &APIError{Op: op, Message: err.Error()}
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return &APIError{Op: op, Status: res.StatusCode, Message: errorMessage(res)}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return &APIError{Op: op, Message: "decode response: " + err.Error()}
		}
	}

	return nil
}

// errorMessage extracts the first structured validation message from a
// non-2xx body, falling back to the raw (bounded) text.
func errorMessage(res *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	if err != nil || len(raw) == 0 {
		return http.StatusText(res.StatusCode)
	}

	if res.StatusCode == http.StatusUnprocessableEntity {
		var vb validationBody
		if json.Unmarshal(raw, &vb) == nil && len(vb.Detail) > 0 && vb.Detail[0].Msg != "" {
			return vb.Detail[0].Msg
		}
	}

	return string(raw)
}
