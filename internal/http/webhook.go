package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/jmehdipour/domofon-gateway/internal/dispatch"
	"github.com/jmehdipour/domofon-gateway/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type callReq struct {
	DomofonID int64 `json:"domofon_id"`
	TenantID  int64 `json:"tenant_id"`
}

// callDispatcher narrows the dispatcher for handler tests.
type callDispatcher interface {
	Dispatch(ctx context.Context, event model.CallEvent) (dispatch.Outcome, error)
}

// callWebhookHandler builds a CallEvent from the webhook payload and maps
// the dispatch outcome to 200/400/404/500.
func callWebhookHandler(d callDispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req callReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"status": "error",
				"error":  "missing or invalid parameters",
			})
		}

		event := model.CallEvent{DeviceID: req.DomofonID, TenantID: req.TenantID}

		outcome, err := d.Dispatch(c.Request().Context(), event)
		switch {
		case err == nil:
			return c.JSON(http.StatusOK, map[string]any{
				"success": true,
				"status":  "success",
			})
		case errors.Is(err, dispatch.ErrInvalidEvent):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"status": "error",
				"error":  "missing or invalid parameters",
			})
		case errors.Is(err, dispatch.ErrRecipientUnresolved):
			return c.JSON(http.StatusNotFound, map[string]string{
				"status": "error",
				"error":  "recipient not found",
			})
		default:
			log.Errorf("call dispatch failed: event_id=%s stage=%s err=%v", outcome.EventID, outcome.Stage, err)

			return c.JSON(http.StatusInternalServerError, map[string]string{
				"status": "error",
				"error":  "dispatch failed",
			})
		}
	}
}
