package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Stream is the persistent SSE channel for kiosk/dashboard displays.
// Subscribers get events published while connected; there is no replay
// on reconnect, history lives in the record store.
func (h *Handler) Stream(c echo.Context) error {
	sub := h.events.Subscribe()
	defer sub.Close()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.Error("marshal event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
				// Subscriber went away; drop it.
				return nil
			}
			resp.Flush()
		}
	}
}
