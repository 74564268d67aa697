package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/evencore/seat-reservation/internal/broadcast"
)

// LiveHandler streams seat state changes to seat-map clients over
// Server-Sent Events.  Delivery is advisory: a dropped or missed event
// only delays the repaint until the next availability poll.
type LiveHandler struct {
	Hub *broadcast.Hub
}

// NewLiveHandler constructs a LiveHandler over the in-process hub.
func NewLiveHandler(hub *broadcast.Hub) *LiveHandler {
	if hub == nil {
		panic("nil hub passed to NewLiveHandler")
	}
	return &LiveHandler{Hub: hub}
}

// Stream handles GET /v1/events/:id/seats/live.  It subscribes the
// client to the event's broadcast channel and writes each state change
// as an SSE message until the client disconnects.
func (h *LiveHandler) Stream(c echo.Context) error {
	eventID, ok := eventIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "streaming unsupported"})
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.Hub.Subscribe(eventID, 16)
	defer cancel()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, open := <-events:
			if !open {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(c.Response().Writer, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
