package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"marketplace/internal/notify"
	"marketplace/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

const heartbeatInterval = 25 * time.Second

// Subscriber opens the live channel of one user.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan notify.Message, error)
}

type NotificationHandler struct {
	subscriber Subscriber
	log        *logger.Logger
}

func NewNotificationHandler(subscriber Subscriber) *NotificationHandler {
	return &NotificationHandler{subscriber: subscriber, log: logger.New("NotificationHandler")}
}

// Stream relays the caller's notifications as server-sent events until the
// client disconnects.
// @Summary Live notifications
// @Tags notifications
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "event stream"
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	uid := userID(c)

	messages, err := h.subscriber.Subscribe(ctx, uid)
	if err != nil {
		return h.log.Error("Failed to open live channel", err)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, "event: ready\ndata: {}\n\n"); err != nil {
		return nil
	}
	w.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
