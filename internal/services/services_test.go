package services

import (
	"context"
	"sync"
	"testing"

	"marketplace/internal/events"
	"marketplace/internal/testutil"

	"gorm.io/gorm"
)

type delivery struct {
	UserID  string
	Event   string
	Payload interface{}
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []delivery
}

func (r *recordingTransport) EmitToUser(_ context.Context, userID, event string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, delivery{UserID: userID, Event: event, Payload: payload})
	return nil
}

func (r *recordingTransport) deliveries() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.sent...)
}

type env struct {
	db         *gorm.DB
	storage    *MemoryStorage
	media      *MediaService
	transport  *recordingTransport
	dispatcher *events.Dispatcher
}

func newEnv(t *testing.T) *env {
	t.Helper()

	storage := NewMemoryStorage("http://localhost:8080")
	transport := &recordingTransport{}
	return &env{
		db:         testutil.DB(t),
		storage:    storage,
		media:      NewMediaService(storage),
		transport:  transport,
		dispatcher: events.NewDispatcher(transport),
	}
}

func pngUpload(name string) Upload {
	return Upload{FileName: name, ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nfake")}
}

func strPtr(s string) *string { return &s }
