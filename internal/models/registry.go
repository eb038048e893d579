package models

import (
	"context"
	"sync/atomic"
	"time"
)

// MediaURLTTL is how long a resolved media URL stays valid.
const MediaURLTTL = time.Hour

// MediaURLGenerator resolves a stored object path into a client URL.
type MediaURLGenerator interface {
	GetSignedURL(ctx context.Context, path string, duration time.Duration) (string, error)
}

type generatorSlot struct{ MediaURLGenerator }

var mediaURLs atomic.Pointer[generatorSlot]

// RegisterMediaURLGenerator sets the generator used when media rows are
// loaded. Passing nil leaves URLs empty.
func RegisterMediaURLGenerator(generator MediaURLGenerator) {
	if generator == nil {
		mediaURLs.Store(nil)
		return
	}
	mediaURLs.Store(&generatorSlot{generator})
}

// ResolveMediaURL returns "" when no generator is registered or path is empty.
func ResolveMediaURL(ctx context.Context, path string) (string, error) {
	slot := mediaURLs.Load()
	if slot == nil || path == "" {
		return "", nil
	}
	return slot.GetSignedURL(ctx, path, MediaURLTTL)
}
