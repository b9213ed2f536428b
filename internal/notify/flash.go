package notify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/storage"
)

// maxFlash bounds the pending queue so a client that never renders a page
// cannot grow it forever.
const maxFlash = 10

// Flash queues notifications in the browser session's storage until the
// next page render drains them.
type Flash struct {
	store storage.Storage
	log   *zap.Logger
}

func NewFlash(store storage.Storage, log *zap.Logger) *Flash {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flash{store: store, log: log}
}

func (f *Flash) Notify(ctx context.Context, n Notification) {
	pending := f.read(ctx)
	pending = append(pending, n)
	if len(pending) > maxFlash {
		pending = pending[len(pending)-maxFlash:]
	}
	raw, err := json.Marshal(pending)
	if err != nil {
		f.log.Warn("encode flash", zap.Error(err))
		return
	}
	if err := f.store.Set(ctx, map[string]string{storage.KeyFlash: string(raw)}); err != nil {
		f.log.Warn("store flash", zap.Error(err))
	}
}

// Drain returns the pending notifications and clears them.
func (f *Flash) Drain(ctx context.Context) []Notification {
	pending := f.read(ctx)
	if len(pending) == 0 {
		return nil
	}
	if err := f.store.Delete(ctx, storage.KeyFlash); err != nil {
		f.log.Warn("clear flash", zap.Error(err))
	}
	return pending
}

func (f *Flash) read(ctx context.Context) []Notification {
	raw, ok, err := f.store.Get(ctx, storage.KeyFlash)
	if err != nil {
		f.log.Warn("read flash", zap.Error(err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var list []Notification
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		f.log.Warn("decode flash", zap.Error(err))
		return nil
	}
	return list
}
