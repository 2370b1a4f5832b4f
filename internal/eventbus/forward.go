package eventbus

import (
	"context"
	"time"

	"github.com/annel0/tas-replay/internal/logging"
)

// Forward пересылает события src, подходящие под f, в dst.
// Публикация в dst идёт в горутине подписчика src, поэтому медленный брокер
// не задерживает того, кто публикует в src.
func Forward(ctx context.Context, src, dst EventBus, f Filter, timeout time.Duration) (Subscription, error) {
	logger := logging.GetComponentLogger("eventbus")
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return src.Subscribe(ctx, f, func(ctx context.Context, ev *Envelope) {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := dst.Publish(pctx, ev); err != nil {
			logger.Warn("⚠️ Событие %s (%s) не переслано: %v", ev.ID, ev.EventType, err)
		}
	})
}
