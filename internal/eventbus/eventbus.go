// Package eventbus: шина событий сессий TAS: шина в памяти для потока тиков
// и JetStream для внешних потребителей, связанные через Forward.
package eventbus

import (
	"context"
	"sync"
	"time"
)

// Envelope описывает универсальный контейнер события.
type Envelope struct {
	ID            string            // UUID события
	Timestamp     time.Time         // Время создания (UTC)
	Source        string            // Компонент-источник (tas, tasctl…)
	EventType     string            // Тип события (tas.record.saved…)
	Version       int               // Версия схемы полезной нагрузки
	CorrelationID string            // Идентификатор сессии записи
	Tenant        string            // Не используется
	Priority      int               // 0=Low … 9=Critical (для backpressure)
	Payload       []byte            // JSON полезной нагрузки
	Metadata      map[string]string // Произвольные метаданные
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Если пусто: все типы.
	Sources []string // Если пусто: все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
}

// HighPriority с этого приоритета Publish ждёт места в буфере вместо отбрасывания
const HighPriority = 5

//================ In-Memory implementation =================//

// MemoryBus шина в памяти. Publish не блокирует события с приоритетом ниже
// HighPriority. Каждый подписчик получает события в порядке публикации.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	stats       Stats
	buffer      chan *Envelope
	done        chan struct{}
	closeOnce   sync.Once
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan *Envelope
}

// NewMemoryBus создаёт шину в памяти с буфером capacity событий.
func NewMemoryBus(capacity int) *MemoryBus {
	if capacity < 1 {
		capacity = 1
	}
	mb := &MemoryBus{
		subscribers: make(map[int]*subscriber),
		buffer:      make(chan *Envelope, capacity),
		done:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

func (mb *MemoryBus) Publish(ctx context.Context, ev *Envelope) error {
	select {
	case <-mb.done:
		mb.count(func(s *Stats) { s.Dropped++ })
		return nil
	default:
	}

	select {
	case mb.buffer <- ev:
		mb.count(func(s *Stats) { s.Published++ })
		return nil
	default:
	}

	// Буфер заполнен: низкий приоритет отбрасываем
	if ev.Priority < HighPriority {
		mb.count(func(s *Stats) { s.Dropped++ })
		return nil
	}
	select {
	case mb.buffer <- ev:
		mb.count(func(s *Stats) { s.Published++ })
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-mb.done:
		return nil
	}
}

func (mb *MemoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	cctx, cancel := context.WithCancel(ctx)
	sub := &subscriber{
		filter:  f,
		handler: h,
		ctx:     cctx,
		cancel:  cancel,
		queue:   make(chan *Envelope, cap(mb.buffer)),
	}

	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	mb.subscribers[id] = sub
	mb.mu.Unlock()

	go mb.consume(sub)
	return &memSub{bus: mb, id: id}, nil
}

func (mb *MemoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	s := mb.stats
	s.InFlight = len(mb.buffer)
	return s
}

// Close останавливает рассылку и отписывает всех подписчиков
func (mb *MemoryBus) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)
		mb.mu.Lock()
		for id, sub := range mb.subscribers {
			sub.cancel()
			delete(mb.subscribers, id)
		}
		mb.mu.Unlock()
	})
}

func (mb *MemoryBus) count(fn func(*Stats)) {
	mb.mu.Lock()
	fn(&mb.stats)
	mb.mu.Unlock()
}

// dispatchLoop раскладывает события по очередям подписчиков.
func (mb *MemoryBus) dispatchLoop() {
	for {
		select {
		case <-mb.done:
			return
		case ev := <-mb.buffer:
			mb.mu.RLock()
			subs := make([]*subscriber, 0, len(mb.subscribers))
			for _, sub := range mb.subscribers {
				subs = append(subs, sub)
			}
			mb.mu.RUnlock()

			for _, sub := range subs {
				if !matchFilter(ev, sub.filter) {
					continue
				}
				select {
				case sub.queue <- ev:
				case <-sub.ctx.Done():
				default:
					// Медленный подписчик не задерживает остальных
					mb.count(func(s *Stats) { s.Dropped++ })
				}
			}
		}
	}
}

func (mb *MemoryBus) consume(sub *subscriber) {
	for {
		select {
		case <-sub.ctx.Done():
			return
		case ev := <-sub.queue:
			sub.handler(sub.ctx, ev)
			mb.count(func(s *Stats) { s.Consumed++ })
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *MemoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
