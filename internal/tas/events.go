package tas

import (
	"context"
	"encoding/json"
	"time"

	"github.com/annel0/tas-replay/internal/eventbus"
	"github.com/google/uuid"
)

// Типы событий сессии
const (
	EventRecordingStarted = "tas.recording.started"
	EventRecordingStopped = "tas.recording.stopped"
	EventRecordSaved      = "tas.record.saved"
	EventRecordSaveFailed = "tas.record.save_failed"
	EventPlaybackStarted  = "tas.playback.started"
	EventPlaybackStopped  = "tas.playback.stopped"
)

// EventSource источник событий в Envelope
const EventSource = "tas"

// SessionEvent полезная нагрузка событий сессии (JSON)
type SessionEvent struct {
	SessionID string `json:"session_id,omitempty"`
	Record    string `json:"record,omitempty"`
	Path      string `json:"path,omitempty"`
	Map       string `json:"map,omitempty"`
	Frames    int    `json:"frames"`
	Reason    string `json:"reason,omitempty"`
	Degraded  bool   `json:"degraded,omitempty"`
	Legacy    bool   `json:"legacy,omitempty"`
	Error     string `json:"error,omitempty"`
}

type publisher struct {
	bus eventbus.EventBus
}

// publish не блокирует поток тиков: шина в памяти отбрасывает низкий приоритет
// при переполнении, а пересылка во внешний брокер идёт через eventbus.Forward
func (p publisher) publish(eventType string, ev SessionEvent) {
	if p.bus == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = p.bus.Publish(context.Background(), &eventbus.Envelope{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Source:        EventSource,
		EventType:     eventType,
		Version:       1,
		CorrelationID: ev.SessionID,
		Priority:      3,
		Payload:       payload,
		Metadata:      map[string]string{"content-type": "application/json"},
	})
}

// DecodeSessionEvent разбирает полезную нагрузку события сессии
func DecodeSessionEvent(env *eventbus.Envelope) (SessionEvent, error) {
	var ev SessionEvent
	err := json.Unmarshal(env.Payload, &ev)
	return ev, err
}
