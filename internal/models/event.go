package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип события в Kafka
type EventType string

const (
	EventTypeSnapshotRecorded EventType = "snapshot.recorded"
	EventTypeInsightCritical  EventType = "insight.critical"
)

// Event представляет событие, передаваемое через Kafka
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent создаёт событие с сериализованными данными
func NewEvent(eventType EventType, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// DecodeData разбирает данные события в dst
func (e *Event) DecodeData(dst interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.ID)
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decode %s data: %w", e.Type, err)
	}
	return nil
}

// SnapshotRecordedData содержит данные события snapshot.recorded
type SnapshotRecordedData struct {
	Snapshot DailySnapshot `json:"snapshot"`
	Source   string        `json:"source,omitempty"`
}

// InsightCriticalData содержит данные события insight.critical
type InsightCriticalData struct {
	Insight    Insight    `json:"insight"`
	TimeFilter TimeFilter `json:"timeFilter"`
	FromAPI    bool       `json:"fromApi"`
}
