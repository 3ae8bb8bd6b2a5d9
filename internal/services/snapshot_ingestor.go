package services

import (
	"context"
	"fmt"

	"inventory-dashboard/internal/kafka"
	"inventory-dashboard/internal/logger"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/store"
)

// SnapshotObserver получает результат приёма снимка. Реализуется metrics.Recorder.
type SnapshotObserver interface {
	ObserveSnapshot(accepted bool, seriesLength int)
}

// HandlerRegistrar представляет источник событий, например kafka.Consumer
type HandlerRegistrar interface {
	RegisterHandler(eventType models.EventType, handler kafka.EventHandler)
}

// SnapshotIngestor дописывает дневные снимки из событий snapshot.recorded в историю
type SnapshotIngestor struct {
	series   *store.Series
	log      *logger.Logger
	observer SnapshotObserver
}

// NewSnapshotIngestor создает обработчик снимков. observer может быть nil.
func NewSnapshotIngestor(series *store.Series, log *logger.Logger, observer SnapshotObserver) *SnapshotIngestor {
	return &SnapshotIngestor{series: series, log: log, observer: observer}
}

// Register подписывает обработчик на события снимков
func (i *SnapshotIngestor) Register(registrar HandlerRegistrar) {
	registrar.RegisterHandler(models.EventTypeSnapshotRecorded, i.Handle)
}

// Handle принимает один снимок. Снимок с датой не позже последней отклоняется.
func (i *SnapshotIngestor) Handle(_ context.Context, event *models.Event) error {
	var data models.SnapshotRecordedData
	if err := event.DecodeData(&data); err != nil {
		i.observe(false)
		return fmt.Errorf("failed to decode snapshot event %s: %w", event.ID, err)
	}

	if err := i.series.Append(data.Snapshot); err != nil {
		i.observe(false)
		return fmt.Errorf("snapshot %s rejected: %w", data.Snapshot.Date, err)
	}
	i.observe(true)

	i.log.WithFields(map[string]interface{}{
		"date":   data.Snapshot.Date.String(),
		"source": data.Source,
		"length": i.series.Len(),
	}).Debug("Daily snapshot ingested")
	return nil
}

func (i *SnapshotIngestor) observe(accepted bool) {
	if i.observer != nil {
		i.observer.ObserveSnapshot(accepted, i.series.Len())
	}
}
