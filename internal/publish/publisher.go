package publish

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"sensorgrid/internal/models"

	"golang.org/x/sync/errgroup"
)

// Publisher forwards committed batches to a downstream system.
type Publisher interface {
	Publish(ctx context.Context, batch *models.ReadingBatch) error
	Close() error
}

// Envelope is the wire form of a published batch.
type Envelope struct {
	BatchID     string                 `json:"batchId"`
	PublishedAt time.Time              `json:"publishedAt"`
	Sensors     []models.SensorReading `json:"sensors"`
}

func encode(batch *models.ReadingBatch, now time.Time) ([]byte, error) {
	return json.Marshal(Envelope{
		BatchID:     batch.ID,
		PublishedAt: now.UTC(),
		Sensors:     batch.Readings,
	})
}

// Multi fans a batch out to every publisher concurrently. A failing
// publisher does not stop the others.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, batch *models.ReadingBatch) error {
	errs := make([]error, len(m))

	var g errgroup.Group
	for i, p := range m {
		g.Go(func() error {
			errs[i] = p.Publish(ctx, batch)
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
