package service

import (
	"math/rand/v2"

	"sensorgrid/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RandomSource yields a uniform integer in [0, n).
type RandomSource interface {
	IntN(n int) int
}

// globalSource draws from the auto-seeded, goroutine-safe math/rand/v2 source.
type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Jitter amplitudes: each sensor deviates from the baseline by at most this
// much, in either direction, before clamping.
const (
	temperatureJitter = 2
	windSpeedJitter   = 1
	humidityJitter    = 7
	co2Jitter         = 125
)

// Generator produces batches of correlated readings: one baseline per batch,
// small independent per-sensor jitter, then a hard clamp to each valid band.
type Generator struct {
	src     RandomSource
	sensors int
	log     *zap.Logger
}

func NewGenerator(log *zap.Logger) *Generator {
	return NewGeneratorWithSource(globalSource{}, log)
}

// NewGeneratorWithSource is NewGenerator with a caller-supplied random source.
func NewGeneratorWithSource(src RandomSource, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		src:     src,
		sensors: models.SensorsPerBatch,
		log:     log.Named("generator"),
	}
}

// Generate returns a fresh batch of readings for sensors 1..20.
func (g *Generator) Generate() *models.ReadingBatch {
	base := DrawBaseline(g.src)

	batch := &models.ReadingBatch{
		ID:       uuid.NewString(),
		Readings: make([]models.SensorReading, 0, g.sensors),
	}
	for id := 1; id <= g.sensors; id++ {
		r := DeriveReading(id, base, g.src)
		batch.Readings = append(batch.Readings, r)

		g.log.Debug("sensor reading",
			zap.String("batch_id", batch.ID),
			zap.Int("sensor_id", r.SensorID),
			zap.Int("temperature", r.Temperature),
			zap.Int("wind_speed", r.WindSpeed),
			zap.Int("humidity", r.Humidity),
			zap.Int("co2_level", r.CO2Level),
		)
	}
	return batch
}

// DrawBaseline draws the shared weather for one batch. Each value lies in
// [Min, Max) of its band.
func DrawBaseline(src RandomSource) models.Baseline {
	return models.Baseline{
		Temperature: drawIn(src, models.TemperatureBound),
		WindSpeed:   drawIn(src, models.WindSpeedBound),
		Humidity:    drawIn(src, models.HumidityBound),
		CO2Level:    drawIn(src, models.CO2Bound),
	}
}

// DeriveReading perturbs the baseline for one sensor and clamps every field.
func DeriveReading(sensorID int, base models.Baseline, src RandomSource) models.SensorReading {
	return models.SensorReading{
		SensorID:    sensorID,
		Temperature: models.TemperatureBound.Clamp(base.Temperature + jitter(src, temperatureJitter)),
		WindSpeed:   models.WindSpeedBound.Clamp(base.WindSpeed + jitter(src, windSpeedJitter)),
		Humidity:    models.HumidityBound.Clamp(base.Humidity + jitter(src, humidityJitter)),
		CO2Level:    models.CO2Bound.Clamp(base.CO2Level + jitter(src, co2Jitter)),
	}
}

func drawIn(src RandomSource, b models.Bound) int {
	return b.Min + src.IntN(b.Max-b.Min)
}

// jitter returns a uniform value in [-amp, amp].
func jitter(src RandomSource, amp int) int {
	return src.IntN(2*amp+1) - amp
}
