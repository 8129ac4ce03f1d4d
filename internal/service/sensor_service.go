package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sensorgrid/internal/metrics"
	"sensorgrid/internal/models"
	"sensorgrid/internal/publish"
	"sensorgrid/internal/repository"
	"sensorgrid/internal/utils"

	"go.uber.org/zap"
)

// Trigger names what started a generation run.
type Trigger string

const (
	TriggerOnDemand  Trigger = "on_demand"
	TriggerScheduled Trigger = "scheduled"
)

const (
	latestBatchKey = "latest"
	publishTimeout = 5 * time.Second
)

var (
	ErrCacheDisabled     = errors.New("latest batch cache is disabled")
	ErrNoLatestBatch     = errors.New("no batch has been generated yet")
	ErrNoData            = errors.New("no readings to export")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

//go:generate mockgen -destination=mocks/sensor_service_mock.go -package=mocks sensorgrid/internal/service SensorService

type SensorService interface {
	// GenerateAndStore generates one batch and writes it in a single
	// transaction. The batch is returned only after it was committed.
	GenerateAndStore(ctx context.Context, trigger Trigger) (*models.ReadingBatch, error)
	ListReadings(ctx context.Context) ([]models.ReadingRecord, error)
	ClearReadings(ctx context.Context) (int64, error)
	LatestBatch(ctx context.Context) (*LatestBatch, error)
	ExportReadings(ctx context.Context, format string) (*ExportFile, error)
}

// LatestBatch is the cached copy of the most recently committed batch.
type LatestBatch struct {
	BatchID     string                 `json:"batchId"`
	Trigger     Trigger                `json:"trigger"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Sensors     []models.SensorReading `json:"sensors"`
}

// ExportFile describes a written export on disk. Path is unique per call and
// the file is the caller's to remove.
type ExportFile struct {
	Name        string
	Path        string
	ContentType string
	Records     int
}

type SensorConfig struct {
	LatestTTL time.Duration
	ExportDir string
}

type sensorService struct {
	gen       *Generator
	repo      repository.ReadingRepository
	cacheRepo repository.CacheRepository
	publisher publish.Publisher
	metrics   *metrics.Metrics
	config    SensorConfig
	log       *zap.Logger
	now       func() time.Time

	// commitSeq orders commits as this process saw them return. latestSeq
	// is the commit currently cached as latest; both only order writers
	// inside one process.
	commitSeq atomic.Uint64
	latestMu  sync.Mutex
	latestSeq uint64
}

// NewSensorService wires the pipeline. cacheRepo, publisher and m are
// optional and may be nil.
func NewSensorService(
	gen *Generator,
	repo repository.ReadingRepository,
	cacheRepo repository.CacheRepository,
	publisher publish.Publisher,
	m *metrics.Metrics,
	config SensorConfig,
	log *zap.Logger,
) SensorService {
	if log == nil {
		log = zap.NewNop()
	}
	if config.ExportDir == "" {
		config.ExportDir = "./data/exports"
	}
	if config.LatestTTL <= 0 {
		config.LatestTTL = 10 * time.Minute
	}
	return &sensorService{
		gen:       gen,
		repo:      repo,
		cacheRepo: cacheRepo,
		publisher: publisher,
		metrics:   m,
		config:    config,
		log:       log.Named("sensors"),
		now:       time.Now,
	}
}

func (s *sensorService) GenerateAndStore(ctx context.Context, trigger Trigger) (*models.ReadingBatch, error) {
	batch := s.gen.Generate()

	start := time.Now()
	err := s.repo.InsertBatch(ctx, batch.Readings)
	took := time.Since(start)
	s.metrics.BatchWritten(string(trigger), batch.Len(), took, err)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", batch.ID, err)
	}
	seq := s.commitSeq.Add(1)

	s.log.Info("batch committed",
		zap.String("batch_id", batch.ID),
		zap.String("trigger", string(trigger)),
		zap.Int("readings", batch.Len()),
		zap.Duration("took", took),
	)

	s.afterCommit(ctx, trigger, batch, seq)
	return batch, nil
}

// afterCommit refreshes the cache and fans the batch out. Failures here are
// logged only; the batch is already stored.
func (s *sensorService) afterCommit(ctx context.Context, trigger Trigger, batch *models.ReadingBatch, seq uint64) {
	if s.cacheRepo != nil {
		s.cacheLatest(ctx, trigger, batch, seq)
	}

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := s.publisher.Publish(pubCtx, batch); err != nil {
			s.metrics.PublishFailed()
			s.log.Warn("failed to publish batch", zap.String("batch_id", batch.ID), zap.Error(err))
		}
	}
}

// cacheLatest writes batch as the latest one unless a later commit already
// did. The lock spans the write so two writers cannot land out of order.
func (s *sensorService) cacheLatest(ctx context.Context, trigger Trigger, batch *models.ReadingBatch, seq uint64) {
	s.latestMu.Lock()
	defer s.latestMu.Unlock()

	if seq < s.latestSeq {
		s.log.Debug("skipping stale latest batch", zap.String("batch_id", batch.ID), zap.Uint64("seq", seq))
		return
	}

	latest := LatestBatch{
		BatchID:     batch.ID,
		Trigger:     trigger,
		GeneratedAt: s.now().UTC(),
		Sensors:     batch.Readings,
	}
	if err := s.cacheRepo.SetJSON(ctx, latestBatchKey, latest, s.config.LatestTTL); err != nil {
		s.log.Warn("failed to cache latest batch", zap.String("batch_id", batch.ID), zap.Error(err))
		return
	}
	s.latestSeq = seq
}

func (s *sensorService) ListReadings(ctx context.Context) ([]models.ReadingRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.ReadingRecord{}
	}
	return records, nil
}

func (s *sensorService) ClearReadings(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.ReadingsDeleted(deleted)
	s.log.Info("readings cleared", zap.Int64("deleted_rows", deleted))

	if s.cacheRepo != nil {
		if err := s.cacheRepo.Delete(ctx, latestBatchKey); err != nil {
			s.log.Warn("failed to drop cached latest batch", zap.Error(err))
		}
	}
	return deleted, nil
}

func (s *sensorService) LatestBatch(ctx context.Context) (*LatestBatch, error) {
	if s.cacheRepo == nil {
		return nil, ErrCacheDisabled
	}

	var latest LatestBatch
	found, err := s.cacheRepo.GetJSON(ctx, latestBatchKey, &latest)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest batch: %w", err)
	}
	if !found {
		return nil, ErrNoLatestBatch
	}
	return &latest, nil
}

func (s *sensorService) ExportReadings(ctx context.Context, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	var ext, contentType string
	switch format {
	case "", "csv":
		ext, contentType = "csv", "text/csv"
	case "xlsx", "excel":
		ext, contentType = "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	if err := os.MkdirAll(s.config.ExportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	name := fmt.Sprintf("sensor_readings_%s.%s", s.now().UTC().Format("20060102_150405.000"), ext)

	// The download name may repeat within a millisecond; the path on disk
	// never does. The caller removes the file once it has been served.
	tmp, err := os.CreateTemp(s.config.ExportDir, "sensor_readings_*."+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	path := tmp.Name()
	tmp.Close() //nolint:errcheck

	if ext == "csv" {
		err = writeCSV(path, records)
	} else {
		err = utils.CreateReadingsWorkbook(path, records)
	}
	if err != nil {
		os.Remove(path) //nolint:errcheck
		return nil, fmt.Errorf("failed to write %s export: %w", ext, err)
	}

	s.log.Info("readings exported", zap.String("file", name), zap.Int("records", len(records)))
	return &ExportFile{
		Name:        name,
		Path:        path,
		ContentType: contentType,
		Records:     len(records),
	}, nil
}

var csvHeader = []string{"readingID", "sensorID", "temp", "wind", "humidity", "co2"}

func writeCSV(path string, records []models.ReadingRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.FormatUint(uint64(r.ReadingID), 10),
			strconv.Itoa(r.SensorID),
			strconv.Itoa(r.Temperature),
			strconv.Itoa(r.WindSpeed),
			strconv.Itoa(r.Humidity),
			strconv.Itoa(r.CO2Level),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Close()
}
