package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sensorgrid/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -destination=mocks/reading_repository_mock.go -package=mocks sensorgrid/internal/repository ReadingRepository

// ReadingRepository persists sensor readings.
type ReadingRepository interface {
	// InsertBatch writes all readings in one transaction. Either every row
	// is committed or none is.
	InsertBatch(ctx context.Context, readings []models.SensorReading) error
	List(ctx context.Context) ([]models.ReadingRecord, error)
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ConnProvider lends a pooled connection for the duration of fn.
type ConnProvider interface {
	WithConn(ctx context.Context, fn func(conn *gorm.DB) error) error
}

const defaultInsertBatchSize = 100

type readingRepository struct {
	pool      ConnProvider
	batchSize int
}

func NewReadingRepository(pool ConnProvider) ReadingRepository {
	return &readingRepository{
		pool:      pool,
		batchSize: defaultInsertBatchSize,
	}
}

func (r *readingRepository) InsertBatch(ctx context.Context, readings []models.SensorReading) error {
	if len(readings) == 0 {
		return nil
	}
	records := models.NewReadingRecords(readings)

	err := r.pool.WithConn(ctx, func(conn *gorm.DB) (err error) {
		tx := conn.Begin()
		if tx.Error != nil {
			return fmt.Errorf("begin: %w", tx.Error)
		}

		// Every exit path that does not commit rolls back.
		committed := false
		defer func() {
			if committed {
				return
			}
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			}
			if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}()

		if err := tx.CreateInBatches(records, r.batchSize).Error; err != nil {
			return fmt.Errorf("insert %d readings: %w", len(records), err)
		}
		if err := tx.Commit().Error; err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		committed = true
		return nil
	})
	return wrapStorage("insert batch", err)
}

func (r *readingRepository) List(ctx context.Context) ([]models.ReadingRecord, error) {
	var records []models.ReadingRecord
	err := r.pool.WithConn(ctx, func(conn *gorm.DB) error {
		return conn.
			Order(clause.OrderByColumn{Column: clause.Column{Name: "readingID"}}).
			Find(&records).
			Error
	})
	if err != nil {
		return nil, wrapStorage("list readings", err)
	}
	return records, nil
}

func (r *readingRepository) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.pool.WithConn(ctx, func(conn *gorm.DB) error {
		res := conn.
			Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.ReadingRecord{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, wrapStorage("delete readings", err)
	}
	return deleted, nil
}

func (r *readingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.WithConn(ctx, func(conn *gorm.DB) error {
		return conn.
			Model(&models.ReadingRecord{}).
			Count(&count).
			Error
	})
	if err != nil {
		return 0, wrapStorage("count readings", err)
	}
	return count, nil
}
