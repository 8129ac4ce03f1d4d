package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"sensorgrid/internal/repository"
	"sensorgrid/internal/service"
	"sensorgrid/pkg/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	batchIDHeader     = "X-Batch-ID"
	jsonContentType   = "application/json; charset=utf-8"
	serializationBody = "Error creating JSON response"
)

// marshalIndent is swapped in tests to force a rendering failure.
var marshalIndent = json.MarshalIndent

type SensorHandler struct {
	service service.SensorService
	log     *zap.Logger
}

func NewSensorHandler(service service.SensorService, log *zap.Logger) *SensorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SensorHandler{service: service, log: log.Named("http")}
}

// GenerateSensorData godoc
// @Summary Generate and store one batch of sensor readings
// @Tags Sensors
// @Produce json
// @Success 200 {object} models.ReadingBatch
// @Failure 500 {string} string
// @Failure 503 {string} string
// @Router /GenerateSensorData [get]
// @Router /v1/sensors/generate [post]
func (h *SensorHandler) GenerateSensorData(c *gin.Context) {
	// A client hanging up must not abort the write halfway.
	ctx := context.WithoutCancel(c.Request.Context())

	batch, err := h.service.GenerateAndStore(ctx, service.TriggerOnDemand)
	if err != nil {
		h.renderError(c, "generate", err)
		return
	}

	c.Header(batchIDHeader, batch.ID)
	h.renderPretty(c, http.StatusOK, batch)
}

// GetAllSensorReadings godoc
// @Summary List every stored reading
// @Tags Sensors
// @Produce json
// @Success 200 {object} ReadingsResponse
// @Failure 500 {string} string
// @Router /GetAllSensorReadings [get]
// @Router /v1/readings [get]
func (h *SensorHandler) GetAllSensorReadings(c *gin.Context) {
	records, err := h.service.ListReadings(c.Request.Context())
	if err != nil {
		h.renderError(c, "list", err)
		return
	}
	h.renderPretty(c, http.StatusOK, ReadingsResponse{SensorReadings: records})
}

// ClearSensorReadings godoc
// @Summary Delete every stored reading
// @Tags Sensors
// @Produce json
// @Success 200 {object} ClearResponse
// @Failure 500 {string} string
// @Router /ClearSensorReadings [get]
// @Router /v1/readings [delete]
func (h *SensorHandler) ClearSensorReadings(c *gin.Context) {
	deleted, err := h.service.ClearReadings(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		h.renderError(c, "clear", err)
		return
	}
	h.renderPretty(c, http.StatusOK, ClearResponse{DeletedRows: deleted})
}

// GetLatestBatch godoc
// @Summary Last committed batch
// @Tags Sensors
// @Produce json
// @Success 200 {object} service.LatestBatch
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /v1/sensors/latest [get]
func (h *SensorHandler) GetLatestBatch(c *gin.Context) {
	latest, err := h.service.LatestBatch(c.Request.Context())
	switch {
	case errors.Is(err, service.ErrCacheDisabled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "cache disabled", Message: err.Error()})
		return
	case errors.Is(err, service.ErrNoLatestBatch):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Message: err.Error()})
		return
	case err != nil:
		h.log.Error("failed to read latest batch", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read latest batch", Message: err.Error()})
		return
	}

	c.Header(batchIDHeader, latest.BatchID)
	c.JSON(http.StatusOK, latest)
}

// ExportReadings godoc
// @Summary Export stored readings as a file
// @Tags Sensors
// @Param format query string false "csv or xlsx" default(csv)
// @Produce octet-stream
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/readings/export [get]
func (h *SensorHandler) ExportReadings(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	file, err := h.service.ExportReadings(c.Request.Context(), format)
	switch {
	case errors.Is(err, service.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported format, use 'csv' or 'xlsx'", Message: err.Error()})
		return
	case errors.Is(err, service.ErrNoData):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no data", Message: err.Error()})
		return
	case err != nil:
		status, msg := errorStatus(err)
		h.log.Error("export failed", zap.Error(err))
		c.JSON(status, ErrorResponse{Error: "failed to export readings", Message: msg})
		return
	}

	defer func() {
		if err := os.Remove(file.Path); err != nil {
			h.log.Warn("failed to remove served export", zap.String("path", file.Path), zap.Error(err))
		}
	}()

	c.Header("Content-Type", file.ContentType)
	c.FileAttachment(file.Path, file.Name)
}

// renderPretty writes v as indented JSON. A value that cannot be encoded
// yields a 500 with a fixed body, distinct from storage failures.
func (h *SensorHandler) renderPretty(c *gin.Context, status int, v interface{}) {
	body, err := marshalIndent(v, "", "  ")
	if err != nil {
		h.log.Error("failed to render response", zap.Error(err))
		c.String(http.StatusInternalServerError, serializationBody)
		return
	}
	c.Data(status, jsonContentType, body)
}

// renderError writes err as a plain-text body.
func (h *SensorHandler) renderError(c *gin.Context, op string, err error) {
	status, msg := errorStatus(err)
	h.log.Error("request failed", zap.String("op", op), zap.Int("status", status), zap.Error(err))
	c.String(status, msg)
}

func errorStatus(err error) (int, string) {
	var storageErr *repository.StorageError
	switch {
	case errors.Is(err, database.ErrPoolExhausted):
		return http.StatusServiceUnavailable, "Database Busy: " + err.Error()
	case errors.Is(err, database.ErrConfiguration):
		return http.StatusInternalServerError, "Configuration Error: " + err.Error()
	case errors.As(err, &storageErr):
		return http.StatusInternalServerError, "SQL Error: " + storageErr.Err.Error()
	default:
		return http.StatusInternalServerError, "Internal Error: " + err.Error()
	}
}
