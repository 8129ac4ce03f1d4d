package handlers

import "sensorgrid/internal/models"

// ReadingsResponse is the body of the list endpoint.
type ReadingsResponse struct {
	SensorReadings []models.ReadingRecord `json:"sensorReadings"`
}

// ClearResponse is the body of the clear endpoint.
type ClearResponse struct {
	DeletedRows int64 `json:"deletedRows"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Database  DatabaseHealth         `json:"database"`
	Services  map[string]interface{} `json:"services"`
	Timestamp string                 `json:"timestamp"`
}

type DatabaseHealth struct {
	Ready     bool   `json:"ready"`
	Driver    string `json:"driver,omitempty"`
	MaxOpen   int    `json:"maxOpen"`
	Open      int    `json:"open"`
	InUse     int    `json:"inUse"`
	Idle      int    `json:"idle"`
	WaitCount int64  `json:"waitCount"`
}

// ErrorResponse is the JSON error body of the v1 endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
