package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the sensor and health endpoints under /api. The
// un-versioned names are kept for existing clients.
func RegisterRoutes(r gin.IRouter, sensors *SensorHandler, health *HealthHandler) {
	api := r.Group("/api")
	api.GET("/GenerateSensorData", sensors.GenerateSensorData)
	api.POST("/GenerateSensorData", sensors.GenerateSensorData)
	api.GET("/GetAllSensorReadings", sensors.GetAllSensorReadings)
	api.GET("/ClearSensorReadings", sensors.ClearSensorReadings)

	v1 := api.Group("/v1")
	v1.GET("/sensors/generate", sensors.GenerateSensorData)
	v1.POST("/sensors/generate", sensors.GenerateSensorData)
	v1.GET("/sensors/latest", sensors.GetLatestBatch)
	v1.GET("/readings", sensors.GetAllSensorReadings)
	v1.DELETE("/readings", sensors.ClearSensorReadings)
	v1.GET("/readings/export", sensors.ExportReadings)
	v1.GET("/health", health.HealthCheck)
}
