package models

// ReadingRecord is a persisted row of the SensorReadings table.
type ReadingRecord struct {
	ReadingID   uint `gorm:"column:readingID;primaryKey;autoIncrement" json:"readingID"`
	SensorID    int  `gorm:"column:sensorID;not null" json:"sensorID"`
	Temperature int  `gorm:"column:temp;not null" json:"temp"`
	WindSpeed   int  `gorm:"column:wind;not null" json:"wind"`
	Humidity    int  `gorm:"column:humidity;not null" json:"humidity"`
	CO2Level    int  `gorm:"column:co2;not null" json:"co2"`
}

func (ReadingRecord) TableName() string {
	return "SensorReadings"
}

// NewReadingRecords maps generated readings to rows, preserving order.
func NewReadingRecords(readings []SensorReading) []ReadingRecord {
	records := make([]ReadingRecord, 0, len(readings))
	for _, r := range readings {
		records = append(records, ReadingRecord{
			SensorID:    r.SensorID,
			Temperature: r.Temperature,
			WindSpeed:   r.WindSpeed,
			Humidity:    r.Humidity,
			CO2Level:    r.CO2Level,
		})
	}
	return records
}

// Reading returns the measurement part of the row.
func (r ReadingRecord) Reading() SensorReading {
	return SensorReading{
		SensorID:    r.SensorID,
		Temperature: r.Temperature,
		WindSpeed:   r.WindSpeed,
		Humidity:    r.Humidity,
		CO2Level:    r.CO2Level,
	}
}
