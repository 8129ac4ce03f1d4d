package models

// SensorsPerBatch is the number of sensors simulated by one generation call.
const SensorsPerBatch = 20

// Bound is a closed integer range.
type Bound struct {
	Min int
	Max int
}

// Clamp forces v into [Min, Max].
func (b Bound) Clamp(v int) int {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Contains reports whether v lies within [Min, Max].
func (b Bound) Contains(v int) bool {
	return v >= b.Min && v <= b.Max
}

// Valid bands for every measurement.
var (
	TemperatureBound = Bound{Min: 5, Max: 18}
	WindSpeedBound   = Bound{Min: 12, Max: 24}
	HumidityBound    = Bound{Min: 30, Max: 60}
	CO2Bound         = Bound{Min: 400, Max: 1600}
)

// SensorReading is one generated measurement set. It has no identity until
// it is persisted as a ReadingRecord.
type SensorReading struct {
	SensorID    int `json:"sensorID"`
	Temperature int `json:"temperature"`
	WindSpeed   int `json:"windSpeed"`
	Humidity    int `json:"humidity"`
	CO2Level    int `json:"co2Level"`
}

// InBounds reports whether every field lies within its valid band.
func (r SensorReading) InBounds() bool {
	return TemperatureBound.Contains(r.Temperature) &&
		WindSpeedBound.Contains(r.WindSpeed) &&
		HumidityBound.Contains(r.Humidity) &&
		CO2Bound.Contains(r.CO2Level)
}

// Baseline is the shared weather drawn once per batch.
type Baseline struct {
	Temperature int
	WindSpeed   int
	Humidity    int
	CO2Level    int
}

// ReadingBatch is the ordered output of one generation call.
type ReadingBatch struct {
	ID       string          `json:"-"`
	Readings []SensorReading `json:"sensors"`
}

// Len returns the number of readings in the batch.
func (b *ReadingBatch) Len() int {
	return len(b.Readings)
}
