// Package datasource replays recorded telemetry sequences from CSV files.
package datasource

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ukydev/road-monitor/internal/models"
)

// FileDatasource merges three recorded sequences (accelerometer, GPS,
// parking) into a stream of readings. Each sequence advances independently
// and cycles back to its first data row when exhausted, so a short GPS trace
// repeats under a longer accelerometer trace.
type FileDatasource struct {
	accelerometerFilename string
	gpsFilename           string
	parkingFilename       string

	userID int64

	accelerometerData  [][]string
	gpsData            [][]string
	parkingData        [][]string
	accelerometerIndex int
	gpsIndex           int
	parkingIndex       int

	started bool
}

// New creates a datasource over the given recordings. Readings are stamped
// with userID as the reporting agent.
func New(accelerometerFilename, gpsFilename, parkingFilename string, userID int64) *FileDatasource {
	return &FileDatasource{
		accelerometerFilename: accelerometerFilename,
		gpsFilename:           gpsFilename,
		parkingFilename:       parkingFilename,
		userID:                userID,
	}
}

// Start loads all three recordings into memory. Each file must have a header
// row and at least one data row.
func (d *FileDatasource) Start() error {
	var err error
	if d.accelerometerData, err = loadCSV(d.accelerometerFilename); err != nil {
		return err
	}
	if d.gpsData, err = loadCSV(d.gpsFilename); err != nil {
		return err
	}
	if d.parkingData, err = loadCSV(d.parkingFilename); err != nil {
		return err
	}
	// Index 1 skips the header row; cycling resets here as well.
	d.accelerometerIndex = 1
	d.gpsIndex = 1
	d.parkingIndex = 1
	d.started = true
	return nil
}

// Read returns the next merged reading, timestamped now. Safe to call
// repeatedly after a single Start.
func (d *FileDatasource) Read() (models.AgentData, error) {
	if !d.started {
		return models.AgentData{}, fmt.Errorf("datasource not started")
	}

	accelerometerRow := d.accelerometerData[d.accelerometerIndex]
	d.accelerometerIndex++
	if d.accelerometerIndex == len(d.accelerometerData) {
		d.accelerometerIndex = 1
	}
	gpsRow := d.gpsData[d.gpsIndex]
	d.gpsIndex++
	if d.gpsIndex == len(d.gpsData) {
		d.gpsIndex = 1
	}

	accelerometer, err := parseAccelerometerRow(accelerometerRow)
	if err != nil {
		return models.AgentData{}, err
	}
	gps, err := parseGpsRow(gpsRow)
	if err != nil {
		return models.AgentData{}, err
	}

	return models.AgentData{
		UserID:        d.userID,
		Accelerometer: accelerometer,
		Gps:           gps,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// ReadParking returns the next parking marker, cycling independently of Read.
func (d *FileDatasource) ReadParking() (models.Parking, error) {
	if !d.started {
		return models.Parking{}, fmt.Errorf("datasource not started")
	}

	row := d.parkingData[d.parkingIndex]
	d.parkingIndex++
	if d.parkingIndex == len(d.parkingData) {
		d.parkingIndex = 1
	}
	return parseParkingRow(row)
}

// Stop releases the loaded recordings.
func (d *FileDatasource) Stop() {
	d.accelerometerData = nil
	d.gpsData = nil
	d.parkingData = nil
	d.started = false
}

func loadCSV(filename string) ([][]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: need a header and at least one data row", filename)
	}
	return rows, nil
}

func parseAccelerometerRow(row []string) (models.Accelerometer, error) {
	values, err := parseFloats(row, 3)
	if err != nil {
		return models.Accelerometer{}, fmt.Errorf("accelerometer row: %w", err)
	}
	return models.Accelerometer{X: values[0], Y: values[1], Z: values[2]}, nil
}

func parseGpsRow(row []string) (models.Gps, error) {
	values, err := parseFloats(row, 2)
	if err != nil {
		return models.Gps{}, fmt.Errorf("gps row: %w", err)
	}
	return models.Gps{Latitude: values[0], Longitude: values[1]}, nil
}

func parseParkingRow(row []string) (models.Parking, error) {
	values, err := parseFloats(row, 3)
	if err != nil {
		return models.Parking{}, fmt.Errorf("parking row: %w", err)
	}
	return models.Parking{
		EmptyCount: int(values[0]),
		Gps:        models.Gps{Latitude: values[1], Longitude: values[2]},
	}, nil
}

func parseFloats(row []string, n int) ([]float64, error) {
	if len(row) < n {
		return nil, fmt.Errorf("expected %d fields, got %d", n, len(row))
	}
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}
