package utils

import (
	"fmt"
	"time"

	"sensorgrid/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	readingsSheet = "Readings"
	infoSheet     = "Info"

	// co2AlertLevel highlights rows whose CO2 reading is above this level.
	co2AlertLevel = 1200
)

var readingHeaders = []string{"Reading ID", "Sensor ID", "Temperature", "Wind Speed", "Humidity", "CO2 Level"}

// CreateReadingsWorkbook writes records to an xlsx file at path with a data
// sheet, a CO2 chart and a summary sheet.
func CreateReadingsWorkbook(path string, records []models.ReadingRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", readingsSheet); err != nil {
		return err
	}

	for i, header := range readingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(readingsSheet, cell, header); err != nil {
			return err
		}
	}

	for rowIdx, r := range records {
		row := []interface{}{r.ReadingID, r.SensorID, r.Temperature, r.WindSpeed, r.Humidity, r.CO2Level}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(readingsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", rowIdx+2, err)
		}
	}

	for i := 1; i <= len(readingHeaders); i++ {
		col, _ := excelize.ColumnNumberToName(i)
		f.SetColWidth(readingsSheet, col, col, 14) //nolint:errcheck
	}

	if len(records) > 0 {
		last := len(records) + 1
		alert := []excelize.ConditionalFormatOptions{
			{
				Type:     "cell",
				Criteria: ">",
				Value:    fmt.Sprintf("%d", co2AlertLevel),
				Format:   fillStyle(f, "#FFCCCC"),
			},
		}
		if err := f.SetConditionalFormat(readingsSheet, fmt.Sprintf("F2:F%d", last), alert); err != nil {
			return err
		}
	}

	if len(records) > 1 {
		if err := addCO2Chart(f, len(records)); err != nil {
			return err
		}
	}

	if err := writeInfoSheet(f, records); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.SaveAs(path)
}

func addCO2Chart(f *excelize.File, rows int) error {
	last := rows + 1
	return f.AddChart(readingsSheet, "H2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			{
				Name:       "CO2 Level",
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", readingsSheet, last),
				Values:     fmt.Sprintf("%s!$F$2:$F$%d", readingsSheet, last),
			},
		},
		Title:     []excelize.RichTextRun{{Text: "CO2 Level by Reading"}},
		XAxis:     excelize.ChartAxis{MajorGridLines: true},
		YAxis:     excelize.ChartAxis{MajorGridLines: true},
		Dimension: excelize.ChartDimension{Width: 600, Height: 400},
	})
}

func writeInfoSheet(f *excelize.File, records []models.ReadingRecord) error {
	if _, err := f.NewSheet(infoSheet); err != nil {
		return err
	}

	rows := [][2]interface{}{
		{"Report Generated", time.Now().UTC().Format("2006-01-02 15:04:05")},
		{"Total Records", len(records)},
	}
	if len(records) > 0 {
		rows = append(rows,
			[2]interface{}{"Temperature Range", spread(records, func(r models.ReadingRecord) int { return r.Temperature })},
			[2]interface{}{"Wind Speed Range", spread(records, func(r models.ReadingRecord) int { return r.WindSpeed })},
			[2]interface{}{"Humidity Range", spread(records, func(r models.ReadingRecord) int { return r.Humidity })},
			[2]interface{}{"CO2 Level Range", spread(records, func(r models.ReadingRecord) int { return r.CO2Level })},
		)
	}

	for i, kv := range rows {
		if err := f.SetCellValue(infoSheet, fmt.Sprintf("A%d", i+1), kv[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(infoSheet, fmt.Sprintf("B%d", i+1), kv[1]); err != nil {
			return err
		}
	}
	return f.SetColWidth(infoSheet, "A", "B", 22)
}

// spread formats the min and max of one field as "min - max".
func spread(records []models.ReadingRecord, field func(models.ReadingRecord) int) string {
	lo, hi := field(records[0]), field(records[0])
	for _, r := range records[1:] {
		v := field(r)
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return fmt.Sprintf("%d - %d", lo, hi)
}

func fillStyle(f *excelize.File, color string) *int {
	style, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{color},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil
	}
	return &style
}
