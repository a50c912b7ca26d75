package prior

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultServicePrefix = "service_"
	DefaultHourColumn    = "hour"
	DefaultOutcomeColumn = "Booked"
)

// DatasetOptions names the columns LoadCSV looks for.
type DatasetOptions struct {
	ServicePrefix string
	HourColumn    string
	OutcomeColumn string
}

// DefaultDatasetOptions returns the column layout of the compiled history CSV.
func DefaultDatasetOptions() DatasetOptions {
	return DatasetOptions{
		ServicePrefix: DefaultServicePrefix,
		HourColumn:    DefaultHourColumn,
		OutcomeColumn: DefaultOutcomeColumn,
	}
}

// Row is one historical slot instance.
type Row struct {
	Services map[string]bool
	Hour     int
	Full     bool
}

// Dataset is the historical observation table.
type Dataset struct {
	// Services lists service names in column order.
	Services []string
	Rows     []Row
}

// LoadCSVFile opens path and parses it with LoadCSV.
func LoadCSVFile(path string, opts DatasetOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return LoadCSV(f, opts)
}

// LoadCSV parses a historical dataset. Columns starting with the service
// prefix are one-hot service indicators; the hour and outcome columns are
// required. Any other column is ignored.
func LoadCSV(r io.Reader, opts DatasetOptions) (*Dataset, error) {
	if opts.ServicePrefix == "" {
		opts.ServicePrefix = DefaultServicePrefix
	}
	if opts.HourColumn == "" {
		opts.HourColumn = DefaultHourColumn
	}
	if opts.OutcomeColumn == "" {
		opts.OutcomeColumn = DefaultOutcomeColumn
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: dataset is empty", ErrConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	hourIdx, outcomeIdx := -1, -1
	serviceIdx := map[int]string{}
	ds := &Dataset{}
	for i, col := range header {
		col = strings.TrimSpace(col)
		switch {
		case col == opts.HourColumn:
			hourIdx = i
		case col == opts.OutcomeColumn:
			outcomeIdx = i
		case strings.HasPrefix(col, opts.ServicePrefix) && len(col) > len(opts.ServicePrefix):
			name := strings.TrimPrefix(col, opts.ServicePrefix)
			serviceIdx[i] = name
			ds.Services = append(ds.Services, name)
		}
	}
	if hourIdx < 0 {
		return nil, fmt.Errorf("%w: required column %q not found", ErrConfiguration, opts.HourColumn)
	}
	if outcomeIdx < 0 {
		return nil, fmt.Errorf("%w: required column %q not found", ErrConfiguration, opts.OutcomeColumn)
	}
	if len(ds.Services) == 0 {
		return nil, fmt.Errorf("%w: no %s* columns found", ErrConfiguration, opts.ServicePrefix)
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row := Row{
			Services: make(map[string]bool, len(serviceIdx)),
			Hour:     parseHour(cell(rec, hourIdx)),
			Full:     parseFlag(cell(rec, outcomeIdx)),
		}
		for i, name := range serviceIdx {
			if parseFlag(cell(rec, i)) {
				row.Services[name] = true
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parseHour coerces the hour cell; unparseable values count as hour 0.
func parseHour(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// parseFlag accepts TRUE/FALSE in any case and numeric 1/0. Anything else is false.
func parseFlag(s string) bool {
	switch strings.ToUpper(s) {
	case "TRUE":
		return true
	case "FALSE", "":
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f != 0
}
