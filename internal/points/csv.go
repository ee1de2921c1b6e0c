package points

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/city-weather/internal/weather"
)

// Column names expected in the header row.
const (
	ColumnName      = "capital"
	ColumnCountry   = "country"
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
)

var (
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidRow is returned for a row with an empty or malformed field.
	ErrInvalidRow = errors.New("invalid row")
)

var validate = validator.New()

// CSVSource loads points from a delimited file with a header row.
type CSVSource struct {
	Path  string
	Comma rune
}

// NewCSVSource creates a CSVSource. A zero comma means ','.
func NewCSVSource(path string, comma rune) *CSVSource {
	return &CSVSource{Path: path, Comma: comma}
}

// Load reads and validates every row. The file is re-read on each call so
// edits are picked up by the next refresh.
func (s *CSVSource) Load(ctx context.Context) ([]weather.GeoPoint, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open points file: %w", err)
	}
	defer f.Close()

	return Parse(ctx, f, s.Comma)
}

// Parse reads points from r.
func Parse(ctx context.Context, r io.Reader, comma rune) ([]weather.GeoPoint, error) {
	reader := csv.NewReader(r)
	if comma != 0 {
		reader.Comma = comma
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: file is empty", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var out []weather.GeoPoint
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		p, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, p)
	}

	return out, nil
}

type columns struct {
	name, country, lat, lon int
}

func indexColumns(header []string) (columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	lookup := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		return i, nil
	}

	var c columns
	var err error
	if c.name, err = lookup(ColumnName); err != nil {
		return c, err
	}
	if c.country, err = lookup(ColumnCountry); err != nil {
		return c, err
	}
	if c.lat, err = lookup(ColumnLatitude); err != nil {
		return c, err
	}
	if c.lon, err = lookup(ColumnLongitude); err != nil {
		return c, err
	}
	return c, nil
}

func parseRecord(record []string, c columns) (weather.GeoPoint, error) {
	field := func(i int) string {
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	lat, err := strconv.ParseFloat(field(c.lat), 64)
	if err != nil {
		return weather.GeoPoint{}, fmt.Errorf("%w: latitude %q is not a number", ErrInvalidRow, field(c.lat))
	}
	lon, err := strconv.ParseFloat(field(c.lon), 64)
	if err != nil {
		return weather.GeoPoint{}, fmt.Errorf("%w: longitude %q is not a number", ErrInvalidRow, field(c.lon))
	}

	p := weather.GeoPoint{
		Name:      field(c.name),
		Country:   field(c.country),
		Latitude:  lat,
		Longitude: lon,
	}
	if err := validate.Struct(p); err != nil {
		return weather.GeoPoint{}, fmt.Errorf("%w: %v", ErrInvalidRow, err)
	}
	return p, nil
}
