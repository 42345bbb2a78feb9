package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/floe-data/drift.report/internal/field"
	"github.com/floe-data/drift.report/internal/grid"
	"github.com/floe-data/drift.report/internal/units"
)

// maxFileSize caps dataset files read into memory (256MB).
const maxFileSize = 256 * 1024 * 1024

// fileSchema is the on-disk JSON layout for a gridded velocity stack.
// NetCDF/GeoTIFF conversion happens upstream; this is the plain
// interchange format the tools in cmd/ emit and consume.
type fileSchema struct {
	Name      string        `json:"name,omitempty"`
	CRS       string        `json:"crs,omitempty"`
	TimeUnits string        `json:"time_units"`
	X         []float64     `json:"x"`
	Y         []float64     `json:"y"`
	Slices    []sliceSchema `json:"slices"`
}

// Missing cells are carried as null, since JSON cannot represent the NaN
// the in-memory grids use.
type sliceSchema struct {
	Time   float64               `json:"time"`
	Fields map[string][]*float64 `json:"fields"`
}

func toValues(vs []*float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	return out
}

func fromValues(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		if !math.IsNaN(v) {
			v := v
			out[i] = &v
		}
	}
	return out
}

// Dataset is a loaded velocity product: a validated time-slice series with
// its identifying metadata. Slice timestamps are converted to the internal
// time axis (days since J2000) at load.
type Dataset struct {
	Name   string
	CRS    string
	Base   units.TimeBase
	Series *field.Series
}

// LoadSeries reads and validates a gridded dataset file. All structural
// errors (bad axes, shape mismatches, unparseable time base) surface here,
// before the series reaches the core.
func LoadSeries(path string) (*Dataset, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("dataset file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("dataset file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var schema fileSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}
	return buildDataset(&schema)
}

func buildDataset(schema *fileSchema) (*Dataset, error) {
	if len(schema.Slices) == 0 {
		return nil, fmt.Errorf("dataset has no time slices")
	}
	base, err := units.Parse(schema.TimeUnits)
	if err != nil {
		return nil, err
	}

	slices := make([]field.TimeSlice, 0, len(schema.Slices))
	for i, sl := range schema.Slices {
		g, err := grid.New(schema.X, schema.Y)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		if len(sl.Fields) == 0 {
			return nil, fmt.Errorf("slice %d: no fields", i)
		}
		for name, values := range sl.Fields {
			if err := g.AddField(name, toValues(values)); err != nil {
				return nil, fmt.Errorf("slice %d: %w", i, err)
			}
		}
		slices = append(slices, field.TimeSlice{Time: base.ToDays(sl.Time), Grid: g})
	}
	series, err := field.NewSeries(slices...)
	if err != nil {
		return nil, err
	}
	return &Dataset{Name: schema.Name, CRS: schema.CRS, Base: base, Series: series}, nil
}

// SaveSeries writes a series back out in the interchange format, with
// timestamps expressed in the given time base.
func SaveSeries(path string, d *Dataset) error {
	schema := fileSchema{
		Name:      d.Name,
		CRS:       d.CRS,
		TimeUnits: timeUnitsString(d.Base),
		X:         d.Series.Slice(0).Grid.Xs(),
		Y:         d.Series.Slice(0).Grid.Ys(),
	}
	for i := 0; i < d.Series.Len(); i++ {
		ts := d.Series.Slice(i)
		fields := make(map[string][]*float64)
		for _, name := range ts.Grid.FieldNames() {
			values, _ := ts.Grid.Field(name)
			fields[name] = fromValues(values)
		}
		schema.Slices = append(schema.Slices, sliceSchema{
			Time:   d.Base.FromDays(ts.Time),
			Fields: fields,
		})
	}
	data, err := json.MarshalIndent(&schema, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func timeUnitsString(b units.TimeBase) string {
	unit := units.Days
	switch b.Scale {
	case 1:
		unit = units.Seconds
	case 3600:
		unit = units.Hours
	}
	return fmt.Sprintf("%s since %s", unit, b.Epoch.Format("2006-01-02T15:04:05"))
}
