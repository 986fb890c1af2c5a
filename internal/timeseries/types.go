// Package timeseries implements the multi-resolution time-series store:
// a catalog of series identities, a raw table plus per-level rollup
// tables, write/query with gap-fill, a downsample task queue, and a
// retention sweep.
package timeseries

import (
	"math"
	"strings"
	"time"

	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
)

// Quality tags a point's trustworthiness.
type Quality string

const (
	QualityGood          Quality = "good"
	QualityQuestionable  Quality = "questionable"
	QualityBad           Quality = "bad"
	QualityMissing       Quality = "missing"
	QualityInterpolated  Quality = "interpolated"
)

// DataType classifies how a series' values should be interpreted for
// aggregation.
type DataType string

const (
	DataTypeInstantaneous DataType = "instantaneous"
	DataTypeAccumulated   DataType = "accumulated"
	DataTypeAverage       DataType = "average"
	DataTypeTotal         DataType = "total"
	DataTypeBoolean       DataType = "boolean"
	DataTypeEnum          DataType = "enum"
)

// FillMethod controls gap-fill densification on query.
type FillMethod string

const (
	FillNone     FillMethod = "none"
	FillForward  FillMethod = "forward"
	FillBackward FillMethod = "backward"
	FillLinear   FillMethod = "linear"
	FillConstant FillMethod = "constant"
)

// AggregationLevel is one rung of the resolution ladder. Raw has
// Duration 0.
type AggregationLevel struct {
	Name     string
	Duration time.Duration
}

var (
	LevelRaw = AggregationLevel{Name: "raw", Duration: 0}
	Level1m  = AggregationLevel{Name: "1m", Duration: time.Minute}
	Level5m  = AggregationLevel{Name: "5m", Duration: 5 * time.Minute}
	Level15m = AggregationLevel{Name: "15m", Duration: 15 * time.Minute}
	Level1h  = AggregationLevel{Name: "1h", Duration: time.Hour}
	Level6h  = AggregationLevel{Name: "6h", Duration: 6 * time.Hour}
	Level1d  = AggregationLevel{Name: "1d", Duration: 24 * time.Hour}
	Level1w  = AggregationLevel{Name: "1w", Duration: 7 * 24 * time.Hour}
	Level1mo = AggregationLevel{Name: "1mo", Duration: 30 * 24 * time.Hour}
)

// Levels is the full ladder in coarsening order, excluding Raw.
var Levels = []AggregationLevel{Level1m, Level5m, Level15m, Level1h, Level6h, Level1d, Level1w, Level1mo}

// AggFunc names a rollup aggregation function a query can request.
type AggFunc string

const (
	AggAverage AggFunc = "avg"
	AggMin     AggFunc = "min"
	AggMax     AggFunc = "max"
	AggSum     AggFunc = "sum"
	AggCount   AggFunc = "count"
	AggFirst   AggFunc = "first"
	AggLast    AggFunc = "last"
)

// SeriesKey is the (location_id, parameter, qualifier?) identity,
// rendered as a single "|"-joined string.
type SeriesKey struct {
	LocationID string
	Parameter  string
	Qualifier  string // optional, empty if unset
}

// String renders the key in its canonical wire form.
func (k SeriesKey) String() string {
	if k.Qualifier == "" {
		return k.LocationID + "|" + k.Parameter
	}
	return k.LocationID + "|" + k.Parameter + "|" + k.Qualifier
}

// ParseSeriesKey parses the canonical "|"-joined form back into a
// SeriesKey.
func ParseSeriesKey(s string) (SeriesKey, error) {
	parts := strings.Split(s, "|")
	if len(parts) < 2 || len(parts) > 3 {
		return SeriesKey{}, domain.Invalidf("malformed series key %q", s)
	}
	k := SeriesKey{LocationID: parts[0], Parameter: parts[1]}
	if len(parts) == 3 {
		k.Qualifier = parts[2]
	}
	return k, nil
}

// Point is a single time-series observation.
type Point struct {
	Timestamp time.Time
	Value     float64
	Quality   Quality
}

// IsValid reports whether the point is finite and of an acceptable
// quality for write/aggregation purposes.
func (p Point) IsValid() bool {
	if !isFinite(p.Value) {
		return false
	}
	switch p.Quality {
	case QualityGood, QualityQuestionable, QualityInterpolated:
		return true
	default:
		return false
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CatalogEntry is the metadata record for one series key.
type CatalogEntry struct {
	Key         SeriesKey
	DisplayName string
	Units       string
	DataType    DataType
	SourceType  string
	MinBound    *float64
	MaxBound    *float64
	RetentionDays int
	FirstTS     time.Time
	LastTS      time.Time
	Count       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const wireTimestampLayout = "2006-01-02 15:04:05.000000"

// FormatTimestamp renders a timestamp in the persisted wire format:
// `YYYY-MM-DD HH:MM:SS.ffffff` UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(wireTimestampLayout)
}

// ParseTimestamp parses the wire format produced by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(wireTimestampLayout, s)
	if err != nil {
		return time.Time{}, domain.Invalidf("malformed timestamp %q: %v", s, err)
	}
	return t.UTC(), nil
}
