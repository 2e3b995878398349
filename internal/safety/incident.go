// Package safety turns geolocated incident records into a hexagonal grid of
// safety scores and uses that grid to score and rank candidate routes.
package safety

import (
	"time"

	"github.com/rotisserie/eris"
)

// TimeBucket partitions incidents by time of day.
type TimeBucket string

const (
	BucketDay     TimeBucket = "day"
	BucketNight   TimeBucket = "night"
	BucketUnknown TimeBucket = "unknown"

	// BucketOverall is a lookup-only bucket: the mean of day and night.
	// Incidents are never aggregated into it directly.
	BucketOverall TimeBucket = "overall"
)

// Incident is one geolocated incident record. Immutable once loaded.
type Incident struct {
	Latitude     float64
	Longitude    float64
	Severity     int // 1-10 scale
	IncidentDate time.Time
	TimeFrom     string // clock time, "15:04:05" or "15:04"
	Category     string
}

// Bucket classifies the incident by its clock hour: [6,22) is day, the rest
// of the parseable hours are night, anything unparseable is unknown.
func (i Incident) Bucket() TimeBucket {
	return BucketForClock(i.TimeFrom)
}

var clockLayouts = []string{"15:04:05", "15:04"}

// BucketForClock maps a clock-time string to a TimeBucket.
func BucketForClock(clock string) TimeBucket {
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, clock); err == nil {
			if h := t.Hour(); h >= 6 && h < 22 {
				return BucketDay
			}
			return BucketNight
		}
	}
	return BucketUnknown
}

// ParseBucket parses a caller-supplied bucket name. Empty defaults to
// overall; unknown is not addressable from the outside.
func ParseBucket(s string) (TimeBucket, error) {
	switch TimeBucket(s) {
	case "":
		return BucketOverall, nil
	case BucketDay, BucketNight, BucketOverall:
		return TimeBucket(s), nil
	default:
		return "", eris.Errorf("safety: unknown time bucket %q", s)
	}
}
