package safety

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wireless-wizards/saferoute/internal/hexgrid"
)

// BucketKey addresses one (cell, time bucket) pair.
type BucketKey struct {
	Cell   hexgrid.Cell
	Bucket TimeBucket
}

// Aggregate holds the per-(cell, bucket) incident summary. SumSeverity is
// kept instead of the mean so partial aggregates merge associatively.
type Aggregate struct {
	Count       int
	SumSeverity float64
	MaxSeverity float64

	// Anchor is the coordinate of the first incident observed for this key.
	// It stands in for the cell centroid when available.
	AnchorLat float64
	AnchorLon float64
}

// AvgSeverity returns the mean severity over the aggregated incidents.
func (a *Aggregate) AvgSeverity() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.SumSeverity / float64(a.Count)
}

// AggregateSet is the output of one aggregation pass.
type AggregateSet struct {
	ByKey map[BucketKey]*Aggregate

	Total   int // incidents examined
	Skipped int // invalid coordinates, excluded entirely
	Unknown int // unparseable clock time, excluded from day/night scoring
}

// Aggregator assigns incidents to (cell, bucket) pairs and summarizes them.
type Aggregator struct {
	indexer *hexgrid.Indexer
	workers int
}

// NewAggregator creates an Aggregator. workers <= 0 uses GOMAXPROCS.
func NewAggregator(ix *hexgrid.Indexer, workers int) *Aggregator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Aggregator{indexer: ix, workers: workers}
}

// Aggregate groups incidents by (cell, bucket) in a single data-parallel
// pass: the input is partitioned across workers, each builds a partial map,
// and the partials are merged in partition order. Count, severity sum, and
// max merge associatively; the anchor keeps the earliest partition's first
// observation so repeated runs over the same slice are stable.
func (ag *Aggregator) Aggregate(ctx context.Context, incidents []Incident) (*AggregateSet, error) {
	workers := ag.workers
	if workers > len(incidents) {
		workers = 1
	}

	partials := make([]*AggregateSet, workers)
	chunk := (len(incidents) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, len(incidents))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[w] = ag.aggregateChunk(incidents[start:end])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &AggregateSet{ByKey: make(map[BucketKey]*Aggregate)}
	for _, p := range partials {
		if p == nil {
			continue
		}
		out.merge(p)
	}

	zap.L().Info("aggregated incidents",
		zap.Int("total", out.Total),
		zap.Int("skipped_invalid", out.Skipped),
		zap.Int("unknown_time", out.Unknown),
		zap.Int("cell_buckets", len(out.ByKey)),
	)
	return out, nil
}

func (ag *Aggregator) aggregateChunk(incidents []Incident) *AggregateSet {
	set := &AggregateSet{ByKey: make(map[BucketKey]*Aggregate)}
	for _, inc := range incidents {
		set.Total++

		cell, err := ag.indexer.PointToCell(inc.Latitude, inc.Longitude)
		if err != nil {
			set.Skipped++
			continue
		}

		bucket := inc.Bucket()
		if bucket == BucketUnknown {
			set.Unknown++
			continue
		}

		key := BucketKey{Cell: cell, Bucket: bucket}
		agg, ok := set.ByKey[key]
		if !ok {
			agg = &Aggregate{AnchorLat: inc.Latitude, AnchorLon: inc.Longitude}
			set.ByKey[key] = agg
		}
		agg.Count++
		agg.SumSeverity += float64(inc.Severity)
		agg.MaxSeverity = max(agg.MaxSeverity, float64(inc.Severity))
	}
	return set
}

// merge folds a partial set into the receiver, keeping the receiver's anchor
// when both sides saw the same key.
func (s *AggregateSet) merge(p *AggregateSet) {
	s.Total += p.Total
	s.Skipped += p.Skipped
	s.Unknown += p.Unknown
	for key, agg := range p.ByKey {
		existing, ok := s.ByKey[key]
		if !ok {
			s.ByKey[key] = agg
			continue
		}
		existing.Count += agg.Count
		existing.SumSeverity += agg.SumSeverity
		existing.MaxSeverity = max(existing.MaxSeverity, agg.MaxSeverity)
	}
}
