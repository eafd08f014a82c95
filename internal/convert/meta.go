package convert

import (
	"sort"

	"github.com/secstrace/tracecore/pkg/models"
)

// MetaCollector accumulates the running summary that becomes a session's
// meta.json, one Update call per ingested row.
type MetaCollector struct {
	rowCount int64
	tMin     int64
	tMax     int64
	sSet     map[uint8]struct{}
	fSet     map[uint8]struct{}
	ceidSet  map[uint32]struct{}
	vidSet   map[uint32]struct{}
	rptidSet map[uint32]struct{}
}

// NewMetaCollector returns an empty collector.
func NewMetaCollector() *MetaCollector {
	return &MetaCollector{
		tMin:     int64(^uint64(0) >> 1), // math.MaxInt64
		tMax:     -int64(^uint64(0)>>1) - 1,
		sSet:     make(map[uint8]struct{}),
		fSet:     make(map[uint8]struct{}),
		ceidSet:  make(map[uint32]struct{}),
		vidSet:   make(map[uint32]struct{}),
		rptidSet: make(map[uint32]struct{}),
	}
}

// Update folds one row into the running summary. 0 is the "not applicable"
// sentinel for ceid/vid/rptid and is excluded from their distinct sets.
func (c *MetaCollector) Update(rec models.Record) {
	c.rowCount++
	if rec.TsNS < c.tMin {
		c.tMin = rec.TsNS
	}
	if rec.TsNS > c.tMax {
		c.tMax = rec.TsNS
	}
	c.sSet[rec.S] = struct{}{}
	c.fSet[rec.F] = struct{}{}
	if rec.CEID != 0 {
		c.ceidSet[rec.CEID] = struct{}{}
	}
	if rec.VID != 0 {
		c.vidSet[rec.VID] = struct{}{}
	}
	if rec.RPTID != 0 {
		c.rptidSet[rec.RPTID] = struct{}{}
	}
}

// Into finalizes the collector into a SessionMeta. Empty sessions report
// t_min_ns = t_max_ns = 0.
func (c *MetaCollector) Into() models.SessionMeta {
	tMin, tMax := c.tMin, c.tMax
	if c.rowCount == 0 {
		tMin, tMax = 0, 0
	}

	return models.SessionMeta{
		RowCount:      c.rowCount,
		TMinNS:        tMin,
		TMaxNS:        tMax,
		DistinctS:     models.Uint8Slice(sortedUint8Keys(c.sSet)),
		DistinctF:     models.Uint8Slice(sortedUint8Keys(c.fSet)),
		DistinctCEID:  sortedUint32Keys(c.ceidSet),
		DistinctVID:   sortedUint32Keys(c.vidSet),
		DistinctRPTID: sortedUint32Keys(c.rptidSet),
	}
}

func sortedUint8Keys(m map[uint8]struct{}) []uint8 {
	out := make([]uint8, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedUint32Keys(m map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
