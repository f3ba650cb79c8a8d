// Package ranker implements the Model Intelligence Ranker (§4.1): benchmark
// ingestion, normalization, scoring, selection and task decomposition.
package ranker

import (
	"encoding/json"
	"sync/atomic"

	"github.com/swarmrouter/core/pkg/models"
)

// Catalog is an immutable snapshot of every known model. Refresh builds a
// new Catalog and swaps it in atomically so readers never observe a
// partially-merged result (§5 "Shared state").
type Catalog struct {
	Models map[string]*models.EnrichedModel `json:"models"`

	// NormMean/NormStdDev are the per-benchmark-key normalization
	// parameters computed over this catalog (§4.1.1), keyed by
	// benchmark field name.
	NormMean   map[string]float64 `json:"normMean"`
	NormStdDev map[string]float64 `json:"normStdDev"`

	// SourceStatus records, per auxiliary source, whether the last
	// refresh used fresh or stale data.
	SourceStatus map[string]SourceStatus `json:"sourceStatus"`
}

// SourceStatus records one auxiliary source's freshness after a refresh.
type SourceStatus struct {
	Stale     bool  `json:"stale"`
	Count     int   `json:"count"`
	UpdatedAt int64 `json:"updatedAt"` // unix seconds
}

func emptyCatalog() *Catalog {
	return &Catalog{
		Models:       make(map[string]*models.EnrichedModel),
		NormMean:     make(map[string]float64),
		NormStdDev:   make(map[string]float64),
		SourceStatus: make(map[string]SourceStatus),
	}
}

// snapshotHolder is the atomic.Pointer-backed read-mostly catalog handle
// shared by every Ranker method.
type snapshotHolder struct {
	p atomic.Pointer[Catalog]
}

func (h *snapshotHolder) load() *Catalog {
	c := h.p.Load()
	if c == nil {
		return emptyCatalog()
	}
	return c
}

func (h *snapshotHolder) store(c *Catalog) {
	h.p.Store(c)
}

// MarshalSnapshot serializes the catalog for durable persistence.
func MarshalSnapshot(c *Catalog) ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalSnapshot deserializes a previously persisted catalog; an empty
// or invalid blob yields an empty catalog per §4.1.1 ("if absent,
// synthesizes an empty one").
func UnmarshalSnapshot(blob []byte) *Catalog {
	if len(blob) == 0 {
		return emptyCatalog()
	}
	var c Catalog
	if err := json.Unmarshal(blob, &c); err != nil {
		return emptyCatalog()
	}
	if c.Models == nil {
		c.Models = make(map[string]*models.EnrichedModel)
	}
	if c.NormMean == nil {
		c.NormMean = make(map[string]float64)
	}
	if c.NormStdDev == nil {
		c.NormStdDev = make(map[string]float64)
	}
	if c.SourceStatus == nil {
		c.SourceStatus = make(map[string]SourceStatus)
	}
	return &c
}
