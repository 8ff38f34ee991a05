package catalog

import (
	"strings"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/logger"
)

// Reader is the read-only view of the dataset catalog consumed by the
// matching engine and the request flow. Implementations are safe for
// concurrent use once constructed.
type Reader interface {
	// All returns every dataset in catalog order.
	All() []Dataset
	Get(id string) (Dataset, bool)
	// Resolve maps ids to datasets, preserving order and silently dropping
	// ids that are not in the catalog.
	Resolve(ids []string) []Dataset
	// CollectionFor returns the first known collection that already
	// contains the dataset.
	CollectionFor(datasetID string) (CollectionRef, bool)
	// DefaultSelection is the fixture selection used when a client has no
	// stored selection.
	DefaultSelection() []string
}

// Memory is an immutable in-memory catalog. It is built once and never
// mutated afterwards.
type Memory struct {
	datasets    []Dataset
	byID        map[string]int
	collections []Collection
	collOf      map[string]int
	defaults    []string
}

type Snapshot struct {
	Datasets         []Dataset    `json:"datasets" yaml:"datasets"`
	Collections      []Collection `json:"collections" yaml:"collections"`
	DefaultSelection []string     `json:"default_selection" yaml:"default_selection"`
}

// NewMemory indexes a snapshot. Duplicate dataset ids keep the first entry.
// Datasets whose access breakdown does not sum to 100 are still loaded; the
// estimator tolerates them but the result will not be realistic, so they are
// reported on log.
func NewMemory(snap Snapshot, log *logger.Logger) *Memory {
	if log == nil {
		log = logger.Nop()
	}
	m := &Memory{
		byID:   make(map[string]int, len(snap.Datasets)),
		collOf: map[string]int{},
	}
	for _, ds := range snap.Datasets {
		id := strings.TrimSpace(ds.ID)
		if id == "" {
			log.Warn("catalog dataset without id skipped", "code", ds.Code)
			continue
		}
		if _, dup := m.byID[id]; dup {
			log.Warn("duplicate catalog dataset id skipped", "dataset_id", id)
			continue
		}
		ds.ID = id
		if !ds.AccessBreakdown.Valid() {
			log.Warn("access breakdown does not sum to 100", "dataset_id", id, "total", ds.AccessBreakdown.Total())
		}
		m.byID[id] = len(m.datasets)
		m.datasets = append(m.datasets, ds)
	}
	for i, c := range snap.Collections {
		m.collections = append(m.collections, c)
		for _, dsID := range c.DatasetIDs {
			if _, seen := m.collOf[dsID]; !seen {
				m.collOf[dsID] = i
			}
		}
	}
	for _, id := range snap.DefaultSelection {
		if _, ok := m.byID[id]; ok {
			m.defaults = append(m.defaults, id)
		}
	}
	return m
}

func (m *Memory) All() []Dataset {
	out := make([]Dataset, len(m.datasets))
	copy(out, m.datasets)
	return out
}

func (m *Memory) Len() int {
	return len(m.datasets)
}

func (m *Memory) Get(id string) (Dataset, bool) {
	i, ok := m.byID[strings.TrimSpace(id)]
	if !ok {
		return Dataset{}, false
	}
	return m.datasets[i], true
}

func (m *Memory) Resolve(ids []string) []Dataset {
	out := make([]Dataset, 0, len(ids))
	for _, id := range ids {
		if ds, ok := m.Get(id); ok {
			out = append(out, ds)
		}
	}
	return out
}

func (m *Memory) CollectionFor(datasetID string) (CollectionRef, bool) {
	i, ok := m.collOf[datasetID]
	if !ok {
		return CollectionRef{}, false
	}
	c := m.collections[i]
	return CollectionRef{ID: c.ID, Name: c.Name}, true
}

func (m *Memory) Collections() []Collection {
	out := make([]Collection, len(m.collections))
	copy(out, m.collections)
	return out
}

func (m *Memory) DefaultSelection() []string {
	out := make([]string, len(m.defaults))
	copy(out, m.defaults)
	return out
}

// Snapshot returns the catalog contents in the form accepted by NewMemory.
func (m *Memory) Snapshot() Snapshot {
	return Snapshot{
		Datasets:         m.All(),
		Collections:      m.Collections(),
		DefaultSelection: m.DefaultSelection(),
	}
}
