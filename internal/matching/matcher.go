package matching

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/logger"
)

// PerformSmartMatching classifies every dataset against the intent and
// aggregates the buckets, summary and cross-dataset warnings. Buckets keep
// input order. An empty input yields nil. The catalog feeds similarity
// suggestions and collection lookups; it may be nil, in which case neither
// is produced.
func PerformSmartMatching(datasets []catalog.Dataset, in Intent, cat catalog.Reader) *Result {
	if len(datasets) == 0 {
		return nil
	}
	exclude := make(map[string]struct{}, len(datasets))
	for _, ds := range datasets {
		exclude[ds.ID] = struct{}{}
	}

	res := emptyResult()
	all := make([]DatasetMatch, 0, len(datasets))
	for _, ds := range datasets {
		m := matchOne(ds, in, cat, exclude)
		all = append(all, m)
		switch m.Category {
		case CategoryImmediate:
			res.Immediate = append(res.Immediate, m)
		case CategorySoon:
			res.Soon = append(res.Soon, m)
		case CategoryExtended:
			res.Extended = append(res.Extended, m)
		case CategoryConflict:
			res.Conflicts = append(res.Conflicts, m)
		}
	}
	res.Summary = summarize(all)
	if w := buildWarnings(all, in); w != nil {
		res.Warnings = w
	}
	return res
}

// emptyResult has every list non-nil so results always encode lists as
// arrays.
func emptyResult() *Result {
	return &Result{
		Immediate: []DatasetMatch{},
		Soon:      []DatasetMatch{},
		Extended:  []DatasetMatch{},
		Conflicts: []DatasetMatch{},
		Warnings:  []IntentWarning{},
	}
}

func matchOne(ds catalog.Dataset, in Intent, cat catalog.Reader, exclude map[string]struct{}) DatasetMatch {
	a := assess(ds, in)
	m := DatasetMatch{
		Dataset:         ds,
		Category:        a.category,
		EstimatedWeeks:  a.estimate.Weeks,
		EstimatedDays:   a.estimate.Weeks * 7,
		CategoryReason:  categoryReason(ds, a),
		Conflicts:       a.conflicts,
		SimilarDatasets: []SimilarDataset{},
	}
	if m.Conflicts == nil {
		m.Conflicts = []IntentConflict{}
	}
	if cat != nil {
		if ref, ok := cat.CollectionFor(ds.ID); ok {
			m.MatchingCollection = &ref
		}
	}
	if a.category == CategoryExtended || a.category == CategoryConflict {
		if similar := FindSimilar(ds, a.estimate.Weeks, in, cat, exclude); similar != nil {
			m.SimilarDatasets = similar
		}
	}
	return m
}

func summarize(matches []DatasetMatch) Summary {
	s := Summary{TotalDatasets: len(matches)}
	for _, m := range matches {
		switch m.Category {
		case CategoryImmediate:
			s.ImmediateCount++
		case CategorySoon:
			s.SoonCount++
		case CategoryExtended:
			s.ExtendedCount++
		case CategoryConflict:
			s.ConflictCount++
		}
		if m.EstimatedWeeks > s.EstimatedFullAccessWeeks {
			s.EstimatedFullAccessWeeks = m.EstimatedWeeks
		}
	}
	s.EstimatedFullAccessDays = s.EstimatedFullAccessWeeks * 7
	return s
}

// Observer receives one call per Match. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveMatch(d time.Duration, res *Result, cached bool)
}

type Config struct {
	Catalog catalog.Reader
	// CacheSize bounds the memo; zero disables it.
	CacheSize int
	Tracer    trace.Tracer
	Observer  Observer
	Logger    *logger.Logger
}

// Matcher wraps PerformSmartMatching with a memo and instrumentation. It is
// safe for concurrent use. Cached results are shared between callers and
// must be treated as read-only.
type Matcher struct {
	catalog  catalog.Reader
	cache    *lru.Cache[uint64, memoEntry]
	tracer   trace.Tracer
	observer Observer
	log      *logger.Logger
}

type memoEntry struct {
	key    string
	result *Result
}

func NewMatcher(cfg Config) (*Matcher, error) {
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("dcm/matching")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	m := &Matcher{
		catalog:  cfg.Catalog,
		tracer:   cfg.Tracer,
		observer: cfg.Observer,
		log:      cfg.Logger,
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[uint64, memoEntry](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		m.cache = cache
	}
	return m, nil
}

func (m *Matcher) Catalog() catalog.Reader {
	return m.catalog
}

// Match is PerformSmartMatching against the matcher's catalog. The context
// only carries the trace span; matching itself never blocks.
func (m *Matcher) Match(ctx context.Context, datasets []catalog.Dataset, in Intent) *Result {
	_, span := m.tracer.Start(ctx, "matching.PerformSmartMatching",
		trace.WithAttributes(attribute.Int("dcm.datasets", len(datasets))))
	defer span.End()

	start := time.Now()
	key := memoKey(datasets, in)
	if m.cache != nil {
		if e, ok := m.cache.Get(xxhash.Sum64String(key)); ok && e.key == key {
			span.SetAttributes(attribute.Bool("dcm.cache_hit", true))
			m.observe(time.Since(start), e.result, true)
			return e.result
		}
	}
	res := PerformSmartMatching(datasets, in, m.catalog)
	if m.cache != nil {
		m.cache.Add(xxhash.Sum64String(key), memoEntry{key: key, result: res})
	}
	if res != nil {
		span.SetAttributes(
			attribute.Int("dcm.conflicts", res.Summary.ConflictCount),
			attribute.Int("dcm.full_access_weeks", res.Summary.EstimatedFullAccessWeeks),
		)
	}
	m.log.Debug("matching complete", "datasets", len(datasets), "elapsed", time.Since(start))
	m.observe(time.Since(start), res, false)
	return res
}

func (m *Matcher) observe(d time.Duration, res *Result, cached bool) {
	if m.observer != nil {
		m.observer.ObserveMatch(d, res, cached)
	}
}

// memoKey is the ordered dataset ids plus the intent bits. Order matters
// because buckets preserve input order.
func memoKey(datasets []catalog.Dataset, in Intent) string {
	var b strings.Builder
	var bits [2]byte
	binary.BigEndian.PutUint16(bits[:], intentBits(in))
	b.Write(bits[:])
	for _, ds := range datasets {
		b.WriteByte(0)
		b.WriteString(ds.ID)
	}
	return b.String()
}

func intentBits(in Intent) uint16 {
	flags := []bool{
		in.PrimaryUse.UnderstandDrugMechanism,
		in.PrimaryUse.UnderstandDisease,
		in.PrimaryUse.DevelopDiagnosticTests,
		in.PrimaryUse.LearnFromPastStudies,
		in.PrimaryUse.ImproveAnalysisMethods,
		in.BeyondPrimaryUse.AIResearch,
		in.BeyondPrimaryUse.SoftwareDevelopment,
		in.Publication.InternalOnly,
		in.Publication.ExternalPublication,
	}
	var v uint16
	for i, f := range flags {
		if f {
			v |= 1 << i
		}
	}
	return v
}
