package matching

import (
	"fmt"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
)

type PrimaryUse struct {
	UnderstandDrugMechanism bool `json:"understand_drug_mechanism"`
	UnderstandDisease       bool `json:"understand_disease"`
	DevelopDiagnosticTests  bool `json:"develop_diagnostic_tests"`
	LearnFromPastStudies    bool `json:"learn_from_past_studies"`
	ImproveAnalysisMethods  bool `json:"improve_analysis_methods"`
}

type BeyondPrimaryUse struct {
	AIResearch          bool `json:"ai_research"`
	SoftwareDevelopment bool `json:"software_development"`
}

type Publication struct {
	InternalOnly        bool `json:"internal_only"`
	ExternalPublication bool `json:"external_publication"`
}

// Intent is a snapshot of the declared usage purpose. The zero value is the
// all-false default. Flags are independent; no combination is invalid.
type Intent struct {
	PrimaryUse       PrimaryUse       `json:"primary_use"`
	BeyondPrimaryUse BeyondPrimaryUse `json:"beyond_primary_use"`
	Publication      Publication      `json:"publication"`
}

// Category is the access-timeline bucket a dataset falls into.
type Category string

const (
	CategoryImmediate Category = "immediate"
	CategorySoon      Category = "soon"
	CategoryExtended  Category = "extended"
	CategoryConflict  Category = "conflict"
)

func (c Category) Label() string {
	switch c {
	case CategoryImmediate:
		return "Immediate access"
	case CategorySoon:
		return "Access soon"
	case CategoryExtended:
		return "Extended timeline"
	case CategoryConflict:
		return "Intent conflict"
	default:
		panic(fmt.Sprintf("matching: unknown category %q", string(c)))
	}
}

// ConflictField names the intent flag that collides with a dataset
// restriction.
type ConflictField string

const (
	FieldAIResearch          ConflictField = "ai_research"
	FieldSoftwareDevelopment ConflictField = "software_development"
	FieldExternalPublication ConflictField = "external_publication"
)

// conflictFields is the fixed detection and warning order.
var conflictFields = []ConflictField{FieldAIResearch, FieldSoftwareDevelopment, FieldExternalPublication}

func (f ConflictField) Label() string {
	switch f {
	case FieldAIResearch:
		return "AI/ML research"
	case FieldSoftwareDevelopment:
		return "Software development"
	case FieldExternalPublication:
		return "External publication"
	default:
		panic(fmt.Sprintf("matching: unknown conflict field %q", string(f)))
	}
}

// Penalty is the flat number of weeks a conflict on this field adds.
func (f ConflictField) Penalty() int {
	switch f {
	case FieldAIResearch:
		return PenaltyAIResearchWeeks
	case FieldSoftwareDevelopment:
		return PenaltySoftwareDevWeeks
	case FieldExternalPublication:
		return PenaltyPublicationWeeks
	default:
		panic(fmt.Sprintf("matching: unknown conflict field %q", string(f)))
	}
}

// Enabled reports whether the intent declares the use guarded by f.
func (f ConflictField) Enabled(in Intent) bool {
	switch f {
	case FieldAIResearch:
		return in.BeyondPrimaryUse.AIResearch
	case FieldSoftwareDevelopment:
		return in.BeyondPrimaryUse.SoftwareDevelopment
	case FieldExternalPublication:
		return in.Publication.ExternalPublication
	default:
		panic(fmt.Sprintf("matching: unknown conflict field %q", string(f)))
	}
}

type IntentConflict struct {
	Field              ConflictField `json:"intent_field"`
	Label              string        `json:"intent_label"`
	DatasetRestriction string        `json:"dataset_restriction"`
	AddedWeeks         int           `json:"added_weeks"`
}

type SimilarDataset struct {
	Dataset         catalog.Dataset `json:"dataset"`
	SimilarityScore int             `json:"similarity_score"`
	Reason          string          `json:"reason"`
	Category        Category        `json:"access_category"`
	EstimatedWeeks  int             `json:"estimated_weeks"`
}

type DatasetMatch struct {
	Dataset            catalog.Dataset        `json:"dataset"`
	Category           Category               `json:"access_category"`
	EstimatedWeeks     int                    `json:"estimated_weeks"`
	EstimatedDays      int                    `json:"estimated_days"`
	CategoryReason     string                 `json:"category_reason"`
	Conflicts          []IntentConflict       `json:"intent_conflicts"`
	MatchingCollection *catalog.CollectionRef `json:"matching_collection,omitempty"`
	SimilarDatasets    []SimilarDataset       `json:"similar_datasets"`
}

type Summary struct {
	TotalDatasets            int `json:"total_datasets"`
	ImmediateCount           int `json:"immediate_count"`
	SoonCount                int `json:"soon_count"`
	ExtendedCount            int `json:"extended_count"`
	ConflictCount            int `json:"conflict_count"`
	EstimatedFullAccessWeeks int `json:"estimated_full_access_weeks"`
	EstimatedFullAccessDays  int `json:"estimated_full_access_days"`
}

// IntentWarning aggregates one conflicting intent field across every dataset
// it affects.
type IntentWarning struct {
	Field                ConflictField `json:"intent_field"`
	Label                string        `json:"intent_label"`
	Message              string        `json:"message"`
	AffectedDatasetIDs   []string      `json:"affected_dataset_ids"`
	AffectedDatasetCodes []string      `json:"affected_dataset_codes"`
	AddedWeeks           int           `json:"added_weeks"`
}

// Result is the full output of one matching pass. It is plain data and is
// never mutated after construction.
type Result struct {
	Immediate []DatasetMatch  `json:"immediate"`
	Soon      []DatasetMatch  `json:"soon"`
	Extended  []DatasetMatch  `json:"extended"`
	Conflicts []DatasetMatch  `json:"conflicts"`
	Summary   Summary         `json:"summary"`
	Warnings  []IntentWarning `json:"intent_warnings"`
}

// Bucket returns the result list for a category.
func (r *Result) Bucket(c Category) []DatasetMatch {
	switch c {
	case CategoryImmediate:
		return r.Immediate
	case CategorySoon:
		return r.Soon
	case CategoryExtended:
		return r.Extended
	case CategoryConflict:
		return r.Conflicts
	default:
		panic(fmt.Sprintf("matching: unknown category %q", string(c)))
	}
}

// Categories lists the buckets in display order.
var Categories = []Category{CategoryImmediate, CategorySoon, CategoryExtended, CategoryConflict}

// All returns every match across buckets in bucket display order.
func (r *Result) All() []DatasetMatch {
	out := make([]DatasetMatch, 0, r.Summary.TotalDatasets)
	for _, c := range Categories {
		out = append(out, r.Bucket(c)...)
	}
	return out
}

// Find returns the match for a dataset id, if present.
func (r *Result) Find(datasetID string) (DatasetMatch, bool) {
	for _, c := range Categories {
		for _, m := range r.Bucket(c) {
			if m.Dataset.ID == datasetID {
				return m, true
			}
		}
	}
	return DatasetMatch{}, false
}
