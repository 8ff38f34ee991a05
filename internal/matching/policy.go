package matching

// Governance timing policy. The three threshold families are independent:
// per-conflict penalties, the data-discovery floor, and the blocking-conflict
// ceiling.
const (
	PenaltyAIResearchWeeks  = 6
	PenaltySoftwareDevWeeks = 4
	PenaltyPublicationWeeks = 4

	AlreadyOpenThresholdPct     = 80
	ReadyToGrantThresholdPct    = 50
	NeedsApprovalThresholdPct   = 30
	MissingLocationThresholdPct = 30

	WeeksAlreadyOpen      = 0
	WeeksReadyToGrant     = 1
	WeeksNeedsApproval    = 2
	WeeksNewProvisioning  = 4
	DataDiscoveryFloorWks = 6

	// Conflicted datasets estimated above this many weeks are classified as
	// blocking rather than merely extended.
	BlockingConflictWeeks = 8

	SoonMaxWeeks = 2
)

// Similarity scoring weights and filters.
const (
	WeightTherapeuticArea = 40.0
	WeightPhase           = 20.0
	WeightPatientCount    = 20.0
	WeightCategoryOverlap = 20.0

	MinSimilarityScore = 50.0
	MaxSimilarResults  = 2

	BonusImmediate = 100.0
	BonusSoon      = 50.0
)
