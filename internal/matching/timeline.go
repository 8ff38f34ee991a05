package matching

import "github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"

// Basis records which access-breakdown rule produced the base estimate.
type Basis string

const (
	BasisAlreadyOpen     Basis = "already_open"
	BasisReadyToGrant    Basis = "ready_to_grant"
	BasisNeedsApproval   Basis = "needs_approval"
	BasisNewProvisioning Basis = "new_provisioning"
	BasisDataDiscovery   Basis = "data_discovery"
)

type Estimate struct {
	Basis        Basis
	BaseWeeks    int
	PenaltyWeeks int
	Weeks        int
}

// EstimateTimeline derives weeks-to-access from the access breakdown and the
// conflicts already detected for the dataset. Rules are checked in order and
// the first match wins; the data-discovery floor is applied afterwards.
// Conflict penalties stack with no cap.
func EstimateTimeline(ds catalog.Dataset, conflicts []IntentConflict) Estimate {
	b := ds.AccessBreakdown
	est := Estimate{}
	switch {
	case b.AlreadyOpen >= AlreadyOpenThresholdPct:
		est.Basis, est.BaseWeeks = BasisAlreadyOpen, WeeksAlreadyOpen
	case b.ReadyToGrant >= ReadyToGrantThresholdPct:
		est.Basis, est.BaseWeeks = BasisReadyToGrant, WeeksReadyToGrant
	case b.NeedsApproval >= NeedsApprovalThresholdPct:
		est.Basis, est.BaseWeeks = BasisNeedsApproval, WeeksNeedsApproval
	default:
		est.Basis, est.BaseWeeks = BasisNewProvisioning, WeeksNewProvisioning
	}
	if b.MissingLocation >= MissingLocationThresholdPct && est.BaseWeeks < DataDiscoveryFloorWks {
		est.Basis, est.BaseWeeks = BasisDataDiscovery, DataDiscoveryFloorWks
	}
	est.PenaltyWeeks = totalPenalty(conflicts)
	est.Weeks = est.BaseWeeks + est.PenaltyWeeks
	return est
}

func EstimateWeeks(ds catalog.Dataset, conflicts []IntentConflict) int {
	return EstimateTimeline(ds, conflicts).Weeks
}
