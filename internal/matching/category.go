package matching

import (
	"fmt"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
)

// HasBlockingConflicts is the caller-side rule feeding Classify: conflicts
// only block when they push the estimate past BlockingConflictWeeks.
func HasBlockingConflicts(conflicts []IntentConflict, weeks int) bool {
	return len(conflicts) > 0 && weeks > BlockingConflictWeeks
}

// Classify maps an estimate to its access category.
func Classify(weeks int, hasBlockingConflicts bool) Category {
	switch {
	case hasBlockingConflicts:
		return CategoryConflict
	case weeks == 0:
		return CategoryImmediate
	case weeks <= SoonMaxWeeks:
		return CategorySoon
	default:
		return CategoryExtended
	}
}

type assessment struct {
	conflicts []IntentConflict
	estimate  Estimate
	category  Category
}

// assess runs detection, estimation and classification for one dataset.
func assess(ds catalog.Dataset, in Intent) assessment {
	conflicts := DetectConflicts(ds, in)
	est := EstimateTimeline(ds, conflicts)
	return assessment{
		conflicts: conflicts,
		estimate:  est,
		category:  Classify(est.Weeks, HasBlockingConflicts(conflicts, est.Weeks)),
	}
}

func categoryReason(ds catalog.Dataset, a assessment) string {
	b := ds.AccessBreakdown
	switch a.category {
	case CategoryConflict:
		return fmt.Sprintf("Declared intent conflicts with %d dataset restriction(s); governance review adds %d weeks",
			len(a.conflicts), a.estimate.PenaltyWeeks)
	case CategoryImmediate:
		return fmt.Sprintf("%d%% of data is already open to you", b.AlreadyOpen)
	}
	var reason string
	switch a.estimate.Basis {
	case BasisAlreadyOpen:
		reason = fmt.Sprintf("%d%% of data is already open", b.AlreadyOpen)
	case BasisReadyToGrant:
		reason = fmt.Sprintf("%d%% of data is ready to grant", b.ReadyToGrant)
	case BasisNeedsApproval:
		reason = fmt.Sprintf("%d%% of data needs data-owner approval", b.NeedsApproval)
	case BasisDataDiscovery:
		reason = fmt.Sprintf("%d%% of data has no known location and needs discovery", b.MissingLocation)
	default:
		reason = "Data must be provisioned as a new collection"
	}
	if a.estimate.PenaltyWeeks > 0 {
		reason += fmt.Sprintf("; intent restrictions add %d weeks", a.estimate.PenaltyWeeks)
	}
	return reason
}
