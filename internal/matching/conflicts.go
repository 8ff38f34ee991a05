package matching

import (
	"strings"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
)

// DetectConflicts compares a dataset's usage restrictions with the declared
// intent. Conflicts come back in a fixed order (AI research, software
// development, external publication), not by severity. A dataset without
// restriction metadata never conflicts.
func DetectConflicts(ds catalog.Dataset, in Intent) []IntentConflict {
	aot := ds.AOT
	if aot == nil {
		return nil
	}
	var out []IntentConflict
	for _, f := range conflictFields {
		if !f.Enabled(in) || !restricts(aot, f) {
			continue
		}
		out = append(out, IntentConflict{
			Field:              f,
			Label:              f.Label(),
			DatasetRestriction: restrictionText(aot, f),
			AddedWeeks:         f.Penalty(),
		})
	}
	return out
}

func restricts(aot *catalog.AOTMetadata, f ConflictField) bool {
	switch f {
	case FieldAIResearch:
		return aot.RestrictML
	case FieldSoftwareDevelopment:
		return aot.RestrictSoftwareDev
	case FieldExternalPublication:
		return aot.RestrictPublication
	default:
		return false
	}
}

func restrictionText(aot *catalog.AOTMetadata, f ConflictField) string {
	var base string
	switch f {
	case FieldAIResearch:
		base = "Dataset restricts AI/ML use"
	case FieldSoftwareDevelopment:
		base = "Dataset restricts software development use"
	case FieldExternalPublication:
		base = "Dataset restricts external publication"
	}
	if reason := strings.TrimSpace(aot.Reason); reason != "" {
		return base + ": " + reason
	}
	return base
}

func totalPenalty(conflicts []IntentConflict) int {
	sum := 0
	for _, c := range conflicts {
		sum += c.AddedWeeks
	}
	return sum
}
