package matching

import "fmt"

// buildWarnings aggregates per-dataset conflicts into one warning per intent
// field, in the fixed field order. A field only warns when the intent
// declares it and at least one match carries the conflict.
func buildWarnings(matches []DatasetMatch, in Intent) []IntentWarning {
	var out []IntentWarning
	for _, f := range conflictFields {
		if !f.Enabled(in) {
			continue
		}
		var ids, codes []string
		for _, m := range matches {
			if hasConflict(m, f) {
				ids = append(ids, m.Dataset.ID)
				codes = append(codes, m.Dataset.Code)
			}
		}
		if len(ids) == 0 {
			continue
		}
		out = append(out, newWarning(f, ids, codes))
	}
	return out
}

func newWarning(f ConflictField, ids, codes []string) IntentWarning {
	return IntentWarning{
		Field:                f,
		Label:                f.Label(),
		Message:              warningMessage(f, len(ids)),
		AffectedDatasetIDs:   ids,
		AffectedDatasetCodes: codes,
		AddedWeeks:           f.Penalty(),
	}
}

func warningMessage(f ConflictField, n int) string {
	noun := "datasets restrict"
	if n == 1 {
		noun = "dataset restricts"
	}
	switch f {
	case FieldAIResearch:
		return fmt.Sprintf("%d %s AI/ML research; approval adds about %d weeks", n, noun, f.Penalty())
	case FieldSoftwareDevelopment:
		return fmt.Sprintf("%d %s software development; approval adds about %d weeks", n, noun, f.Penalty())
	default:
		return fmt.Sprintf("%d %s external publication; approval adds about %d weeks", n, noun, f.Penalty())
	}
}

func hasConflict(m DatasetMatch, f ConflictField) bool {
	for _, c := range m.Conflicts {
		if c.Field == f {
			return true
		}
	}
	return false
}
