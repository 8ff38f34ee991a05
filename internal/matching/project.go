package matching

// Exclude projects a result onto the datasets not in removed. Matches keep
// the category, timeline and suggestions of the full pass that produced
// them; only bucket membership, summary counts and warning membership
// change. Warnings left with no affected datasets are dropped. The receiver
// is not modified.
func (r *Result) Exclude(removed map[string]struct{}) *Result {
	if r == nil {
		return nil
	}
	if len(removed) == 0 {
		return r
	}
	keep := func(in []DatasetMatch) []DatasetMatch {
		out := []DatasetMatch{}
		for _, m := range in {
			if _, gone := removed[m.Dataset.ID]; !gone {
				out = append(out, m)
			}
		}
		return out
	}
	out := emptyResult()
	out.Immediate = keep(r.Immediate)
	out.Soon = keep(r.Soon)
	out.Extended = keep(r.Extended)
	out.Conflicts = keep(r.Conflicts)
	out.Summary = summarize(out.All())
	for _, w := range r.Warnings {
		var ids, codes []string
		for i, id := range w.AffectedDatasetIDs {
			if _, gone := removed[id]; gone {
				continue
			}
			ids = append(ids, id)
			if i < len(w.AffectedDatasetCodes) {
				codes = append(codes, w.AffectedDatasetCodes[i])
			}
		}
		if len(ids) == 0 {
			continue
		}
		out.Warnings = append(out.Warnings, newWarning(w.Field, ids, codes))
	}
	return out
}
