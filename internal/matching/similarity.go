package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
)

type similarityCandidate struct {
	dataset    catalog.Dataset
	score      float64
	reasons    []string
	assessment assessment
	rank       float64
}

// FindSimilar searches the catalog for datasets that are topically close to
// target and strictly faster to access under the same intent. Datasets in
// exclude (usually the current selection) and the target itself are never
// suggested. Ties keep catalog order.
func FindSimilar(target catalog.Dataset, targetWeeks int, in Intent, cat catalog.Reader, exclude map[string]struct{}) []SimilarDataset {
	if cat == nil {
		return nil
	}
	var candidates []similarityCandidate
	for _, ds := range cat.All() {
		if ds.ID == target.ID {
			continue
		}
		if _, skip := exclude[ds.ID]; skip {
			continue
		}
		score, reasons := similarityScore(target, ds)
		if score < MinSimilarityScore {
			continue
		}
		a := assess(ds, in)
		if a.estimate.Weeks >= targetWeeks {
			continue
		}
		candidates = append(candidates, similarityCandidate{
			dataset:    ds,
			score:      score,
			reasons:    reasons,
			assessment: a,
			rank:       categoryBonus(a.category) + score,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].rank > candidates[j].rank
	})
	if len(candidates) > MaxSimilarResults {
		candidates = candidates[:MaxSimilarResults]
	}
	out := make([]SimilarDataset, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, SimilarDataset{
			Dataset:         c.dataset,
			SimilarityScore: int(math.Round(c.score)),
			Reason:          similarityReason(c),
			Category:        c.assessment.category,
			EstimatedWeeks:  c.assessment.estimate.Weeks,
		})
	}
	return out
}

// similarityScore is additive over four signals and lands in [0, 100].
func similarityScore(target, candidate catalog.Dataset) (float64, []string) {
	var (
		score   float64
		reasons []string
	)
	if area, ok := firstShared(target.TherapeuticArea, candidate.TherapeuticArea); ok {
		score += WeightTherapeuticArea
		reasons = append(reasons, "same therapeutic area ("+area+")")
	}
	if target.Phase != "" && target.Phase == candidate.Phase {
		score += WeightPhase
		reasons = append(reasons, "same phase ("+target.Phase+")")
	}
	if ratio := patientRatio(target.PatientCount, candidate.PatientCount); ratio > 0 {
		score += ratio * WeightPatientCount
		if ratio >= 0.8 {
			reasons = append(reasons, "comparable patient population")
		}
	}
	if overlap := categoryOverlap(target.Categories, candidate.Categories); overlap > 0 {
		score += overlap * WeightCategoryOverlap
		reasons = append(reasons, fmt.Sprintf("%.0f%% category overlap", overlap*100))
	}
	return score, reasons
}

func patientRatio(a, b int) float64 {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi <= 0 || lo < 0 {
		return 0
	}
	return float64(lo) / float64(hi)
}

// categoryOverlap is the share of the target's categories the candidate also
// carries.
func categoryOverlap(target, candidate []string) float64 {
	if len(target) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(candidate))
	for _, c := range candidate {
		have[c] = struct{}{}
	}
	seen := make(map[string]struct{}, len(target))
	shared := 0
	for _, c := range target {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if _, ok := have[c]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(seen))
}

func firstShared(a, b []string) (string, bool) {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return x, true
			}
		}
	}
	return "", false
}

func categoryBonus(c Category) float64 {
	switch c {
	case CategoryImmediate:
		return BonusImmediate
	case CategorySoon:
		return BonusSoon
	default:
		return 0
	}
}

func similarityReason(c similarityCandidate) string {
	var b strings.Builder
	if len(c.reasons) > 0 {
		r := c.reasons[0]
		b.WriteString(strings.ToUpper(r[:1]) + r[1:])
		for _, r := range c.reasons[1:] {
			b.WriteString(", ")
			b.WriteString(r)
		}
	} else {
		b.WriteString("Similar profile")
	}
	switch weeks := c.assessment.estimate.Weeks; weeks {
	case 0:
		b.WriteString("; available immediately")
	case 1:
		b.WriteString("; accessible in about 1 week")
	default:
		fmt.Fprintf(&b, "; accessible in about %d weeks", weeks)
	}
	return b.String()
}
