// Package report renders matching results as markdown, HTML and PDF.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/matching"
)

const methodologyHeading = "How This Timeline Is Estimated"

type Meta struct {
	SessionID   string
	RequestID   string
	GeneratedAt time.Time
	Intent      matching.Intent
	// Removed lists datasets excluded from the result, shown for context.
	Removed []string
}

// Markdown renders an access-timeline report. A nil result renders the
// empty-selection guidance instead of tables.
func Markdown(res *matching.Result, meta Meta) string {
	var b strings.Builder
	b.WriteString("# Data access timeline\n\n")
	writeMeta(&b, meta)

	if res == nil || res.Summary.TotalDatasets == 0 {
		b.WriteString("No datasets are selected. Browse the catalog and add datasets to see an access timeline.\n")
		return b.String()
	}

	s := res.Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| Category | Datasets |\n|---|---|\n")
	fmt.Fprintf(&b, "| %s | %d |\n", matching.CategoryImmediate.Label(), s.ImmediateCount)
	fmt.Fprintf(&b, "| %s | %d |\n", matching.CategorySoon.Label(), s.SoonCount)
	fmt.Fprintf(&b, "| %s | %d |\n", matching.CategoryExtended.Label(), s.ExtendedCount)
	fmt.Fprintf(&b, "| %s | %d |\n", matching.CategoryConflict.Label(), s.ConflictCount)
	fmt.Fprintf(&b, "\nFull access for all %d datasets is estimated at **%s** (%d days).\n\n",
		s.TotalDatasets, weeksText(s.EstimatedFullAccessWeeks), s.EstimatedFullAccessDays)

	if len(res.Warnings) > 0 {
		b.WriteString("## Intent warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- **%s**: %s (%s)\n", w.Label, w.Message, strings.Join(w.AffectedDatasetCodes, ", "))
		}
		b.WriteString("\n")
	}

	for _, c := range matching.Categories {
		matches := res.Bucket(c)
		if len(matches) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", c.Label())
		b.WriteString("| Code | Dataset | Estimate | Reason | Collection |\n|---|---|---|---|---|\n")
		for _, m := range matches {
			collection := ""
			if m.MatchingCollection != nil {
				collection = m.MatchingCollection.Name
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				cell(m.Dataset.Code), cell(m.Dataset.Name), weeksText(m.EstimatedWeeks), cell(m.CategoryReason), cell(collection))
		}
		b.WriteString("\n")
		writeConflicts(&b, matches)
		writeAlternatives(&b, matches)
	}

	b.WriteString("## " + methodologyHeading + "\n\n")
	fmt.Fprintf(&b, "Base estimates come from the access breakdown: at least %d%% already open is immediate, "+
		"at least %d%% ready to grant takes %d week, at least %d%% needing approval takes %d weeks, "+
		"and anything else takes %d weeks to provision. When %d%% or more of the data has no known location the base "+
		"is raised to %d weeks. Each conflict between the declared intent and a dataset restriction adds a fixed "+
		"review period (AI/ML %d, software development %d, external publication %d weeks). Conflicted datasets "+
		"estimated above %d weeks are reported as intent conflicts.\n",
		matching.AlreadyOpenThresholdPct, matching.ReadyToGrantThresholdPct, matching.WeeksReadyToGrant,
		matching.NeedsApprovalThresholdPct, matching.WeeksNeedsApproval, matching.WeeksNewProvisioning,
		matching.MissingLocationThresholdPct, matching.DataDiscoveryFloorWks,
		matching.PenaltyAIResearchWeeks, matching.PenaltySoftwareDevWeeks, matching.PenaltyPublicationWeeks,
		matching.BlockingConflictWeeks)
	return b.String()
}

func writeMeta(b *strings.Builder, meta Meta) {
	var lines []string
	if meta.RequestID != "" {
		lines = append(lines, "Request: "+meta.RequestID)
	}
	if meta.SessionID != "" {
		lines = append(lines, "Session: "+meta.SessionID)
	}
	if !meta.GeneratedAt.IsZero() {
		lines = append(lines, "Generated: "+meta.GeneratedAt.UTC().Format("January 2, 2006 15:04 MST"))
	}
	if uses := declaredUses(meta.Intent); len(uses) > 0 {
		lines = append(lines, "Declared use: "+strings.Join(uses, ", "))
	}
	if len(meta.Removed) > 0 {
		lines = append(lines, "Removed from request: "+strings.Join(meta.Removed, ", "))
	}
	for _, l := range lines {
		b.WriteString("- " + l + "\n")
	}
	if len(lines) > 0 {
		b.WriteString("\n")
	}
}

func writeConflicts(b *strings.Builder, matches []matching.DatasetMatch) {
	for _, m := range matches {
		if len(m.Conflicts) == 0 {
			continue
		}
		fmt.Fprintf(b, "**%s restrictions**\n\n", cell(m.Dataset.Code))
		for _, c := range m.Conflicts {
			fmt.Fprintf(b, "- %s: %s (+%d weeks)\n", c.Label, c.DatasetRestriction, c.AddedWeeks)
		}
		b.WriteString("\n")
	}
}

func writeAlternatives(b *strings.Builder, matches []matching.DatasetMatch) {
	for _, m := range matches {
		if len(m.SimilarDatasets) == 0 {
			continue
		}
		fmt.Fprintf(b, "**Faster alternatives to %s**\n\n", cell(m.Dataset.Code))
		for _, s := range m.SimilarDatasets {
			fmt.Fprintf(b, "- %s %s, similarity %d, %s: %s\n",
				cell(s.Dataset.Code), cell(s.Dataset.Name), s.SimilarityScore, weeksText(s.EstimatedWeeks), s.Reason)
		}
		b.WriteString("\n")
	}
}

func declaredUses(in matching.Intent) []string {
	var out []string
	add := func(on bool, label string) {
		if on {
			out = append(out, label)
		}
	}
	add(in.PrimaryUse.UnderstandDrugMechanism, "understand drug mechanism")
	add(in.PrimaryUse.UnderstandDisease, "understand disease")
	add(in.PrimaryUse.DevelopDiagnosticTests, "develop diagnostic tests")
	add(in.PrimaryUse.LearnFromPastStudies, "learn from past studies")
	add(in.PrimaryUse.ImproveAnalysisMethods, "improve analysis methods")
	add(in.BeyondPrimaryUse.AIResearch, "AI/ML research")
	add(in.BeyondPrimaryUse.SoftwareDevelopment, "software development")
	add(in.Publication.InternalOnly, "internal publication")
	add(in.Publication.ExternalPublication, "external publication")
	return out
}

func weeksText(w int) string {
	switch w {
	case 0:
		return "immediate"
	case 1:
		return "1 week"
	default:
		return fmt.Sprintf("%d weeks", w)
	}
}

// cell keeps free text from breaking a markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
