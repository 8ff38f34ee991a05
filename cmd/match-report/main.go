package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/logger"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/matching"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/report"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var in matching.Intent
	flags := pflag.NewFlagSet("match-report", pflag.ContinueOnError)
	dbPath := flags.String("db", "", "SQLite catalog (default: built-in fixture)")
	fixture := flags.String("fixture", "", "YAML catalog fixture, used when --db is empty")
	ids := flags.StringSlice("ids", nil, "dataset ids to match (default: the catalog's default selection)")
	format := flags.StringP("format", "f", "md", "output format: md, html or pdf")
	output := flags.StringP("output", "o", "", "output path (default: stdout; required for pdf)")
	chromePath := flags.String("chrome", "", "Chromium binary for pdf output")
	stylePath := flags.String("style", "", "report stylesheet (default: built-in)")
	flags.BoolVar(&in.PrimaryUse.UnderstandDrugMechanism, "drug-mechanism", false, "declare: understand drug mechanism")
	flags.BoolVar(&in.PrimaryUse.UnderstandDisease, "disease", false, "declare: understand disease")
	flags.BoolVar(&in.PrimaryUse.DevelopDiagnosticTests, "diagnostics", false, "declare: develop diagnostic tests")
	flags.BoolVar(&in.PrimaryUse.LearnFromPastStudies, "past-studies", false, "declare: learn from past studies")
	flags.BoolVar(&in.PrimaryUse.ImproveAnalysisMethods, "analysis-methods", false, "declare: improve analysis methods")
	flags.BoolVar(&in.BeyondPrimaryUse.AIResearch, "ai", false, "declare: AI/ML research")
	flags.BoolVar(&in.BeyondPrimaryUse.SoftwareDevelopment, "software", false, "declare: software development")
	flags.BoolVar(&in.Publication.InternalOnly, "internal-only", false, "declare: internal use only")
	flags.BoolVar(&in.Publication.ExternalPublication, "publish", false, "declare: external publication")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	log := logger.Nop()
	cat, closeCatalog, err := catalog.Open(*dbPath, *fixture, log)
	if err != nil {
		return err
	}
	defer closeCatalog()

	selection := *ids
	if len(selection) == 0 {
		selection = cat.DefaultSelection()
	}
	datasets := cat.Resolve(selection)
	if dropped := len(selection) - len(datasets); dropped > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d unknown dataset id(s) ignored\n", dropped)
	}

	res := matching.PerformSmartMatching(datasets, in, cat)
	md := report.Markdown(res, report.Meta{GeneratedAt: time.Now(), Intent: in})

	var out []byte
	switch *format {
	case "md", "markdown":
		out = []byte(md)
	case "html":
		style := ""
		if *stylePath != "" {
			b, err := os.ReadFile(*stylePath)
			if err != nil {
				return fmt.Errorf("read style: %w", err)
			}
			style = string(b)
		}
		doc, err := report.RenderHTML(md, res, style)
		if err != nil {
			return err
		}
		out = []byte(doc)
	case "pdf":
		if *output == "" {
			return errors.New("--output is required for pdf")
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		out, err = report.NewChromiumPDFRenderer(*chromePath, *stylePath).Render(ctx, md, res)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", *format)
	}

	if *output == "" {
		_, err := os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(*output, out, 0o644)
}
