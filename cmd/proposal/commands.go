package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/proposal-mcp/internal/chunker"
	"github.com/dshills/proposal-mcp/internal/loader"
	"github.com/dshills/proposal-mcp/internal/oracle"
	"github.com/dshills/proposal-mcp/internal/pipeline"
	"github.com/dshills/proposal-mcp/internal/report"
	"github.com/dshills/proposal-mcp/internal/sections"
	"github.com/dshills/proposal-mcp/internal/storage"
)

var (
	outputDir     string
	fragmentLimit int

	chunkMode    string
	chunkSize    int
	chunkOverlap int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [opportunity-dir]",
	Short: "Analyze an opportunity folder and store the results",
	Long: `Runs the full analysis over an opportunity folder:
  1. Chunk solicitation documents and detect numbered sections
  2. Tag fragments for expectations, evaluation criteria and win themes
  3. Extract and merge past-performance project records
  4. Extract compliance requirements and group keyword themes
  5. Report the sections no covered fragment points at

Results are stored in the database; --output also writes JSON report files.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Print the fragments of one document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunk,
}

var sectionsCmd = &cobra.Command{
	Use:   "sections [file]",
	Short: "Print the numbered sections of one document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSections,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	o, err := oracle.New(ctx, cfg.OracleFactoryConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize oracle: %w", err)
	}
	defer func() { _ = oracle.Close(o) }()

	opts := pipeline.OptionsFromConfig(cfg)
	if fragmentLimit > 0 {
		opts.FragmentLimit = fragmentLimit
	}

	logger.Info("analyzing opportunity",
		zap.String("path", root),
		zap.String("oracle", o.Name()))

	res, err := pipeline.New(o, store, logger, opts).Run(ctx, root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	st := res.Stats
	fmt.Fprintf(out, "Run: %s\n", res.RunID)
	fmt.Fprintf(out, "Opportunity: %s\n", res.Opportunity)
	fmt.Fprintf(out, "Documents: %d  Fragments: %d  Sections: %d\n", st.Documents, st.Fragments, st.Sections)
	fmt.Fprintf(out, "Records: %d (dropped %d)  Themes: %d  Compliance items: %d\n",
		st.Records, st.DroppedRecords, st.Themes, st.ComplianceItems)
	fmt.Fprintf(out, "Failed oracle calls: %d\n", st.FailedCalls)
	fmt.Fprintf(out, "Duration: %s\n", st.Duration.Round(time.Millisecond))

	fmt.Fprintf(out, "\nCoverage gaps: %d of %d sections\n", len(res.Gaps.Uncovered), res.Gaps.TotalSections)
	for _, g := range res.Gaps.Uncovered {
		fmt.Fprintf(out, "  %s (page %d)\n", g.FullHeading(), g.Page)
	}

	dir := outputDir
	if dir == "" {
		dir = cfg.OutputDir
	}
	if dir != "" {
		files, err := report.NewWriter(dir, logger).WriteAll(res)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nWrote %d report files to %s\n", len(files), dir)
	}

	return nil
}

func runChunk(cmd *cobra.Command, args []string) error {
	doc, err := loader.ReadDocument(args[0])
	if err != nil {
		return err
	}

	mode := chunker.Mode(chunkMode)
	if mode != chunker.ModeParagraph && mode != chunker.ModeWindow {
		return fmt.Errorf("unknown chunk mode %q (want paragraph or window)", chunkMode)
	}

	c := chunker.New(chunker.Config{Mode: mode, MaxSize: chunkSize, Overlap: chunkOverlap})
	frags := c.Fragments(doc.Name, doc.Text, sections.Extract(doc.Text))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(frags)
}

func runSections(cmd *cobra.Command, args []string) error {
	doc, err := loader.ReadDocument(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	secs := sections.Extract(doc.Text)
	if len(secs) == 0 {
		fmt.Fprintln(out, "No numbered sections found")
		return nil
	}
	for _, s := range secs {
		fmt.Fprintf(out, "%-40s page %d\n", s.FullHeading(), s.Page)
	}
	return nil
}
