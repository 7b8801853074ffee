package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/RishiKendai/provenance/internal/preprocess"
	"github.com/spf13/cobra"
)

var outputJSON bool

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Analyze a document against the corpus",
	Long: `Extracts text from a .txt, .md, .pdf or .docx file and scores it against
the indexed corpus. Flagged sentences are listed with their best match.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var compareCodeCmd = &cobra.Command{
	Use:   "compare-code [submission] [reference]",
	Short: "Compare a Python submission with a reference solution",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompareCode,
}

func init() {
	checkCmd.Flags().BoolVar(&outputJSON, "json", false, "output the report as JSON")
	compareCodeCmd.Flags().BoolVar(&outputJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(checkCmd, compareCodeCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	text, err := preprocess.Extract(args[0], data)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	components, release, err := loadComponents(ctx)
	if err != nil {
		return err
	}
	defer release()

	report, err := components.Engine.AnalyzeText(ctx, filepath.Base(args[0]), text)
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(cmd, report)
	}

	cmd.Printf("Originality: %.2f%%  Plagiarism: %.2f%%  Risk: %s\n",
		report.OverallOriginalityScore, report.PlagiarismScore, report.RiskLevel)
	cmd.Printf("Sentences flagged: %d of %d\n", report.SentencesFlagged, report.TotalSentences)
	for _, item := range report.Items {
		if !item.Flagged {
			continue
		}
		confidence := 0.0
		if item.Confidence != nil {
			confidence = *item.Confidence
		}
		cmd.Printf("\n  [%d] %s (%.3f)\n", item.SentenceID, item.Type, confidence)
		cmd.Printf("      %s\n", item.Text)
		if item.Source != "" {
			cmd.Printf("      matches %s: %s\n", item.Source, item.MatchedText)
		}
		for _, c := range item.Citations {
			cmd.Printf("      cite %s (%.3f)\n", c.Source, c.Similarity)
		}
	}
	printWarnings(cmd, report.Warnings)
	return nil
}

func runCompareCode(cmd *cobra.Command, args []string) error {
	submission, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read submission: %w", err)
	}
	reference, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read reference: %w", err)
	}

	ctx := cmd.Context()
	components, release, err := loadComponents(ctx)
	if err != nil {
		return err
	}
	defer release()

	report, err := components.Engine.AnalyzeCode(ctx, filepath.Base(args[0]), string(submission), []string{string(reference)})
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(cmd, report)
	}

	cmd.Printf("Structural score: %.4f\n", report.PlagiarismScore)
	for _, d := range report.Details {
		cmd.Printf("  %-28s %.4f  %s\n", d.Metric, d.Score, d.Explanation)
	}
	cmd.Printf("Block match: %d of %d lines (%.2f%%), found: %t\n",
		report.BlockMatch.MatchedLines, report.BlockMatch.TotalLines, report.BlockMatch.PlagiarismScore, report.Found)
	for _, block := range report.BlockMatch.MatchedBlocks {
		first, last := block[0], block[len(block)-1]
		cmd.Printf("  submission %d-%d ~ reference %d-%d\n", first[0], last[0], first[1], last[1])
	}
	for _, m := range report.Matches {
		if m.Lines == nil {
			continue
		}
		cmd.Printf("Match [%s] lines %d-%d (confidence %.3f)\n", m.Signal, m.Lines.Start, m.Lines.End, m.Confidence)
	}
	printWarnings(cmd, report.Warnings)
	return nil
}

func printWarnings(cmd *cobra.Command, warnings []models.Warning) {
	for _, w := range warnings {
		cmd.Printf("warning (%s): %s\n", w.Signal, strings.TrimSpace(w.Message))
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
