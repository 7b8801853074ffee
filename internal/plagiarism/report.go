package plagiarism

import (
	"fmt"
	"time"

	"github.com/RishiKendai/provenance/internal/models"
)

const (
	AnalysisTypeText = "text"
	AnalysisTypeCode = "code"
)

// BuildReport lays out one item per sentence in document order. matches must
// already be deduplicated.
func BuildReport(assignmentID string, sentences []models.Sentence, matches []models.Match, summary models.Summary, warnings []models.Warning) *models.Report {
	bySentence := make(map[int]models.Match, len(matches))
	for _, m := range matches {
		bySentence[m.SentenceID] = m
	}

	items := make([]models.ReportItem, 0, len(sentences))
	for _, s := range sentences {
		item := models.ReportItem{SentenceID: s.ID, Text: s.Raw}
		if m, ok := bySentence[s.ID]; ok {
			confidence := round3(m.Confidence)
			item.Flagged = true
			item.Type = m.Signal
			item.Confidence = &confidence
			item.MatchedText = m.MatchedText
			item.Source = m.Source
			item.Matches = m.Candidates
		}
		items = append(items, item)
	}

	return &models.Report{
		AssignmentID:            assignmentID,
		AnalysisType:            AnalysisTypeText,
		GeneratedAt:             time.Now().UTC(),
		OverallOriginalityScore: summary.OriginalityScore,
		PlagiarismScore:         summary.PlagiarismScore,
		TotalSentences:          summary.TotalSentences,
		SentencesFlagged:        summary.SentencesFlagged,
		RiskLevel:               RiskLevel(summary.OriginalityScore),
		Items:                   items,
		Warnings:                warnings,
	}
}

// AttachCitations sets the suggested sources of each flagged item.
func AttachCitations(report *models.Report, suggestions map[int][]models.Candidate) {
	for i := range report.Items {
		item := &report.Items[i]
		if !item.Flagged {
			continue
		}
		if c := suggestions[item.SentenceID]; len(c) > 0 {
			item.Citations = c
		}
	}
}

// BuildCodeReport combines the structural comparison with the best block match
// and the code matches derived from both.
func BuildCodeReport(assignmentID string, structural StructuralResult, blocks models.BlockMatch, matches []models.Match, found bool, referencesChecked int, warnings []models.Warning) *models.CodeReport {
	details := structural.Details
	if details == nil {
		details = make([]models.MetricDetail, 0)
	}
	if blocks.MatchedBlocks == nil {
		blocks.MatchedBlocks = make([][]models.LinePair, 0)
	}
	if matches == nil {
		matches = make([]models.Match, 0)
	}

	return &models.CodeReport{
		AssignmentID:      assignmentID,
		AnalysisType:      AnalysisTypeCode,
		GeneratedAt:       time.Now().UTC(),
		PlagiarismScore:   structural.Score,
		Details:           details,
		BlockMatch:        blocks,
		Matches:           matches,
		Found:             found,
		ReferencesChecked: referencesChecked,
		Warnings:          warnings,
	}
}

// referenceLabel names the i-th reference solution of an assignment.
func referenceLabel(i int) string {
	return fmt.Sprintf("reference_%d", i)
}
