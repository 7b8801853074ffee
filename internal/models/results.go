package models

import (
	"time"
)

type SignalType string

const (
	SignalExact         SignalType = "exact"
	SignalSemantic      SignalType = "semantic"
	SignalParaphrase    SignalType = "paraphrase"
	SignalAIGenerated   SignalType = "ai_generated"
	SignalCodeStructure SignalType = "code_structure"
	SignalCodeBlock     SignalType = "code_block"
)

// Sentence is one segmented unit of a submission. ID follows document order.
type Sentence struct {
	ID         int    `json:"id"`
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

// LineRange is an inclusive range of zero-based normalized submission lines,
// indexed like LinePair.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Candidate is one qualifying neighbor kept for transparency.
type Candidate struct {
	MatchedText string  `bson:"matched_text" json:"matched_text"`
	Source      string  `bson:"source" json:"source"`
	Similarity  float64 `bson:"similarity" json:"similarity"`
}

// Match is the single shape every detector emits. Code signals number their
// matches in SentenceID and carry the submission lines they cover.
type Match struct {
	SentenceID  int         `bson:"sentence_id" json:"sentence_id"`
	Signal      SignalType  `bson:"type" json:"type"`
	Confidence  float64     `bson:"confidence" json:"confidence"`
	MatchedText string      `bson:"matched_text" json:"matched_text"`
	Source      string      `bson:"source" json:"source"`
	Lines       *LineRange  `bson:"lines,omitempty" json:"lines,omitempty"`
	Candidates  []Candidate `bson:"candidates,omitempty" json:"candidates,omitempty"`
}

// Warning describes a signal that could only be computed partially.
type Warning struct {
	Signal  string `bson:"signal" json:"signal"`
	Message string `bson:"message" json:"message"`
}

// Summary is the aggregate score pair for one submission.
type Summary struct {
	TotalSentences   int     `bson:"total_sentences" json:"total_sentences"`
	SentencesFlagged int     `bson:"sentences_flagged" json:"sentences_flagged"`
	OriginalityScore float64 `bson:"originality_score" json:"originality_score"`
	PlagiarismScore  float64 `bson:"plagiarism_score" json:"plagiarism_score"`
}

type ReportItem struct {
	SentenceID  int         `bson:"sentence_id" json:"sentence_id"`
	Text        string      `bson:"text" json:"text"`
	Flagged     bool        `bson:"flagged" json:"flagged"`
	Type        SignalType  `bson:"type,omitempty" json:"type,omitempty"`
	Confidence  *float64    `bson:"confidence,omitempty" json:"confidence,omitempty"`
	MatchedText string      `bson:"matched_text,omitempty" json:"matched_text,omitempty"`
	Source      string      `bson:"source,omitempty" json:"source,omitempty"`
	Matches     []Candidate `bson:"matches,omitempty" json:"matches,omitempty"`
	Citations   []Candidate `bson:"citations,omitempty" json:"citations,omitempty"`
}

// Report is the text originality report returned to callers and stored in MongoDB.
type Report struct {
	AssignmentID            string       `bson:"assignment_id" json:"assignment_id"`
	AnalysisType            string       `bson:"analysis_type" json:"analysis_type"`
	GeneratedAt             time.Time    `bson:"generated_at" json:"generated_at"`
	OverallOriginalityScore float64      `bson:"overall_originality_score" json:"overall_originality_score"`
	PlagiarismScore         float64      `bson:"plagiarism_score" json:"plagiarism_score"`
	TotalSentences          int          `bson:"total_sentences" json:"total_sentences"`
	SentencesFlagged        int          `bson:"sentences_flagged" json:"sentences_flagged"`
	RiskLevel               string       `bson:"risk_level" json:"risk_level"`
	Items                   []ReportItem `bson:"items" json:"items"`
	Warnings                []Warning    `bson:"warnings,omitempty" json:"warnings,omitempty"`
}

type MetricDetail struct {
	Metric      string  `bson:"metric" json:"metric"`
	Score       float64 `bson:"score" json:"score"`
	Explanation string  `bson:"explanation" json:"explanation"`
}

// LinePair joins line i of the submission to line j of the reference.
type LinePair [2]int

type BlockMatch struct {
	MatchedBlocks   [][]LinePair `bson:"matched_blocks" json:"matched_blocks"`
	MatchedLines    int          `bson:"matched_lines" json:"matched_lines"`
	TotalLines      int          `bson:"total_lines" json:"total_lines"`
	PlagiarismScore float64      `bson:"plagiarism_score" json:"plagiarism_score"`
}

// CodeReport is the code originality report.
type CodeReport struct {
	AssignmentID      string         `bson:"assignment_id" json:"assignment_id"`
	AnalysisType      string         `bson:"analysis_type" json:"analysis_type"`
	GeneratedAt       time.Time      `bson:"generated_at" json:"generated_at"`
	PlagiarismScore   float64        `bson:"plagiarism_score" json:"plagiarism_score"`
	Details           []MetricDetail `bson:"details" json:"details"`
	BlockMatch        BlockMatch     `bson:"block_match" json:"block_match"`
	Matches           []Match        `bson:"matches" json:"matches"`
	Found             bool           `bson:"found" json:"found"`
	ReferencesChecked int            `bson:"references_checked" json:"references_checked"`
	Warnings          []Warning      `bson:"warnings,omitempty" json:"warnings,omitempty"`
}
