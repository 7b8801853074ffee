package models

import "time"

type Step string

const (
	StepIdle       Step = "idle"
	StepQueued     Step = "queued"
	StepExtracting Step = "extracting"
	StepAnalyzing  Step = "analyzing"
	StepCompleted  Step = "completed"
	StepFailed     Step = "failed"
)

type DocumentKind string

const (
	KindText DocumentKind = "text"
	KindCode DocumentKind = "code"
)

// Document is a submission whose text has already been extracted.
type Document struct {
	AssignmentID string       `bson:"assignment_id" json:"assignment_id"`
	Filename     string       `bson:"filename" json:"filename"`
	Kind         DocumentKind `bson:"kind" json:"kind"`
	Text         string       `bson:"text" json:"text"`
	CreatedAt    time.Time    `bson:"createdAt" json:"createdAt"`
}

// ReferenceSolution is the instructor's solution that code submissions are compared against.
type ReferenceSolution struct {
	AssignmentID string    `bson:"assignment_id" json:"assignment_id"`
	Language     string    `bson:"language" json:"language"`
	Code         string    `bson:"code" json:"code"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// AnalysisJob is the payload carried on the Redis stream.
type AnalysisJob struct {
	AssignmentID string       `json:"assignment_id"`
	Kind         DocumentKind `json:"kind"`
}

// CorpusEntry is one reference sentence and its embedding.
type CorpusEntry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Source    string    `json:"source"`
	Type      string    `json:"type"`
}

// ExactMatchRecord keys a normalized sentence by its SHA-256 hex digest.
type ExactMatchRecord struct {
	Hash           string    `bson:"_id" json:"hash"`
	NormalizedText string    `bson:"normalized_text" json:"normalized_text"`
	DocumentID     string    `bson:"document_id" json:"document_id"`
	Source         string    `bson:"source" json:"source"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

// VectorQuery asks a vector index for the TopK entries of Type closest to Embedding.
type VectorQuery struct {
	Embedding []float32
	TopK      int
	Type      string
}

type Neighbor struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float64
}

// AnalyzeTextRequest is the body of POST /analyze/text
type AnalyzeTextRequest struct {
	AssignmentID string `json:"assignment_id"`
	Text         string `json:"text" binding:"required"`
}

// AnalyzeCodeRequest is the body of POST /analyze/code
type AnalyzeCodeRequest struct {
	AssignmentID  string `json:"assignment_id" binding:"required"`
	Code          string `json:"code" binding:"required"`
	ReferenceCode string `json:"reference_code"`
}

type ReferenceRequest struct {
	AssignmentID string `json:"assignment_id" binding:"required"`
	Language     string `json:"language"`
	Code         string `json:"code" binding:"required"`
}

type CorpusIngestRequest struct {
	Source string `json:"source" binding:"required"`
	Text   string `json:"text" binding:"required"`
	Type   string `json:"type"`
}

type CorpusIngestResponse struct {
	Source        string `json:"source"`
	Entries       int    `json:"entries"`
	ExactInserted int    `json:"exact_inserted"`
}

// SubmitResponse is returned when a document is accepted for async analysis
type SubmitResponse struct {
	Step         Step   `json:"step"`
	AssignmentID string `json:"assignment_id"`
}

type StatusResponse struct {
	AssignmentID string `json:"assignment_id"`
	Step         Step   `json:"step"`
}
