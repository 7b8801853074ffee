package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RishiKendai/provenance/internal/corpus"
	"github.com/RishiKendai/provenance/internal/models"
	"github.com/RishiKendai/provenance/internal/plagiarism"
	"github.com/RishiKendai/provenance/internal/preprocess"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxUploadBytes = 20 << 20

type Analyzer interface {
	AnalyzeText(ctx context.Context, assignmentID, text string) (*models.Report, error)
	AnalyzeCode(ctx context.Context, assignmentID, code string, references []string) (*models.CodeReport, error)
}

type DocumentSubmitter interface {
	Submit(ctx context.Context, filename string, data []byte, kind models.DocumentKind) (string, error)
}

type ReportStore interface {
	SaveReport(ctx context.Context, report *models.Report) error
	SaveCodeReport(ctx context.Context, report *models.CodeReport) error
	GetLatestReport(ctx context.Context, assignmentID string) (*models.Report, error)
	GetLatestCodeReport(ctx context.Context, assignmentID string) (*models.CodeReport, error)
}

type ReferenceStore interface {
	AddReference(ctx context.Context, ref *models.ReferenceSolution) error
	GetReferences(ctx context.Context, assignmentID string) ([]models.ReferenceSolution, error)
}

type StatusReader interface {
	GetStatus(ctx context.Context, assignmentID string) (models.Step, error)
}

type CorpusIngestor interface {
	IngestText(ctx context.Context, source, text, entryType string) (*corpus.Result, error)
	Stats(ctx context.Context) (map[string]int, error)
}

// Dependencies wires the handler to the engine and its stores.
type Dependencies struct {
	Analyzer   Analyzer
	Documents  DocumentSubmitter
	Reports    ReportStore
	References ReferenceStore
	Status     StatusReader
	Corpus     CorpusIngestor
}

// Handler holds dependencies for handlers
type Handler struct {
	deps           Dependencies
	computeSem     chan struct{}
	computeTimeout time.Duration
}

func NewHandler(deps Dependencies, maxConcurrent int, computeTimeout time.Duration) *Handler {
	return &Handler{
		deps:           deps,
		computeSem:     make(chan struct{}, max(1, maxConcurrent)),
		computeTimeout: computeTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// acquire takes a compute slot and returns the bounded context the analysis
// runs under. The caller must call release.
func (h *Handler) acquire(c *gin.Context) (ctx context.Context, release func(), ok bool) {
	select {
	case h.computeSem <- struct{}{}:
	case <-c.Request.Context().Done():
		c.JSON(http.StatusRequestTimeout, ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return nil, nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.computeTimeout)
	return ctx, func() {
		cancel()
		<-h.computeSem
	}, true
}

func (h *Handler) AnalyzeText(c *gin.Context) {
	var req models.AnalyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.AssignmentID == "" {
		req.AssignmentID = uuid.NewString()
	}

	ctx, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	report, err := h.deps.Analyzer.AnalyzeText(ctx, req.AssignmentID, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.deps.Reports.SaveReport(ctx, report); err != nil {
		log.Warn().Err(err).Str("assignment_id", req.AssignmentID).Msg("Failed to persist report")
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) AnalyzeCode(c *gin.Context) {
	var req models.AnalyzeCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	references := make([]string, 0, 1)
	if strings.TrimSpace(req.ReferenceCode) != "" {
		references = append(references, req.ReferenceCode)
	} else {
		refs, err := h.deps.References.GetReferences(ctx, req.AssignmentID)
		if err != nil {
			writeError(c, err)
			return
		}
		for _, r := range refs {
			references = append(references, r.Code)
		}
	}

	report, err := h.deps.Analyzer.AnalyzeCode(ctx, req.AssignmentID, req.Code, references)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.deps.Reports.SaveCodeReport(ctx, report); err != nil {
		log.Warn().Err(err).Str("assignment_id", req.AssignmentID).Msg("Failed to persist code report")
	}
	c.JSON(http.StatusOK, report)
}

// SubmitDocument accepts a multipart upload and queues it for analysis.
func (h *Handler) SubmitDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "A file field is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "Failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, "Failed to read upload")
		return
	}

	kind := models.DocumentKind(strings.ToLower(c.PostForm("kind")))
	assignmentID, err := h.deps.Documents.Submit(c.Request.Context(), fileHeader.Filename, data, kind)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, models.SubmitResponse{
		Step:         models.StepQueued,
		AssignmentID: assignmentID,
	})
}

// GetReport returns the newest report for an assignment, text or code.
func (h *Handler) GetReport(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("assignment_id")

	report, err := h.deps.Reports.GetLatestReport(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	codeReport, err := h.deps.Reports.GetLatestCodeReport(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}

	switch {
	case report != nil && (codeReport == nil || !codeReport.GeneratedAt.After(report.GeneratedAt)):
		c.JSON(http.StatusOK, report)
	case codeReport != nil:
		c.JSON(http.StatusOK, codeReport)
	default:
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "No report found for assignment",
			Code:  "REPORT_NOT_FOUND",
		})
	}
}

func (h *Handler) GetStatus(c *gin.Context) {
	id := c.Param("assignment_id")
	step, err := h.deps.Status.GetStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{AssignmentID: id, Step: step})
}

func (h *Handler) AddReference(c *gin.Context) {
	var req models.ReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.Language == "" {
		req.Language = "python"
	}

	ref := &models.ReferenceSolution{
		AssignmentID: req.AssignmentID,
		Language:     strings.ToLower(req.Language),
		Code:         req.Code,
	}
	if err := h.deps.References.AddReference(c.Request.Context(), ref); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ref)
}

func (h *Handler) IngestCorpus(c *gin.Context) {
	var req models.CorpusIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	ctx, release, ok := h.acquire(c)
	if !ok {
		return
	}
	defer release()

	res, err := h.deps.Corpus.IngestText(ctx, req.Source, req.Text, req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CorpusIngestResponse{
		Source:        res.Source,
		Entries:       res.Entries,
		ExactInserted: res.ExactInserted,
	})
}

func (h *Handler) CorpusStats(c *gin.Context) {
	stats, err := h.deps.Corpus.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": stats})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: msg,
		Code:  "INVALID_REQUEST",
	})
}

// writeError maps engine and extraction errors to a status code. Unknown
// errors are logged and hidden behind a generic message.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, preprocess.ErrUnsupportedFormat):
		status, code = http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT"
	case errors.Is(err, preprocess.ErrExtractionFailed):
		status, code = http.StatusBadRequest, "EXTRACTION_FAILED"
	case errors.Is(err, preprocess.ErrEmptyDocument), errors.Is(err, corpus.ErrEmptySource):
		status, code = http.StatusBadRequest, "EMPTY_DOCUMENT"
	case errors.Is(err, plagiarism.ErrInput), errors.Is(err, plagiarism.ErrParse):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, plagiarism.ErrCorpusUnavailable):
		status, code = http.StatusServiceUnavailable, "CORPUS_UNAVAILABLE"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "COMPUTATION_TIMEOUT"
	case errors.Is(err, plagiarism.ErrExternalService):
		code = "EXTERNAL_SERVICE_ERROR"
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		msg = "Internal server error"
	}
	c.JSON(status, ErrorResponse{Error: msg, Code: code})
}
