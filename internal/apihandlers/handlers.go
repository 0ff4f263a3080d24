package apihandlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"veracity/internal/app"
	"veracity/internal/consensus"
	"veracity/internal/metadata"
	"veracity/internal/providers"
	"veracity/internal/store"
	"veracity/internal/tasks"
	"veracity/internal/verification"
	"veracity/pkg/classifier"
)

const maxBatchSize = 100

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(a *app.App) *APIHandler {
	return &APIHandler{App: a}
}

type classifyRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

type batchRequest struct {
	Texts []string `json:"texts"`
}

type verifyRequest struct {
	Submission    verification.Submission `json:"submission"`
	Mode          string                  `json:"mode"`
	FetchMetadata bool                    `json:"fetch_metadata"`
}

type scoreRequest struct {
	Submission verification.Submission `json:"submission"`
	Toxicity   *float64                `json:"toxicity"`
	Metadata   *metadata.PageMetadata  `json:"metadata"`
}

func parseMode(raw string) (consensus.Mode, error) {
	if raw == "" {
		return consensus.Mode{}, nil
	}
	return consensus.ParseMode(raw)
}

func (h *APIHandler) ClassifyHandler(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	res, err := h.App.Engine.Classify(c.Request.Context(), req.Text, mode)
	if err != nil {
		respondError(c, err, res)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *APIHandler) ClassifyBatchHandler(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Texts) == 0 {
		BadRequest(c, "texts must contain at least one item")
		return
	}
	if len(req.Texts) > maxBatchSize {
		BadRequest(c, fmt.Sprintf("at most %d texts per batch", maxBatchSize))
		return
	}

	items := h.App.Engine.ClassifyBatch(req.Texts)
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *APIHandler) VerifyHandler(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	a, err := h.App.Engine.Assess(c.Request.Context(), req.Submission, mode, req.FetchMetadata)
	if err != nil {
		respondError(c, err, a)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}

func (h *APIHandler) ScoreHandler(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Submission.Validate(); err != nil {
		respondError(c, err, nil)
		return
	}

	var cons *consensus.Result
	if req.Toxicity != nil {
		if *req.Toxicity < 0 || *req.Toxicity > 1 {
			BadRequest(c, "toxicity must be in [0, 1]")
			return
		}
		cons = &consensus.Result{Result: classifier.Result{Toxicity: classifier.Toxicity{Score: *req.Toxicity}}}
	}

	score, risk := h.App.Engine.Score(req.Submission, cons, req.Metadata)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"verification": score, "risk": risk}})
}

func (h *APIHandler) ProvidersHandler(c *gin.Context) {
	cfg := h.App.Engine.Config()
	total, err := h.App.CostTracker.TotalCost(c.Request.Context())
	if err != nil {
		log.Warnf("Failed to read cost total: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"mode":           h.App.Engine.DefaultMode().String(),
		"active":         h.App.Engine.ProviderNames(),
		"providers":      providers.Statuses(cfg),
		"priority":       cfg.Analysis.Priority,
		"total_cost_usd": total,
	}})
}

func (h *APIHandler) EnqueueJobHandler(c *gin.Context) {
	if h.App.JobClient == nil {
		respondError(c, store.ErrUnavailable, nil)
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if _, err := parseMode(req.Mode); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := req.Submission.Validate(); err != nil {
		respondError(c, err, nil)
		return
	}

	st, err := h.App.JobClient.EnqueueAnalysis(c.Request.Context(), tasks.AnalysisPayload{
		RequestID:     requestID(c),
		Submission:    req.Submission,
		Mode:          req.Mode,
		FetchMetadata: req.FetchMetadata,
	})
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": st})
}

func (h *APIHandler) GetJobHandler(c *gin.Context) {
	if h.App.JobClient == nil {
		respondError(c, store.ErrUnavailable, nil)
		return
	}
	st, err := h.App.JobClient.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Errorf("GetJobHandler: %v", err)
		}
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st})
}
