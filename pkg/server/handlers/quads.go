package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	temporal "github.com/semantalytics/jena-temporal"
	"github.com/semantalytics/jena-temporal/pkg/store"
)

// QuadHandler handles quad ingestion and lookup
type QuadHandler struct {
	dataset *temporal.Dataset
	log     *slog.Logger
}

// NewQuadHandler creates a new quad handler
func NewQuadHandler(ds *temporal.Dataset, logger *slog.Logger) *QuadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuadHandler{dataset: ds, log: logger}
}

// QuadRequest is the JSON form of one quad
type QuadRequest struct {
	Graph     string `json:"graph"`
	Subject   string `json:"subject" binding:"required"`
	Predicate string `json:"predicate" binding:"required"`
	Object    string `json:"object" binding:"required"`
	Lang      string `json:"lang"`
	Datatype  string `json:"datatype"`
}

func (r QuadRequest) quad() store.Quad {
	return store.Quad{
		Graph:     r.Graph,
		Subject:   r.Subject,
		Predicate: r.Predicate,
		Object:    r.Object,
		Lang:      r.Lang,
		Datatype:  r.Datatype,
	}
}

// AddQuads handles POST /api/v1/quads: stores and indexes a batch of quads
// in a single transaction.
func (h *QuadHandler) AddQuads(c *gin.Context) {
	h.apply(c, func(txn *temporal.Txn, q store.Quad) error { return txn.Add(q) })
}

// DeleteQuads handles DELETE /api/v1/quads: removes a batch of quads and
// their index documents in a single transaction.
func (h *QuadHandler) DeleteQuads(c *gin.Context) {
	h.apply(c, func(txn *temporal.Txn, q store.Quad) error { return txn.Delete(q) })
}

func (h *QuadHandler) apply(c *gin.Context, op func(*temporal.Txn, store.Quad) error) {
	var reqs []QuadRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty quad batch"})
		return
	}

	txn, err := h.dataset.Begin(c.Request.Context(), temporal.TxnWrite)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer txn.End()

	for _, r := range reqs {
		if err := op(txn, r.quad()); err != nil {
			h.log.Error("quad operation failed", "error", err)
			txn.Abort()
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if err := txn.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(reqs)})
}

// FindQuads handles GET /api/v1/quads?graph=...&subject=...&predicate=...
func (h *QuadHandler) FindQuads(c *gin.Context) {
	txn, err := h.dataset.Begin(c.Request.Context(), temporal.TxnRead)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer txn.End()

	quads, err := txn.Find(c.Query("graph"), c.Query("subject"), c.Query("predicate"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]QuadRequest, 0, len(quads))
	for _, q := range quads {
		out = append(out, QuadRequest{
			Graph:     q.Graph,
			Subject:   q.Subject,
			Predicate: q.Predicate,
			Object:    q.Object,
			Lang:      q.Lang,
			Datatype:  q.Datatype,
		})
	}
	c.JSON(http.StatusOK, gin.H{"quads": out, "count": len(out)})
}
