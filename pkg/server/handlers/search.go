package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	temporal "github.com/semantalytics/jena-temporal"
	"github.com/semantalytics/jena-temporal/pkg/query"
)

// SearchHandler handles search requests
type SearchHandler struct {
	dataset *temporal.Dataset
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(ds *temporal.Dataset) *SearchHandler {
	return &SearchHandler{dataset: ds}
}

// SearchRequest is the JSON body of POST /search
type SearchRequest struct {
	Query     string `json:"query" binding:"required"`
	Predicate string `json:"predicate"`
	Graph     string `json:"graph"`
	Lang      string `json:"lang"`
	Limit     int    `json:"limit"`
	Highlight string `json:"highlight"`
	// Escape treats the query as free text rather than query syntax.
	Escape bool `json:"escape"`
}

// SearchResponse is the JSON response of a search
type SearchResponse struct {
	Hits  []query.Hit `json:"hits"`
	Count int         `json:"count"`
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.run(c, req)
}

// SearchGet handles GET /api/v1/search?q=...&lang=...&limit=...
func (h *SearchHandler) SearchGet(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	h.run(c, SearchRequest{
		Query:     q,
		Predicate: c.Query("predicate"),
		Graph:     c.Query("graph"),
		Lang:      c.Query("lang"),
		Limit:     limit,
		Highlight: c.Query("highlight"),
		Escape:    c.Query("escape") == "true",
	})
}

func (h *SearchHandler) run(c *gin.Context, req SearchRequest) {
	text := req.Query
	if req.Escape {
		text = query.Escape(text)
	}
	hits, err := h.dataset.Search(query.Request{
		Text:      text,
		Predicate: req.Predicate,
		GraphURI:  req.Graph,
		Lang:      req.Lang,
		Limit:     req.Limit,
		Highlight: req.Highlight,
	})
	if err != nil {
		var perr *query.ParseError
		if errors.As(err, &perr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if hits == nil {
		hits = []query.Hit{}
	}
	c.JSON(http.StatusOK, SearchResponse{Hits: hits, Count: len(hits)})
}
