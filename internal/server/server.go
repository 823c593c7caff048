// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the research pipeline and the bibliographic
// providers over HTTP. All handlers are stateless: each request builds
// its own pipeline values, so concurrent requests share nothing but the
// read-only registry.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/llms"

	"github.com/pdiddy/evidence-engine/internal/generate"
	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/internal/registry"
	"github.com/pdiddy/evidence-engine/internal/scholar"
	"github.com/pdiddy/evidence-engine/internal/websearch"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Handler holds the long-lived collaborators shared by all requests.
type Handler struct {
	Registry  *registry.Registry
	Cfg       types.Config
	Search    *websearch.Aggregator
	OpenAlex  *scholar.OpenAlexClient
	Crossref  *scholar.CrossrefClient
	Arxiv     *scholar.ArxivClient
	EuropePMC *scholar.EuropePMCClient
	Log       *slog.Logger

	// newModel is generate.NewModel unless a test injects a stub.
	newModel func(ctx context.Context, reg *registry.Registry, cfg types.GenerationConfig) (llms.Model, string, error)
}

// NewHandler wires a Handler from the registry and configuration.
func NewHandler(reg *registry.Registry, cfg types.Config, log *slog.Logger) *Handler {
	client := httputil.NewClient(cfg.Scholar.Timeout)
	return &Handler{
		Registry:  reg,
		Cfg:       cfg,
		Search:    websearch.New(reg, cfg, log),
		OpenAlex:  &scholar.OpenAlexClient{Client: client, Mailto: reg.Key(registry.OpenAlexPolite)},
		Crossref:  &scholar.CrossrefClient{Client: client, PlusToken: reg.Key(registry.CrossrefPlus)},
		Arxiv:     &scholar.ArxivClient{Client: client},
		EuropePMC: &scholar.EuropePMCClient{Client: client},
		Log:       log,
		newModel:  generate.NewModel,
	}
}

// NewRouter builds the gin engine with recovery, request logging, and
// CORS, and registers every route.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes attaches every endpoint to the engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/research", h.research)
	r.GET("/status", h.status)

	r.GET("/openalex/works", h.openalexWorks)
	r.GET("/openalex/aboutness", h.openalexAboutness)
	r.GET("/crossref/works", h.crossrefWorks)
	r.GET("/arxiv/works", h.arxivWorks)
	r.GET("/europepmc/works", h.europepmcWorks)
}

// requestLogger logs one line per request with method, path, status,
// and latency.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

// status reports credential availability for every keyed provider plus
// always-true entries for the unkeyed public ones.
func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.Registry.Snapshot())
}

func (h *Handler) openalexWorks(c *gin.Context) {
	q, ok := requiredQuery(c)
	if !ok {
		return
	}
	page := scholar.Page{Cursor: c.Query("cursor"), PerPage: intQuery(c, "perPage")}

	out, err := h.OpenAlex.Works(c.Request.Context(), q, page, c.Query("filter"), h.Cfg.Scholar)
	if err != nil {
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) openalexAboutness(c *gin.Context) {
	title := c.Query("title")
	abstract := c.Query("abstract")
	fulltext := c.Query("fulltext")
	if title == "" && abstract == "" && fulltext == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "at least one of title, abstract, or fulltext is required",
		})
		return
	}

	raw, err := h.OpenAlex.Aboutness(c.Request.Context(), title, abstract, fulltext, h.Cfg.Scholar)
	if err != nil {
		upstreamError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func (h *Handler) crossrefWorks(c *gin.Context) {
	q, ok := requiredQuery(c)
	if !ok {
		return
	}
	page := scholar.Page{Cursor: c.Query("cursor"), PerPage: intQuery(c, "rows")}

	out, err := h.Crossref.Works(c.Request.Context(), q, page, c.Query("filter"), h.Cfg.Scholar)
	if err != nil {
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) arxivWorks(c *gin.Context) {
	q, ok := requiredQuery(c)
	if !ok {
		return
	}
	page := scholar.Page{Cursor: c.Query("start"), PerPage: intQuery(c, "maxResults")}

	out, err := h.Arxiv.Works(c.Request.Context(), q, page, c.Query("sortBy"), c.Query("sortOrder"), h.Cfg.Scholar)
	if err != nil {
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) europepmcWorks(c *gin.Context) {
	q, ok := requiredQuery(c)
	if !ok {
		return
	}
	page := scholar.Page{Cursor: c.Query("cursor"), PerPage: intQuery(c, "pageSize")}

	out, err := h.EuropePMC.Search(c.Request.Context(), q, page, h.Cfg.Scholar)
	if err != nil {
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// requiredQuery fetches the q parameter, writing a 400 response with a
// descriptive message when it is missing or blank.
func requiredQuery(c *gin.Context) (string, bool) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter q"})
		return "", false
	}
	return q, true
}

// intQuery parses an integer query parameter, 0 when absent or not a
// number. Out-of-range values are clamped by the provider clients, not
// rejected here.
func intQuery(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

func upstreamError(c *gin.Context, err error) {
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}
