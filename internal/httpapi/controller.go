package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"copywatch/internal/domain"
	"copywatch/internal/ports"
	"copywatch/internal/usecase"
	"copywatch/internal/wiki"
)

// actorHeader carries the authenticated reviewer name, set by the auth
// proxy in front of the dashboard. Session handling itself lives there.
const actorHeader = "X-Copywatch-User"

// Enricher turns raw record batches into display-ready ones.
type Enricher interface {
	EnrichBatch(ctx context.Context, records []domain.Record, view domain.ViewContext) ([]domain.Record, error)
}

// Reviewer handles review transitions for single records.
type Reviewer interface {
	Apply(ctx context.Context, actor string, id int64, target domain.ReviewStatus) (domain.ReviewReceipt, error)
	Undo(ctx context.Context, actor string, id int64) error
}

// Site bundles the per-wiki collaborators behind the routes.
type Site struct {
	Target    wiki.Target
	Store     ports.RecordStore
	Directory ports.WikiDirectory
	Enricher  Enricher
	Reviewer  Reviewer
	Comparer  ports.ComparisonClient
}

// Controller registers and serves the JSON boundary.
type Controller struct {
	echo   *echo.Echo
	sites  map[string]*Site
	logger *slog.Logger
}

// NewController wires the routes onto the given echo instance.
func NewController(e *echo.Echo, sites map[string]*Site, logger *slog.Logger) *Controller {
	c := &Controller{echo: e, sites: sites, logger: logger}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.echo.GET("/:lang/api/records", c.GetRecords)
	c.echo.GET("/:lang/api/compare", c.GetComparison)
	c.echo.PUT("/:lang/review_add/:id/:status", c.ReviewAdd)
	c.echo.PUT("/:lang/review_undo/:id", c.ReviewUndo)
}

// Start serves until the listener fails or is shut down.
func (c *Controller) Start(addr string) error {
	return c.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.echo.Shutdown(ctx)
}

// RecordResponse is one display-ready record in the listing payload.
type RecordResponse struct {
	ID              int64              `json:"id"`
	DiffID          int64              `json:"diff_id"`
	PageNamespace   int                `json:"page_ns"`
	PageTitle       string             `json:"page_title"`
	DiffTimestamp   string             `json:"diff_timestamp"`
	Status          int                `json:"status"`
	Editor          string             `json:"editor,omitempty"`
	EditCount       *int               `json:"editcount,omitempty"`
	PageDead        bool               `json:"page_dead"`
	AutomatedScore  *float64           `json:"automated_score,omitempty"`
	Citations       []CitationResponse `json:"copyvios"`
	RelatedProjects []string           `json:"wikiprojects"`
	ReviewedBy      string             `json:"reviewed_by,omitempty"`
	ReviewedByURL   string             `json:"reviewed_by_url,omitempty"`
	ReviewTimestamp string             `json:"review_timestamp,omitempty"`
}

// CitationResponse is one parsed source citation.
type CitationResponse struct {
	MatchFraction float64 `json:"match_fraction"`
	MatchCount    int     `json:"match_count"`
	SourceURL     string  `json:"source_url"`
}

// ReceiptResponse echoes a successful review transition for inline display.
type ReceiptResponse struct {
	Status    int    `json:"status"`
	User      string `json:"user,omitempty"`
	UserPage  string `json:"userpage,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type errorBody struct {
	Code string `json:"code"`
	Info string `json:"info,omitempty"`
}

// GetRecords handles the JSON listing endpoint, including the lastid
// cursor and permalink views.
func (c *Controller) GetRecords(ctx echo.Context) error {
	site, ok := c.sites[ctx.Param("lang")]
	if !ok {
		return ctx.JSON(http.StatusNotFound, echo.Map{
			"error": errorBody{Code: "unknown_wiki", Info: "This wiki is not served here."},
		})
	}

	actor := ctx.Request().Header.Get(actorHeader)
	if actor != "" {
		blocked, err := site.Directory.IsActorBlocked(ctx.Request().Context(), actor)
		if err != nil {
			c.logError("block lookup failed", err)
			return ctx.JSON(http.StatusInternalServerError, echo.Map{
				"error": errorBody{Code: "database", Info: "Could not check your block status."},
			})
		}
		if blocked {
			return ctx.JSON(http.StatusForbidden, echo.Map{
				"error": errorBody{Code: "blocked", Info: "You are blocked on this wiki."},
			})
		}
	}

	query := ports.RecordQuery{Lang: site.Target.Lang, Filter: ctx.QueryParam("filter")}
	if query.Filter == "" {
		query.Filter = domain.FilterOpen
	}
	if raw := ctx.QueryParam("lastid"); raw != "" {
		query.LastID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := ctx.QueryParam("id"); raw != "" {
		query.RecordID, _ = strconv.ParseInt(raw, 10, 64)
	}

	view := domain.ViewContext{
		Lang:      site.Target.Lang,
		Filter:    query.Filter,
		Permalink: query.RecordID > 0,
	}

	records, err := site.Store.ListRecords(ctx.Request().Context(), query)
	if err != nil {
		c.logError("record listing failed", err)
		return ctx.JSON(http.StatusInternalServerError, echo.Map{
			"error": errorBody{Code: "database", Info: "Could not load records."},
		})
	}

	enriched, err := site.Enricher.EnrichBatch(ctx.Request().Context(), records, view)
	if err != nil {
		c.logError("enrichment failed", err)
		return ctx.JSON(http.StatusInternalServerError, echo.Map{
			"error": errorBody{Code: "upstream", Info: "Could not enrich records; retry the request."},
		})
	}

	payload := make([]RecordResponse, 0, len(enriched))
	for i := range enriched {
		payload = append(payload, toRecordResponse(&enriched[i]))
	}

	return ctx.JSON(http.StatusOK, echo.Map{"records": payload})
}

// ComparisonResponse carries one side-by-side comparison for the pane.
type ComparisonResponse struct {
	ArticleHTML   string `json:"article"`
	SourceHTML    string `json:"source"`
	ArticleAnchor string `json:"article_anchor,omitempty"`
	SourceAnchor  string `json:"source_anchor,omitempty"`
}

// GetComparison proxies one comparison request to the external viewer so the
// pane never talks to it directly.
func (c *Controller) GetComparison(ctx echo.Context) error {
	site, ok := c.sites[ctx.Param("lang")]
	if !ok {
		return ctx.JSON(http.StatusNotFound, echo.Map{
			"error": errorBody{Code: "unknown_wiki", Info: "This wiki is not served here."},
		})
	}

	oldID, err := strconv.ParseInt(ctx.QueryParam("oldid"), 10, 64)
	if err != nil || oldID <= 0 {
		return ctx.JSON(http.StatusBadRequest, echo.Map{
			"error": errorBody{Code: "bad_request", Info: "oldid must be a positive revision id."},
		})
	}
	source := ctx.QueryParam("url")
	if source == "" {
		return ctx.JSON(http.StatusBadRequest, echo.Map{
			"error": errorBody{Code: "bad_request", Info: "url is required."},
		})
	}

	result, err := site.Comparer.Compare(ctx.Request().Context(), domain.CompareRequest{
		OldID: oldID,
		URL:   source,
		Lang:  site.Target.Lang,
	})
	if err != nil {
		c.logError("comparison failed", err)
		return ctx.JSON(http.StatusBadGateway, echo.Map{
			"error": errorBody{Code: "upstream", Info: "Comparison viewer did not answer."},
		})
	}

	return ctx.JSON(http.StatusOK, ComparisonResponse{
		ArticleHTML:   result.ArticleHTML,
		SourceHTML:    result.SourceHTML,
		ArticleAnchor: result.ArticleAnchor,
		SourceAnchor:  result.SourceAnchor,
	})
}

// ReviewAdd applies a review status, or undoes it when the record already
// carries that status.
func (c *Controller) ReviewAdd(ctx echo.Context) error {
	site, ok := c.sites[ctx.Param("lang")]
	if !ok {
		return ctx.JSON(http.StatusNotFound, echo.Map{"error": "unknown"})
	}

	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "unknown"})
	}

	rawStatus, err := strconv.Atoi(ctx.Param("status"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "unknown"})
	}

	actor := ctx.Request().Header.Get(actorHeader)
	receipt, err := site.Reviewer.Apply(ctx.Request().Context(), actor, id, domain.ReviewStatus(rawStatus))
	if err != nil {
		status, code := reviewErrorCode(err)
		c.logError("review apply failed", err)
		return ctx.JSON(status, echo.Map{"error": code})
	}

	return ctx.JSON(http.StatusOK, ReceiptResponse{
		Status:    int(receipt.Status),
		User:      receipt.User,
		UserPage:  receipt.UserPageURL,
		Timestamp: receipt.Timestamp,
	})
}

// ReviewUndo reverts a record to the ready state.
func (c *Controller) ReviewUndo(ctx echo.Context) error {
	site, ok := c.sites[ctx.Param("lang")]
	if !ok {
		return ctx.JSON(http.StatusNotFound, echo.Map{"error": "unknown"})
	}

	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "unknown"})
	}

	actor := ctx.Request().Header.Get(actorHeader)
	if err := site.Reviewer.Undo(ctx.Request().Context(), actor, id); err != nil {
		status, code := reviewErrorCode(err)
		c.logError("review undo failed", err)
		return ctx.JSON(status, echo.Map{"error": code})
	}

	return ctx.JSON(http.StatusOK, ReceiptResponse{Status: int(domain.StatusReady)})
}

func toRecordResponse(rec *domain.Record) RecordResponse {
	citations := make([]CitationResponse, 0, len(rec.Citations))
	for _, cit := range rec.Citations {
		citations = append(citations, CitationResponse{
			MatchFraction: cit.MatchFraction,
			MatchCount:    cit.MatchCount,
			SourceURL:     cit.SourceURL,
		})
	}

	return RecordResponse{
		ID:              rec.ID,
		DiffID:          rec.DiffRevisionID,
		PageNamespace:   rec.PageNamespace,
		PageTitle:       rec.PageTitle,
		DiffTimestamp:   rec.DiffTimestampText,
		Status:          int(rec.Status),
		Editor:          rec.Editor,
		EditCount:       rec.EditCount,
		PageDead:        rec.PageIsDead,
		AutomatedScore:  rec.AutomatedScore,
		Citations:       citations,
		RelatedProjects: rec.RelatedProjects,
		ReviewedBy:      rec.StatusUser,
		ReviewedByURL:   rec.ReviewedByURL,
		ReviewTimestamp: rec.ReviewTimestampText,
	}
}

func reviewErrorCode(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, usecase.ErrBlocked):
		return http.StatusForbidden, "blocked"
	case errors.Is(err, usecase.ErrWrongUser):
		return http.StatusForbidden, "wrong_user"
	case errors.Is(err, usecase.ErrDatabase):
		return http.StatusInternalServerError, "database"
	default:
		return http.StatusInternalServerError, "unknown"
	}
}

func (c *Controller) logError(msg string, err error) {
	if c.logger != nil {
		c.logger.Error(msg, "error", err)
	}
}
