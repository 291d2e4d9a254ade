// Package httpapi serves versioned entities over HTTP. Every request reads
// through its own reading mode, chosen by query parameters.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vault-md/versioned/internal/database"
	"github.com/vault-md/versioned/internal/logging"
	"github.com/vault-md/versioned/internal/readingmode"
	"github.com/vault-md/versioned/internal/services"
	"github.com/vault-md/versioned/internal/versioned"
)

// Query parameters selecting an explicit read mode.
const (
	ParamMode    = "mode"
	ParamStatus  = "status"
	ParamVersion = "version"
)

// Options configures NewRouter.
type Options struct {
	// DefaultMode is the reading mode of requests that do not pick one.
	// Empty means readingmode.DefaultMode.
	DefaultMode string
	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
	Logger   *logrus.Entry
}

type handler struct {
	svc *services.VersionedService
	log *logrus.Entry
}

// NewRouter builds the gin engine serving svc.
func NewRouter(svc *services.VersionedService, opts Options) (*gin.Engine, error) {
	if opts.DefaultMode == "" {
		opts.DefaultMode = readingmode.DefaultMode
	}
	if _, err := readingmode.Parse(opts.DefaultMode); err != nil {
		return nil, fmt.Errorf("httpapi: default mode: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = logging.For("httpapi")
	}

	h := &handler{svc: svc, log: log}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api", ReadingMode(opts.DefaultMode))
	api.GET("/:table", h.list)
	api.POST("/:table", h.create)
	api.GET("/:table/:id", h.get)
	api.PUT("/:table/:id", h.write)
	api.DELETE("/:table/:id", h.deleteFromDraft)
	api.GET("/:table/:id/status", h.status)
	api.GET("/:table/:id/versions", h.history)
	api.GET("/:table/:id/versions/:version", h.version)
	api.POST("/:table/:id/publish", h.publish)
	api.POST("/:table/:id/unpublish", h.unpublish)
	api.POST("/:table/:id/archive", h.archive)
	api.POST("/:table/:id/revert", h.revert)
	api.POST("/:table/:id/rollback", h.rollback)

	router.GET("/mode", ReadingMode(opts.DefaultMode), h.mode)

	return router, nil
}

type recordResponse struct {
	ID         int64             `json:"id"`
	Version    int64             `json:"version"`
	Fields     map[string]string `json:"fields"`
	LastEdited string            `json:"lastEdited"`
}

type versionResponse struct {
	recordResponse
	WasDraft     bool `json:"wasDraft"`
	WasPublished bool `json:"wasPublished"`
	WasDeleted   bool `json:"wasDeleted"`
}

type listResponse struct {
	Table   string           `json:"table"`
	Mode    string           `json:"mode"`
	Records []recordResponse `json:"records"`
}

type statusResponse struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	Label        string `json:"label"`
	Title        string `json:"title"`
	DraftVersion *int64 `json:"draftVersion,omitempty"`
	LiveVersion  *int64 `json:"liveVersion,omitempty"`
}

type writeRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

type rollbackRequest struct {
	Version int64 `json:"version" binding:"required,min=1"`
}

func toRecordResponse(r database.Record) recordResponse {
	return recordResponse{
		ID:         r.ID,
		Version:    r.Version,
		Fields:     r.Fields,
		LastEdited: r.LastEdited.UTC().Format(database.TimestampLayout),
	}
}

func toVersionResponse(v database.VersionRecord) versionResponse {
	return versionResponse{
		recordResponse: toRecordResponse(v.Record),
		WasDraft:       v.WasDraft,
		WasPublished:   v.WasPublished,
		WasDeleted:     v.WasDeleted,
	}
}

func (h *handler) list(c *gin.Context) {
	args, err := queryArgs(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	records, err := h.svc.List(c.Request.Context(), c.Param("table"), args)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := listResponse{
		Table:   c.Param("table"),
		Mode:    describeArgs(args),
		Records: make([]recordResponse, 0, len(records)),
	}
	for _, r := range records {
		resp.Records = append(resp.Records, toRecordResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) get(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	var (
		record *database.Record
		err    error
	)
	if c.Query(ParamMode) == "" {
		record, err = h.svc.Get(c.Request.Context(), c.Param("table"), id)
	} else {
		var args versioned.QueryArgs
		if args, err = queryArgs(c); err == nil {
			record, err = h.svc.Find(c.Request.Context(), c.Param("table"), args, id)
		}
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(*record))
}

func (h *handler) status(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	st, err := h.svc.Status(c.Request.Context(), c.Param("table"), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		ID:           st.ID,
		Status:       st.Status.Key(),
		Label:        st.Status.Label(),
		Title:        st.Status.Title(),
		DraftVersion: st.DraftVersion,
		LiveVersion:  st.LiveVersion,
	})
}

func (h *handler) history(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	versions, err := h.svc.History(c.Request.Context(), c.Param("table"), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := make([]versionResponse, 0, len(versions))
	for _, v := range versions {
		resp = append(resp, toVersionResponse(v))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) version(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	version, ok := h.idParam(c, "version")
	if !ok {
		return
	}
	v, err := h.svc.Version(c.Request.Context(), c.Param("table"), id, version)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toVersionResponse(*v))
}

func (h *handler) create(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	record, err := h.svc.WriteDraft(c.Request.Context(), c.Param("table"), 0, req.Fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRecordResponse(*record))
}

func (h *handler) write(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	record, err := h.svc.WriteDraft(c.Request.Context(), c.Param("table"), id, req.Fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(*record))
}

func (h *handler) publish(c *gin.Context) {
	h.transition(c, func(id int64) (*database.Record, error) {
		return h.svc.Publish(c.Request.Context(), c.Param("table"), id)
	})
}

func (h *handler) revert(c *gin.Context) {
	h.transition(c, func(id int64) (*database.Record, error) {
		return h.svc.RevertToLive(c.Request.Context(), c.Param("table"), id)
	})
}

func (h *handler) rollback(c *gin.Context) {
	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.transition(c, func(id int64) (*database.Record, error) {
		return h.svc.Rollback(c.Request.Context(), c.Param("table"), id, req.Version)
	})
}

func (h *handler) unpublish(c *gin.Context) {
	h.removal(c, h.svc.Unpublish)
}

func (h *handler) archive(c *gin.Context) {
	h.removal(c, h.svc.Archive)
}

func (h *handler) deleteFromDraft(c *gin.Context) {
	h.removal(c, h.svc.DeleteFromDraft)
}

func (h *handler) mode(c *gin.Context) {
	state := readingmode.FromContext(c.Request.Context())
	m := state.EffectiveMode()
	c.JSON(http.StatusOK, gin.H{"mode": m.String(), "description": readingmode.Describe(m)})
}

func (h *handler) transition(c *gin.Context, fn func(id int64) (*database.Record, error)) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	record, err := fn(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(*record))
}

func (h *handler) removal(c *gin.Context, fn func(ctx context.Context, table string, id int64) error) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), c.Param("table"), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s %q", name, c.Param(name))})
		return 0, false
	}
	return id, true
}

func (h *handler) fail(c *gin.Context, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, versioned.ErrInvalidArgument),
		errors.Is(err, versioned.ErrUnsupportedContext),
		errors.Is(err, readingmode.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrUnknownEntity), errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// queryArgs returns the arguments named by ?mode=, or the request's
// reading mode when there is none.
func queryArgs(c *gin.Context) (versioned.QueryArgs, error) {
	raw := c.Query(ParamMode)
	if raw == "" {
		return services.ArgsFromContext(c.Request.Context()), nil
	}

	args := versioned.QueryArgs{
		Mode:         versioned.ReadMode(strings.ToLower(raw)),
		ArchiveStage: readingmode.Stage(c.Query(ParamArchiveStage)),
		Status:       versioned.ParseStatusFilters(c.Query(ParamStatus)),
	}
	if date, ok := c.GetQuery(ParamArchiveDate); ok {
		args.ArchiveDate = &date
	}
	if v, ok := c.GetQuery(ParamVersion); ok {
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return versioned.QueryArgs{}, fmt.Errorf("%w: invalid version %q", versioned.ErrInvalidArgument, v)
		}
		args.Version = &version
	}
	if err := versioned.Validate(args); err != nil {
		return versioned.QueryArgs{}, err
	}
	return args, nil
}

func describeArgs(args versioned.QueryArgs) string {
	if m, ok := args.ReadingMode(); ok {
		return m.String()
	}
	return string(args.Mode)
}
