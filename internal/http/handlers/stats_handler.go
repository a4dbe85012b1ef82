// Statistics, search and export handlers. All of them read the full
// application set; none mutates.
package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-tracker/internal/services"
	"github.com/tbourn/go-job-tracker/internal/stats"
	"github.com/tbourn/go-job-tracker/internal/utils"
)

// maxMonths bounds ?months= on the monthly endpoint.
const maxMonths = 36

// GetStats godoc
// @ID          getStats
// @Summary     Dashboard statistics
// @Description Totals, per-status counts, rates and averages over every application. Supports weak ETag via If-None-Match.
// @Tags        Stats
// @Produce     json
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Success     200  {object}  stats.Summary
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	etag, err := h.listETag(ctx, "stats", "")
	if err != nil {
		failErr(c, err)
		return
	}
	if notModified(c, etag) {
		return
	}
	sum, err := h.stats.Summary(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sum)
}

// GetTrend godoc
// @ID          getTrend
// @Summary     Applications created per day
// @Tags        Stats
// @Produce     json
// @Success     200  {array}  stats.TrendPoint
// @Router      /stats/trend [get]
func (h *Handlers) GetTrend(c *gin.Context) {
	pts, err := h.stats.Trend(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, pts)
}

// GetMonthly godoc
// @ID          getMonthly
// @Summary     Applications created per month
// @Tags        Stats
// @Produce     json
// @Param       months  query  int  false  "Number of months with data"  minimum(1) maximum(36) default(6)
// @Success     200  {array}  stats.MonthPoint
// @Router      /stats/monthly [get]
func (h *Handlers) GetMonthly(c *gin.Context) {
	months := utils.Clamp(utils.AtoiDefault(c.Query("months"), stats.DefaultMonths), 1, maxMonths)
	pts, err := h.stats.Monthly(c.Request.Context(), months)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, pts)
}

// SearchApplications godoc
// @ID          searchApplications
// @Summary     Free-text search
// @Description Ranks applications by similarity of q to company, role, tags and note contents.
// @Tags        Applications
// @Produce     json
// @Param       q      query  string  true   "Query"
// @Param       limit  query  int     false  "Max hits"  minimum(1) maximum(50) default(10)
// @Success     200  {array}   services.SearchHit
// @Failure     400  {object}  handlers.ErrorResponse "Missing query"
// @Router      /applications/search [get]
func (h *Handlers) SearchApplications(c *gin.Context) {
	limit := utils.Clamp(utils.AtoiDefault(c.Query("limit"), 10), 1, services.MaxSearchLimit)
	hits, err := h.search.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, hits)
}

// ExportApplications godoc
// @ID          exportApplications
// @Summary     Export applications
// @Description Downloads the (optionally filtered) application list as CSV or JSON.
// @Tags        Applications
// @Produce     text/csv
// @Produce     json
// @Param       format  query  string  false  "File format"  Enums(csv, json) default(csv)
// @Param       status  query  string  false  "Status filter"
// @Success     200  {file}    file
// @Failure     400  {object}  handlers.ErrorResponse "Invalid format or status"
// @Router      /applications/export [get]
func (h *Handlers) ExportApplications(c *gin.Context) {
	format, err := services.ParseExportFormat(c.Query("format"))
	if err != nil {
		failErr(c, err)
		return
	}
	// Buffer so a failure can still be reported as a JSON error.
	var buf bytes.Buffer
	if err := h.export.Export(c.Request.Context(), &buf, format, c.Query("status")); err != nil {
		failErr(c, err)
		return
	}
	name := "applications-" + time.Now().UTC().Format("2006-01-02") + "." + format
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, services.ContentType(format), buf.Bytes())
}
