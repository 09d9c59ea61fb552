package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/datallboy/gofetch/internal/app"
	"github.com/datallboy/gofetch/internal/domain"
	"github.com/datallboy/gofetch/internal/engine"
	"github.com/labstack/echo/v5"
)

type JobsController struct {
	App     *app.Context
	Manager *engine.JobManager
}

// Submit accepts a fetch job. With wait=true the handler blocks until the
// worker delivers the result and streams the raw bytes back; otherwise it
// acknowledges with the job record so the caller can poll GET /api/jobs/:id.
// Saturation is never surfaced as an error, only as "deferred".
func (ctrl *JobsController) Submit(c *echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	rec, results, err := ctrl.Manager.Submit(req.URL, req.RangeStart, req.RangeEnd)
	if err != nil {
		if errors.Is(err, domain.ErrPoolClosed) {
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	if !req.Wait {
		return c.JSON(http.StatusAccepted, SubmitResponse{
			ID:        rec.ID,
			Admission: rec.Admission,
			Status:    rec.Status,
		})
	}

	select {
	case res := <-results:
		if res.Err != nil {
			if errors.Is(res.Err, domain.ErrNotFound) {
				return c.JSON(http.StatusNotFound, ErrorResponse{Error: res.Err.Error()})
			}
			return c.JSON(http.StatusBadGateway, ErrorResponse{Error: res.Err.Error()})
		}
		return c.Blob(http.StatusOK, "application/octet-stream", res.Body)
	case <-c.Request().Context().Done():
		// The caller went away; the job still runs to completion.
		return c.Request().Context().Err()
	}
}

func (ctrl *JobsController) Get(c *echo.Context) error {
	id := c.Param("id")

	rec, ok := ctrl.Manager.Get(id)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown job id"})
	}

	return c.JSON(http.StatusOK, rec)
}

func (ctrl *JobsController) List(c *echo.Context) error {
	return c.JSON(http.StatusOK, ctrl.Manager.List())
}

// Status reports the pool partition and admission mode.
func (ctrl *JobsController) Status(c *echo.Context) error {
	return c.JSON(http.StatusOK, ctrl.App.Pool.Snapshot())
}

// History lists recorded transfers, newest first.
func (ctrl *JobsController) History(c *echo.Context) error {
	if ctrl.App.History == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "transfer history is disabled"})
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := ctrl.App.History.ListTransfers(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, records)
}
