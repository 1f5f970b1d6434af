package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/livraison/courier-tracking/internal/core/ports"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxBatchSize         = 500
)

// PositionDispatcher is the interface the handler uses to enqueue batched reports.
type PositionDispatcher interface {
	EnqueueBatch(batch []ports.SubmitPositionInput) error
}

// PositionHandler handles position ingestion and queries.
type PositionHandler struct {
	service    ports.PositionService
	dispatcher PositionDispatcher
}

func NewPositionHandler(service ports.PositionService, dispatcher PositionDispatcher) *PositionHandler {
	return &PositionHandler{service: service, dispatcher: dispatcher}
}

// Submit handles POST /positions/: persists a report and broadcasts it.
// A repeated Idempotency-Key returns the first report with 200 and no broadcast,
// or 409 while the first submission is still being stored.
//
// @Summary      Submit a courier position
// @Tags         positions
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string                 false  "Client retry key"
// @Param        body             body      submitPositionRequest  true   "Position"
// @Success      201              {object}  positionResponse
// @Success      200              {object}  positionResponse  "Idempotent replay"
// @Failure      400              {object}  errorResponse
// @Failure      409              {object}  errorResponse  "Same key still in progress"
// @Failure      422              {object}  errorResponse
// @Failure      429              {object}  errorResponse
// @Failure      503              {object}  errorResponse
// @Router       /positions/ [post]
func (h *PositionHandler) Submit(c echo.Context) error {
	var req submitPositionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
	res, err := h.service.Submit(c.Request().Context(), toSubmitInput(req, key))
	if err != nil {
		return err
	}

	if res.Replayed {
		c.Response().Header().Set(headerReplayed, "true")
		return c.JSON(http.StatusOK, toPositionResponse(*res.Report))
	}
	return c.JSON(http.StatusCreated, toPositionResponse(*res.Report))
}

// SubmitBatch handles POST /positions/batch/: validates every report, then
// enqueues them for asynchronous submission and returns 202.
//
// @Summary      Submit a batch of positions
// @Tags         positions
// @Accept       json
// @Produce      json
// @Param        body  body      []submitPositionRequest  true  "Positions"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /positions/batch/ [post]
func (h *PositionHandler) SubmitBatch(c echo.Context) error {
	var reqs []submitPositionRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}
	if len(reqs) > maxBatchSize {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("batch cannot exceed %d positions", maxBatchSize))
	}

	inputs := make([]ports.SubmitPositionInput, 0, len(reqs))
	for i, req := range reqs {
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("position[%d]: %s", i, err.Error()))
		}
		inputs = append(inputs, toSubmitInput(req, ""))
	}

	if err := h.dispatcher.EnqueueBatch(inputs); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "ingestion is shutting down")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "positions accepted",
		Count:   len(inputs),
	})
}

// Latest handles GET /positions/?latest=true. Without latest=true the result
// is an empty array.
//
// @Summary      Latest position of every courier
// @Tags         positions
// @Produce      json
// @Param        latest  query     bool  false  "Must be true to return positions"
// @Success      200     {array}   positionResponse
// @Failure      503     {object}  errorResponse
// @Router       /positions/ [get]
func (h *PositionHandler) Latest(c echo.Context) error {
	if c.QueryParam("latest") != "true" {
		return c.JSON(http.StatusOK, []positionResponse{})
	}

	reports, err := h.service.Latest(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPositionResponses(reports))
}

// History handles GET /livreurs/:id/positions/.
//
// @Summary      Position history of a courier, newest first
// @Tags         livreurs
// @Produce      json
// @Param        id     path      string  true   "Courier id"
// @Param        limit  query     int     false  "1..100, default 100"
// @Success      200    {array}   positionResponse
// @Failure      400    {object}  errorResponse
// @Failure      503    {object}  errorResponse
// @Router       /livreurs/{id}/positions/ [get]
func (h *PositionHandler) History(c echo.Context) error {
	limit := ports.DefaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > ports.DefaultHistoryLimit {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("limit must be an integer between 1 and %d", ports.DefaultHistoryLimit))
		}
		limit = n
	}

	reports, err := h.service.History(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPositionResponses(reports))
}
