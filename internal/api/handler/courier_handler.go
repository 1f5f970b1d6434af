package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/livraison/courier-tracking/internal/core/ports"
)

// CourierHandler handles HTTP requests for courier operations.
type CourierHandler struct {
	service ports.CourierService
}

func NewCourierHandler(service ports.CourierService) *CourierHandler {
	return &CourierHandler{service: service}
}

// List handles GET /livreurs/.
//
// @Summary      List couriers
// @Tags         livreurs
// @Produce      json
// @Success      200  {array}   courierResponse
// @Failure      503  {object}  errorResponse
// @Router       /livreurs/ [get]
func (h *CourierHandler) List(c echo.Context) error {
	couriers, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCourierResponses(couriers))
}

// Create handles POST /livreurs/.
//
// @Summary      Register a courier
// @Tags         livreurs
// @Accept       json
// @Produce      json
// @Param        body  body      createCourierRequest  true  "Courier"
// @Success      201   {object}  courierResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /livreurs/ [post]
func (h *CourierHandler) Create(c echo.Context) error {
	var req createCourierRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	courier, err := h.service.Create(c.Request().Context(), toCreateCourierInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCourierResponse(*courier))
}

// Get handles GET /livreurs/:id/.
//
// @Summary      Get a courier
// @Tags         livreurs
// @Produce      json
// @Param        id   path      string  true  "Courier id (e.g. LIV001)"
// @Success      200  {object}  courierResponse
// @Failure      404  {object}  errorResponse
// @Router       /livreurs/{id}/ [get]
func (h *CourierHandler) Get(c echo.Context) error {
	courier, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCourierResponse(*courier))
}

// Update handles PUT /livreurs/:id/. Only the fields present in the body change.
//
// @Summary      Update a courier
// @Tags         livreurs
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Courier id"
// @Param        body  body      updateCourierRequest  true  "Fields to change"
// @Success      200   {object}  courierResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /livreurs/{id}/ [put]
func (h *CourierHandler) Update(c echo.Context) error {
	var req updateCourierRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	courier, err := h.service.Update(c.Request().Context(), c.Param("id"), toCourierUpdate(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCourierResponse(*courier))
}
