// Catalog HTTP handlers.
//
// This file exposes REST endpoints for stylist services:
//   - GET /services                 (public search, paginated)
//   - GET /services/{id}            (public; drafts visible to their owner)
//   - POST /services                (stylist)
//   - PUT /services/{id}            (owner)
//   - PUT /services/{id}/published  (owner)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/geo"
	"github.com/tbourn/nabostylisten-backend/internal/services"
	"github.com/tbourn/nabostylisten-backend/internal/utils"
)

//
// DTOs
//

// ServiceRequest is the JSON payload for creating or updating a service.
type ServiceRequest struct {
	Title           string `json:"title"             example:"Balayage"`
	Description     string `json:"description"       example:"Naturlig lysning, inkl. toning"`
	Category        string `json:"category"          example:"hair"`
	PriceOre        int64  `json:"price_ore"         example:"120000"`
	DurationMinutes int    `json:"duration_minutes"  example:"150"`
	AtCustomerPlace bool   `json:"at_customer_place" example:"false"`
	AtStylistPlace  bool   `json:"at_stylist_place"  example:"true"`
}

func (r ServiceRequest) input() services.ServiceInput {
	return services.ServiceInput{
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		PriceOre:        r.PriceOre,
		DurationMinutes: r.DurationMinutes,
		AtCustomerPlace: r.AtCustomerPlace,
		AtStylistPlace:  r.AtStylistPlace,
	}
}

// PublishRequest toggles catalog visibility.
type PublishRequest struct {
	Published *bool `json:"published" binding:"required" example:"true"`
}

// ListServicesResponse wraps a page of catalog entries.
type ListServicesResponse struct {
	Services   []services.ServiceView `json:"services"`
	Pagination Pagination             `json:"pagination"`
}

//
// Handlers
//

// SearchServices godoc
// @ID          searchServices
// @Summary     Search the catalog
// @Description Full-text, price, category and distance search over published services.
// @Tags        Services
// @Produce     json
//
// @Param       q            query  string  false "Free text"                       example(balayage)
// @Param       category     query  string  false "Category"                        example(hair)
// @Param       stylist_id   query  string  false "Only services from this stylist"
// @Param       min_price    query  int     false "Minimum price in øre"
// @Param       max_price    query  int     false "Maximum price in øre"
// @Param       at_customer  query  bool    false "Only services offered as home visits"
// @Param       lat          query  number  false "Latitude of the search center"   example(59.9139)
// @Param       lng          query  number  false "Longitude of the search center"  example(10.7522)
// @Param       radius_km    query  number  false "Search radius (max 100)"         example(10)
// @Param       sort         query  string  false "relevance|price_asc|price_desc|newest|rating|distance"
// @Param       page         query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size    query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListServicesResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /services [get]
func (h *Handlers) SearchServices(c *gin.Context) {
	page, pageSize := clampPagination(c)
	q := services.SearchQuery{
		Text:       c.Query("q"),
		Category:   strings.ToLower(strings.TrimSpace(c.Query("category"))),
		StylistID:  strings.TrimSpace(c.Query("stylist_id")),
		AtCustomer: utils.Truthy(c.Query("at_customer")),
		Sort:       strings.TrimSpace(c.Query("sort")),
		Page:       page,
		PageSize:   pageSize,
	}
	var okMin, okMax bool
	q.MinPriceOre, okMin = utils.ParseInt64(c.Query("min_price"))
	q.MaxPriceOre, okMax = utils.ParseInt64(c.Query("max_price"))
	if !okMin || !okMax || q.MinPriceOre < 0 || q.MaxPriceOre < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "min_price and max_price must be whole øre amounts")
		return
	}

	lat, hasLat, okLat := utils.ParseFloat(c.Query("lat"))
	lng, hasLng, okLng := utils.ParseFloat(c.Query("lng"))
	radius, _, okRadius := utils.ParseFloat(c.Query("radius_km"))
	if !okLat || !okLng || !okRadius || hasLat != hasLng {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lat and lng must be given together as numbers")
		return
	}
	if hasLat {
		q.Near = &geo.Point{Lat: lat, Lng: lng}
		q.RadiusKm = radius
	}

	items, total, err := h.Catalog.Search(c.Request.Context(), q)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListServicesResponse{Services: items, Pagination: newPagination(page, pageSize, total)})
}

// GetService godoc
// @ID          getService
// @Summary     Get a service
// @Tags        Services
// @Produce     json
// @Param       id   path  string  true  "Service ID"
// @Success     200  {object}  services.ServiceView
// @Failure     404  {object}  handlers.ErrorResponse "Service not found"
// @Router      /services/{id} [get]
func (h *Handlers) GetService(c *gin.Context) {
	v, err := h.Catalog.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// CreateService godoc
// @ID          createService
// @Summary     Create a service
// @Description Creates an unpublished service owned by the calling stylist.
// @Tags        Services
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.ServiceRequest  true  "Service"
// @Success     201   {object}  domain.Service
// @Failure     400   {object}  handlers.ErrorResponse "Bad request"
// @Failure     403   {object}  handlers.ErrorResponse "Not a stylist"
// @Router      /services [post]
func (h *Handlers) CreateService(c *gin.Context) {
	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	svc, err := h.Catalog.Create(c.Request.Context(), actor(c), req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, svc)
}

// UpdateService godoc
// @ID          updateService
// @Summary     Update a service
// @Tags        Services
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                   true  "Service ID"
// @Param       body  body      handlers.ServiceRequest  true  "Service"
// @Success     200   {object}  domain.Service
// @Failure     400   {object}  handlers.ErrorResponse "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse "Service not found"
// @Router      /services/{id} [put]
func (h *Handlers) UpdateService(c *gin.Context) {
	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	svc, err := h.Catalog.Update(c.Request.Context(), actor(c), c.Param("id"), req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, svc)
}

// SetServicePublished godoc
// @ID          setServicePublished
// @Summary     Publish or hide a service
// @Tags        Services
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                   true  "Service ID"
// @Param       body  body      handlers.PublishRequest  true  "Visibility"
// @Success     200   {object}  domain.Service
// @Failure     404   {object}  handlers.ErrorResponse "Service not found"
// @Router      /services/{id}/published [put]
func (h *Handlers) SetServicePublished(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Published == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "published (bool) required")
		return
	}
	if actor(c).Role != domain.RoleStylist {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only stylists manage services")
		return
	}
	svc, err := h.Catalog.SetPublished(c.Request.Context(), actor(c), c.Param("id"), *req.Published)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, svc)
}
