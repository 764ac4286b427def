// Profile HTTP handlers.
//
//   - GET  /me/profile    (own profile with addresses)
//   - PUT  /me/profile    (create on first use, then update)
//   - POST /me/addresses  (add an address)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/services"
)

// ProfileRequest is the JSON payload for PUT /me/profile.
type ProfileRequest struct {
	FullName string `json:"full_name" example:"Kari Nordmann"`
	Email    string `json:"email"     example:"kari@example.no"`
	Phone    string `json:"phone"     example:"+47 412 34 567"`
	Bio      string `json:"bio"       example:"Frisør på Grünerløkka"`
}

// AddressRequest is the JSON payload for POST /me/addresses.
type AddressRequest struct {
	Street     string  `json:"street"      example:"Thorvald Meyers gate 12"`
	PostalCode string  `json:"postal_code" example:"0555"`
	City       string  `json:"city"        example:"Oslo"`
	Lat        float64 `json:"lat"         example:"59.9225"`
	Lng        float64 `json:"lng"         example:"10.7590"`
	Primary    bool    `json:"primary"     example:"true"`
}

// ProfileResponse is a profile with its addresses.
type ProfileResponse struct {
	Profile   *domain.Profile  `json:"profile"`
	Addresses []domain.Address `json:"addresses"`
}

// GetMyProfile godoc
// @ID          getMyProfile
// @Summary     Get own profile
// @Tags        Profile
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ProfileResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse "Profile not created yet"
// @Router      /me/profile [get]
func (h *Handlers) GetMyProfile(c *gin.Context) {
	ctx := c.Request.Context()
	me := actor(c)
	p, err := h.Profiles.Get(ctx, me.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	addrs, err := h.Profiles.Addresses(ctx, me.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ProfileResponse{Profile: p, Addresses: addrs})
}

// PutMyProfile godoc
// @ID          putMyProfile
// @Summary     Create or update own profile
// @Description Creates the profile on first call; later calls update name, phone and bio.
// @Tags        Profile
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.ProfileRequest  true  "Profile"
// @Success     200   {object}  domain.Profile
// @Failure     400   {object}  handlers.ErrorResponse "Bad request"
// @Failure     409   {object}  handlers.ErrorResponse "Email already in use"
// @Router      /me/profile [put]
func (h *Handlers) PutMyProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.Profiles.Upsert(c.Request.Context(), actor(c), services.ProfileInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Bio:      req.Bio,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// AddMyAddress godoc
// @ID          addMyAddress
// @Summary     Add an address
// @Tags        Profile
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.AddressRequest  true  "Address"
// @Success     201   {object}  domain.Address
// @Failure     400   {object}  handlers.ErrorResponse "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse "Profile not created yet"
// @Router      /me/addresses [post]
func (h *Handlers) AddMyAddress(c *gin.Context) {
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a, err := h.Profiles.AddAddress(c.Request.Context(), actor(c).ID, services.AddressInput{
		Street:     req.Street,
		PostalCode: req.PostalCode,
		City:       req.City,
		Lat:        req.Lat,
		Lng:        req.Lng,
		Primary:    req.Primary,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, a)
}
