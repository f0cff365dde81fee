package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/internal/usecase"
	"bims/pkg/errors"
	"bims/pkg/response"
	"bims/pkg/utils"
)

type ListingHandler struct {
	listingUseCase *usecase.ListingUseCase
	staleAfter     time.Duration
}

func NewListingHandler(listingUseCase *usecase.ListingUseCase, staleAfter time.Duration) *ListingHandler {
	return &ListingHandler{
		listingUseCase: listingUseCase,
		staleAfter:     staleAfter,
	}
}

type AssignBrokerRequest struct {
	BrokerID string `json:"broker_id" validate:"required"`
}

type VerifyListingRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Notes    string `json:"notes"`
}

type SellListingRequest struct {
	BuyerID string `json:"buyer_id" validate:"required"`
}

type SweepRequest struct {
	OlderThan string `json:"older_than"`
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	var input usecase.CreateListingInput
	if err := bindAndValidate(c, &input); err != nil {
		return response.Error(c, err)
	}

	result, err := h.listingUseCase.CreateListing(c.Request().Context(), actor.UserID, input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, result)
}

func (h *ListingHandler) ListListings(c echo.Context) error {
	pagination := utils.GetPaginationParams(c)

	filter := repository.ListingFilter{
		OwnerID:            c.QueryParam("owner_id"),
		Type:               c.QueryParam("type"),
		Location:           c.QueryParam("location"),
		Status:             c.QueryParam("status"),
		VerificationStatus: c.QueryParam("verification_status"),
		PaymentStatus:      c.QueryParam("payment_status"),
		AssignedBroker:     c.QueryParam("assigned_broker"),
		MinPrice:           utils.QueryFloat(c, "min_price"),
		MaxPrice:           utils.QueryFloat(c, "max_price"),
		Limit:              pagination.PageSize,
		Offset:             pagination.Offset,
	}
	// the admin "assigned" view only shows listings that actually carry a broker
	if filter.VerificationStatus == entity.VerificationAssigned {
		filter.HasBroker = true
	}

	listings, total, err := h.listingUseCase.ListListings(c.Request().Context(), actorFrom(c), filter)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, listings, total, pagination.Page, pagination.PageSize)
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	listing, err := h.listingUseCase.GetListing(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) UpdateListing(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	var input usecase.UpdateListingInput
	if err := bindAndValidate(c, &input); err != nil {
		return response.Error(c, err)
	}

	listing, err := h.listingUseCase.UpdateListing(c.Request().Context(), actor, c.Param("id"), input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) DeleteListing(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.listingUseCase.DeleteListing(c.Request().Context(), actor, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Listing deleted successfully",
	})
}

func (h *ListingHandler) RetryPayment(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	result, err := h.listingUseCase.RetryListingPayment(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *ListingHandler) AssignBroker(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req AssignBrokerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	listing, err := h.listingUseCase.AssignBroker(c.Request().Context(), actor, c.Param("id"), req.BrokerID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) VerifyListing(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req VerifyListingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	listing, err := h.listingUseCase.VerifyListing(c.Request().Context(), actor, c.Param("id"), req.Decision, req.Notes)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) SellListing(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req SellListingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.listingUseCase.SellListing(c.Request().Context(), actor, c.Param("id"), req.BuyerID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *ListingHandler) SweepStaleListings(c echo.Context) error {
	var req SweepRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	olderThan := h.staleAfter
	if req.OlderThan != "" {
		d, err := time.ParseDuration(req.OlderThan)
		if err != nil {
			return response.Error(c, errors.Validation("older_than must be a duration such as 72h"))
		}
		olderThan = d
	}

	result, err := h.listingUseCase.SweepStaleListings(c.Request().Context(), olderThan)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}
