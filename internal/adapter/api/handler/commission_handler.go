package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"bims/internal/domain/repository"
	"bims/internal/usecase"
	"bims/pkg/response"
	"bims/pkg/utils"
)

type CommissionHandler struct {
	commissionUseCase *usecase.CommissionUseCase
}

func NewCommissionHandler(commissionUseCase *usecase.CommissionUseCase) *CommissionHandler {
	return &CommissionHandler{
		commissionUseCase: commissionUseCase,
	}
}

func (h *CommissionHandler) ListCommissions(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c)
	filter := repository.CommissionFilter{
		BrokerID:  c.QueryParam("broker_id"),
		SellerID:  c.QueryParam("seller_id"),
		ListingID: c.QueryParam("listing_id"),
		Limit:     pagination.PageSize,
		Offset:    pagination.Offset,
	}
	if status := c.QueryParam("status"); status != "" {
		filter.Statuses = strings.Split(status, ",")
	}

	commissions, total, err := h.commissionUseCase.ListCommissions(c.Request().Context(), actor, filter)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, commissions, total, pagination.Page, pagination.PageSize)
}

func (h *CommissionHandler) GetCommission(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	commission, err := h.commissionUseCase.GetCommission(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, commission)
}

func (h *CommissionHandler) PayCommission(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	result, err := h.commissionUseCase.PaySingleCommission(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *CommissionHandler) RequestPayout(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	result, err := h.commissionUseCase.RequestPayout(c.Request().Context(), actor)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}
