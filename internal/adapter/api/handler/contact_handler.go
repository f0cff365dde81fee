package handler

import (
	"github.com/labstack/echo/v4"

	"bims/internal/usecase"
	"bims/pkg/response"
)

type ContactHandler struct {
	contactUseCase *usecase.ContactUseCase
}

func NewContactHandler(contactUseCase *usecase.ContactUseCase) *ContactHandler {
	return &ContactHandler{
		contactUseCase: contactUseCase,
	}
}

func (h *ContactHandler) InitiateContactPayment(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	result, err := h.contactUseCase.InitiateContactPayment(c.Request().Context(), actor.UserID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, result)
}

func (h *ContactHandler) CheckContactAccess(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	paid, err := h.contactUseCase.CheckContactAccess(c.Request().Context(), actor.UserID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{
		"paid": paid,
	})
}

func (h *ContactHandler) GetContactRequest(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	request, err := h.contactUseCase.GetContactRequest(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, request)
}
