package handler

import (
	"github.com/labstack/echo/v4"

	"bims/internal/usecase"
	"bims/pkg/response"
	"bims/pkg/utils"
)

type NotificationHandler struct {
	notificationUseCase *usecase.NotificationUseCase
}

func NewNotificationHandler(notificationUseCase *usecase.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
	}
}

func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c)
	unreadOnly := c.QueryParam("unread") == "true"

	page, err := h.notificationUseCase.ListNotifications(c.Request().Context(), actor.UserID, unreadOnly, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, page)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.notificationUseCase.MarkRead(c.Request().Context(), actor.UserID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Notification marked as read",
	})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return response.Error(c, err)
	}

	count, err := h.notificationUseCase.MarkAllRead(c.Request().Context(), actor.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{
		"updated": count,
	})
}
