package router

import (
	"github.com/labstack/echo/v4"

	"bims/internal/adapter/api/handler"
	"bims/internal/adapter/api/middleware"
	"bims/internal/infrastructure/ratelimit"
)

func SetupListingRouter(
	e *echo.Echo,
	listingHandler *handler.ListingHandler,
	contactHandler *handler.ContactHandler,
	authMiddleware *middleware.AuthMiddleware,
	limiter *ratelimit.RateLimiter,
) {
	paymentLimit := middleware.RateLimit(limiter, ratelimit.ActionPaymentInitiation)

	// Public reads; a token, when present, widens what the caller can see.
	public := e.Group("/v1/listings")
	public.Use(authMiddleware.OptionalAuth)
	public.GET("", listingHandler.ListListings)
	public.GET("/:id", listingHandler.GetListing)

	listings := e.Group("/v1/listings")
	listings.Use(authMiddleware.Authenticate)
	listings.POST("", listingHandler.CreateListing, paymentLimit)
	listings.PUT("/:id", listingHandler.UpdateListing)
	listings.DELETE("/:id", listingHandler.DeleteListing)
	listings.POST("/:id/payment", listingHandler.RetryPayment, paymentLimit)

	listings.POST("/:id/contact", contactHandler.InitiateContactPayment, paymentLimit)
	listings.GET("/:id/contact", contactHandler.CheckContactAccess)

	listings.POST("/:id/verify", listingHandler.VerifyListing, middleware.BrokerOrAdmin())
	listings.POST("/:id/sell", listingHandler.SellListing, middleware.BrokerOrAdmin())

	contacts := e.Group("/v1/contact-requests")
	contacts.Use(authMiddleware.Authenticate)
	contacts.GET("/:id", contactHandler.GetContactRequest)
}
