package api

import (
	stdhttp "net/http"

	intconfig "vagabond/internal/config"
	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
	h "vagabond/internal/http/handlers"
	"vagabond/internal/http/middleware"
	"vagabond/internal/utils"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env, hs *h.Handlers) *gin.Engine {
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.LogError("", "http", "router", err, "failed to set trusted proxies")
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	parser := hs.TokenParser()
	optional := middleware.AuthOptional(parser)
	required := middleware.AuthRequired(parser)
	adminOnly := middleware.RequireRoles(domain.RoleAdmin)

	api := r.Group("/api")
	{
		api.GET("/health", hs.Health)
		api.GET("/db-check", hs.DBCheck)
		api.GET("/routes", h.Routes)

		// Auth
		auth := api.Group("/auth")
		auth.POST("/register", hs.Register)
		auth.POST("/login", hs.Login)

		// Catalog reads
		api.GET("/hotels/:hotelId/availability", hs.Availability)
		quote := api.Group("/quote", optional)
		quote.POST("/tour", hs.Quote(models.TargetTour))
		quote.POST("/hotel", hs.Quote(models.TargetHotel))

		// Payments
		payments := api.Group("/payments")
		mountPayments(payments, hs, optional)

		// Direct (pay later) bookings
		api.POST("/tour-bookings", optional, hs.CreateDirect(models.TargetTour))
		api.POST("/hotel-bookings", optional, hs.CreateDirect(models.TargetHotel))

		// Bookings
		bookings := api.Group("/bookings")
		bookings.GET("/mine", required, hs.MyBookings)
		bookings.GET("/:id", optional, hs.GetBooking)
		bookings.GET("/:id/voucher", optional, hs.GetBookingVoucher)
		bookings.PUT("/:id/cancel", required, hs.CancelBooking)
		bookings.PUT("/:id/status", required, adminOnly, hs.UpdateBookingStatus)
		bookings.DELETE("/:id", required, adminOnly, hs.DeleteBooking)

		// Admin
		admin := api.Group("/admin", required, adminOnly)
		admin.GET("/bookings", hs.AdminBookings)
		admin.GET("/dashboard", hs.Dashboard)

		// Realtime
		api.GET("/ws", hs.WS)
	}

	h.SetRouter(r)
	return r
}

func mountPayments(g *gin.RouterGroup, hs *h.Handlers, optional gin.HandlerFunc) {
	stripe := g.Group("/stripe")
	stripe.POST("/create-tour-checkout-session", optional, hs.CreateCheckout(models.ProviderStripe, models.TargetTour))
	stripe.POST("/create-hotel-checkout-session", optional, hs.CreateCheckout(models.ProviderStripe, models.TargetHotel))
	stripe.POST("/webhook", hs.StripeWebhook)
	stripe.GET("/booking-status", hs.StripeBookingStatus)

	paypal := g.Group("/paypal", optional)
	paypal.POST("/create-tour-booking", hs.CreateCheckout(models.ProviderPayPal, models.TargetTour))
	paypal.POST("/create-hotel-booking", hs.CreateCheckout(models.ProviderPayPal, models.TargetHotel))
	paypal.POST("/capture-tour-booking", hs.CapturePayPal(models.TargetTour))
	paypal.POST("/capture-hotel-booking", hs.CapturePayPal(models.TargetHotel))

	payos := g.Group("/payos", optional)
	payos.POST("/create-tour-checkout-link", hs.CreateCheckout(models.ProviderPayOS, models.TargetTour))
	payos.POST("/create-hotel-checkout-link", hs.CreateCheckout(models.ProviderPayOS, models.TargetHotel))
	payos.POST("/save-tour-booking", hs.SavePayOS(models.TargetTour))
	payos.POST("/save-hotel-booking", hs.SavePayOS(models.TargetHotel))
}
