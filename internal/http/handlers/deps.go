package handlers

import (
	"database/sql"

	intconfig "vagabond/internal/config"
	intdb "vagabond/internal/db"
	"vagabond/internal/http/middleware"
	"vagabond/internal/payments"
	"vagabond/internal/realtime"
	"vagabond/internal/repositories"
	"vagabond/internal/services"

	"github.com/gin-gonic/gin"
)

// Handlers holds what the HTTP layer shares across requests. Services are
// built per request so each carries its request_id.
type Handlers struct {
	DB        *sql.DB
	Providers *payments.Registry
	Notifier  services.BookingNotifier
	Hub       *realtime.Hub
	JWTSecret []byte
}

func (h *Handlers) db() *sql.DB {
	if h.DB != nil {
		return h.DB
	}
	return intconfig.DB
}

func (h *Handlers) bookingRepo() repositories.BookingRepo {
	return repositories.BookingRepo{DB: h.db()}
}

func (h *Handlers) catalogRepo() repositories.CatalogRepo {
	return repositories.CatalogRepo{DB: h.db()}
}

func (h *Handlers) Auth(c *gin.Context) services.AuthService {
	return services.AuthService{
		Users:     repositories.UserRepo{DB: h.db()},
		Secret:    h.JWTSecret,
		RequestID: middleware.GetRequestID(c),
	}
}

// TokenParser serves the auth middleware; it needs no request.
func (h *Handlers) TokenParser() middleware.TokenParser {
	return services.AuthService{Secret: h.JWTSecret}
}

func (h *Handlers) materializer(c *gin.Context) services.Materializer {
	catalog := h.catalogRepo()
	return services.Materializer{
		Tx:        intdb.NewTxManager(h.db()),
		Bookings:  h.bookingRepo(),
		Catalog:   catalog,
		Notifier:  h.Notifier,
		RequestID: middleware.GetRequestID(c),
	}
}

func (h *Handlers) paymentService(c *gin.Context) services.PaymentService {
	catalog := h.catalogRepo()
	return services.PaymentService{
		Providers:    h.Providers,
		Quotes:       services.QuoteService{Catalog: catalog},
		Availability: services.AvailabilityService{Catalog: catalog},
		Materializer: h.materializer(c),
		RequestID:    middleware.GetRequestID(c),
	}
}

func (h *Handlers) bookingService(c *gin.Context) services.BookingService {
	return services.BookingService{
		Tx:        intdb.NewTxManager(h.db()),
		Bookings:  h.bookingRepo(),
		Catalog:   h.catalogRepo(),
		Notifier:  h.Notifier,
		RequestID: middleware.GetRequestID(c),
	}
}

func (h *Handlers) docsService(c *gin.Context) services.DocsService {
	return services.DocsService{
		Bookings:  h.bookingRepo(),
		Catalog:   h.catalogRepo(),
		RequestID: middleware.GetRequestID(c),
	}
}
