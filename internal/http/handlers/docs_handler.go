package handlers

import (
	"net/http"

	"vagabond/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// GetBookingVoucher returns the voucher PDF inline.
func (h *Handlers) GetBookingVoucher(c *gin.Context) {
	pdfBytes, filename, err := h.docsService(c).GenerateVoucher(c.Request.Context(), middleware.GetRequestContext(c), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
