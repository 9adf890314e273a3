package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/auth"
	"hostelhub/internal/visitor"
)

func (h *Handler) checkInVisitor(c *gin.Context) {
	var req visitor.CheckInParams
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	claims := auth.FromContext(c)
	v, err := h.visitors.CheckIn(c.Request.Context(), claims.Subject, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "visitor checked in", "visitor": v})
}

func (h *Handler) listVisitors(c *gin.Context) {
	f := visitor.Filter{
		Purpose: c.Query("purpose"),
		Limit:   intQuery(c, "limit", 50),
		Offset:  intQuery(c, "offset", 0),
	}
	if v := c.Query("active"); v != "" {
		active := v == "true" || v == "1"
		f.Active = &active
	}
	day, err := visitor.ParseDay(c.Query("date"))
	if err != nil {
		fail(c, err)
		return
	}
	f.Day = day

	visitors, err := h.visitors.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	if visitors == nil {
		visitors = []visitor.Visitor{}
	}
	ok(c, http.StatusOK, gin.H{"visitors": visitors})
}

func (h *Handler) visitorStats(c *gin.Context) {
	stats, err := h.visitors.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"stats": stats})
}

func (h *Handler) getVisitor(c *gin.Context) {
	v, err := h.visitors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"visitor": v})
}

func (h *Handler) updateVisitor(c *gin.Context) {
	var req struct {
		Phone   *string `json:"phone"`
		Email   *string `json:"email"`
		Remarks *string `json:"remarks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	v, err := h.visitors.Update(c.Request.Context(), c.Param("id"), visitor.UpdateParams{
		Phone:   req.Phone,
		Email:   req.Email,
		Remarks: req.Remarks,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"visitor": v})
}

func (h *Handler) checkoutVisitor(c *gin.Context) {
	v, err := h.visitors.Checkout(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "visitor checked out", "visitor": v})
}

func (h *Handler) deleteVisitor(c *gin.Context) {
	if err := h.visitors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "visitor record deleted"})
}
