package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/auth"
	"hostelhub/internal/maintenance"
)

func (h *Handler) createTicket(c *gin.Context) {
	var req maintenance.CreateParams
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	claims := auth.FromContext(c)
	ticket, err := h.maintenance.Create(c.Request.Context(), claims.Subject, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "maintenance ticket filed", "ticket": ticket})
}

func (h *Handler) listTickets(c *gin.Context) {
	claims := auth.FromContext(c)
	tickets, total, err := h.maintenance.List(c.Request.Context(), claims.Subject, claims.Role, maintenance.Filter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Category: c.Query("category"),
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
	})
	if err != nil {
		fail(c, err)
		return
	}
	if tickets == nil {
		tickets = []maintenance.Ticket{}
	}
	ok(c, http.StatusOK, gin.H{"tickets": tickets, "total": total})
}

func (h *Handler) ticketStats(c *gin.Context) {
	stats, err := h.maintenance.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"stats": stats})
}

func (h *Handler) getTicket(c *gin.Context) {
	claims := auth.FromContext(c)
	ticket, err := h.maintenance.Get(c.Request.Context(), claims.Subject, claims.Role, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"ticket": ticket})
}

func (h *Handler) updateTicket(c *gin.Context) {
	var req struct {
		Description       *string  `json:"description"`
		StudentRemarks    *string  `json:"studentRemarks"`
		Status            *string  `json:"status"`
		Priority          *string  `json:"priority"`
		AssignedTo        *string  `json:"assignedTo"`
		EstimatedCost     *float64 `json:"estimatedCost"`
		ActualCost        *float64 `json:"actualCost"`
		AdminRemarks      *string  `json:"adminRemarks"`
		ResolutionDetails *string  `json:"resolutionDetails"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	claims := auth.FromContext(c)
	ticket, err := h.maintenance.Update(c.Request.Context(), claims.Subject, claims.Role, c.Param("id"), maintenance.UpdateParams{
		Description:       req.Description,
		StudentRemarks:    req.StudentRemarks,
		Status:            req.Status,
		Priority:          req.Priority,
		AssignedTo:        req.AssignedTo,
		EstimatedCost:     req.EstimatedCost,
		ActualCost:        req.ActualCost,
		AdminRemarks:      req.AdminRemarks,
		ResolutionDetails: req.ResolutionDetails,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"ticket": ticket})
}

func (h *Handler) deleteTicket(c *gin.Context) {
	if err := h.maintenance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "maintenance ticket deleted"})
}
