package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/identity"
)

func intQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func (h *Handler) listStudents(c *gin.Context) {
	f := identity.Filter{
		Search:     c.Query("search"),
		Department: c.Query("department"),
		Limit:      intQuery(c, "limit", 20),
		Offset:     intQuery(c, "offset", 0),
	}
	if v := c.Query("semester"); v != "" {
		if sem, err := strconv.Atoi(v); err == nil {
			f.Semester = &sem
		}
	}
	if v := c.Query("enrolled"); v != "" {
		enrolled := v == "true" || v == "1"
		f.Enrolled = &enrolled
	}

	students, total, err := h.users.ListStudents(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	if students == nil {
		students = []identity.User{}
	}
	ok(c, http.StatusOK, gin.H{"students": students, "total": total})
}

func (h *Handler) studentCounts(c *gin.Context) {
	counts, err := h.users.CountStudents(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"stats": counts})
}

func (h *Handler) getStudent(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{"student": user}
	if user.Code() != "" {
		events, stats, herr := h.attendance.HistoryForCode(c.Request.Context(), user.Code())
		if herr == nil {
			if len(events) > 10 {
				events = events[:10]
			}
			resp["recentAttendance"] = events
			resp["attendanceStats"] = stats
		}
	}
	ok(c, http.StatusOK, resp)
}

func (h *Handler) updateStudent(c *gin.Context) {
	var req struct {
		Name        *string `json:"name"`
		Email       *string `json:"email"`
		StudentCode *string `json:"studentId"`
		Department  *string `json:"department"`
		Semester    *int    `json:"semester"`
		PhoneNumber *string `json:"phoneNumber"`
		RoomNumber  *string `json:"roomNumber"`
		IsActive    *bool   `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.Param("id"), identity.UpdateParams{
		Name:        req.Name,
		Email:       req.Email,
		StudentCode: req.StudentCode,
		Department:  req.Department,
		Semester:    req.Semester,
		PhoneNumber: req.PhoneNumber,
		RoomNumber:  req.RoomNumber,
		IsActive:    req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"student": user})
}

func (h *Handler) deactivateStudent(c *gin.Context) {
	if err := h.users.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "student deactivated"})
}
