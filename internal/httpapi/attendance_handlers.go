package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/attendance"
	"hostelhub/internal/auth"
)

func (h *Handler) markAttendance(c *gin.Context) {
	var req struct {
		StudentCode string   `json:"studentId"`
		Method      string   `json:"method"`
		Confidence  *float64 `json:"confidence"`
		ImageURL    string   `json:"imageUrl"`
		Location    string   `json:"location"`
		Remarks     string   `json:"remarks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	claims := auth.FromContext(c)
	evt, err := h.attendance.Mark(c.Request.Context(), claims.Subject, attendance.MarkParams{
		StudentCode: req.StudentCode,
		Method:      req.Method,
		Confidence:  req.Confidence,
		ImageURL:    req.ImageURL,
		Location:    req.Location,
		Remarks:     req.Remarks,
	})
	if err != nil {
		fail(c, err)
		return
	}

	attendanceMarked.WithLabelValues(evt.Method).Inc()
	ok(c, http.StatusCreated, gin.H{"message": "attendance marked successfully", "attendance": evt})
}

func (h *Handler) myAttendance(c *gin.Context) {
	claims := auth.FromContext(c)
	events, stats, err := h.attendance.HistoryForUser(c.Request.Context(), claims.Subject)
	if err != nil {
		fail(c, err)
		return
	}
	if events == nil {
		events = []attendance.Event{}
	}
	ok(c, http.StatusOK, gin.H{"attendance": events, "stats": stats})
}

func (h *Handler) studentAttendance(c *gin.Context) {
	events, stats, err := h.attendance.HistoryForCode(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		fail(c, err)
		return
	}
	if events == nil {
		events = []attendance.Event{}
	}
	ok(c, http.StatusOK, gin.H{"attendance": events, "stats": stats})
}

func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, apperrors.Validation("invalid " + key + ", expected YYYY-MM-DD")
	}
	return &t, nil
}

func (h *Handler) listAttendance(c *gin.Context) {
	day, err := dateQuery(c, "date")
	if err != nil {
		fail(c, err)
		return
	}
	start, err := dateQuery(c, "startDate")
	if err != nil {
		fail(c, err)
		return
	}
	end, err := dateQuery(c, "endDate")
	if err != nil {
		fail(c, err)
		return
	}

	events, total, err := h.attendance.List(c.Request.Context(), attendance.ListFilter{
		Day:         day,
		Start:       start,
		End:         end,
		StudentCode: c.Query("studentId"),
		Status:      c.Query("status"),
		Limit:       intQuery(c, "limit", 50),
		Offset:      intQuery(c, "offset", 0),
	})
	if err != nil {
		fail(c, err)
		return
	}
	if events == nil {
		events = []attendance.Event{}
	}
	ok(c, http.StatusOK, gin.H{"attendance": events, "total": total})
}

func (h *Handler) exportAttendance(c *gin.Context) {
	end := time.Now()
	start := end.AddDate(0, -1, 0)
	if t, err := dateQuery(c, "startDate"); err != nil {
		fail(c, err)
		return
	} else if t != nil {
		start = *t
	}
	if t, err := dateQuery(c, "endDate"); err != nil {
		fail(c, err)
		return
	} else if t != nil {
		end = *t
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="attendance-report.csv"`)
	if err := h.attendance.ExportCSV(c.Request.Context(), c.Writer, start, end); err != nil {
		h.log.Error().Err(err).Msg("attendance export failed")
	}
}

func (h *Handler) attendanceDashboard(c *gin.Context) {
	dash, err := h.attendance.DashboardStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	counts, err := h.users.CountStudents(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"totalStudents":    counts.TotalStudents,
		"enrolledStudents": counts.EnrolledStudents,
		"presentToday":     dash.PresentToday,
		"absentToday":      counts.TotalStudents - dash.PresentToday,
		"recentActivity":   dash.Recent,
		"weeklyTrend":      dash.Trend,
	})
}

func (h *Handler) deleteAttendance(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "attendance record deleted"})
}
