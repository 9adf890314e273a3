package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/auth"
	"hostelhub/internal/hostel"
	"hostelhub/internal/identity"
)

func (h *Handler) createRoom(c *gin.Context) {
	var req struct {
		RoomNumber string   `json:"roomNumber"`
		Floor      int      `json:"floor"`
		Capacity   int      `json:"capacity"`
		Type       string   `json:"type"`
		Facilities []string `json:"facilities"`
		Remarks    string   `json:"remarks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	room, err := h.rooms.Create(c.Request.Context(), hostel.CreateParams{
		RoomNumber: req.RoomNumber,
		Floor:      req.Floor,
		Capacity:   req.Capacity,
		Type:       req.Type,
		Facilities: req.Facilities,
		Remarks:    req.Remarks,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"room": room})
}

func (h *Handler) listRooms(c *gin.Context) {
	f := hostel.RoomFilter{
		Type:         c.Query("type"),
		Availability: c.Query("availability"),
	}
	if v := c.Query("floor"); v != "" {
		if floor, err := strconv.Atoi(v); err == nil {
			f.Floor = &floor
		}
	}

	rooms, err := h.rooms.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	if rooms == nil {
		rooms = []hostel.Room{}
	}
	ok(c, http.StatusOK, gin.H{"rooms": rooms})
}

func (h *Handler) roomOverview(c *gin.Context) {
	overview, floors, err := h.rooms.Overview(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if floors == nil {
		floors = []hostel.FloorStat{}
	}
	ok(c, http.StatusOK, gin.H{"overview": overview, "floorStats": floors})
}

func (h *Handler) unassignedStudents(c *gin.Context) {
	students, err := h.rooms.Unassigned(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if students == nil {
		students = []identity.User{}
	}
	ok(c, http.StatusOK, gin.H{"students": students})
}

func (h *Handler) myRoom(c *gin.Context) {
	claims := auth.FromContext(c)
	room, err := h.rooms.RoomOf(c.Request.Context(), claims.Subject)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"room": room})
}

func (h *Handler) getRoom(c *gin.Context) {
	room, err := h.rooms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"room": room})
}

func (h *Handler) updateRoom(c *gin.Context) {
	var req struct {
		Floor      *int     `json:"floor"`
		Capacity   *int     `json:"capacity"`
		Type       *string  `json:"type"`
		Facilities []string `json:"facilities"`
		Remarks    *string  `json:"remarks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.Validation("invalid request body"))
		return
	}

	room, err := h.rooms.Update(c.Request.Context(), c.Param("id"), hostel.UpdateParams{
		Floor:      req.Floor,
		Capacity:   req.Capacity,
		Type:       req.Type,
		Facilities: req.Facilities,
		Remarks:    req.Remarks,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"room": room})
}

func (h *Handler) assignRoom(c *gin.Context) {
	var req struct {
		StudentID string `json:"studentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.StudentID == "" {
		fail(c, apperrors.Validation("studentId is required"))
		return
	}

	room, err := h.rooms.Assign(c.Request.Context(), c.Param("id"), req.StudentID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "student assigned to room", "room": room})
}

func (h *Handler) removeFromRoom(c *gin.Context) {
	var req struct {
		StudentID string `json:"studentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.StudentID == "" {
		fail(c, apperrors.Validation("studentId is required"))
		return
	}

	room, err := h.rooms.Remove(c.Request.Context(), c.Param("id"), req.StudentID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "student removed from room", "room": room})
}
