// Package httpapi exposes the REST surface. Handlers bind and validate
// transport concerns, delegate to the domain services and translate the
// closed error kinds to HTTP statuses.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hostelhub/internal/attendance"
	"hostelhub/internal/auth"
	"hostelhub/internal/config"
	"hostelhub/internal/enrollment"
	"hostelhub/internal/faceclient"
	"hostelhub/internal/hostel"
	"hostelhub/internal/identity"
	"hostelhub/internal/maintenance"
	"hostelhub/internal/mealplan"
	"hostelhub/internal/visitor"
)

// Handler carries the wired services for the REST routes.
type Handler struct {
	cfg config.App
	log zerolog.Logger

	users       *identity.Service
	attendance  *attendance.Service
	rooms       *hostel.Service
	faces       *enrollment.Service
	face        *faceclient.Client
	visitors    *visitor.Service
	maintenance *maintenance.Service
	meals       *mealplan.Service
}

// New wires a handler.
func New(
	cfg config.App,
	log zerolog.Logger,
	users *identity.Service,
	att *attendance.Service,
	rooms *hostel.Service,
	faces *enrollment.Service,
	face *faceclient.Client,
	visitors *visitor.Service,
	maint *maintenance.Service,
	meals *mealplan.Service,
) *Handler {
	return &Handler{
		cfg:         cfg,
		log:         log,
		users:       users,
		attendance:  att,
		rooms:       rooms,
		faces:       faces,
		face:        face,
		visitors:    visitors,
		maintenance: maint,
		meals:       meals,
	}
}

// Routes mounts all API routes under /api.
func (h *Handler) Routes(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.POST("/auth/refresh", h.refresh)

	authed := api.Group("", auth.Bearer(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	admin := auth.RequireRole(identity.RoleAdmin)

	authed.GET("/auth/me", h.me)

	authed.POST("/attendance/mark", h.markAttendance)
	authed.GET("/attendance/my-attendance", h.myAttendance)
	authed.GET("/attendance/student/:studentId", admin, h.studentAttendance)
	authed.GET("/attendance/all", admin, h.listAttendance)
	authed.GET("/attendance/report/export", admin, h.exportAttendance)
	authed.GET("/attendance/stats/dashboard", admin, h.attendanceDashboard)
	authed.DELETE("/attendance/:id", admin, h.deleteAttendance)

	authed.POST("/face/enroll", h.enrollFace)
	authed.POST("/face/recognize", h.recognizeFace)
	authed.GET("/face/status", h.faceStatus)
	authed.GET("/face/health", h.faceHealth)
	authed.DELETE("/face/clear-all", admin, h.clearFaces)

	authed.GET("/students", admin, h.listStudents)
	authed.GET("/students/stats", admin, h.studentCounts)
	authed.GET("/students/:id", admin, h.getStudent)
	authed.PUT("/students/:id", admin, h.updateStudent)
	authed.DELETE("/students/:id", admin, h.deactivateStudent)

	authed.POST("/rooms", admin, h.createRoom)
	authed.GET("/rooms", h.listRooms)
	authed.GET("/rooms/overview", admin, h.roomOverview)
	authed.GET("/rooms/unassigned-students", admin, h.unassignedStudents)
	authed.GET("/rooms/my-room", h.myRoom)
	authed.GET("/rooms/:id", h.getRoom)
	authed.PUT("/rooms/:id", admin, h.updateRoom)
	authed.POST("/rooms/:id/assign", admin, h.assignRoom)
	authed.POST("/rooms/:id/remove", admin, h.removeFromRoom)

	authed.POST("/visitors", h.checkInVisitor)
	authed.GET("/visitors", h.listVisitors)
	authed.GET("/visitors/stats", h.visitorStats)
	authed.GET("/visitors/:id", h.getVisitor)
	authed.PUT("/visitors/:id", h.updateVisitor)
	authed.POST("/visitors/:id/checkout", h.checkoutVisitor)
	authed.DELETE("/visitors/:id", admin, h.deleteVisitor)

	authed.POST("/maintenance", h.createTicket)
	authed.GET("/maintenance", h.listTickets)
	authed.GET("/maintenance/stats", admin, h.ticketStats)
	authed.GET("/maintenance/:id", h.getTicket)
	authed.PUT("/maintenance/:id", h.updateTicket)
	authed.DELETE("/maintenance/:id", admin, h.deleteTicket)

	authed.POST("/meals/weekly", admin, h.uploadWeeklyPlan)
	authed.GET("/meals/weekly", h.listWeeklyPlans)
	authed.GET("/meals/weekly/:id", h.getWeeklyPlan)
	authed.POST("/meals/weekly/:id/process", admin, h.processWeeklyPlan)
	authed.POST("/meals", admin, h.createMeal)
	authed.GET("/meals", h.listMeals)
	authed.PUT("/meals/:id", admin, h.updateMeal)
	authed.DELETE("/meals/:id", admin, h.deleteMeal)
	authed.POST("/meals/feedback", h.submitMealFeedback)
	authed.GET("/meals/feedback", admin, h.listMealFeedback)
	authed.PUT("/meals/feedback/:id/resolve", admin, h.resolveMealFeedback)
	authed.GET("/meals/stats", admin, h.mealStats)
}
