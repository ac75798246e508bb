package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/service/booking"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	g := r.Group("/appointments")
	{
		g.POST("", auth.RequireRole(model.RolePatient, model.RoleAdmin), h.CreateAppointment)
		g.GET("", auth.RequireRole(model.RolePatient, model.RoleDoctor), h.ListAppointments)
		g.POST("/:id/cancel", auth.RequireRole(model.RolePatient, model.RoleAdmin), h.CancelAppointment)
		g.POST("/:id/complete", auth.RequireRole(model.RoleDoctor), h.CompleteAppointment)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req model.BookingRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	apt, err := h.service.ConfirmBooking(c.Request.Context(), p, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, apt)
}

// ListAppointments returns a patient's upcoming bookings, or a doctor's
// dashboard selected by ?view=upcoming|completed|cancelled.
func (h *Handler) ListAppointments(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}

	var (
		list []*model.Appointment
		err  error
	)
	switch p.Role {
	case model.RolePatient:
		list, err = h.service.ListForPatient(c.Request.Context(), p)
	case model.RoleDoctor:
		list, err = h.service.ListForDoctor(c.Request.Context(), p, model.ParseAppointmentView(c.Query("view")))
	default:
		err = apperrors.Forbidden("permission denied")
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if list == nil {
		list = []*model.Appointment{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, list)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	apt, err := h.service.CancelAppointment(c.Request.Context(), p, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.CompleteAppointmentRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	visit, err := h.service.CompleteAppointment(c.Request.Context(), p, id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, visit)
}
