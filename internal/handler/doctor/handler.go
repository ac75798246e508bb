package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/service/availability"
	"github.com/jwalitptl/hospital-api/internal/service/booking"
	"github.com/jwalitptl/hospital-api/internal/service/slot"
	"github.com/jwalitptl/hospital-api/pkg/clock"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

type Handler struct {
	slots        *slot.Resolver
	availability *availability.Service
	booking      *booking.Service
}

func NewHandler(slots *slot.Resolver, availability *availability.Service, booking *booking.Service) *Handler {
	return &Handler{slots: slots, availability: availability, booking: booking}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	doctors := r.Group("/doctors")
	doctors.GET("/:id/slots", h.Slots)

	me := doctors.Group("/me", auth.RequireRole(model.RoleDoctor))
	{
		me.GET("/availability", h.GetAvailability)
		me.PUT("/availability", h.SaveAvailability)
		me.GET("/patients/:id/history", h.PatientHistory)
	}
}

type slotQuery struct {
	Date string `form:"date" binding:"required,date"`
}

// Slots lists the free start times for a doctor on a date.
func (h *Handler) Slots(c *gin.Context) {
	doctorID, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var q slotQuery
	if !httputil.BindQuery(c, &q) {
		return
	}
	date, _ := clock.ParseDate(q.Date)

	day, err := h.slots.Availability(c.Request.Context(), doctorID, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, day)
}

type weekQuery struct {
	From string `form:"from" binding:"omitempty,date"`
}

func (h *Handler) GetAvailability(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var q weekQuery
	if !httputil.BindQuery(c, &q) {
		return
	}
	var from clock.Date
	if q.From != "" {
		from, _ = clock.ParseDate(q.From)
	}

	days, err := h.availability.Week(c.Request.Context(), p, from)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, days)
}

func (h *Handler) SaveAvailability(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req model.SaveAvailabilityRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	days, err := h.availability.Save(c.Request.Context(), p, req.Days)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, days)
}

func (h *Handler) PatientHistory(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}
	patientID, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	history, err := h.booking.PatientHistory(c.Request.Context(), p, patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, history)
}
