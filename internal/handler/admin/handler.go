package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/service/admin"
	"github.com/jwalitptl/hospital-api/internal/service/blacklist"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

type Handler struct {
	admin     *admin.Service
	blacklist *blacklist.Service
}

func NewHandler(admin *admin.Service, blacklist *blacklist.Service) *Handler {
	return &Handler{admin: admin, blacklist: blacklist}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	g := r.Group("/admin", auth.RequireRole(model.RoleAdmin))
	{
		g.GET("/overview", h.Overview)
		g.PUT("/blacklist/patients/:id", h.command(h.blacklist.BlacklistPatient))
		g.DELETE("/blacklist/patients/:id", h.command(h.blacklist.UnblacklistPatient))
		g.PUT("/blacklist/doctors/:id", h.command(h.blacklist.BlacklistDoctor))
		g.DELETE("/blacklist/doctors/:id", h.command(h.blacklist.UnblacklistDoctor))
	}
}

func (h *Handler) Overview(c *gin.Context) {
	p, ok := handler.Principal(c)
	if !ok {
		return
	}

	overview, err := h.admin.Overview(c.Request.Context(), p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, overview)
}

type blacklistCommand func(ctx context.Context, p model.Principal, id uuid.UUID) (*model.BlacklistResult, error)

// command adapts a blacklist operation keyed by the :id parameter.
func (h *Handler) command(fn blacklistCommand) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := handler.Principal(c)
		if !ok {
			return
		}
		id, ok := handler.ParamID(c, "id")
		if !ok {
			return
		}

		res, err := fn(c.Request.Context(), p, id)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusOK, res)
	}
}
