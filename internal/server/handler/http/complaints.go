package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/middleware"
	"github.com/staffdesk/staffdesk/internal/models"
)

// ComplaintService defines the staff operations required by
// ComplaintHandler.
type ComplaintService interface {
	Create(ctx context.Context, staffID string, req models.ComplaintRequest) (models.ComplaintReceipt, error)
	Dashboard(ctx context.Context, staffID string) (models.Dashboard, error)
	Public(ctx context.Context) (models.Dashboard, error)
	Delete(ctx context.Context, staffID string, id int64) error
	Profile(ctx context.Context, staffID string) (models.Profile, error)
}

// ComplaintHandler handles the endpoints behind bearer authentication.
type ComplaintHandler struct {
	ComplaintService ComplaintService
	Log              *zap.Logger
}

func (h *ComplaintHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.ComplaintService.Profile(r.Context(), middleware.GetStaffIDFromContext(r.Context()))
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	respond(w, http.StatusOK, "Profile retrieved", p)
}

func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ComplaintRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Log, err)
		return
	}
	rec, err := h.ComplaintService.Create(r.Context(), middleware.GetStaffIDFromContext(r.Context()), req)
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	respond(w, http.StatusCreated, "Complaint submitted successfully", rec)
}

func (h *ComplaintHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.ComplaintService.Dashboard(r.Context(), middleware.GetStaffIDFromContext(r.Context()))
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	respond(w, http.StatusOK, "Dashboard retrieved", d)
}

func (h *ComplaintHandler) Public(w http.ResponseWriter, r *http.Request) {
	d, err := h.ComplaintService.Public(r.Context())
	if err != nil {
		fail(w, h.Log, err)
		return
	}
	respond(w, http.StatusOK, "Public complaints retrieved", d)
}

// Delete handles DELETE /api/user/complaints/{id}/delete/.
func (h *ComplaintHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		fail(w, h.Log, apperr.Validation("invalid complaint id"))
		return
	}
	if err := h.ComplaintService.Delete(r.Context(), middleware.GetStaffIDFromContext(r.Context()), id); err != nil {
		fail(w, h.Log, err)
		return
	}
	respond(w, http.StatusOK, "Complaint deleted", nil)
}
