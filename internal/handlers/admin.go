package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sessionclock-backend/internal/lifecycle"
	"sessionclock-backend/internal/models"
	"sessionclock-backend/internal/services"
)

type QueueLoader interface {
	Load(ctx context.Context, actor models.Profile) (*services.AdminQueue, error)
}

type AdminHandler struct {
	workflow    Workflow
	queue       QueueLoader
	authService Authenticator
	views       *lifecycle.Manager
}

func NewAdminHandler(workflow Workflow, queue QueueLoader, authService Authenticator, views *lifecycle.Manager) *AdminHandler {
	return &AdminHandler{workflow: workflow, queue: queue, authService: authService, views: views}
}

func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	q, err := h.queue.Load(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *AdminHandler) ApproveTimer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid timer ID", r))
		return
	}

	timer, err := h.workflow.ApproveTimer(r.Context(), ActorFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if view, ok := mountedView(r, h.views); ok {
		view.Upsert(r.Context(), timer)
	}

	writeJSON(w, http.StatusOK, timer)
}

func (h *AdminHandler) RejectTimer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid timer ID", r))
		return
	}

	if err := h.workflow.RejectOrDeleteTimer(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if view, ok := mountedView(r, h.views); ok {
		view.Remove(r.Context(), id)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Timer rejected"})
}

func (h *AdminHandler) ApproveSuperuser(w http.ResponseWriter, r *http.Request) {
	h.decideSuperuser(w, r, h.workflow.ApproveSuperuser)
}

func (h *AdminHandler) RejectSuperuser(w http.ResponseWriter, r *http.Request) {
	h.decideSuperuser(w, r, h.workflow.RejectSuperuser)
}

// mountedView returns the caller's view only when it is already mounted. A
// view mounted later loads the decision from storage.
func mountedView(r *http.Request, views *lifecycle.Manager) (*lifecycle.View, bool) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return views.Lookup(session.ID)
}

type superuserDecision func(ctx context.Context, actor models.Profile, targetID uuid.UUID) (services.ProfileChange, error)

// decideSuperuser applies an approval or rejection and pushes the changed
// profile to the target's mounted views.
func (h *AdminHandler) decideSuperuser(w http.ResponseWriter, r *http.Request, decide superuserDecision) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return
	}

	change, err := decide(r.Context(), ActorFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.authService.ProfileChanged(change.Profile)
	writeJSON(w, http.StatusOK, change)
}
