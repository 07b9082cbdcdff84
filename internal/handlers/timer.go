package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sessionclock-backend/internal/lifecycle"
	"sessionclock-backend/internal/models"
	"sessionclock-backend/internal/services"
)

// Workflow is the set of timer and approval operations the handlers call.
type Workflow interface {
	RequestOrCreate(ctx context.Context, actor models.Profile, draft models.TimerDraft) (models.Timer, error)
	ApproveTimer(ctx context.Context, actor models.Profile, id uuid.UUID) (models.Timer, error)
	RejectOrDeleteTimer(ctx context.Context, actor models.Profile, id uuid.UUID) error
	ApproveSuperuser(ctx context.Context, actor models.Profile, targetID uuid.UUID) (services.ProfileChange, error)
	RejectSuperuser(ctx context.Context, actor models.Profile, targetID uuid.UUID) (services.ProfileChange, error)
}

type TimerHandler struct {
	workflow Workflow
	views    *lifecycle.Manager
}

func NewTimerHandler(workflow Workflow, views *lifecycle.Manager) *TimerHandler {
	return &TimerHandler{workflow: workflow, views: views}
}

// view returns the caller's mounted view, in step with the profile loaded
// for this request and past its first load.
func (h *TimerHandler) view(r *http.Request) (*lifecycle.View, error) {
	return sessionView(r, h.views)
}

func sessionView(r *http.Request, views *lifecycle.Manager) (*lifecycle.View, error) {
	session, _ := SessionFromContext(r.Context())
	actor := ActorFromContext(r.Context())

	view, err := views.Mount(session.ID, actor)
	if err != nil {
		return nil, err
	}

	current, err := view.Actor(r.Context())
	if err != nil {
		return nil, err
	}
	if current.Role != actor.Role || current.Status != actor.Status {
		if err := view.SetActor(r.Context(), actor); err != nil {
			return nil, err
		}
	}

	select {
	case <-view.Ready():
	case <-r.Context().Done():
		return nil, r.Context().Err()
	}
	return view, nil
}

func (h *TimerHandler) Board(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if raw := r.URL.Query().Get("active_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "active_only must be true or false", r))
			return
		}
		activeOnly = v
	}

	view, err := h.view(r)
	if err != nil {
		handleViewError(w, r, err)
		return
	}

	board, err := view.Board(r.Context(), activeOnly)
	if err != nil {
		handleViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *TimerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.TimerDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	timer, err := h.workflow.RequestOrCreate(r.Context(), ActorFromContext(r.Context()), draft)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if view, err := h.view(r); err == nil {
		view.Upsert(r.Context(), timer)
	}

	writeJSON(w, http.StatusCreated, timer)
}

// Refresh reloads the working set from storage and returns the new board.
func (h *TimerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		handleViewError(w, r, err)
		return
	}

	if err := view.Reload(r.Context()); err != nil {
		handleServiceError(w, r, &services.PersistenceError{Op: "reload timers", Err: err})
		return
	}

	board, err := view.Board(r.Context(), false)
	if err != nil {
		handleViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *TimerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid timer ID", r))
		return
	}

	if err := h.workflow.RejectOrDeleteTimer(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if view, err := h.view(r); err == nil {
		view.Remove(r.Context(), id)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Timer deleted"})
}

// Complete finishes a timer whose time has run out. Completing it again
// reports completed=false with the stored state.
func (h *TimerHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid timer ID", r))
		return
	}

	view, err := h.view(r)
	if err != nil {
		handleViewError(w, r, err)
		return
	}

	timer, ok, err := view.Complete(r.Context(), id)
	if err != nil {
		handleViewError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timer":     timer,
		"completed": ok,
	})
}

func (h *TimerHandler) Focus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid timer ID", r))
		return
	}

	view, err := h.view(r)
	if err != nil {
		handleViewError(w, r, err)
		return
	}

	countdown, err := view.Focus(r.Context(), id)
	if err != nil {
		handleViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countdown)
}

func (h *TimerHandler) Unfocus(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		handleViewError(w, r, err)
		return
	}

	if err := view.Unfocus(r.Context()); err != nil {
		handleViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Focus cleared"})
}

func (h *TimerHandler) Countdown(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid timer ID", r))
		return
	}

	view, err := h.view(r)
	if err != nil {
		handleViewError(w, r, err)
		return
	}

	countdown, err := view.Countdown(r.Context(), id)
	if err != nil {
		handleViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countdown)
}
