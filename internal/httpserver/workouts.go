// Workout CRUD. Create and delete are two-step cascades: the workout
// write and the owner's reference-array write run sequentially with no
// transaction around the pair. A failure between the steps leaves an
// orphaned workout (create) or a dangling reference (delete); that
// window is a documented limitation, surfaced to the caller as a 500.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MorganHuegel/endurance-data-serverside/internal/store"
)

const staleTokenMsg = "Username no longer exists. Please login again."

// populatedUser is the GET /workouts projection: the user document with
// its workout references resolved to full records.
type populatedUser struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	Email       string           `json:"email,omitempty"`
	Preferences []string         `json:"preferences"`
	Workouts    []*store.Workout `json:"workouts"`
}

// handleListWorkouts returns the caller's user document with workouts
// populated, most recent date first. A valid token whose user has been
// deleted is an error distinct from an empty list.
func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.FindUserByUsername(r.Context(), authedUsername(r))
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusBadRequest, staleTokenMsg)
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	workouts, err := s.store.FindWorkoutsByIDs(r.Context(), u.Workouts)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, populatedUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Preferences: u.Preferences,
		Workouts:    workouts,
	})
}

// handleCreateWorkout inserts the workout, then appends its id to the
// authenticated user's reference array, and returns the created record.
func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var workout store.Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		respondErr(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	workout.ID = "" // ids are store-assigned

	u, err := s.store.FindUserByUsername(r.Context(), authedUsername(r))
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusBadRequest, staleTokenMsg)
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	if err := s.store.CreateWorkout(r.Context(), &workout); err != nil {
		respondInternal(w, r, err)
		return
	}
	if err := s.store.PushWorkout(r.Context(), u.ID, workout.ID); err != nil {
		// The workout row already exists; it stays orphaned.
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, &workout)
}

// handleDeleteWorkout removes a workout the caller owns. Ownership is
// enforced inside the delete filter itself, so there is no window where
// a concurrent ownership change slips between check and delete.
func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respondErr(w, http.StatusUnprocessableEntity, "ID in parameters is not valid")
		return
	}

	u, err := s.store.FindUserByUsername(r.Context(), authedUsername(r))
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusBadRequest, staleTokenMsg)
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	if err := s.store.DeleteWorkoutOwned(r.Context(), id, u.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondErr(w, http.StatusNotFound, "Workout ID not found.")
			return
		}
		respondInternal(w, r, err)
		return
	}
	if err := s.store.PullWorkout(r.Context(), u.ID, id); err != nil {
		// The workout row is already gone; the stale reference stays.
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReplaceWorkout replaces a workout document wholesale. The body
// must carry id and userId; the caller proves ownership by matching a
// user document on both the token's username and that userId.
func (s *Server) handleReplaceWorkout(w http.ResponseWriter, r *http.Request) {
	var workout store.Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		respondErr(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if workout.ID == "" {
		respondErr(w, http.StatusBadRequest, "Workout id is required")
		return
	}

	_, err := s.store.FindUserByUsernameAndID(r.Context(), authedUsername(r), workout.UserID)
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusUnauthorized, "Not authorized to edit this workout")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	if err := s.store.ReplaceWorkout(r.Context(), &workout); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondErr(w, http.StatusNotFound, "Workout ID not found.")
			return
		}
		respondInternal(w, r, err)
		return
	}

	replaced, err := s.store.FindWorkoutByID(r.Context(), workout.ID)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, replaced)
}
