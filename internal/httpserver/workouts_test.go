package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MorganHuegel/endurance-data-serverside/internal/store"
)

// createWorkout posts a workout for the given user and returns the
// created record from the response.
func (e *testEnv) createWorkout(t *testing.T, bearer string, body map[string]any) store.Workout {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/workouts", bearer, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var w store.Workout
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
	require.NotEmpty(t, w.ID)
	return w
}

func TestCreateWorkoutCascadesReference(t *testing.T) {
	e := newTestEnv(t)
	tok := e.register(t, "billy", "password123")

	u, err := e.store.FindUserByUsername(context.Background(), "billy")
	require.NoError(t, err)

	w := e.createWorkout(t, tok, map[string]any{
		"userId":        u.ID,
		"date":          "2023-04-10T00:00:00Z",
		"totalDistance": map[string]any{"amount": 5, "unit": "miles"},
		"notes":         "easy run",
	})
	assert.Equal(t, u.ID, w.UserID)
	assert.Equal(t, "easy run", w.Notes)

	after, err := e.store.FindUserByUsername(context.Background(), "billy")
	require.NoError(t, err)
	assert.Contains(t, after.Workouts, w.ID)
}

func TestListWorkoutsSortedDateDesc(t *testing.T) {
	e := newTestEnv(t)
	tok := e.register(t, "billy", "password123")
	u, err := e.store.FindUserByUsername(context.Background(), "billy")
	require.NoError(t, err)

	for _, date := range []string{
		"2023-04-05T00:00:00Z",
		"2023-04-20T00:00:00Z",
		"2023-04-12T00:00:00Z",
	} {
		e.createWorkout(t, tok, map[string]any{"userId": u.ID, "date": date})
	}

	rec := e.do(t, http.MethodGet, "/workouts", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got populatedUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "billy", got.Username)
	require.Len(t, got.Workouts, 3)
	assert.True(t, got.Workouts[0].Date.After(got.Workouts[1].Date))
	assert.True(t, got.Workouts[1].Date.After(got.Workouts[2].Date))

	// Idempotent: an unchanged dataset lists identically.
	rec2 := e.do(t, http.MethodGet, "/workouts", tok, nil)
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.JSONEq(t, rec.Body.String(), rec2.Body.String())
}

func TestListWorkoutsEmpty(t *testing.T) {
	e := newTestEnv(t)
	tok := e.register(t, "billy", "password123")

	rec := e.do(t, http.MethodGet, "/workouts", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got populatedUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotNil(t, got.Workouts)
	assert.Empty(t, got.Workouts)
}

func TestDeleteWorkout(t *testing.T) {
	e := newTestEnv(t)
	tok := e.register(t, "billy", "password123")
	u, err := e.store.FindUserByUsername(context.Background(), "billy")
	require.NoError(t, err)

	original := u.Workouts
	w := e.createWorkout(t, tok, map[string]any{"userId": u.ID, "date": "2023-04-10T00:00:00Z"})

	rec := e.do(t, http.MethodDelete, "/workouts/"+w.ID, tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Reference set back to its original state, record gone.
	after, err := e.store.FindUserByUsername(context.Background(), "billy")
	require.NoError(t, err)
	assert.ElementsMatch(t, original, after.Workouts)
	_, err = e.store.FindWorkoutByID(context.Background(), w.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteWorkoutBadID(t *testing.T) {
	e := newTestEnv(t)
	tok := e.register(t, "billy", "password123")

	rec := e.do(t, http.MethodDelete, "/workouts/not-a-uuid", tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "ID in parameters is not valid", errBody(t, rec).Message)
}

func TestDeleteWorkoutNotFound(t *testing.T) {
	e := newTestEnv(t)
	tok := e.register(t, "billy", "password123")

	rec := e.do(t, http.MethodDelete, "/workouts/2f6b7c0a-7b9f-4a67-9c57-2d27f6f0c8a1", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Workout ID not found.", errBody(t, rec).Message)
}

func TestDeleteWorkoutOwnedBySomeoneElse(t *testing.T) {
	e := newTestEnv(t)
	billyTok := e.register(t, "billy", "password123")
	sallyTok := e.register(t, "sally", "password456")

	billy, err := e.store.FindUserByUsername(context.Background(), "billy")
	require.NoError(t, err)
	w := e.createWorkout(t, billyTok, map[string]any{"userId": billy.ID, "date": "2023-04-10T00:00:00Z"})

	rec := e.do(t, http.MethodDelete, "/workouts/"+w.ID, sallyTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Billy's workout survives.
	_, err = e.store.FindWorkoutByID(context.Background(), w.ID)
	assert.NoError(t, err)
}

func TestReplaceWorkout(t *testing.T) {
	e := newTestEnv(t)
	tok := e.register(t, "billy", "password123")
	u, err := e.store.FindUserByUsername(context.Background(), "billy")
	require.NoError(t, err)

	w := e.createWorkout(t, tok, map[string]any{
		"userId":       u.ID,
		"date":         "2023-04-10T00:00:00Z",
		"hoursOfSleep": 7.5,
		"notes":        "easy run",
	})

	rec := e.do(t, http.MethodPut, "/workouts", tok, map[string]any{
		"id":     w.ID,
		"userId": u.ID,
		"date":   "2023-04-10T00:00:00Z",
		"tss":    65,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got store.Workout
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, w.ID, got.ID)
	require.NotNil(t, got.TSS)
	assert.Equal(t, 65.0, *got.TSS)
	// Full replace: everything omitted from the request is dropped.
	assert.Nil(t, got.HoursOfSleep)
	assert.Empty(t, got.Notes)
	assert.Equal(t, time.Date(2023, 4, 10, 0, 0, 0, 0, time.UTC), got.Date.UTC())
}

func TestReplaceWorkoutNotOwner(t *testing.T) {
	e := newTestEnv(t)
	billyTok := e.register(t, "billy", "password123")
	sallyTok := e.register(t, "sally", "password456")

	billy, err := e.store.FindUserByUsername(context.Background(), "billy")
	require.NoError(t, err)
	w := e.createWorkout(t, billyTok, map[string]any{"userId": billy.ID, "date": "2023-04-10T00:00:00Z"})

	// Sally presents billy's userId without being billy.
	rec := e.do(t, http.MethodPut, "/workouts", sallyTok, map[string]any{
		"id":     w.ID,
		"userId": billy.ID,
		"notes":  "hijacked",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized to edit this workout", errBody(t, rec).Message)

	got, err := e.store.FindWorkoutByID(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Notes)
}

func TestReplaceWorkoutMissingID(t *testing.T) {
	e := newTestEnv(t)
	tok := e.register(t, "billy", "password123")
	u, err := e.store.FindUserByUsername(context.Background(), "billy")
	require.NoError(t, err)

	rec := e.do(t, http.MethodPut, "/workouts", tok, map[string]any{"userId": u.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
