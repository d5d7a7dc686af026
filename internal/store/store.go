// Package store persists users and workouts in SQLite.
//
// The data model is document-flavored: a user's preferences and workout
// reference array live as JSON columns, and a workout's metrics live as
// one JSON document with the id/owner/date lifted into columns for
// filtering and sorting. The store only guarantees per-statement
// atomicity; cross-document consistency (User.Workouts vs
// Workout.UserID) is the handlers' job.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	preferences   TEXT NOT NULL DEFAULT '[]',
	workouts      TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS workouts (
	id      TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	date    TEXT NOT NULL DEFAULT '',
	doc     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workouts_user_date ON workouts (user_id, date DESC);
`

// Store wraps the SQLite handle with user/workout operations.
type Store struct {
	db *sql.DB
}

// Open opens (creating if missing) the database file and applies the
// schema. Uses WAL journaling and a busy timeout like any other
// multi-connection SQLite setup.
func Open(dsn string) (*Store, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// ------------------------------- users -------------------------------------

// CreateUser inserts u, assigning an id if absent. A username collision
// returns ErrDuplicateUsername.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Preferences == nil {
		u.Preferences = []string{}
	}
	if u.Workouts == nil {
		u.Workouts = []string{}
	}
	prefs, err := json.Marshal(u.Preferences)
	if err != nil {
		return err
	}
	refs, err := json.Marshal(u.Workouts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, email, preferences, workouts)
		 VALUES (?,?,?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.Email, string(prefs), string(refs))
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	return err
}

// FindUserByUsername loads a user or returns ErrNotFound.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, email, preferences, workouts
		 FROM users WHERE username=?`, username)
	return scanUser(row)
}

// FindUserByUsernameAndID loads a user matching both the username and
// the store identifier. Used as the ownership proof for workout
// replacement.
func (s *Store) FindUserByUsernameAndID(ctx context.Context, username, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, email, preferences, workouts
		 FROM users WHERE username=? AND id=?`, username, id)
	return scanUser(row)
}

// UpdateUserByUsername applies the non-nil fields of patch to the user
// currently named username and returns the updated document. Returns
// ErrNotFound if no such user exists and ErrDuplicateUsername if the
// patch renames onto a taken username.
func (s *Store) UpdateUserByUsername(ctx context.Context, username string, patch UserPatch) (*User, error) {
	var sets []string
	var args []any
	if patch.Username != nil {
		sets, args = append(sets, "username=?"), append(args, *patch.Username)
	}
	if patch.PasswordHash != nil {
		sets, args = append(sets, "password_hash=?"), append(args, *patch.PasswordHash)
	}
	if patch.Email != nil {
		sets, args = append(sets, "email=?"), append(args, *patch.Email)
	}
	if patch.Preferences != nil {
		b, err := json.Marshal(*patch.Preferences)
		if err != nil {
			return nil, err
		}
		sets, args = append(sets, "preferences=?"), append(args, string(b))
	}
	if patch.Workouts != nil {
		b, err := json.Marshal(*patch.Workouts)
		if err != nil {
			return nil, err
		}
		sets, args = append(sets, "workouts=?"), append(args, string(b))
	}
	if len(sets) == 0 {
		return s.FindUserByUsername(ctx, username)
	}
	args = append(args, username)

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE username=?`, args...)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNotFound
	}

	current := username
	if patch.Username != nil {
		current = *patch.Username
	}
	return s.FindUserByUsername(ctx, current)
}

// PushWorkout appends workoutID to the user's workout reference array.
func (s *Store) PushWorkout(ctx context.Context, userID, workoutID string) error {
	refs, err := s.workoutRefs(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range refs {
		if id == workoutID {
			return nil
		}
	}
	return s.writeWorkoutRefs(ctx, userID, append(refs, workoutID))
}

// PullWorkout removes workoutID from the user's workout reference array.
func (s *Store) PullWorkout(ctx context.Context, userID, workoutID string) error {
	refs, err := s.workoutRefs(ctx, userID)
	if err != nil {
		return err
	}
	kept := refs[:0]
	for _, id := range refs {
		if id != workoutID {
			kept = append(kept, id)
		}
	}
	return s.writeWorkoutRefs(ctx, userID, kept)
}

func (s *Store) workoutRefs(ctx context.Context, userID string) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT workouts FROM users WHERE id=?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var refs []string
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, fmt.Errorf("decode workout refs for user %s: %w", userID, err)
	}
	return refs, nil
}

func (s *Store) writeWorkoutRefs(ctx context.Context, userID string, refs []string) error {
	if refs == nil {
		refs = []string{}
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET workouts=? WHERE id=?`, string(b), userID)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var prefs, refs string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &prefs, &refs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prefs), &u.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(refs), &u.Workouts); err != nil {
		return nil, fmt.Errorf("decode workout refs: %w", err)
	}
	return &u, nil
}

// ------------------------------ workouts -----------------------------------

// CreateWorkout inserts w, assigning an id if absent.
func (s *Store) CreateWorkout(ctx context.Context, w *Workout) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	doc, err := json.Marshal(w)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workouts (id, user_id, date, doc) VALUES (?,?,?,?)`,
		w.ID, w.UserID, w.Date.UTC().Format(time.RFC3339), string(doc))
	return err
}

// FindWorkoutByID loads one workout or returns ErrNotFound.
func (s *Store) FindWorkoutByID(ctx context.Context, id string) (*Workout, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM workouts WHERE id=?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeWorkout(doc)
}

// FindWorkoutsByIDs resolves a reference array to full workout records,
// most recent date first. Dangling references are skipped rather than
// erroring, mirroring how a populate over a stale array behaves.
func (s *Store) FindWorkoutsByIDs(ctx context.Context, ids []string) ([]*Workout, error) {
	if len(ids) == 0 {
		return []*Workout{}, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM workouts WHERE id IN (`+placeholders+`) ORDER BY date DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Workout, 0, len(ids))
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		w, err := decodeWorkout(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWorkoutOwned deletes the workout only if it belongs to userID.
// Ownership lives in the delete filter itself so there is no window
// between a read-check and the delete. Zero rows deleted means
// ErrNotFound, which covers both "no such workout" and "not yours".
func (s *Store) DeleteWorkoutOwned(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM workouts WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceWorkout overwrites the stored document wholesale by w.ID.
// Fields absent from w are gone afterwards; this is replace, not merge.
func (s *Store) ReplaceWorkout(ctx context.Context, w *Workout) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE workouts SET user_id=?, date=?, doc=? WHERE id=?`,
		w.UserID, w.Date.UTC().Format(time.RFC3339), string(doc), w.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ------------------------------- seeding -----------------------------------

// DeleteAllUsers and DeleteAllWorkouts wipe the collections. Seed-script
// use only.
func (s *Store) DeleteAllUsers(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users`)
	return err
}

func (s *Store) DeleteAllWorkouts(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workouts`)
	return err
}

func decodeWorkout(doc string) (*Workout, error) {
	var w Workout
	if err := json.Unmarshal([]byte(doc), &w); err != nil {
		return nil, fmt.Errorf("decode workout doc: %w", err)
	}
	return &w, nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
