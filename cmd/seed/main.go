// Seed loader for development databases. Wipes both collections, then
// inserts the users and workouts from the seed JSON files, wiring each
// workout's owner reference and the owner's reference array as it goes.
//
// Usage:
//
//	go run ./cmd/seed [-users seed-data/seed-users.json] [-workouts seed-data/seed-workouts.json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/MorganHuegel/endurance-data-serverside/internal/config"
	"github.com/MorganHuegel/endurance-data-serverside/internal/store"
)

// seedUser pairs a plaintext password with the user fields; the
// password is hashed on insert so seed files stay readable.
type seedUser struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Email       string   `json:"email"`
	Preferences []string `json:"preferences"`
}

// seedWorkout attaches a workout to its owner by username.
type seedWorkout struct {
	Username string `json:"username"`
	store.Workout
}

func main() {
	usersPath := flag.String("users", "seed-data/seed-users.json", "seed users file")
	workoutsPath := flag.String("workouts", "seed-data/seed-workouts.json", "seed workouts file")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer st.Close()

	ctx := context.Background()
	log.Info().Msg("dropping existing data")
	if err := st.DeleteAllWorkouts(ctx); err != nil {
		log.Fatal().Err(err).Msg("wipe workouts")
	}
	if err := st.DeleteAllUsers(ctx); err != nil {
		log.Fatal().Err(err).Msg("wipe users")
	}

	var users []seedUser
	readJSON(*usersPath, &users)
	var workouts []seedWorkout
	readJSON(*workoutsPath, &workouts)

	byUsername := map[string]*store.User{}
	for _, su := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), 8)
		if err != nil {
			log.Fatal().Err(err).Str("username", su.Username).Msg("hash password")
		}
		u := &store.User{
			Username:     su.Username,
			PasswordHash: string(hash),
			Email:        su.Email,
			Preferences:  su.Preferences,
		}
		if err := st.CreateUser(ctx, u); err != nil {
			log.Fatal().Err(err).Str("username", su.Username).Msg("insert user")
		}
		byUsername[u.Username] = u
	}

	for _, sw := range workouts {
		owner, ok := byUsername[sw.Username]
		if !ok {
			log.Fatal().Str("username", sw.Username).Msg("workout references unknown user")
		}
		w := sw.Workout
		w.UserID = owner.ID
		if err := st.CreateWorkout(ctx, &w); err != nil {
			log.Fatal().Err(err).Msg("insert workout")
		}
		if err := st.PushWorkout(ctx, owner.ID, w.ID); err != nil {
			log.Fatal().Err(err).Msg("push workout reference")
		}
	}

	log.Info().Int("users", len(users)).Int("workouts", len(workouts)).Msg("seed complete")
}

func readJSON(path string, v any) {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("read seed file")
	}
	if err := json.Unmarshal(b, v); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("parse seed file")
	}
}
