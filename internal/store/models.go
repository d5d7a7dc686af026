package store

import "time"

// User is an identity record. The password hash never serializes to
// clients. Workouts holds references to the workout documents owned by
// this user; handlers keep it consistent with Workout.UserID.
type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"-"`
	Email        string   `json:"email,omitempty"`
	Preferences  []string `json:"preferences"`
	Workouts     []string `json:"workouts"`
}

// UserPatch is a typed partial update. Nil fields are left untouched.
type UserPatch struct {
	Username     *string
	PasswordHash *string
	Email        *string
	Preferences  *[]string
	Workouts     *[]string
}

// Measurement is a compound metric value, e.g. {"amount": 5, "unit": "miles"}.
type Measurement struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Workout is a single day's metrics record. Every metric is optional;
// omitted fields stay absent from the stored document, and a wholesale
// replace drops anything the new document does not carry.
type Workout struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	Date   time.Time `json:"date"`

	TotalDistance             *Measurement `json:"totalDistance,omitempty"`
	TotalTime                 *Measurement `json:"totalTime,omitempty"`
	AveragePace               *Measurement `json:"averagePace,omitempty"`
	MaximumPace               *Measurement `json:"maximumPace,omitempty"`
	AverageWatts              *float64     `json:"averageWatts,omitempty"`
	MaximumWatts              *float64     `json:"maximumWatts,omitempty"`
	TotalElevation            *Measurement `json:"totalElevation,omitempty"`
	AverageHeartrate          *float64     `json:"averageHeartrate,omitempty"`
	MaxHeartrate              *float64     `json:"maxHeartrate,omitempty"`
	TSS                       *float64     `json:"tss,omitempty"`
	MinutesStretching         *float64     `json:"minutesStretching,omitempty"`
	MinutesFoamRollingMassage *float64     `json:"minutesFoamRollingMassage,omitempty"`
	MinutesCore               *float64     `json:"minutesCore,omitempty"`
	InjuryRating              *float64     `json:"injuryRating,omitempty"`
	SorenessRating            *float64     `json:"sorenessRating,omitempty"`
	StressRating              *float64     `json:"stressRating,omitempty"`
	BodyWeight                *float64     `json:"bodyWeight,omitempty"`
	DietRating                *float64     `json:"dietRating,omitempty"`
	HoursOfSleep              *float64     `json:"hoursOfSleep,omitempty"`
	WaterDrank                *Measurement `json:"waterDrank,omitempty"`
	Notes                     string       `json:"notes,omitempty"`
}
