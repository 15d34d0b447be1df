package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// sessionNamespace seeds deterministic session IDs.
var sessionNamespace = uuid.MustParse("6f1d3c2a-8b4e-4f7a-9c61-2d5e8a7b3f10")

// SetRecord is one logged set of an exercise. Weight, Reps and Effort are nil
// when the set did not record them.
type SetRecord struct {
	ID             uuid.UUID `json:"id"`
	UserID         int       `json:"user_id"`
	ExerciseID     string    `json:"exercise_id"`
	SessionID      string    `json:"session_id"`
	SessionDate    time.Time `json:"session_date"`
	SessionContext string    `json:"session_context,omitempty"`
	SetOrder       int       `json:"set_order"`
	Weight         *float64  `json:"weight"`
	Reps           *int      `json:"reps"`
	Effort         *float64  `json:"effort"`
	IsWarmup       bool      `json:"is_warmup"`
	LoggedAt       time.Time `json:"logged_at"`
}

// Qualifies reports whether the set feeds movement memory: a working set
// carrying at least one of weight or reps.
func (s SetRecord) Qualifies() bool {
	return !s.IsWarmup && (s.Weight != nil || s.Reps != nil)
}

// WeightOrZero returns the weight, or 0 when absent.
func (s SetRecord) WeightOrZero() float64 {
	if s.Weight == nil {
		return 0
	}
	return *s.Weight
}

// RepsOrZero returns the reps, or 0 when absent.
func (s SetRecord) RepsOrZero() int {
	if s.Reps == nil {
		return 0
	}
	return *s.Reps
}

// Volume returns weight × reps, 0 when either is absent.
func (s SetRecord) Volume() float64 {
	return s.WeightOrZero() * float64(s.RepsOrZero())
}

// SessionIDFor derives a stable session ID for a user from a source-specific key,
// so repeated imports or same-day logs land in the same session.
func SessionIDFor(userID int, key string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(fmt.Sprintf("%d|%s", userID, key))).String()
}

// DaySessionKey is the session key used when a logged set names no session.
func DaySessionKey(date time.Time) string {
	return "day:" + date.UTC().Format("2006-01-02")
}

// ExerciseSlug builds an exercise ID from name parts:
// ("Bench Press", "Barbell") -> "bench-press-barbell".
func ExerciseSlug(parts ...string) string {
	var b strings.Builder
	dash := false
	for _, p := range parts {
		for _, r := range strings.ToLower(p) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				if dash && b.Len() > 0 {
					b.WriteByte('-')
				}
				dash = false
				b.WriteRune(r)
				continue
			}
			dash = true
		}
		dash = true
	}
	return b.String()
}
