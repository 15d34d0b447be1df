package alpha

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/movementmemory/internal/models"
)

// SessionSets is one imported session ready to replace its stored sets.
type SessionSets struct {
	SessionID string
	Date      time.Time
	Sets      []models.SetRecord
}

// SessionKey is the key an export session is identified by. Re-importing the
// same export maps every session onto the same session ID.
func SessionKey(s models.AlphaSession) string {
	return "alpha:" + s.Date.UTC().Format(time.RFC3339)
}

// Convert maps parsed sessions onto set records. Working sets keep their
// number as set order and warmups take order 0. The session name
// becomes the session context, and set IDs derive from the session so a
// re-import produces identical rows.
func Convert(sessions []models.AlphaSession, userID int) []SessionSets {
	out := make([]SessionSets, 0, len(sessions))
	for _, s := range sessions {
		sessionID := models.SessionIDFor(userID, SessionKey(s))
		ns := uuid.MustParse(sessionID)
		date := s.Date.UTC()

		conv := SessionSets{SessionID: sessionID, Date: date}
		for _, ex := range s.Exercises {
			exerciseID := ex.ID()
			if exerciseID == "" {
				continue
			}
			for i, set := range ex.Sets {
				order, kind := set.Number, "set"
				if set.IsWarmup {
					order, kind = 0, "wu"
				}
				rec := models.SetRecord{
					ID:             uuid.NewSHA1(ns, []byte(fmt.Sprintf("%d/%s%d", ex.Number, kind, set.Number))),
					UserID:         userID,
					ExerciseID:     exerciseID,
					SessionID:      sessionID,
					SessionDate:    date,
					SessionContext: s.Name,
					SetOrder:       order,
					Weight:         set.Load(),
					Effort:         set.Effort(),
					IsWarmup:       set.IsWarmup,
					LoggedAt:       date.Add(time.Duration(ex.Number)*time.Minute + time.Duration(i)*time.Second),
				}
				if set.Reps > 0 {
					reps := set.Reps
					rec.Reps = &reps
				}
				conv.Sets = append(conv.Sets, rec)
			}
		}
		out = append(out, conv)
	}
	return out
}
