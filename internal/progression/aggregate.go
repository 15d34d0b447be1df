package progression

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/claude/movementmemory/internal/models"
)

// Key identifies one movement memory.
type Key struct {
	UserID     int    `json:"user_id"`
	ExerciseID string `json:"exercise_id"`
}

func (k Key) String() string { return fmt.Sprintf("%d/%s", k.UserID, k.ExerciseID) }

// Trend is the coarse direction of the most recent set classification.
type Trend int

const (
	TrendProgressing Trend = iota + 1
	TrendStagnant
	TrendRegressing
)

var trendNames = map[Trend]string{
	TrendProgressing: "progressing",
	TrendStagnant:    "stagnant",
	TrendRegressing:  "regressing",
}

func (t Trend) String() string {
	if name, ok := trendNames[t]; ok {
		return name
	}
	return fmt.Sprintf("trend(%d)", int(t))
}

func (t Trend) MarshalText() ([]byte, error) {
	if _, ok := trendNames[t]; !ok {
		return nil, fmt.Errorf("unknown trend %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Trend) UnmarshalText(b []byte) error {
	for k, v := range trendNames {
		if v == string(b) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown trend %q", b)
}

// Performance is a snapshot of one session's top set.
type Performance struct {
	Weight    *float64  `json:"weight"`
	Reps      *int      `json:"reps"`
	Effort    *float64  `json:"effort"`
	SetCount  int       `json:"set_count"`
	Date      time.Time `json:"date"`
	Context   string    `json:"context,omitempty"`
	SessionID string    `json:"session_id"`
}

type RepRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type WeightRecord struct {
	Value float64   `json:"value"`
	Reps  *int      `json:"reps"`
	Date  time.Time `json:"date"`
}

type RepsRecord struct {
	Value  int       `json:"value"`
	Weight *float64  `json:"weight"`
	Date   time.Time `json:"date"`
}

type ValueRecord struct {
	Value float64   `json:"value"`
	Date  time.Time `json:"date"`
}

// PersonalRecords holds the best observed value per metric. A nil field has
// never been observed.
type PersonalRecords struct {
	Weight       *WeightRecord `json:"weight,omitempty"`
	Reps         *RepsRecord   `json:"reps,omitempty"`
	EstimatedMax *ValueRecord  `json:"estimated_max,omitempty"`
	Volume       *ValueRecord  `json:"volume,omitempty"`
}

// ClassificationSummary is the serializable form of a Classification.
type ClassificationSummary struct {
	Outcome Outcome  `json:"outcome"`
	Delta   float64  `json:"delta"`
	Percent *float64 `json:"percent,omitempty"`
	Detail  string   `json:"detail"`
}

// Summarize flattens a classification. Nil in, nil out.
func Summarize(c Classification) *ClassificationSummary {
	if c == nil {
		return nil
	}
	s := &ClassificationSummary{Outcome: c.Outcome(), Delta: c.Delta(), Detail: c.Detail()}
	if v, ok := c.(VolumeIncrease); ok {
		s.Percent = v.Percent
	}
	return s
}

// SessionOutcome is one classified comparison: a session's top set against the
// previous session's top set in RecentOutcomes, or the latest logged set
// against its comparable set in LatestOutcome.
type SessionOutcome struct {
	ClassificationSummary
	SessionID      string    `json:"session_id"`
	Date           time.Time `json:"date"`
	Weight         *float64  `json:"weight"`
	Reps           *int      `json:"reps"`
	PreviousWeight *float64  `json:"previous_weight"`
	PreviousReps   *int      `json:"previous_reps"`
}

// MovementMemory is the durable summary of one user's history on one exercise.
type MovementMemory struct {
	UserID     int    `json:"user_id"`
	ExerciseID string `json:"exercise_id"`

	LastPerformance *Performance `json:"last_performance,omitempty"`

	ExposureCount       int       `json:"exposure_count"`
	TotalLifetimeVolume float64   `json:"total_lifetime_volume"`
	AverageEffort       *float64  `json:"average_effort,omitempty"`
	TypicalRepRange     *RepRange `json:"typical_rep_range,omitempty"`

	Records PersonalRecords `json:"personal_records"`

	Trend             *Trend            `json:"trend,omitempty"`
	LatestOutcome     *SessionOutcome   `json:"latest_outcome,omitempty"`
	RecentOutcomes    []SessionOutcome  `json:"recent_outcomes,omitempty"`
	Confidence        ConfidenceLevel   `json:"confidence_level"`
	ConfidenceFactors ConfidenceFactors `json:"confidence_factors"`
	DaysSinceLast     *int              `json:"days_since_last,omitempty"`
	ComputedAt        time.Time         `json:"computed_at"`
}

// Key returns the memory's identity.
func (m *MovementMemory) Key() Key { return Key{UserID: m.UserID, ExerciseID: m.ExerciseID} }

// LastOutcome returns the classification the trend was derived from, or nil.
func (m *MovementMemory) LastOutcome() *SessionOutcome {
	if m == nil {
		return nil
	}
	return m.LatestOutcome
}

// Options tunes the recompute windows.
type Options struct {
	// RecentSessions is the window for the typical rep range.
	RecentSessions int
	// ConsistencySessions is the window for dispersion and effort reporting.
	ConsistencySessions int
	// OutcomeHistory is how many session outcomes are kept.
	OutcomeHistory int
	Dispersion     DispersionMetric
}

// DefaultOptions returns the standard windows.
func DefaultOptions() Options {
	return Options{
		RecentSessions:      3,
		ConsistencySessions: 5,
		OutcomeHistory:      5,
		Dispersion:          CoefficientOfVariation,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.RecentSessions <= 0 {
		o.RecentSessions = def.RecentSessions
	}
	if o.ConsistencySessions <= 0 {
		o.ConsistencySessions = def.ConsistencySessions
	}
	if o.OutcomeHistory <= 0 {
		o.OutcomeHistory = def.OutcomeHistory
	}
	if o.Dispersion == nil {
		o.Dispersion = def.Dispersion
	}
	return o
}

// session is one exposure: the qualifying sets sharing a session ID.
type session struct {
	id   string
	date time.Time
	sets []models.SetRecord
}

func (s session) top() models.SetRecord {
	best := s.sets[0]
	for _, set := range s.sets[1:] {
		bw, sw := best.WeightOrZero(), set.WeightOrZero()
		if greater(sw, bw) || (same(sw, bw) && set.RepsOrZero() > best.RepsOrZero()) {
			best = set
		}
	}
	return best
}

func (s session) volume() float64 {
	var v float64
	for _, set := range s.sets {
		v += set.Volume()
	}
	return v
}

func (s session) context() string {
	for _, set := range s.sets {
		if set.SessionContext != "" {
			return set.SessionContext
		}
	}
	return ""
}

// groupSessions filters to qualifying sets and groups them into sessions in
// chronological order. A session is dated by its earliest set.
func groupSessions(sets []models.SetRecord) []session {
	byID := make(map[string]*session)
	for _, set := range sets {
		if !set.Qualifies() {
			continue
		}
		s, ok := byID[set.SessionID]
		if !ok {
			s = &session{id: set.SessionID, date: set.SessionDate}
			byID[set.SessionID] = s
		}
		if set.SessionDate.Before(s.date) {
			s.date = set.SessionDate
		}
		s.sets = append(s.sets, set)
	}

	out := make([]session, 0, len(byID))
	for _, s := range byID {
		sort.Slice(s.sets, func(i, j int) bool { return setLess(s.sets[i], s.sets[j]) })
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return sessionLess(out[i].date, out[i].id, out[j].date, out[j].id) })
	return out
}

func sessionLess(ad time.Time, aid string, bd time.Time, bid string) bool {
	if !ad.Equal(bd) {
		return ad.Before(bd)
	}
	return aid < bid
}

func setLess(a, b models.SetRecord) bool {
	if a.SetOrder != b.SetOrder {
		return a.SetOrder < b.SetOrder
	}
	if !a.LoggedAt.Equal(b.LoggedAt) {
		return a.LoggedAt.Before(b.LoggedAt)
	}
	return a.ID.String() < b.ID.String()
}

func dataOf(s models.SetRecord) SetData {
	return SetData{Weight: s.Weight, Reps: s.Reps, Effort: s.Effort, IsWarmup: s.IsWarmup}
}

// ComparableSet finds the set a newly logged set is compared against: the set
// with the same order in the most recent earlier session, else that session's
// last qualifying set. Sets of the same session never compare with each other.
// Returns nil on a first exposure.
func ComparableSet(history []models.SetRecord, current models.SetRecord) *models.SetRecord {
	sessions := groupSessions(history)
	currentDate := current.SessionDate
	for _, s := range sessions {
		if s.id == current.SessionID && s.date.Before(currentDate) {
			currentDate = s.date
		}
	}

	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		if s.id == current.SessionID || !sessionLess(s.date, s.id, currentDate, current.SessionID) {
			continue
		}
		for _, set := range s.sets {
			if set.SetOrder == current.SetOrder {
				found := set
				return &found
			}
		}
		found := s.sets[len(s.sets)-1]
		return &found
	}
	return nil
}

// ClassifySet classifies a logged set against its comparable set in history.
func ClassifySet(history []models.SetRecord, current models.SetRecord) Classification {
	prev := ComparableSet(history, current)
	if prev == nil {
		return nil
	}
	p := dataOf(*prev)
	return Classify(dataOf(current), &p)
}

// Recompute derives a movement memory from the full set history of a key.
// It reads nothing but its arguments, so the same history and clock always
// produce the same memory. Returns nil when no qualifying set exists.
func Recompute(key Key, history []models.SetRecord, now time.Time, opts Options) *MovementMemory {
	opts = opts.withDefaults()
	sessions := groupSessions(history)
	if len(sessions) == 0 {
		return nil
	}

	mem := &MovementMemory{
		UserID:        key.UserID,
		ExerciseID:    key.ExerciseID,
		ExposureCount: len(sessions),
		ComputedAt:    now.UTC(),
	}

	var (
		effortSum   float64
		effortCount int
		outcomes    []SessionOutcome
	)
	for i, s := range sessions {
		for _, set := range s.sets {
			mem.TotalLifetimeVolume += set.Volume()
			if set.Effort != nil {
				effortSum += *set.Effort
				effortCount++
			}
			updateSetRecords(&mem.Records, set, s.date)
		}
		if v := s.volume(); v > 0 && (mem.Records.Volume == nil || greater(v, mem.Records.Volume.Value)) {
			mem.Records.Volume = &ValueRecord{Value: round2(v), Date: s.date}
		}

		if i == 0 {
			continue
		}
		cur, prev := s.top(), sessions[i-1].top()
		pd := dataOf(prev)
		c := Summarize(Classify(dataOf(cur), &pd))
		if c == nil {
			continue
		}
		outcomes = append(outcomes, SessionOutcome{
			ClassificationSummary: *c,
			SessionID:             s.id,
			Date:                  s.date,
			Weight:                cur.Weight,
			Reps:                  cur.Reps,
			PreviousWeight:        prev.Weight,
			PreviousReps:          prev.Reps,
		})
	}
	mem.TotalLifetimeVolume = round2(mem.TotalLifetimeVolume)

	if effortCount > 0 {
		avg := round2(effortSum / float64(effortCount))
		mem.AverageEffort = &avg
	}

	if len(outcomes) > opts.OutcomeHistory {
		outcomes = outcomes[len(outcomes)-opts.OutcomeHistory:]
	}
	if len(outcomes) > 0 {
		mem.RecentOutcomes = outcomes
	}

	last := sessions[len(sessions)-1]
	if latest := latestOutcome(history, last); latest != nil {
		mem.LatestOutcome = latest
		trend := latest.Outcome.Trend()
		mem.Trend = &trend
	}
	top := last.top()
	mem.LastPerformance = &Performance{
		Weight:    top.Weight,
		Reps:      top.Reps,
		Effort:    top.Effort,
		SetCount:  len(last.sets),
		Date:      last.date,
		Context:   last.context(),
		SessionID: last.id,
	}

	mem.TypicalRepRange = repRange(tail(sessions, opts.RecentSessions))

	days := daysBetween(last.date, now)
	mem.DaysSinceLast = &days

	window := tail(sessions, opts.ConsistencySessions)
	mem.ConfidenceFactors = ConfidenceFactors{
		ExposureCount:        mem.ExposureCount,
		RecencyDays:          float64(days),
		Consistency:          opts.Dispersion(topLoads(window)),
		EffortReportingRatio: effortRatio(window),
	}
	mem.Confidence = ScoreConfidence(mem.ConfidenceFactors)

	return mem
}

// latestOutcome classifies the last set of the last session against its
// comparable set, the same comparison a log of that set reports.
func latestOutcome(history []models.SetRecord, last session) *SessionOutcome {
	cur := last.sets[len(last.sets)-1]
	prev := ComparableSet(history, cur)
	if prev == nil {
		return nil
	}
	pd := dataOf(*prev)
	c := Summarize(Classify(dataOf(cur), &pd))
	if c == nil {
		return nil
	}
	return &SessionOutcome{
		ClassificationSummary: *c,
		SessionID:             last.id,
		Date:                  last.date,
		Weight:                cur.Weight,
		Reps:                  cur.Reps,
		PreviousWeight:        prev.Weight,
		PreviousReps:          prev.Reps,
	}
}

func updateSetRecords(pr *PersonalRecords, set models.SetRecord, date time.Time) {
	if set.Weight != nil && *set.Weight > 0 && (pr.Weight == nil || greater(*set.Weight, pr.Weight.Value)) {
		pr.Weight = &WeightRecord{Value: *set.Weight, Reps: set.Reps, Date: date}
	}
	if set.Reps != nil && *set.Reps > 0 && (pr.Reps == nil || *set.Reps > pr.Reps.Value) {
		pr.Reps = &RepsRecord{Value: *set.Reps, Weight: set.Weight, Date: date}
	}
	if e := EstimateMax(set.WeightOrZero(), set.RepsOrZero()); e > 0 && (pr.EstimatedMax == nil || greater(e, pr.EstimatedMax.Value)) {
		pr.EstimatedMax = &ValueRecord{Value: round2(e), Date: date}
	}
}

func tail(sessions []session, n int) []session {
	if len(sessions) > n {
		return sessions[len(sessions)-n:]
	}
	return sessions
}

func repRange(sessions []session) *RepRange {
	var rr *RepRange
	for _, s := range sessions {
		for _, set := range s.sets {
			if set.Reps == nil || *set.Reps <= 0 {
				continue
			}
			r := *set.Reps
			if rr == nil {
				rr = &RepRange{Min: r, Max: r}
				continue
			}
			rr.Min = min(rr.Min, r)
			rr.Max = max(rr.Max, r)
		}
	}
	return rr
}

// topLoads returns each session's top-set load; reps stand in for load on
// bodyweight work.
func topLoads(sessions []session) []float64 {
	loads := make([]float64, 0, len(sessions))
	for _, s := range sessions {
		top := s.top()
		if w := top.WeightOrZero(); w > 0 {
			loads = append(loads, w)
			continue
		}
		loads = append(loads, float64(top.RepsOrZero()))
	}
	return loads
}

func effortRatio(sessions []session) float64 {
	var total, reported int
	for _, s := range sessions {
		for _, set := range s.sets {
			total++
			if set.Effort != nil {
				reported++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return round2(float64(reported) / float64(total))
}

// daysBetween counts whole calendar days (UTC) from then to now, never negative.
func daysBetween(then, now time.Time) int {
	a := then.UTC().Truncate(24 * time.Hour)
	b := now.UTC().Truncate(24 * time.Hour)
	d := int(math.Round(b.Sub(a).Hours() / 24))
	return max(d, 0)
}

// MergeRecords folds a freshly recomputed memory into the stored one. Every
// personal record keeps the stored value unless the fresh one is strictly
// greater. Either side may be nil.
func MergeRecords(stored, fresh *MovementMemory) *MovementMemory {
	if fresh == nil {
		return stored
	}
	if stored == nil {
		return fresh
	}
	merged := *fresh
	sp, fp := stored.Records, fresh.Records

	if sp.Weight != nil && (fp.Weight == nil || !greater(fp.Weight.Value, sp.Weight.Value)) {
		merged.Records.Weight = sp.Weight
	}
	if sp.Reps != nil && (fp.Reps == nil || fp.Reps.Value <= sp.Reps.Value) {
		merged.Records.Reps = sp.Reps
	}
	if sp.EstimatedMax != nil && (fp.EstimatedMax == nil || !greater(fp.EstimatedMax.Value, sp.EstimatedMax.Value)) {
		merged.Records.EstimatedMax = sp.EstimatedMax
	}
	if sp.Volume != nil && (fp.Volume == nil || !greater(fp.Volume.Value, sp.Volume.Value)) {
		merged.Records.Volume = sp.Volume
	}
	return &merged
}

// Retire is the memory of a key whose qualifying history is gone. Personal
// records survive, everything derived from sessions is cleared.
func Retire(stored *MovementMemory, now time.Time) *MovementMemory {
	if stored == nil {
		return nil
	}
	return &MovementMemory{
		UserID:            stored.UserID,
		ExerciseID:        stored.ExerciseID,
		Records:           stored.Records,
		Confidence:        ConfidenceLow,
		ConfidenceFactors: ConfidenceFactors{Consistency: NoDispersionEvidence},
		ComputedAt:        now.UTC(),
	}
}
