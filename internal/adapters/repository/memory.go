package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cognitrend/internal/domain/model"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu        sync.RWMutex
	memories  map[string][]model.Memory
	questions map[string][]model.QuestionAnswer
	moods     map[string][]model.MoodEntry
	scores    map[string]model.CognitiveScoreRecord
	alerts    []model.Alert
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		memories:  make(map[string][]model.Memory),
		questions: make(map[string][]model.QuestionAnswer),
		moods:     make(map[string][]model.MoodEntry),
		scores:    make(map[string]model.CognitiveScoreRecord),
		now:       time.Now,
	}
}

// AddMemory records a memory.
func (s *MemoryStore) AddMemory(m model.Memory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[m.ElderID] = append(s.memories[m.ElderID], m)
}

// AddQuestion records a question/answer pair.
func (s *MemoryStore) AddQuestion(qa model.QuestionAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[qa.ElderID] = append(s.questions[qa.ElderID], qa)
}

// AddMood records a mood entry.
func (s *MemoryStore) AddMood(m model.MoodEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moods[m.ElderID] = append(s.moods[m.ElderID], m)
}

// Alerts returns a copy of every emitted alert.
func (s *MemoryStore) Alerts() []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Alert(nil), s.alerts...)
}

// ScoreCount returns the number of stored score records.
func (s *MemoryStore) ScoreCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores)
}

func (s *MemoryStore) RecentMemories(_ context.Context, elderID string, w Window, limit int) ([]model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Memory, 0)
	for _, m := range s.memories[elderID] {
		if w.Contains(m.CreatedAt) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *MemoryStore) RecentQuestions(_ context.Context, elderID string, w Window, limit int) ([]model.QuestionAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.QuestionAnswer, 0)
	for _, qa := range s.questions[elderID] {
		if w.Contains(qa.CreatedAt) {
			out = append(out, qa)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *MemoryStore) RecentMoods(_ context.Context, elderID string, w Window) ([]model.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.MoodEntry, 0)
	for _, m := range s.moods[elderID] {
		if w.Contains(m.CreatedAt) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CountActivity(_ context.Context, elderID string, w Window) (model.ActivityCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c model.ActivityCount
	for _, m := range s.memories[elderID] {
		if w.Contains(m.CreatedAt) {
			c.Memories++
		}
	}
	for _, qa := range s.questions[elderID] {
		if w.Contains(qa.CreatedAt) {
			c.Questions++
		}
	}
	return c, nil
}

func (s *MemoryStore) ScoreHistory(_ context.Context, elderID string, before time.Time, limit int) ([]model.CognitiveScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	before = model.DateOf(before)
	out := make([]model.CognitiveScoreRecord, 0)
	for _, rec := range s.scores {
		if rec.ElderID == elderID && rec.AssessmentDate.Before(before) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssessmentDate.After(out[j].AssessmentDate) })
	return truncate(out, limit), nil
}

func (s *MemoryStore) UpsertScore(_ context.Context, rec *model.CognitiveScoreRecord) error {
	if rec == nil || rec.ElderID == "" {
		return fmt.Errorf("%w: missing elder id", ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.AssessmentDate = model.DateOf(rec.AssessmentDate)
	key := scoreKey(rec.ElderID, rec.AssessmentDate)
	if existing, ok := s.scores[key]; ok {
		rec.ID = existing.ID
	} else {
		rec.ID = uuid.NewString()
	}
	rec.UpdatedAt = s.now().UTC()
	s.scores[key] = *rec
	return nil
}

func (s *MemoryStore) GetScore(_ context.Context, elderID string, date time.Time) (model.CognitiveScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.scores[scoreKey(elderID, model.DateOf(date))]
	if !ok {
		return model.CognitiveScoreRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) EmitAlert(_ context.Context, a model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *MemoryStore) ListElders(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]struct{})
	for id := range s.memories {
		set[id] = struct{}{}
	}
	for id := range s.questions {
		set[id] = struct{}{}
	}
	for id := range s.moods {
		set[id] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func scoreKey(elderID string, date time.Time) string {
	return elderID + "|" + date.Format(model.DateLayout)
}

func truncate[T any](xs []T, limit int) []T {
	if limit > 0 && len(xs) > limit {
		return xs[:limit]
	}
	return xs
}
