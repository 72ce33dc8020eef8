// Package backend reads and writes pipeline data through a managed
// PostgREST-style REST backend.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/okian/cognitrend/internal/adapters/repository"
	"github.com/okian/cognitrend/internal/domain/model"
)

// Default client configuration.
const (
	DefaultTimeout    = 5 * time.Second
	DefaultRetryCount = 2
	restPrefix        = "/rest/v1/"
)

// ErrBackend wraps non-2xx responses.
var ErrBackend = errors.New("backend request failed")

// Client implements repository.Store over HTTP.
type Client struct {
	http *resty.Client
	now  func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sends key as both apikey and bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.http.SetHeader("apikey", key).SetAuthToken(key)
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRetries sets how many times failed requests are retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.http.SetRetryCount(n)
		}
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(DefaultTimeout).
			SetRetryCount(DefaultRetryCount).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type memoryRow struct {
	ElderID       string    `json:"elder_id"`
	Content       string    `json:"content"`
	EmotionalTone *string   `json:"emotional_tone"`
	CreatedAt     time.Time `json:"created_at"`
}

type questionRow struct {
	ElderID      string    `json:"elder_id"`
	QuestionText string    `json:"question_text"`
	AnswerText   *string   `json:"answer_text"`
	CreatedAt    time.Time `json:"created_at"`
}

type moodRow struct {
	ElderID   string    `json:"elder_id"`
	Mood      string    `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
}

type scoreRow struct {
	ID                   string               `json:"id,omitempty"`
	ElderID              string               `json:"elder_id"`
	AssessmentDate       string               `json:"assessment_date"`
	VocabularyRichness   float64              `json:"vocabulary_richness"`
	SentenceComplexity   float64              `json:"sentence_complexity"`
	TopicCoherence       float64              `json:"topic_coherence"`
	ResponseTimeAvg      float64              `json:"response_time_avg"`
	EmotionalStability   float64              `json:"emotional_stability"`
	MemoryRecallAccuracy float64              `json:"memory_recall_accuracy"`
	OverallScore         float64              `json:"overall_score"`
	TrendDirection       model.TrendDirection `json:"trend_direction"`
	AlertTriggered       bool                 `json:"alert_triggered"`
	RawMetrics           model.RawMetrics     `json:"raw_metrics"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

func (r scoreRow) record() (model.CognitiveScoreRecord, error) {
	date, err := time.Parse(model.DateLayout, r.AssessmentDate)
	if err != nil {
		return model.CognitiveScoreRecord{}, fmt.Errorf("parse assessment_date %q: %w", r.AssessmentDate, err)
	}
	return model.CognitiveScoreRecord{
		ID:                   r.ID,
		ElderID:              r.ElderID,
		AssessmentDate:       date,
		VocabularyRichness:   r.VocabularyRichness,
		SentenceComplexity:   r.SentenceComplexity,
		TopicCoherence:       r.TopicCoherence,
		ResponseTimeAvg:      r.ResponseTimeAvg,
		EmotionalStability:   r.EmotionalStability,
		MemoryRecallAccuracy: r.MemoryRecallAccuracy,
		OverallScore:         r.OverallScore,
		TrendDirection:       r.TrendDirection,
		AlertTriggered:       r.AlertTriggered,
		RawMetrics:           r.RawMetrics,
		UpdatedAt:            r.UpdatedAt,
	}, nil
}

func windowQuery(elderID string, w repository.Window) url.Values {
	q := url.Values{}
	q.Set("elder_id", "eq."+elderID)
	q.Add("created_at", "gte."+w.From.UTC().Format(time.RFC3339Nano))
	q.Add("created_at", "lt."+w.To.UTC().Format(time.RFC3339Nano))
	return q
}

func withLimit(q url.Values, limit int) url.Values {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func (c *Client) get(ctx context.Context, table string, q url.Values, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(q).
		SetResult(out).
		Get(restPrefix + table)
	return check(resp, err, "GET", table)
}

func check(resp *resty.Response, err error, method, table string) error {
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrBackend, method, table, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrBackend, method, table, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

func (c *Client) RecentMemories(ctx context.Context, elderID string, w repository.Window, limit int) ([]model.Memory, error) {
	q := withLimit(windowQuery(elderID, w), limit)
	q.Set("select", "elder_id,content,emotional_tone,created_at")
	q.Set("order", "created_at.desc")

	var rows []memoryRow
	if err := c.get(ctx, "memories", q, &rows); err != nil {
		return nil, err
	}
	out := make([]model.Memory, 0, len(rows))
	for _, r := range rows {
		m := model.Memory{ElderID: r.ElderID, Text: r.Content, CreatedAt: r.CreatedAt}
		if r.EmotionalTone != nil {
			m.EmotionalTone = *r.EmotionalTone
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *Client) RecentQuestions(ctx context.Context, elderID string, w repository.Window, limit int) ([]model.QuestionAnswer, error) {
	q := withLimit(windowQuery(elderID, w), limit)
	q.Set("select", "elder_id,question_text,answer_text,created_at")
	q.Set("order", "created_at.desc")

	var rows []questionRow
	if err := c.get(ctx, "questions", q, &rows); err != nil {
		return nil, err
	}
	out := make([]model.QuestionAnswer, 0, len(rows))
	for _, r := range rows {
		qa := model.QuestionAnswer{ElderID: r.ElderID, QuestionText: r.QuestionText, CreatedAt: r.CreatedAt}
		if r.AnswerText != nil {
			qa.AnswerText = *r.AnswerText
		}
		out = append(out, qa)
	}
	return out, nil
}

func (c *Client) RecentMoods(ctx context.Context, elderID string, w repository.Window) ([]model.MoodEntry, error) {
	q := windowQuery(elderID, w)
	q.Set("select", "elder_id,mood,created_at")
	q.Set("order", "created_at.desc")

	var rows []moodRow
	if err := c.get(ctx, "mood_logs", q, &rows); err != nil {
		return nil, err
	}
	out := make([]model.MoodEntry, 0, len(rows))
	for _, r := range rows {
		mood, _ := model.ParseMood(r.Mood)
		out = append(out, model.MoodEntry{ElderID: r.ElderID, Mood: mood, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (c *Client) CountActivity(ctx context.Context, elderID string, w repository.Window) (model.ActivityCount, error) {
	memories, err := c.count(ctx, "memories", windowQuery(elderID, w))
	if err != nil {
		return model.ActivityCount{}, err
	}
	questions, err := c.count(ctx, "questions", windowQuery(elderID, w))
	if err != nil {
		return model.ActivityCount{}, err
	}
	return model.ActivityCount{Memories: memories, Questions: questions}, nil
}

// count reads the exact row count from the Content-Range header.
func (c *Client) count(ctx context.Context, table string, q url.Values) (int, error) {
	q.Set("select", "elder_id")
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(q).
		SetHeader("Prefer", "count=exact").
		SetHeader("Range-Unit", "items").
		SetHeader("Range", "0-0").
		Get(restPrefix + table)
	if err := check(resp, err, "GET", table); err != nil {
		return 0, err
	}
	return parseContentRange(resp.Header().Get("Content-Range"))
}

// parseContentRange extracts the total from "0-9/42" or "*/0".
func parseContentRange(v string) (int, error) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 || i == len(v)-1 {
		return 0, fmt.Errorf("%w: malformed Content-Range %q", ErrBackend, v)
	}
	n, err := strconv.Atoi(v[i+1:])
	if err != nil {
		return 0, fmt.Errorf("%w: malformed Content-Range %q", ErrBackend, v)
	}
	return n, nil
}

func (c *Client) ScoreHistory(ctx context.Context, elderID string, before time.Time, limit int) ([]model.CognitiveScoreRecord, error) {
	q := withLimit(url.Values{}, limit)
	q.Set("elder_id", "eq."+elderID)
	q.Set("assessment_date", "lt."+model.DateOf(before).Format(model.DateLayout))
	q.Set("order", "assessment_date.desc")

	var rows []scoreRow
	if err := c.get(ctx, "cognitive_scores", q, &rows); err != nil {
		return nil, err
	}
	return records(rows)
}

func (c *Client) GetScore(ctx context.Context, elderID string, date time.Time) (model.CognitiveScoreRecord, error) {
	q := url.Values{}
	q.Set("elder_id", "eq."+elderID)
	q.Set("assessment_date", "eq."+model.DateOf(date).Format(model.DateLayout))
	q.Set("limit", "1")

	var rows []scoreRow
	if err := c.get(ctx, "cognitive_scores", q, &rows); err != nil {
		return model.CognitiveScoreRecord{}, err
	}
	if len(rows) == 0 {
		return model.CognitiveScoreRecord{}, repository.ErrNotFound
	}
	return rows[0].record()
}

func (c *Client) UpsertScore(ctx context.Context, rec *model.CognitiveScoreRecord) error {
	if rec == nil || rec.ElderID == "" {
		return fmt.Errorf("%w: missing elder id", repository.ErrInvalidRecord)
	}
	rec.AssessmentDate = model.DateOf(rec.AssessmentDate)
	rec.UpdatedAt = c.now().UTC()

	body := scoreRow{
		ElderID:              rec.ElderID,
		AssessmentDate:       rec.AssessmentDate.Format(model.DateLayout),
		VocabularyRichness:   rec.VocabularyRichness,
		SentenceComplexity:   rec.SentenceComplexity,
		TopicCoherence:       rec.TopicCoherence,
		ResponseTimeAvg:      rec.ResponseTimeAvg,
		EmotionalStability:   rec.EmotionalStability,
		MemoryRecallAccuracy: rec.MemoryRecallAccuracy,
		OverallScore:         rec.OverallScore,
		TrendDirection:       rec.TrendDirection,
		AlertTriggered:       rec.AlertTriggered,
		RawMetrics:           rec.RawMetrics,
		UpdatedAt:            rec.UpdatedAt,
	}

	var rows []scoreRow
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", "elder_id,assessment_date").
		SetHeader("Prefer", "resolution=merge-duplicates,return=representation").
		SetBody([]scoreRow{body}).
		SetResult(&rows).
		Post(restPrefix + "cognitive_scores")
	if err := check(resp, err, "POST", "cognitive_scores"); err != nil {
		return err
	}
	if len(rows) > 0 {
		rec.ID = rows[0].ID
	}
	return nil
}

func (c *Client) EmitAlert(ctx context.Context, a model.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(a).
		Post(restPrefix + "alerts")
	return check(resp, err, "POST", "alerts")
}

func (c *Client) ListElders(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})
	for _, table := range []string{"memories", "questions", "mood_logs"} {
		q := url.Values{}
		q.Set("select", "elder_id")
		var rows []struct {
			ElderID string `json:"elder_id"`
		}
		if err := c.get(ctx, table, q, &rows); err != nil {
			return nil, err
		}
		for _, r := range rows {
			set[r.ElderID] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op; the HTTP client holds no exclusive resources.
func (c *Client) Close() error { return nil }

func records(rows []scoreRow) ([]model.CognitiveScoreRecord, error) {
	out := make([]model.CognitiveScoreRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

var _ repository.Store = (*Client)(nil)
