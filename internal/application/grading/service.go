// Package grading provides the application-level grading service: it turns a
// raw encounter transcript plus a rubric into a scored, cited grading result.
// This package sits between the HTTP/CLI handlers and the domain evaluators.
package grading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/opgrader/internal/domain/evaluation"
	domainRubric "github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/domain/transcript"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

// Service defines the grading application operations.
type Service interface {
	Grade(ctx context.Context, req *Request) (*Response, error)
}

// Request contains the input for one grading run.
type Request struct {
	RubricID      string `json:"rubric_id"`
	RubricVersion string `json:"rubric_version,omitempty"`
	TranscriptID  string `json:"transcript_id"`
	RawText       string `json:"raw_text"`
}

// Response is the complete grading result.
type Response struct {
	GradingID       string                              `json:"grading_id"`
	TranscriptID    string                              `json:"transcript_id"`
	RubricID        string                              `json:"rubric_id"`
	RubricVersion   string                              `json:"rubric_version"`
	OverallScore    float64                             `json:"overall_score"`
	ComponentScores evaluation.ComponentScores          `json:"component_scores"`
	ScoreBreakdown  map[string]evaluation.ScoreBreakdown `json:"score_breakdown"`
	Structure       *evaluation.StructureResult         `json:"structure"`
	KeyQuestions    *evaluation.QuestionMatchingResult  `json:"key_questions"`
	Reasoning       *evaluation.ReasoningResult         `json:"reasoning"`
	Summary         *evaluation.SummaryResult           `json:"summary"`
	Feedback        *Feedback                           `json:"feedback"`
	GradedAt        time.Time                           `json:"graded_at"`
}

// ArtifactCache stores finished grading results for fast retrieval.
type ArtifactCache interface {
	PutResult(ctx context.Context, res *Response) error
	GetResult(ctx context.Context, gradingID string) (*Response, error)
}

// TranscriptStore archives the raw transcript text.
type TranscriptStore interface {
	PutTranscript(ctx context.Context, transcriptID string, raw []byte) (string, error)
}

// EventPublisher emits grading lifecycle events.
type EventPublisher interface {
	PublishGradingCompleted(ctx context.Context, event *CompletedEvent) error
}

// CompletedEvent is the message emitted after a grading run finishes.
type CompletedEvent struct {
	GradingID     string    `json:"grading_id"`
	TranscriptID  string    `json:"transcript_id"`
	RubricID      string    `json:"rubric_id"`
	RubricVersion string    `json:"rubric_version"`
	OverallScore  float64   `json:"overall_score"`
	GradedAt      time.Time `json:"graded_at"`
}

// Submission is the durable record of one grading run.
type Submission struct {
	GradingID     string    `json:"grading_id"`
	TranscriptID  string    `json:"transcript_id"`
	RubricID      string    `json:"rubric_id"`
	RubricVersion string    `json:"rubric_version"`
	Status        string    `json:"status"` // completed | failed
	OverallScore  float64   `json:"overall_score"`
	Result        *Response `json:"result,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Submission statuses.
const (
	SubmissionCompleted = "completed"
	SubmissionFailed    = "failed"
)

// SubmissionStore persists grading runs as submissions.
type SubmissionStore interface {
	SaveSubmission(ctx context.Context, sub *Submission) error
}

// Metrics records grading observability signals.
type Metrics interface {
	ObserveGradingDuration(seconds float64)
	IncGradings(status string)
}

// Option configures the service.
type Option func(*serviceImpl)

// WithArtifactCache enables result caching.
func WithArtifactCache(c ArtifactCache) Option {
	return func(s *serviceImpl) { s.cache = c }
}

// WithTranscriptStore enables raw transcript archival.
func WithTranscriptStore(st TranscriptStore) Option {
	return func(s *serviceImpl) { s.store = st }
}

// WithEventPublisher enables completed-event emission.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *serviceImpl) { s.publisher = p }
}

// WithSubmissionStore enables the durable submission record.
func WithSubmissionStore(st SubmissionStore) Option {
	return func(s *serviceImpl) { s.submissions = st }
}

// WithMetrics enables metric recording.
func WithMetrics(m Metrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

// WithMatcherOptions forwards options to the question matcher, typically to
// plug in the search-backed lexical and semantic scorers.
func WithMatcherOptions(opts ...evaluation.MatcherOption) Option {
	return func(s *serviceImpl) { s.matcherOpts = opts }
}

type serviceImpl struct {
	rubrics     domainRubric.Repository
	processor   *transcript.Processor
	composer    *FeedbackComposer
	logger      logging.Logger
	cache       ArtifactCache
	store       TranscriptStore
	publisher   EventPublisher
	submissions SubmissionStore
	metrics     Metrics
	matcherOpts []evaluation.MatcherOption
}

// NewService creates the grading application service.  Cache, store,
// publisher and metrics are optional; a nil dependency simply disables that
// side effect, so the pipeline itself stays deterministic and testable.
func NewService(rubrics domainRubric.Repository, logger logging.Logger, opts ...Option) Service {
	s := &serviceImpl{
		rubrics:   rubrics,
		processor: transcript.NewProcessor(),
		composer:  NewFeedbackComposer(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) Grade(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.RubricID == "" {
		return nil, errors.InvalidParam("rubric_id is required")
	}
	if req.TranscriptID == "" {
		return nil, errors.InvalidParam("transcript_id is required")
	}
	start := time.Now()

	r, err := s.rubrics.Get(ctx, req.RubricID, req.RubricVersion)
	if err != nil {
		s.record("error")
		return nil, err
	}

	seg := s.processor.Process(req.RawText, req.TranscriptID)

	var (
		structureRes *evaluation.StructureResult
		questionsRes *evaluation.QuestionMatchingResult
		reasoningRes *evaluation.ReasoningResult
		summaryRes   *evaluation.SummaryResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		structureRes = evaluation.NewStructureEvaluator(r.RubricID).Evaluate(r.Structure, seg)
		return nil
	})
	g.Go(func() error {
		matcher := evaluation.NewQuestionMatcher(r.RubricID, s.matcherOpts...)
		questionsRes = matcher.Match(gctx, r.KeyQuestions, r.KeyQuestionsPolicy, seg)
		return nil
	})
	g.Go(func() error {
		reasoningRes = evaluation.NewReasoningEvaluator(r.RubricID).Evaluate(r.Reasoning, seg)
		return nil
	})
	g.Go(func() error {
		summaryRes = evaluation.NewSummaryEvaluator(r.RubricID).Evaluate(r.Summary, seg)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.record("error")
		return nil, errors.Wrap(err, errors.ErrCodeGradingFailed, "evaluation failed")
	}

	scores := evaluation.ComponentScores{
		Structure:    structureRes.Score,
		KeyQuestions: questionsRes.Score,
		Reasoning:    reasoningRes.Score,
		Summary:      summaryRes.Score,
	}
	overall, breakdown := evaluation.Aggregate(r.Weights, scores)

	res := &Response{
		GradingID:       uuid.NewString(),
		TranscriptID:    req.TranscriptID,
		RubricID:        r.RubricID,
		RubricVersion:   r.Version,
		OverallScore:    overall,
		ComponentScores: scores,
		ScoreBreakdown:  breakdown,
		Structure:       structureRes,
		KeyQuestions:    questionsRes,
		Reasoning:       reasoningRes,
		Summary:         summaryRes,
		Feedback:        s.composer.Compose(r, overall, structureRes, questionsRes, reasoningRes, summaryRes),
		GradedAt:        time.Now().UTC(),
	}

	s.persist(ctx, req, res)
	s.record("completed")
	if s.metrics != nil {
		s.metrics.ObserveGradingDuration(time.Since(start).Seconds())
	}
	s.logger.Info("grading completed",
		logging.String("grading_id", res.GradingID),
		logging.String("rubric_id", r.RubricID),
		logging.String("transcript_id", req.TranscriptID),
		logging.Float64("overall_score", overall),
	)
	return res, nil
}

// persist runs the best-effort side effects.  A failed archive, cache write
// or event publish never fails the grading itself.
func (s *serviceImpl) persist(ctx context.Context, req *Request, res *Response) {
	if s.store != nil {
		if _, err := s.store.PutTranscript(ctx, req.TranscriptID, []byte(req.RawText)); err != nil {
			s.logger.Warn("transcript archival failed", logging.Err(err), logging.String("transcript_id", req.TranscriptID))
		}
	}
	if s.cache != nil {
		if err := s.cache.PutResult(ctx, res); err != nil {
			s.logger.Warn("result cache write failed", logging.Err(err), logging.String("grading_id", res.GradingID))
		}
	}
	if s.submissions != nil {
		sub := &Submission{
			GradingID:     res.GradingID,
			TranscriptID:  res.TranscriptID,
			RubricID:      res.RubricID,
			RubricVersion: res.RubricVersion,
			Status:        SubmissionCompleted,
			OverallScore:  res.OverallScore,
			Result:        res,
			CreatedAt:     res.GradedAt,
			UpdatedAt:     res.GradedAt,
		}
		if err := s.submissions.SaveSubmission(ctx, sub); err != nil {
			s.logger.Warn("submission record failed", logging.Err(err), logging.String("grading_id", res.GradingID))
		}
	}
	if s.publisher != nil {
		event := &CompletedEvent{
			GradingID:     res.GradingID,
			TranscriptID:  res.TranscriptID,
			RubricID:      res.RubricID,
			RubricVersion: res.RubricVersion,
			OverallScore:  res.OverallScore,
			GradedAt:      res.GradedAt,
		}
		if err := s.publisher.PublishGradingCompleted(ctx, event); err != nil {
			s.logger.Warn("completed event publish failed", logging.Err(err), logging.String("grading_id", res.GradingID))
		}
	}
}

func (s *serviceImpl) record(status string) {
	if s.metrics != nil {
		s.metrics.IncGradings(status)
	}
}
