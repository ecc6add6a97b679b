package dictation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/internal/intelligence/oracle"
	"github.com/turtacn/opgrader/pkg/errors"
)

// Service defines the dictation scoring operations.
type Service interface {
	Score(ctx context.Context, req *Request) (*Report, error)
}

// Request contains one dictation to score.
type Request struct {
	DictationID string `json:"dictation_id,omitempty"`
	CCPack      string `json:"cc_pack,omitempty"`
	Text        string `json:"text"`
}

// Report is the complete dictation scoring result.  When the gatekeeper
// rejects the text, Sufficient is false and the grading fields are empty.
type Report struct {
	DictationID string         `json:"dictation_id"`
	CCPack      string         `json:"cc_pack"`
	Sufficient  bool           `json:"sufficient"`
	Reason      string         `json:"reason"`
	Analysis    *Analysis      `json:"analysis,omitempty"`
	Scorecard   *Scorecard     `json:"scorecard,omitempty"`
	EPA         *EPASuggestion `json:"epa,omitempty"`
	Feedback    []FeedbackItem `json:"feedback,omitempty"`
	ScoredAt    time.Time      `json:"scored_at"`
}

// defaultCCPack names the chief-complaint pack used when the request does
// not pick one.
const defaultCCPack = "stroke"

// Option configures the service.
type Option func(*serviceImpl)

// WithGatekeeper overrides the sufficiency thresholds.
func WithGatekeeper(g *Gatekeeper) Option {
	return func(s *serviceImpl) { s.gatekeeper = g }
}

type serviceImpl struct {
	gatekeeper *Gatekeeper
	analyzer   *Analyzer
	oracle     oracle.Client
	logger     logging.Logger
}

// NewService wires the dictation scoring pipeline.  The oracle may be nil;
// every stage then runs on its deterministic fallback.
func NewService(o oracle.Client, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &serviceImpl{
		gatekeeper: NewGatekeeper(),
		analyzer:   NewAnalyzer(o),
		oracle:     o,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score runs gatekeeper, analysis, checks, EPA suggestion, and feedback over
// one dictation.
func (s *serviceImpl) Score(ctx context.Context, req *Request) (*Report, error) {
	if req == nil || req.Text == "" {
		return nil, errors.InvalidParam("text is required")
	}
	if req.DictationID == "" {
		req.DictationID = uuid.NewString()
	}
	ccPack := req.CCPack
	if ccPack == "" {
		ccPack = defaultCCPack
	}

	report := &Report{
		DictationID: req.DictationID,
		CCPack:      ccPack,
		ScoredAt:    time.Now().UTC(),
	}

	ok, reason := s.gatekeeper.Sufficient(req.Text)
	report.Sufficient = ok
	report.Reason = reason
	if !ok {
		s.logger.Info("dictation rejected by gatekeeper",
			logging.String("dictation_id", req.DictationID),
			logging.String("reason", reason))
		return report, nil
	}

	analysis := s.analyzer.Analyze(ctx, req.Text, ccPack)
	card := RunChecks(analysis)
	epa := SuggestEPA(ctx, s.oracle, analysis, card.SectionScores())
	feedback := ComposeFeedback(card)

	// Feedback composition zeroes any unsupported check, so the total is
	// re-derived afterwards to keep it consistent with the check scores.
	total := 0
	for _, step := range card.Steps {
		for _, c := range step.Sections {
			total += c.Score
		}
	}
	if total > maxTotal {
		total = maxTotal
	}
	card.Sum = total

	report.Analysis = analysis
	report.Scorecard = card
	report.EPA = &epa
	report.Feedback = feedback

	s.logger.Info("dictation scored",
		logging.String("dictation_id", req.DictationID),
		logging.String("cc_pack", ccPack),
		logging.Int("total", card.Sum),
		logging.Int("epa6", epa.EPA6),
		logging.Int("epa2", epa.EPA2))
	return report, nil
}
