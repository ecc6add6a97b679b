package evaluation

import (
	"context"
	"strings"

	"github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/domain/transcript"
)

// LexicalScorer scores each phrase against the utterance corpus lexically,
// returning one normalized score per phrase.
type LexicalScorer interface {
	ScorePhrases(ctx context.Context, phrases []string, corpus []string) ([]float64, error)
}

// SemanticScorer scores phrases against the corpus by embedding similarity
// and can locate the single best-matching corpus entry for a phrase.
// BestMatch returns -1 when no entry matches at all.
type SemanticScorer interface {
	ScorePhrases(ctx context.Context, phrases []string, corpus []string) ([]float64, error)
	BestMatch(ctx context.Context, phrase string, corpus []string) (int, error)
}

// MatcherOption configures a QuestionMatcher.
type MatcherOption func(*QuestionMatcher)

// WithLexicalScorer replaces the default in-process BM25 scorer.
func WithLexicalScorer(s LexicalScorer) MatcherOption {
	return func(m *QuestionMatcher) { m.lexical = s }
}

// WithSemanticScorer enables embedding-based scoring.  Without one, the
// matcher substitutes case-insensitive substring containment.
func WithSemanticScorer(s SemanticScorer) MatcherOption {
	return func(m *QuestionMatcher) { m.semantic = s }
}

// WithMatchWeights overrides the lexical/semantic blend and threshold.
func WithMatchWeights(lexicalWeight, semanticWeight, threshold float64) MatcherOption {
	return func(m *QuestionMatcher) {
		m.lexicalWeight = lexicalWeight
		m.semanticWeight = semanticWeight
		m.threshold = threshold
	}
}

// QuestionMatcher detects whether the student asked each rubric key question,
// blending a lexical score with a semantic score per phrase.
//
// The combined score is lexicalWeight*lex + semanticWeight*sem and is
// deliberately not re-normalized, so configurations whose weights sum past
// 1.0 can produce confidences above 1.0.
type QuestionMatcher struct {
	rubricID       string
	lexical        LexicalScorer
	semantic       SemanticScorer
	lexicalWeight  float64
	semanticWeight float64
	threshold      float64
}

// NewQuestionMatcher constructs a matcher with the default blend
// (0.4 lexical, 0.6 semantic, threshold 0.5) and the in-process BM25 scorer.
func NewQuestionMatcher(rubricID string, opts ...MatcherOption) *QuestionMatcher {
	m := &QuestionMatcher{
		rubricID:       rubricID,
		lexical:        NewBM25Scorer(),
		lexicalWeight:  0.4,
		semanticWeight: 0.6,
		threshold:      0.5,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match evaluates every key question against the student's utterances.
func (m *QuestionMatcher) Match(ctx context.Context, questions []rubric.KeyQuestion, policy rubric.KeyQuestionsPolicy, seg *transcript.SegmentedTranscript) *QuestionMatchingResult {
	utterances := seg.AllStudentUtterances()
	corpus := make([]string, len(utterances))
	for i, u := range utterances {
		corpus[i] = u.Text
	}

	criticalWeight := policy.CriticalWeight
	if criticalWeight == 0 {
		criticalWeight = 2.0
	}
	noncriticalWeight := policy.NoncriticalWeight
	if noncriticalWeight == 0 {
		noncriticalWeight = 1.0
	}

	res := &QuestionMatchingResult{}
	for _, q := range questions {
		weight := noncriticalWeight
		if q.Critical {
			weight = criticalWeight
		}
		res.TotalWeight += weight

		lexScores := m.lexicalScores(ctx, q.Phrases, corpus)
		semScores := m.semanticScores(ctx, q.Phrases, corpus)

		bestScore, bestPhrase := 0.0, ""
		if len(q.Phrases) > 0 {
			bestPhrase = q.Phrases[0]
		}
		for i := range q.Phrases {
			combined := m.lexicalWeight*lexScores[i] + m.semanticWeight*semScores[i]
			if combined > bestScore {
				bestScore = combined
				bestPhrase = q.Phrases[i]
			}
		}

		if bestScore < m.threshold {
			res.UnmatchedQuestions = append(res.UnmatchedQuestions, q.ID)
			continue
		}

		citation := ""
		if idx := m.bestMatchIndex(ctx, bestPhrase, corpus); idx >= 0 {
			citation = NewOralCitation(utterances[idx].TimestampStart, utterances[idx].TimestampEnd).URI()
		}
		res.Matches = append(res.Matches, QuestionMatch{
			QuestionID:      q.ID,
			QuestionAnchor:  q.Anchor,
			MatchedPhrase:   bestPhrase,
			Confidence:      bestScore,
			StudentCitation: citation,
			Critical:        q.Critical,
			Weight:          weight,
		})
		res.MatchedWeight += weight
	}

	if res.TotalWeight > 0 {
		res.Score = res.MatchedWeight / res.TotalWeight
	} else {
		res.Score = 1.0
	}
	return res
}

func (m *QuestionMatcher) lexicalScores(ctx context.Context, phrases, corpus []string) []float64 {
	if m.lexical != nil {
		if scores, err := m.lexical.ScorePhrases(ctx, phrases, corpus); err == nil {
			return scores
		}
	}
	return substringScores(phrases, corpus)
}

func (m *QuestionMatcher) semanticScores(ctx context.Context, phrases, corpus []string) []float64 {
	if m.semantic != nil {
		if scores, err := m.semantic.ScorePhrases(ctx, phrases, corpus); err == nil {
			return scores
		}
	}
	return substringScores(phrases, corpus)
}

func (m *QuestionMatcher) bestMatchIndex(ctx context.Context, phrase string, corpus []string) int {
	if m.semantic != nil {
		if idx, err := m.semantic.BestMatch(ctx, phrase, corpus); err == nil {
			return idx
		}
	}
	return substringFirstMatch(phrase, corpus)
}

// substringScores is the degraded-capability substitute: 1.0 when any corpus
// entry contains the phrase, else 0.0.
func substringScores(phrases, corpus []string) []float64 {
	out := make([]float64, len(phrases))
	for i, phrase := range phrases {
		if substringFirstMatch(phrase, corpus) >= 0 {
			out[i] = 1.0
		}
	}
	return out
}

func substringFirstMatch(phrase string, corpus []string) int {
	needle := strings.ToLower(phrase)
	for i, text := range corpus {
		if strings.Contains(strings.ToLower(text), needle) {
			return i
		}
	}
	return -1
}
