package evaluation

import (
	"context"
	"math"

	"github.com/turtacn/opgrader/pkg/textutil"
)

// Okapi BM25 parameters.  The epsilon floor replaces negative IDF values
// (terms present in more than half the corpus) with a small positive fraction
// of the average IDF so common clinical words still contribute.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// bm25Index is an in-memory Okapi BM25 index over a small utterance corpus.
// Corpora here are one encounter's utterances, so building the index per
// grading call is cheap.
type bm25Index struct {
	corpusSize int
	avgDocLen  float64
	docFreqs   []map[string]int
	docLens    []int
	idf        map[string]float64
}

func newBM25Index(docs [][]string) *bm25Index {
	idx := &bm25Index{
		corpusSize: len(docs),
		idf:        map[string]float64{},
	}
	if len(docs) == 0 {
		return idx
	}

	nd := map[string]int{} // term -> number of docs containing it
	total := 0
	for _, doc := range docs {
		freqs := map[string]int{}
		for _, tok := range doc {
			freqs[tok]++
		}
		for term := range freqs {
			nd[term]++
		}
		idx.docFreqs = append(idx.docFreqs, freqs)
		idx.docLens = append(idx.docLens, len(doc))
		total += len(doc)
	}
	idx.avgDocLen = float64(total) / float64(len(docs))

	var idfSum float64
	var negative []string
	for term, freq := range nd {
		idf := math.Log(float64(idx.corpusSize)-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		idx.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	averageIDF := idfSum / float64(len(idx.idf))
	floor := bm25Epsilon * averageIDF
	for _, term := range negative {
		idx.idf[term] = floor
	}
	return idx
}

// scores returns the BM25 score of the query against every document.
func (idx *bm25Index) scores(query []string) []float64 {
	out := make([]float64, idx.corpusSize)
	for i := 0; i < idx.corpusSize; i++ {
		dl := float64(idx.docLens[i])
		var s float64
		for _, term := range query {
			f := float64(idx.docFreqs[i][term])
			if f == 0 {
				continue
			}
			s += idx.idf[term] * (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*dl/idx.avgDocLen))
		}
		out[i] = s
	}
	return out
}

// bm25Scorer is the default in-process LexicalScorer.  Raw BM25 scores are
// normalized to [0, 1] by dividing the best per-phrase score by 10 and
// capping, matching the score scale the match threshold was tuned against.
type bm25Scorer struct{}

// NewBM25Scorer returns the deterministic in-process lexical scorer.
func NewBM25Scorer() LexicalScorer {
	return bm25Scorer{}
}

func (bm25Scorer) ScorePhrases(_ context.Context, phrases []string, corpus []string) ([]float64, error) {
	docs := make([][]string, len(corpus))
	for i, text := range corpus {
		docs[i] = textutil.Tokenize(text)
	}
	out := make([]float64, len(phrases))
	if len(docs) == 0 {
		return out, nil
	}
	idx := newBM25Index(docs)
	for i, phrase := range phrases {
		scores := idx.scores(textutil.Tokenize(phrase))
		best := 0.0
		for _, s := range scores {
			if s > best {
				best = s
			}
		}
		out[i] = math.Min(best/10.0, 1.0)
	}
	return out, nil
}
