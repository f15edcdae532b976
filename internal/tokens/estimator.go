// Package tokens provides token-count estimation for chunk sizing.
package tokens

import (
	"math"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// WordTokenRatio approximates tokens per word for English prose.
// Used whenever real tokenization is unavailable.
const WordTokenRatio = 1.3

// Estimator estimates the token length of a text span.
type Estimator interface {
	Estimate(text string) int
}

// TiktokenEstimator counts tokens with the cl100k_base encoding.
// Encoding initialization is lazy; if it ever fails, estimation
// silently falls back to a word-count heuristic so chunking is
// never aborted by tokenizer problems.
type TiktokenEstimator struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewEstimator returns the default estimator.
func NewEstimator() *TiktokenEstimator {
	return &TiktokenEstimator{}
}

// Estimate returns the estimated token count for text.
func (e *TiktokenEstimator) Estimate(text string) int {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			e.encoding = enc
		}
	})

	if e.encoding == nil {
		return EstimateByWords(text)
	}
	return len(e.encoding.Encode(text, nil, nil))
}

// WordCountEstimator estimates tokens purely from word counts.
// Useful in tests and environments without the encoding data.
type WordCountEstimator struct{}

// Estimate returns the word-count based token estimate for text.
func (WordCountEstimator) Estimate(text string) int {
	return EstimateByWords(text)
}

// EstimateByWords is the shared word-count heuristic: words x 1.3,
// rounded up.
func EstimateByWords(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * WordTokenRatio))
}
