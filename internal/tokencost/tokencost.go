package tokencost

import (
	"fmt"
	"sort"

	"github.com/pkoukk/tiktoken-go"
)

// Pricing holds dollar prices per 1K tokens for one model.
type Pricing struct {
	InputPerThousand  float64
	OutputPerThousand float64
}

// PricingTable maps model names to prices. It is built once at startup and
// passed to the estimator; lookups for unknown models fail loudly rather
// than degrade to a default price.
type PricingTable map[string]Pricing

// DefaultPricingTable mirrors the published OpenAI price list for the
// supported chat models. Update when prices change.
func DefaultPricingTable() PricingTable {
	return PricingTable{
		"gpt-4":         {InputPerThousand: 0.03, OutputPerThousand: 0.06},
		"gpt-3.5-turbo": {InputPerThousand: 0.0015, OutputPerThousand: 0.002},
	}
}

type UnsupportedModelError struct {
	Model     string
	Supported []string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model %q, supported models: %v", e.Model, e.Supported)
}

type Tokenizer interface {
	Count(text string) (int, error)
}

// TokenizerFunc resolves the tokenizer for a model family. Overridable so
// tests run without the BPE vocabularies.
type TokenizerFunc func(model string) (Tokenizer, error)

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Count(text string) (int, error) {
	return len(t.enc.Encode(text, nil, nil)), nil
}

func defaultTokenizerFor(model string) (Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return tiktokenTokenizer{enc: enc}, nil
}

type Option func(*Estimator)

func WithTokenizerFunc(fn TokenizerFunc) Option {
	return func(e *Estimator) {
		if fn != nil {
			e.tokenizerFor = fn
		}
	}
}

// Estimator computes pre-call, worst-case cost projections: input tokens
// counted with the model's encoding plus the output token ceiling. It is
// never a post-hoc invoice.
type Estimator struct {
	prices       PricingTable
	tokenizerFor TokenizerFunc
}

func NewEstimator(prices PricingTable, opts ...Option) *Estimator {
	e := &Estimator{
		prices:       prices,
		tokenizerFor: defaultTokenizerFor,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *Estimator) TokenCount(text, model string) (int, error) {
	tok, err := e.tokenizerFor(model)
	if err != nil {
		return 0, &UnsupportedModelError{Model: model, Supported: e.supportedModels()}
	}
	return tok.Count(text)
}

func (e *Estimator) EstimateCost(inputText string, maxOutputTokens int, model string) (float64, error) {
	pricing, ok := e.prices[model]
	if !ok {
		return 0, &UnsupportedModelError{Model: model, Supported: e.supportedModels()}
	}

	inputTokens, err := e.TokenCount(inputText, model)
	if err != nil {
		return 0, err
	}

	inputCost := float64(inputTokens) / 1000 * pricing.InputPerThousand
	outputCost := float64(maxOutputTokens) / 1000 * pricing.OutputPerThousand
	return inputCost + outputCost, nil
}

type TokenInfo struct {
	TokenCount       int
	EstimatedCostUSD float64
	Model            string
}

// Info summarizes a text's token count and the cost of echoing it back,
// using the count itself as the output ceiling.
func (e *Estimator) Info(text, model string) (TokenInfo, error) {
	count, err := e.TokenCount(text, model)
	if err != nil {
		return TokenInfo{}, err
	}
	cost, err := e.EstimateCost(text, count, model)
	if err != nil {
		return TokenInfo{}, err
	}
	return TokenInfo{TokenCount: count, EstimatedCostUSD: cost, Model: model}, nil
}

func (e *Estimator) supportedModels() []string {
	models := make([]string, 0, len(e.prices))
	for name := range e.prices {
		models = append(models, name)
	}
	sort.Strings(models)
	return models
}
