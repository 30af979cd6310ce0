package tokencost

import (
	"errors"
	"math"
	"strings"
	"testing"
)

// wordTokenizer keeps the tests independent of the BPE vocabularies.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func wordTokenizerFor(_ string) (Tokenizer, error) {
	return wordTokenizer{}, nil
}

func fixedCountTokenizerFor(count int) TokenizerFunc {
	return func(_ string) (Tokenizer, error) {
		return TokenizerStub(count), nil
	}
}

type TokenizerStub int

func (s TokenizerStub) Count(_ string) (int, error) { return int(s), nil }

func TestEstimateCostUnknownModel(t *testing.T) {
	resolved := false
	e := NewEstimator(DefaultPricingTable(), WithTokenizerFunc(func(string) (Tokenizer, error) {
		resolved = true
		return wordTokenizer{}, nil
	}))

	_, err := e.EstimateCost("hola", 100, "gpt-9000")
	var unsupported *UnsupportedModelError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedModelError, got %v", err)
	}
	if unsupported.Model != "gpt-9000" {
		t.Fatalf("error model = %q", unsupported.Model)
	}
	if len(unsupported.Supported) != 2 {
		t.Fatalf("supported list = %v", unsupported.Supported)
	}
	if resolved {
		t.Fatal("tokenizer must not be resolved for an unpriced model")
	}
}

func TestEstimateCostFormula(t *testing.T) {
	tests := []struct {
		name            string
		model           string
		inputTokens     int
		maxOutputTokens int
		want            float64
	}{
		{"gpt-3.5-turbo", "gpt-3.5-turbo", 2000, 4000, (2000.0/1000)*0.0015 + (4000.0/1000)*0.002},
		{"gpt-4", "gpt-4", 1000, 500, (1000.0/1000)*0.03 + (500.0/1000)*0.06},
		{"zero output ceiling", "gpt-4", 100, 0, (100.0 / 1000) * 0.03},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEstimator(DefaultPricingTable(), WithTokenizerFunc(fixedCountTokenizerFor(tt.inputTokens)))
			got, err := e.EstimateCost("whatever", tt.maxOutputTokens, tt.model)
			if err != nil {
				t.Fatalf("EstimateCost() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("EstimateCost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenCountMonotonic(t *testing.T) {
	e := NewEstimator(DefaultPricingTable(), WithTokenizerFunc(wordTokenizerFor))

	short, err := e.TokenCount("hola a todos", "gpt-3.5-turbo")
	if err != nil {
		t.Fatalf("TokenCount() error = %v", err)
	}
	long, err := e.TokenCount("hola a todos en la reunión de hoy", "gpt-3.5-turbo")
	if err != nil {
		t.Fatalf("TokenCount() error = %v", err)
	}
	if short <= 0 || long <= short {
		t.Fatalf("counts not monotonic: short=%d long=%d", short, long)
	}
}

func TestTokenCountUnknownModel(t *testing.T) {
	e := NewEstimator(DefaultPricingTable(), WithTokenizerFunc(func(string) (Tokenizer, error) {
		return nil, errors.New("no encoding for model")
	}))

	_, err := e.TokenCount("hola", "gpt-9000")
	var unsupported *UnsupportedModelError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedModelError, got %v", err)
	}
}

func TestInfo(t *testing.T) {
	e := NewEstimator(DefaultPricingTable(), WithTokenizerFunc(wordTokenizerFor))

	info, err := e.Info("uno dos tres cuatro", "gpt-3.5-turbo")
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.TokenCount != 4 {
		t.Fatalf("TokenCount = %d, want 4", info.TokenCount)
	}
	want := (4.0/1000)*0.0015 + (4.0/1000)*0.002
	if math.Abs(info.EstimatedCostUSD-want) > 1e-12 {
		t.Fatalf("EstimatedCostUSD = %v, want %v", info.EstimatedCostUSD, want)
	}
	if info.Model != "gpt-3.5-turbo" {
		t.Fatalf("Model = %q", info.Model)
	}
}
