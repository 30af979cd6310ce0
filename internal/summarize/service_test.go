package summarize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"testing"

	"meetscribe/internal/upstream/openai"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeChatClient struct {
	content string
	err     error
	request openai.ChatCompletionRequest
}

func (f *fakeChatClient) ChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.request = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{Content: f.content}, nil
}

type fakeEstimator struct {
	cost      float64
	err       error
	called    bool
	inputText string
}

func (f *fakeEstimator) EstimateCost(inputText string, _ int, _ string) (float64, error) {
	f.called = true
	f.inputText = inputText
	return f.cost, f.err
}

func newTestService(client ChatClient, estimator CostEstimator) *Service {
	return New(client, estimator, "gpt-3.5-turbo", 4000, 0.7, testLogger())
}

func TestSummarizeRequestShape(t *testing.T) {
	client := &fakeChatClient{content: " el resumen \n"}
	estimator := &fakeEstimator{cost: 0.01}
	svc := newTestService(client, estimator)

	summary, err := svc.Summarize(context.Background(), "acta de la reunión")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary != "el resumen" {
		t.Fatalf("Summarize() = %q", summary)
	}
	if !estimator.called {
		t.Fatal("estimator was not consulted")
	}
	if !strings.Contains(estimator.inputText, summarySystemPrompt) ||
		!strings.Contains(estimator.inputText, "acta de la reunión") {
		t.Fatal("cost estimate must cover both system and user text")
	}

	req := client.request
	if req.Model != "gpt-3.5-turbo" || req.MaxTokens != 4000 || req.Temperature != 0.7 || req.N != 1 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Fatalf("unexpected roles: %q, %q", req.Messages[0].Role, req.Messages[1].Role)
	}
	if req.Messages[0].Content != summarySystemPrompt {
		t.Fatal("system message must carry the summary persona")
	}
}

func TestSummarizeEstimatorFailureNeverBlocks(t *testing.T) {
	client := &fakeChatClient{content: "resumen"}
	estimator := &fakeEstimator{err: errors.New("unsupported model")}
	svc := newTestService(client, estimator)

	summary, err := svc.Summarize(context.Background(), "texto")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary != "resumen" {
		t.Fatalf("Summarize() = %q", summary)
	}
}

func TestSummarizeBackendFailure(t *testing.T) {
	upstream := &openai.Error{StatusCode: 500, Body: "server error"}
	svc := newTestService(&fakeChatClient{err: upstream}, nil)

	_, err := svc.Summarize(context.Background(), "texto")
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected *BackendError, got %v", err)
	}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Fatalf("upstream error lost: %v", err)
	}
}

func TestSummarizeMalformedResponsePassesThrough(t *testing.T) {
	malformed := &openai.MalformedResponseError{Reason: "no choices"}
	svc := newTestService(&fakeChatClient{err: malformed}, nil)

	_, err := svc.Summarize(context.Background(), "texto")
	var got *openai.MalformedResponseError
	if !errors.As(err, &got) {
		t.Fatalf("expected *MalformedResponseError, got %v", err)
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		t.Fatal("malformed response must not be wrapped in BackendError")
	}
}

func TestTranslateUsesTargetLanguage(t *testing.T) {
	client := &fakeChatClient{content: "hello everyone"}
	svc := newTestService(client, nil)

	if _, err := svc.Translate(context.Background(), "hola a todos", "inglés"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	system := client.request.Messages[0].Content
	if !strings.Contains(system, "inglés") {
		t.Fatalf("system prompt missing target language: %q", system)
	}
}

func TestExtractTopicsStripsBullets(t *testing.T) {
	client := &fakeChatClient{content: "- Presupuesto anual\n* Contrataciones\n• Roadmap del producto\n\n  Cierre  "}
	svc := newTestService(client, nil)

	topics, err := svc.ExtractTopics(context.Background(), "texto")
	if err != nil {
		t.Fatalf("ExtractTopics() error = %v", err)
	}
	want := []string{"Presupuesto anual", "Contrataciones", "Roadmap del producto", "Cierre"}
	if !reflect.DeepEqual(topics, want) {
		t.Fatalf("ExtractTopics() = %v, want %v", topics, want)
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	client := &fakeChatClient{content: "Positividad: 0.6\nNegatividad: 0.6\nNeutralidad: 0.8"}
	svc := newTestService(client, nil)

	got, err := svc.AnalyzeSentiment(context.Background(), "texto")
	if err != nil {
		t.Fatalf("AnalyzeSentiment() error = %v", err)
	}
	sum := got.Positive + got.Negative + got.Neutral
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("scores not normalized, sum = %v", sum)
	}
	if math.Abs(got.Positive-0.3) > 1e-9 || math.Abs(got.Negative-0.3) > 1e-9 || math.Abs(got.Neutral-0.4) > 1e-9 {
		t.Fatalf("unexpected scores: %+v", got)
	}
}

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Sentiment
		wantErr error
	}{
		{
			name:    "labeled scores",
			content: "Positividad: 0.5\nNegatividad: 0.25\nNeutralidad: 0.25",
			want:    Sentiment{Positive: 0.5, Negative: 0.25, Neutral: 0.25},
		},
		{
			name:    "renormalizes",
			content: "positivo 2\nnegativo 1\nneutral 1",
			want:    Sentiment{Positive: 0.5, Negative: 0.25, Neutral: 0.25},
		},
		{
			name:    "mixed case with prose",
			content: "El tono es mayormente Positivo (0.8).\nAlgo Negativo (0.2).\nNeutralidad: 0",
			want:    Sentiment{Positive: 0.8, Negative: 0.2, Neutral: 0},
		},
		{
			name:    "no scores at all",
			content: "La reunión fue amena y productiva.",
			wantErr: ErrNoSentimentScores,
		},
		{
			name:    "all zeros",
			content: "positividad: 0\nnegatividad: 0\nneutralidad: 0",
			wantErr: ErrNoSentimentScores,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSentiment(tt.content)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSentiment() error = %v", err)
			}
			if math.Abs(got.Positive-tt.want.Positive) > 1e-9 ||
				math.Abs(got.Negative-tt.want.Negative) > 1e-9 ||
				math.Abs(got.Neutral-tt.want.Neutral) > 1e-9 {
				t.Fatalf("parseSentiment() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
