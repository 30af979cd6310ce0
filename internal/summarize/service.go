package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"meetscribe/internal/upstream/openai"
)

const summarySystemPrompt = `Eres un asistente experto en resumir reuniones.
Genera un resumen conciso pero informativo que incluya:
1. Puntos principales discutidos
2. Decisiones tomadas
3. Acciones a realizar
4. Próximos pasos`

const actionableSystemPrompt = `Eres un asistente experto en análisis de reuniones. ` +
	`Tu tarea es identificar y extraer elementos accionables, ` +
	`decisiones tomadas y puntos clave de la reunión.`

const topicsSystemPrompt = `Eres un experto en análisis de contenido. ` +
	`Identifica y lista los temas principales discutidos ` +
	`en la transcripción de la reunión.`

const sentimentSystemPrompt = `Eres un experto en análisis de sentimiento. ` +
	`Analiza el tono y sentimiento general de la transcripción ` +
	`y proporciona puntuaciones numéricas.`

type ChatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type CostEstimator interface {
	EstimateCost(inputText string, maxOutputTokens int, model string) (float64, error)
}

// BackendError wraps transport and response errors from the chat backend.
// Malformed-response errors from the client pass through untouched.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("chat completion failed: %v", e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

var ErrNoSentimentScores = errors.New("no sentiment scores in model response")

type Service struct {
	client      ChatClient
	estimator   CostEstimator
	model       string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

func New(client ChatClient, estimator CostEstimator, model string, maxTokens int, temperature float64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:      client,
		estimator:   estimator,
		model:       strings.TrimSpace(model),
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// Summarize produces a meeting summary from a transcript using the fixed
// system persona.
func (s *Service) Summarize(ctx context.Context, transcript string) (string, error) {
	prompt := "Por favor, resume el siguiente texto de una reunión:\n\n" + transcript
	return s.chat(ctx, summarySystemPrompt, prompt)
}

func (s *Service) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	system := fmt.Sprintf("Eres un traductor profesional. Traduce el siguiente texto al %s "+
		"manteniendo el tono y contexto original. Si hay términos técnicos, "+
		"mantenlos en su forma original si es apropiado.", targetLanguage)
	return s.chat(ctx, system, "Traduce el siguiente texto:\n\n"+text)
}

func (s *Service) ActionableItems(ctx context.Context, transcript string) (string, error) {
	prompt := "Por favor, analiza la siguiente transcripción y extrae:\n" +
		"1. Elementos accionables (tareas, responsabilidades)\n" +
		"2. Decisiones tomadas\n" +
		"3. Puntos clave discutidos\n\n" + transcript
	return s.chat(ctx, actionableSystemPrompt, prompt)
}

func (s *Service) ExtractTopics(ctx context.Context, transcript string) ([]string, error) {
	prompt := "Por favor, identifica los temas principales discutidos " +
		"en la siguiente transcripción. Proporciona una lista " +
		"concisa de temas:\n\n" + transcript

	content, err := s.chat(ctx, topicsSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var topics []string
	for _, line := range strings.Split(content, "\n") {
		topic := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• \t"))
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics, nil
}

// Sentiment holds normalized scores summing to 1.
type Sentiment struct {
	Positive float64
	Negative float64
	Neutral  float64
}

var scoreRe = regexp.MustCompile(`\d*\.?\d+`)

// AnalyzeSentiment asks the model for positivity/negativity/neutrality
// scores and parses them out of its textual answer, renormalizing so the
// three sum to 1.
func (s *Service) AnalyzeSentiment(ctx context.Context, transcript string) (Sentiment, error) {
	prompt := "Analiza el sentimiento de la siguiente transcripción " +
		"y proporciona puntuaciones de 0 a 1 para:\n" +
		"- Positividad\n" +
		"- Negatividad\n" +
		"- Neutralidad\n\n" + transcript

	content, err := s.chat(ctx, sentimentSystemPrompt, prompt)
	if err != nil {
		return Sentiment{}, err
	}
	return parseSentiment(content)
}

func parseSentiment(content string) (Sentiment, error) {
	var result Sentiment
	var found int
	for _, line := range strings.Split(strings.ToLower(content), "\n") {
		match := scoreRe.FindString(line)
		if match == "" {
			continue
		}
		score, err := strconv.ParseFloat(match, 64)
		if err != nil || score < 0 {
			continue
		}
		switch {
		case strings.Contains(line, "positiv"):
			result.Positive = score
			found++
		case strings.Contains(line, "negativ"):
			result.Negative = score
			found++
		case strings.Contains(line, "neutral"):
			result.Neutral = score
			found++
		}
	}
	if found == 0 {
		return Sentiment{}, ErrNoSentimentScores
	}

	total := result.Positive + result.Negative + result.Neutral
	if total <= 0 {
		return Sentiment{}, ErrNoSentimentScores
	}
	result.Positive /= total
	result.Negative /= total
	result.Neutral /= total
	return result, nil
}

func (s *Service) chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	// Estimation failure must never block the actual call. Both messages
	// count as input tokens, so the estimate covers system and user text.
	if s.estimator != nil {
		if cost, err := s.estimator.EstimateCost(systemPrompt+"\n"+userPrompt, s.maxTokens, s.model); err != nil {
			s.logger.Warn("cost estimate unavailable", "model", s.model, "error", err)
		} else {
			s.logger.Info("estimated request cost", "model", s.model, "usd", fmt.Sprintf("%.4f", cost))
		}
	}

	resp, err := s.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		N:           1,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		var malformed *openai.MalformedResponseError
		if errors.As(err, &malformed) {
			return "", err
		}
		return "", &BackendError{Err: err}
	}
	return strings.TrimSpace(resp.Content), nil
}
