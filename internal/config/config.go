package config

import (
	"errors"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

type Config struct {
	APIKey                string
	BaseURL               string
	TranscriptionModel    string
	ChatModel             string
	Language              string
	MaxAudioLengthMinutes float64
	MaxTokens             int
	Temperature           float64
	OutputDir             string
	FFmpegPath            string
	FFprobePath           string
	RequestTimeout        time.Duration
	LogLevel              string

	// Server mode only.
	ListenAddr     string
	MaxUploadBytes int64
}

type envConfig struct {
	APIKey                string  `env:"OPENAI_API_KEY"`
	BaseURL               string  `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	TranscriptionModel    string  `env:"TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	ChatModel             string  `env:"CHAT_MODEL" envDefault:"gpt-3.5-turbo"`
	Language              string  `env:"LANGUAGE" envDefault:"es"`
	MaxAudioLengthMinutes float64 `env:"MAX_AUDIO_LENGTH_MINUTES" envDefault:"10"`
	MaxTokens             int     `env:"MAX_TOKENS" envDefault:"4000"`
	Temperature           float64 `env:"TEMPERATURE" envDefault:"0.7"`
	OutputDir             string  `env:"OUTPUT_DIR" envDefault:"output"`
	FFmpegPath            string  `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath           string  `env:"FFPROBE_PATH" envDefault:"ffprobe"`
	RequestTimeoutSeconds int     `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"600"`
	LogLevel              string  `env:"LOG_LEVEL" envDefault:"info"`
	ListenAddr            string  `env:"LISTEN_ADDR" envDefault:":8080"`
	MaxUploadBytes        int64   `env:"MAX_UPLOAD_BYTES" envDefault:"536870912"`
}

func Load() (Config, error) {
	var raw envConfig
	if err := cenv.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIKey:                strings.TrimSpace(raw.APIKey),
		BaseURL:               strings.TrimRight(strings.TrimSpace(raw.BaseURL), "/"),
		TranscriptionModel:    strings.TrimSpace(raw.TranscriptionModel),
		ChatModel:             strings.TrimSpace(raw.ChatModel),
		Language:              strings.ToLower(strings.TrimSpace(raw.Language)),
		MaxAudioLengthMinutes: raw.MaxAudioLengthMinutes,
		MaxTokens:             raw.MaxTokens,
		Temperature:           raw.Temperature,
		OutputDir:             strings.TrimSpace(raw.OutputDir),
		FFmpegPath:            strings.TrimSpace(raw.FFmpegPath),
		FFprobePath:           strings.TrimSpace(raw.FFprobePath),
		RequestTimeout:        time.Duration(raw.RequestTimeoutSeconds) * time.Second,
		LogLevel:              strings.ToLower(strings.TrimSpace(raw.LogLevel)),
		ListenAddr:            strings.TrimSpace(raw.ListenAddr),
		MaxUploadBytes:        raw.MaxUploadBytes,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("OPENAI_API_KEY must be set")
	}
	if c.BaseURL == "" {
		return errors.New("OPENAI_BASE_URL must not be empty")
	}
	if c.TranscriptionModel == "" {
		return errors.New("TRANSCRIPTION_MODEL must not be empty")
	}
	if c.ChatModel == "" {
		return errors.New("CHAT_MODEL must not be empty")
	}
	if c.MaxAudioLengthMinutes <= 0 {
		return errors.New("MAX_AUDIO_LENGTH_MINUTES must be > 0")
	}
	if c.MaxTokens <= 0 {
		return errors.New("MAX_TOKENS must be > 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("TEMPERATURE must be between 0 and 2")
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR must not be empty")
	}
	if c.FFmpegPath == "" {
		return errors.New("FFMPEG_PATH must not be empty")
	}
	if c.FFprobePath == "" {
		return errors.New("FFPROBE_PATH must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	return nil
}
