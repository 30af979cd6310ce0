package model

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type ReadyResponse struct {
	OK          bool   `json:"ok"`
	ServiceName string `json:"service_name,omitempty"`
}

type SegmentStatus struct {
	Index int    `json:"index"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type MeetingTimings struct {
	Transcription int64 `json:"transcription"`
	Summary       int64 `json:"summary"`
}

type MeetingResponse struct {
	Transcript      string          `json:"transcript"`
	Summary         string          `json:"summary"`
	DurationMinutes float64         `json:"duration_minutes"`
	Segments        []SegmentStatus `json:"segments"`
	TimingsMS       MeetingTimings  `json:"timings_ms"`
}
