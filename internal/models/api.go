package models

import (
	"time"
)

// VerifyRequest is the body of a verification request
type VerifyRequest struct {
	GSTIN string `json:"gstin" binding:"required" example:"27ABCDE1234F1Z5"`
}

// CaptchaRequest carries a CAPTCHA solution for a pending verification
type CaptchaRequest struct {
	Solution string `json:"solution" binding:"required" example:"AB12C"`
}

// VerifyResponse is returned for a completed verification
type VerifyResponse struct {
	GSTIN      string    `json:"gstin" example:"27ABCDE1234F1Z5"`
	LegalName  string    `json:"legal_name" example:"ACME TRADING PRIVATE LIMITED"`
	TradeName  string    `json:"trade_name" example:"ACME TRADERS"`
	Address    string    `json:"address" example:"12, MG Road, Pune, Maharashtra, 411001"`
	Status     string    `json:"status" example:"Active"`
	VerifiedAt time.Time `json:"verified_at" example:"2024-01-15T10:30:00Z"`
	Cached     bool      `json:"cached" example:"false"`
	Details    *Record   `json:"details,omitempty"`
}

// ChallengeResponse is returned when the portal asked for a CAPTCHA
type ChallengeResponse struct {
	Status  string `json:"status" example:"challenge"`
	GSTIN   string `json:"gstin" example:"27ABCDE1234F1Z5"`
	Image   string `json:"image" example:"data:image/png;base64,iVBORw0..."`
	Message string `json:"message" example:"Solve the CAPTCHA and submit it to /api/v1/gstin/captcha"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error      string    `json:"error" example:"Verification failed"`
	Message    string    `json:"message" example:"Timeout waiting for GST details"`
	Code       string    `json:"code,omitempty" example:"PAYLOAD_TIMEOUT"`
	GSTIN      string    `json:"gstin,omitempty" example:"27ABCDE1234F1Z5"`
	Suggestion string    `json:"suggestion,omitempty"`
	Artifacts  []string  `json:"artifacts,omitempty"`
	Timestamp  time.Time `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Path       string    `json:"path" example:"/api/v1/gstin/verify"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp time.Time              `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Version   string                 `json:"version" example:"1.0.0"`
	Services  map[string]ServiceInfo `json:"services"`
	Uptime    string                 `json:"uptime" example:"2h30m45s"`
}

// ServiceInfo represents individual service health
type ServiceInfo struct {
	Status    string    `json:"status" example:"healthy"`
	LastCheck time.Time `json:"last_check" example:"2024-01-15T10:30:00Z"`
	Error     string    `json:"error,omitempty"`
}

// MetricsResponse represents metrics response
type MetricsResponse struct {
	Lookups   LookupMetrics `json:"lookups"`
	Session   SessionInfo   `json:"session"`
	System    SystemMetrics `json:"system"`
	Timestamp time.Time     `json:"timestamp" example:"2024-01-15T10:30:00Z"`
}

// LookupMetrics counts verification outcomes
type LookupMetrics struct {
	Total      int64   `json:"total" example:"120"`
	CacheHits  int64   `json:"cache_hits" example:"80"`
	Challenges int64   `json:"challenges" example:"30"`
	Succeeded  int64   `json:"succeeded" example:"35"`
	Failed     int64   `json:"failed" example:"5"`
	HitRate    float64 `json:"hit_rate" example:"66.7"`
}

// SessionInfo describes the browser session
type SessionInfo struct {
	Initialized      bool   `json:"initialized" example:"true"`
	Mode             string `json:"mode" example:"handoff"`
	PendingChallenge bool   `json:"pending_challenge" example:"false"`
}

// SystemMetrics represents system metrics
type SystemMetrics struct {
	MemoryUsage float64 `json:"memory_usage" example:"512.5"`
	Goroutines  int     `json:"goroutines" example:"25"`
}
