package models

// HealthResponse is returned by /healthz
type HealthResponse struct {
	Version   string  `json:"version" example:"1.0.0"`
	StartTime string  `json:"startTime" example:"2024-01-01T10:00:00Z"`
	Status    string  `json:"status" example:"UP"`
	Uptime    string  `json:"uptime" example:"1h30m45s"`
	Metrics   Metrics `json:"metrics"`
}

// Metrics summarizes node counts
type Metrics struct {
	TotalRequests int64 `json:"totalRequests"`
	ErrorRequests int64 `json:"errorRequests"`
	TotalNodes    int   `json:"totalNodes"`
	RunningNodes  int   `json:"runningNodes"`
	FailedNodes   int   `json:"failedNodes"`
}
