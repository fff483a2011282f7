package entity

// HealthCheckResponse reports component availability for /health.
type HealthCheckResponse struct {
	Status  bool                    `json:"status"`
	Message string                  `json:"message"`
	Version string                  `json:"version"`
	Checks  HealthCheckResponseData `json:"checks"`
}

type HealthCheckResponseData struct {
	Outbox HealthCheckItem `json:"outbox"`
	Kafka  HealthCheckItem `json:"kafka"`
}

type HealthCheckItem struct {
	Status bool   `json:"status"`
	Type   string `json:"type"`
	Error  string `json:"error,omitempty"`
}
