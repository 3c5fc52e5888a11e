package models

import "time"

// AgentProvider identifies the request-shaping contract of an external agent
// service.
type AgentProvider string

const (
	AgentProviderOpenAIAssistant AgentProvider = "openai_assistant"
	AgentProviderSuperAGI        AgentProvider = "superagi"
	AgentProviderAutoGen         AgentProvider = "autogen"
	AgentProviderCustom          AgentProvider = "custom"
)

// Agent describes an external HTTP-based agent service that agent_task nodes
// delegate work to.
type Agent struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"     validate:"required,min=1"`
	Description string         `json:"description,omitempty"`
	Provider    AgentProvider  `json:"provider" validate:"required"`
	Endpoint    string         `json:"endpoint" validate:"required,url"`
	Config      map[string]any `json:"config,omitempty"`
	Enabled     bool           `json:"enabled"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// APIKey returns the bearer token configured for this agent, empty when none
// is set.
func (a *Agent) APIKey() string {
	key, _ := a.Config["apiKey"].(string)

	return key
}
