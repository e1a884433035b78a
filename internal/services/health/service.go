package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the health payload.
type Status struct {
	OK            bool   `json:"ok"`
	Storage       string `json:"storage"`
	LLM           bool   `json:"llm"`
	ResearchAgent bool   `json:"researchAgent"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB              Pinger
	LLMConfigured   bool
	AgentConfigured bool
	Timeout         time.Duration
}

// NewService constructs a health service. db may be nil for in-memory storage.
func NewService(db Pinger, llmConfigured, agentConfigured bool) *Service {
	return &Service{DB: db, LLMConfigured: llmConfigured, AgentConfigured: agentConfigured, Timeout: 2 * time.Second}
}

// Status reports storage reachability and which model backends are configured.
// OK is false only when a configured database cannot be reached.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Storage: "memory", LLM: s.LLMConfigured, ResearchAgent: s.AgentConfigured}
	if s.DB == nil {
		return st
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		st.OK = false
		st.Storage = "unreachable"
		return st
	}
	st.Storage = "postgres"
	return st
}
