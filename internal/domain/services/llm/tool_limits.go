package llm

import "context"

// StepLimitResolver resolves how many provider rounds one request may run.
// ConfigStepLimitResolver is the only strategy today.
type StepLimitResolver interface {
	GetStepLimit(ctx context.Context, conversationID string) (int, error)
}

// ConfigStepLimitResolver returns a static limit for all conversations.
type ConfigStepLimitResolver struct {
	defaultLimit int
}

// NewConfigStepLimitResolver creates a resolver that returns the same limit for every conversation.
func NewConfigStepLimitResolver(defaultLimit int) *ConfigStepLimitResolver {
	return &ConfigStepLimitResolver{
		defaultLimit: defaultLimit,
	}
}

// GetStepLimit returns the configured limit.
func (r *ConfigStepLimitResolver) GetStepLimit(ctx context.Context, conversationID string) (int, error) {
	return r.defaultLimit, nil
}
