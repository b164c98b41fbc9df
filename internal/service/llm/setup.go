package llm

import (
	"fmt"
	"log/slog"
	"time"

	"chatloop/internal/capabilities"
	"chatloop/internal/config"
	llmRepo "chatloop/internal/domain/repositories/llm"
	domainllm "chatloop/internal/domain/services/llm"
	"chatloop/internal/service/llm/conversation"
	"chatloop/internal/service/llm/streaming"
	"chatloop/internal/service/llm/tools"
	"chatloop/internal/service/llm/tools/external"
)

// defaultMaxOutputTokens caps one completion unless the model allows less
const defaultMaxOutputTokens = 4096

// weatherHTTPTimeout bounds one Open-Meteo request
const weatherHTTPTimeout = 10 * time.Second

// Services holds all LLM-related services
type Services struct {
	Conversation domainllm.ConversationService
	Orchestrator domainllm.StepOrchestrator
	TurnBuilder  domainllm.TurnBuilder
	Tools        *tools.ToolRegistry
	Model        *ModelSelection
}

// SetupServices initializes all LLM services with proper dependency injection
func SetupServices(
	cfg *config.Config,
	conversationRepo llmRepo.ConversationRepository,
	turnStore llmRepo.TurnStore,
	catalog *capabilities.Registry,
	logger *slog.Logger,
) (*Services, error) {
	factory := NewProviderFactory(cfg, catalog)

	selection, err := factory.ResolveModel(cfg.DefaultProvider, cfg.DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("resolve model: %w", err)
	}

	provider, err := factory.GetProvider(selection.Provider)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	if !provider.SupportsModel(selection.Model) {
		return nil, fmt.Errorf("provider %s does not serve model %s", selection.Provider, selection.Model)
	}

	logger.Info("provider available",
		"name", selection.Provider,
		"model", selection.Model,
		"rate_limit_rps", cfg.ProviderRPS,
	)

	registry, err := tools.NewToolRegistryBuilder().
		WithWeather(external.NewOpenMeteoClientWithConfig(cfg.WeatherBaseURL, weatherHTTPTimeout)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	// Models without tool support get no tool set at all
	var toolSet domainllm.ToolSet
	if selection.Capabilities.SupportsTools {
		toolSet = registry
	} else {
		logger.Warn("model does not support tools, running without them", "model", selection.Model)
	}

	maxTokens := defaultMaxOutputTokens
	if mo := selection.Capabilities.MaxOutput; mo > 0 && mo < maxTokens {
		maxTokens = mo
	}

	messageBuilder := conversation.NewMessageBuilderService(catalog, logger)
	runtime := NewToolRuntime(provider, selection.Model, maxTokens, messageBuilder, logger)
	builder := streaming.NewBuilder()

	orchestrator := streaming.NewOrchestrator(
		turnStore,
		runtime,
		toolSet,
		builder,
		domainllm.NewConfigStepLimitResolver(cfg.MaxSteps),
		logger,
	)

	return &Services{
		Conversation: conversation.NewService(conversationRepo, turnStore, logger),
		Orchestrator: orchestrator,
		TurnBuilder:  builder,
		Tools:        registry,
		Model:        selection,
	}, nil
}
