// cmd/fx/providers_fx/module.go
package providers_fx

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/fx"

	"tripforge/internal/services"
	mem "tripforge/pkg/memcache"
	"tripforge/pkg/ratequeue"
	"tripforge/pkg/utils"
)

var Module = fx.Provide(
	ProvideLLMClient,
	ProvideMarketplaceService,
	ProvideFareQueue,
	ProvideFlightService,
	ProvideImageService,
	ProvidePlanCache,
)

// LLMConfig holds configuration for the plan-generation LLM client
type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
}

// ProvideLLMClient creates the LLM client based on environment variables
func ProvideLLMClient() (utils.LLMClientInterface, error) {
	config := getLLMConfig()

	log.Printf("Initializing %s LLM client with model: %s", config.Provider, config.Model)

	client, err := utils.NewLLMClient(config.Provider, config.APIKey, config.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

func ProvideMarketplaceService() services.MarketplaceServiceInterface {
	return services.NewMarketplaceService(
		getEnvWithDefault("MARKETPLACE_BASE_URL", ""),
		os.Getenv("MARKETPLACE_API_KEY"),
	)
}

// ProvideFareQueue builds the process-wide admission queue for the fare
// provider. The ceilings come from the provider's published rate limits.
func ProvideFareQueue() *ratequeue.Queue {
	return ratequeue.New(ratequeue.Limits{
		PerSecond:      getEnvInt("GDS_LIMIT_PER_SECOND", 5),
		PerFiveMinutes: getEnvInt("GDS_LIMIT_PER_5MIN", 100),
		PerHour:        getEnvInt("GDS_LIMIT_PER_HOUR", 500),
	})
}

func ProvideFlightService(queue *ratequeue.Queue, tiers services.TierServiceInterface) services.FlightServiceInterface {
	return services.NewFlightService(
		getEnvWithDefault("GDS_BASE_URL", ""),
		os.Getenv("GDS_API_KEY"),
		queue,
		tiers,
	)
}

func ProvideImageService() services.ImageServiceInterface {
	return services.NewImageService(
		getEnvWithDefault("IMAGE_BASE_URL", ""),
		os.Getenv("IMAGE_API_KEY"),
	)
}

func ProvidePlanCache() mem.PlanCacheStore {
	return mem.NewPlanCache()
}

// getLLMConfig reads configuration from environment variables
func getLLMConfig() LLMConfig {
	provider := getEnvWithDefault("LLM_PROVIDER", "gemini")

	var apiKey, model string

	switch strings.ToLower(provider) {
	case "openai":
		apiKey = os.Getenv("OPENAI_API_KEY")
		model = getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini")
		if apiKey == "" {
			log.Fatal("OPENAI_API_KEY is required when using OpenAI provider")
		}
	case "gemini":
		apiKey = os.Getenv("GEMINI_API_KEY")
		model = getEnvWithDefault("GEMINI_MODEL", "gemini-1.5-flash")
		if apiKey == "" {
			log.Fatal("GEMINI_API_KEY is required when using Gemini provider")
		}
	}

	return LLMConfig{
		Provider: provider,
		APIKey:   apiKey,
		Model:    model,
	}
}

// getEnvWithDefault returns environment variable or default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
