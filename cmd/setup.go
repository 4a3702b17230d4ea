package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/signalnine/sqlbench/internal/agent"
	"github.com/signalnine/sqlbench/internal/config"
	"github.com/signalnine/sqlbench/internal/pricing"
	"github.com/signalnine/sqlbench/internal/tools"
	"github.com/signalnine/sqlbench/internal/trace"
	"github.com/signalnine/sqlbench/internal/trace/otelexport"
)

// buildClient assembles the decision client from config. The API key is
// read from the environment, optionally pre-loaded from a secrets file.
func buildClient(cfg *config.Config) (agent.Client, error) {
	if cfg.Secrets.EnvFile != "" {
		env, err := config.LoadEnvFile(cfg.Secrets.EnvFile)
		if err != nil {
			return nil, err
		}
		for k, v := range env {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}
	apiKey := os.Getenv(cfg.Decision.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("decision API key not set: export %s or configure secrets.env_file", cfg.Decision.APIKeyEnv)
	}
	return agent.NewOpenAIClient(agent.OpenAIConfig{
		BaseURL:           cfg.Decision.BaseURL,
		APIKey:            apiKey,
		Model:             cfg.Decision.Model,
		MaxTokens:         cfg.Decision.MaxTokens,
		RequestsPerSecond: cfg.Decision.RequestsPerSecond,
	}), nil
}

// buildExporter returns nil when tracing is not configured.
func buildExporter(ctx context.Context, cfg *config.Config) (trace.Exporter, error) {
	if cfg.Tracing.OTLPEndpoint == "" {
		return nil, nil
	}
	return otelexport.New(ctx, otelexport.Config{
		Endpoint:    cfg.Tracing.OTLPEndpoint,
		Protocol:    cfg.Tracing.Protocol,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	})
}

// buildRunner returns nil (host execution) unless a Docker image is
// configured for command isolation.
func buildRunner(cfg *config.Config) tools.CommandRunner {
	if cfg.Docker.Image == "" {
		return nil
	}
	return &tools.DockerRunner{
		Image:       cfg.Docker.Image,
		CPULimit:    cfg.Docker.CPULimit,
		MemoryLimit: cfg.Docker.MemoryLimit,
	}
}

func buildPricing(cfg *config.Config) *pricing.Table {
	if cfg.Pricing.File == "" {
		return pricing.Default()
	}
	table, err := pricing.Load(cfg.Pricing.File)
	if err != nil {
		log.Printf("warning: %v; using default pricing", err)
		return pricing.Default()
	}
	return table
}
