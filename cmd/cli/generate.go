package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/llm"
	"github.com/loadlens-hq/loadlens/internal/perftest"
)

// newLLMRouter builds the LLM router from environment config and verifies
// a provider is reachable.
func newLLMRouter() (*llm.Router, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	router, err := llm.NewRouter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM router: %w", err)
	}

	if err := router.HealthCheck(); err != nil {
		return nil, fmt.Errorf("LLM not available: %w\nMake sure Ollama is running: ollama serve", err)
	}

	return router, nil
}

func generateCmd() *cobra.Command {
	var (
		description string
		targetURL   string
		mode        string
		output      string
		projectDir  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a k6 script from a natural-language requirement",
		Long: `Generate a k6 load-test script from a requirement description.

Examples:
  loadlens generate -d "100 concurrent users hitting the login API for 30 seconds"
  loadlens generate -d "压测登录接口，100并发持续30秒" -u https://api.example.com/login -o login.js
  loadlens generate -d "stress the checkout flow" --mode ai`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			router, err := newLLMRouter()
			if err != nil {
				return err
			}

			projectCfg, err := config.LoadProjectConfig(projectDir)
			if err != nil {
				return fmt.Errorf("failed to load project config: %w", err)
			}

			composer := perftest.NewComposer(router)

			m := perftest.Mode(mode)
			if m != perftest.ModeAI {
				m = perftest.ModeRegex
			}

			log.Info().Str("mode", string(m)).Msg("generating k6 script")

			result := composer.Compose(ctx, description, targetURL, &projectCfg.Load, m)
			if result.Status != perftest.StatusSuccess {
				return fmt.Errorf("script generation failed: %s", result.Error)
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(result.Script), 0644); err != nil {
					return fmt.Errorf("failed to write script: %w", err)
				}
				fmt.Printf("Script written to %s (%d bytes)\n", output, result.ScriptLength)
			} else {
				fmt.Println(result.Script)
			}

			if result.Params != nil {
				fmt.Fprintf(os.Stderr, "\nResolved parameters: vus=%d duration=%s url=%s\n",
					result.Params.VUs, result.Params.Duration, result.Params.URL)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Requirement description (required)")
	cmd.Flags().StringVarP(&targetURL, "url", "u", "", "Target URL fallback when the description has none")
	cmd.Flags().StringVarP(&mode, "mode", "m", "regex", "Generation mode (regex, ai)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write script to file instead of stdout")
	cmd.Flags().StringVarP(&projectDir, "project", "p", ".", "Project directory with .loadlens.yaml")
	cmd.MarkFlagRequired("description")

	return cmd
}
