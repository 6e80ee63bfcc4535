package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/loadlens-hq/loadlens/internal/analysis"
	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/k6"
	"github.com/loadlens-hq/loadlens/internal/perftest"
)

// testCmd runs the full local pipeline: generate, execute, analyze.
func testCmd() *cobra.Command {
	var (
		description string
		targetURL   string
		mode        string
		format      string
		testName    string
		skipReport  bool
		keepScript  string
		projectDir  string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Generate, run, and analyze a load test in one go",
		Long: `Run the full pipeline locally: compose a k6 script from the
requirement, execute it, and synthesize a markdown report.

Examples:
  loadlens test -d "100 concurrent users on the login API for 30 seconds"
  loadlens test -d "压测登录接口，100并发持续30秒" -u https://api.example.com/login
  loadlens test -d "soak the search endpoint" --format full --no-report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			router, err := newLLMRouter()
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			projectCfg, err := config.LoadProjectConfig(projectDir)
			if err != nil {
				return fmt.Errorf("failed to load project config: %w", err)
			}

			// Stage 1: script generation
			composer := perftest.NewComposer(router)
			m := perftest.Mode(mode)
			if m != perftest.ModeAI {
				m = perftest.ModeRegex
			}

			log.Info().Str("mode", string(m)).Msg("stage 1/3: generating script")
			scriptResult := composer.Compose(ctx, description, targetURL, &projectCfg.Load, m)
			if scriptResult.Status != perftest.StatusSuccess {
				return fmt.Errorf("script generation failed: %s", scriptResult.Error)
			}

			if keepScript != "" {
				if err := os.WriteFile(keepScript, []byte(scriptResult.Script), 0644); err != nil {
					return fmt.Errorf("failed to save script: %w", err)
				}
				fmt.Printf("Script saved to %s\n", keepScript)
			}

			// Stage 2: execution
			k6cfg := cfg.K6
			if projectCfg.Execution.K6Binary != "" {
				k6cfg.BinaryPath = projectCfg.Execution.K6Binary
			}
			if projectCfg.Execution.TimeoutSeconds > 0 {
				k6cfg.TimeoutSeconds = projectCfg.Execution.TimeoutSeconds
			}
			if projectCfg.Report.Dir != "" {
				k6cfg.ReportDir = projectCfg.Report.Dir
			}

			outputFormat := k6.OutputFormat(format)
			if outputFormat == "" && projectCfg.Execution.OutputFormat != "" {
				outputFormat = k6.OutputFormat(projectCfg.Execution.OutputFormat)
			}
			if outputFormat != k6.FormatFull {
				outputFormat = k6.FormatSummary
			}

			log.Info().Msg("stage 2/3: running k6")
			executor := k6.NewExecutor(k6cfg)
			execResult := executor.Execute(ctx, scriptResult.Script, outputFormat, nil)
			printExecutionResult(execResult)

			if execResult.Status != k6.StatusCompleted {
				return fmt.Errorf("run %s: %s", execResult.Status, execResult.Error)
			}

			if skipReport || projectCfg.Report.MetricsOnly {
				return nil
			}

			// Stage 3: analysis
			log.Info().Msg("stage 3/3: synthesizing report")
			synthesizer := analysis.NewSynthesizer(router)
			meta := analysis.TestMeta{
				TestName:        testName,
				TestDescription: description,
			}

			analysisResult := synthesizer.Analyze(ctx, meta, execResult.Metrics, execResult.Stdout)
			if analysisResult.Status != analysis.StatusSuccess {
				return fmt.Errorf("analysis failed: %s", analysisResult.Error)
			}

			reportDir := projectCfg.Report.Dir
			if reportDir == "" {
				reportDir = "reports"
			}
			if err := os.MkdirAll(reportDir, 0755); err != nil {
				return fmt.Errorf("failed to create report dir: %w", err)
			}

			stamp := time.Now().Format("20060102-150405")
			reportPath := filepath.Join(reportDir, fmt.Sprintf("report-%s.md", stamp))
			if err := os.WriteFile(reportPath, []byte(analysisResult.Report.Markdown), 0644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			fieldsPath := filepath.Join(reportDir, fmt.Sprintf("analysis-%s.json", stamp))
			if fields, err := json.MarshalIndent(analysisResult.Report.Fields, "", "  "); err == nil {
				os.WriteFile(fieldsPath, fields, 0644)
			}

			fmt.Printf("\nReport written to %s\n", reportPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Requirement description (required)")
	cmd.Flags().StringVarP(&targetURL, "url", "u", "", "Target URL fallback when the description has none")
	cmd.Flags().StringVarP(&mode, "mode", "m", "regex", "Generation mode (regex, ai)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (summary, full)")
	cmd.Flags().StringVarP(&testName, "name", "n", "load test", "Test name for the report header")
	cmd.Flags().BoolVar(&skipReport, "no-report", false, "Skip the analysis stage")
	cmd.Flags().StringVar(&keepScript, "keep-script", "", "Save the generated script to this path")
	cmd.Flags().StringVarP(&projectDir, "project", "p", ".", "Project directory with .loadlens.yaml")
	cmd.MarkFlagRequired("description")

	return cmd
}
