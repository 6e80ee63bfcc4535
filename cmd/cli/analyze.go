package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/loadlens-hq/loadlens/internal/analysis"
	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/k6"
)

func analyzeCmd() *cobra.Command {
	var (
		testName    string
		requirement string
		output      string
		projectDir  string
	)

	cmd := &cobra.Command{
		Use:   "analyze <results.json>",
		Short: "Synthesize an analysis report from saved run results",
		Long: `Analyze a saved execution result (from 'loadlens run --save') and
write a markdown report.

Examples:
  loadlens analyze results.json --name "login load test"
  loadlens analyze results.json -n "登录压测" -r "P95低于500ms" -o report.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read results: %w", err)
			}

			var result k6.ExecutionResult
			if err := json.Unmarshal(data, &result); err != nil {
				return fmt.Errorf("failed to parse results: %w", err)
			}
			if len(result.Metrics) == 0 && result.Stdout == "" {
				return fmt.Errorf("no metrics or output in %s, nothing to analyze", args[0])
			}

			router, err := newLLMRouter()
			if err != nil {
				return err
			}

			projectCfg, err := config.LoadProjectConfig(projectDir)
			if err != nil {
				return fmt.Errorf("failed to load project config: %w", err)
			}

			synthesizer := analysis.NewSynthesizer(router)
			meta := analysis.TestMeta{
				TestName:        testName,
				TestRequirement: requirement,
			}

			res := synthesizer.Analyze(ctx, meta, result.Metrics, result.Stdout)
			if res.Status != analysis.StatusSuccess {
				return fmt.Errorf("analysis failed: %s", res.Error)
			}

			if output == "" {
				reportDir := projectCfg.Report.Dir
				if reportDir == "" {
					reportDir = "reports"
				}
				if err := os.MkdirAll(reportDir, 0755); err != nil {
					return fmt.Errorf("failed to create report dir: %w", err)
				}
				output = filepath.Join(reportDir, fmt.Sprintf("report-%s.md", time.Now().Format("20060102-150405")))
			}

			if err := os.WriteFile(output, []byte(res.Report.Markdown), 0644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			fmt.Printf("Report written to %s (%d sections)\n", output, len(res.Report.Fields))
			return nil
		},
	}

	cmd.Flags().StringVarP(&testName, "name", "n", "load test", "Test name for the report header")
	cmd.Flags().StringVarP(&requirement, "requirement", "r", "", "Original requirement text for pass/fail judgement")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Report file path (default: <report-dir>/report-<timestamp>.md)")
	cmd.Flags().StringVarP(&projectDir, "project", "p", ".", "Project directory with .loadlens.yaml")

	return cmd
}
