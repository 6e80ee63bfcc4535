package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/k6"
)

func runCmd() *cobra.Command {
	var (
		format     string
		resultPath string
		extraArgs  []string
		projectDir string
	)

	cmd := &cobra.Command{
		Use:   "run <script.js>",
		Short: "Run a k6 script and collect metrics",
		Long: `Run a k6 script as a subprocess and print the normalized metrics.

Examples:
  loadlens run login.js
  loadlens run login.js --format full --save results.json
  loadlens run login.js --k6-arg --no-color`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			script, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read script: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			projectCfg, err := config.LoadProjectConfig(projectDir)
			if err != nil {
				return fmt.Errorf("failed to load project config: %w", err)
			}

			// Project config can override the environment defaults
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

			executor := k6.NewExecutor(k6cfg)
			result := executor.Execute(ctx, string(script), outputFormat, extraArgs)

			if resultPath != "" {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode result: %w", err)
				}
				if err := os.WriteFile(resultPath, data, 0644); err != nil {
					return fmt.Errorf("failed to save result: %w", err)
				}
				fmt.Printf("Result saved to %s\n", resultPath)
			}

			printExecutionResult(result)

			if result.Status != k6.StatusCompleted {
				return fmt.Errorf("run %s: %s", result.Status, result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (summary, full)")
	cmd.Flags().StringVarP(&resultPath, "save", "s", "", "Save full execution result JSON to file")
	cmd.Flags().StringArrayVar(&extraArgs, "k6-arg", nil, "Extra argument passed through to k6 (repeatable)")
	cmd.Flags().StringVarP(&projectDir, "project", "p", ".", "Project directory with .loadlens.yaml")

	return cmd
}

func printExecutionResult(result *k6.ExecutionResult) {
	fmt.Printf("\nStatus:   %s (exit %d)\n", result.Status, result.ExitCode)
	fmt.Printf("Duration: %.1fs\n", result.DurationSeconds)
	if result.ThresholdsFailed {
		fmt.Println("Thresholds: FAILED")
	}
	if result.DetailedJSONPath != "" {
		fmt.Printf("Samples:  %s\n", result.DetailedJSONPath)
	}

	if len(result.Metrics) == 0 {
		return
	}

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tAVG\tP95\tMAX\tRATE\tCOUNT")
	for _, name := range names {
		m := result.Metrics[name]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			name, fmtFloat(m.Avg), fmtFloat(m.P95), fmtFloat(m.Max), fmtFloat(m.Rate), fmtFloat(m.Count))
	}
	w.Flush()
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
