package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/entrhq/drover/pkg/automator"
	"github.com/entrhq/drover/pkg/config"
	"github.com/entrhq/drover/pkg/instruction"
	"github.com/entrhq/drover/pkg/llm"
	"github.com/entrhq/drover/pkg/llm/openai"
)

// errRunFailed signals a completed run with failed actions. The summary has
// already been printed; main only needs the exit code.
var errRunFailed = errors.New("run failed")

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	file := fs.String("file", "", "Instruction file (.txt, .yaml, .yml)")
	configPath := fs.String("config", "", "Config file (default: ./drover.yaml, then ~/.drover/config.yaml)")
	continueOnFailure := fs.Bool("continue", false, "Keep running after a failed action")
	dryRun := fs.Bool("dry-run", false, "Parse and print the action plan without launching a browser")
	showCode := fs.Bool("show-code", false, "Print each generated snippet")
	artifacts := fs.String("artifacts", "", "Write execution.json and summary.md to this directory")
	group := fs.Bool("group", false, "Merge continuation instructions (\"then ...\") into the preceding action")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: drover run -file <instructions> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  drover run -file checkout.txt\n")
		fmt.Fprintf(os.Stderr, "  drover run -file steps.yaml -continue -artifacts ./out\n")
		fmt.Fprintf(os.Stderr, "  drover run -file steps.txt -dry-run\n")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return errors.New("run requires -file")
	}

	if *dryRun {
		actions, err := instruction.LoadFile(*file)
		if err != nil {
			return err
		}
		if *group {
			actions = instruction.GroupRelated(actions)
		}
		printPlan(actions)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyRunFlags(cfg, *continueOnFailure, *artifacts)

	return execute(cfg, *group, *showCode, func(auto *automator.Automator) (*automator.Report, error) {
		return auto.RunFile(ctx, *file)
	})
}

func quickCmd(ctx context.Context, args []string) error {
	// Accept the instruction either before or after the flags.
	var text string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		text, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("quick", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file (default: ./drover.yaml, then ~/.drover/config.yaml)")
	showCode := fs.Bool("show-code", false, "Print the generated snippet")
	artifacts := fs.String("artifacts", "", "Write execution.json and summary.md to this directory")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: drover quick \"<instruction>\" [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  drover quick \"Go to https://example.com and take a screenshot\"\n")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if text == "" && fs.NArg() > 0 {
		text = fs.Arg(0)
	}
	if text == "" {
		fs.Usage()
		return errors.New("quick requires an instruction")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyRunFlags(cfg, false, *artifacts)

	return execute(cfg, false, *showCode, func(auto *automator.Automator) (*automator.Report, error) {
		return auto.Run(ctx, text)
	})
}

// applyRunFlags overlays command-line overrides onto the loaded config.
func applyRunFlags(cfg *config.Config, continueOnFailure bool, artifactsDir string) {
	if continueOnFailure {
		cfg.Automation.ContinueOnFailure = true
	}
	if artifactsDir != "" {
		cfg.Automation.ArtifactsEnabled = true
		cfg.Automation.ArtifactsDir = artifactsDir
	}
}

// execute builds the provider and automator, runs, prints the summary, and
// maps a failed run to errRunFailed for the exit code.
func execute(cfg *config.Config, group, showCode bool, run func(*automator.Automator) (*automator.Report, error)) error {
	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	auto, err := automator.New(cfg, provider,
		automator.WithGroupRelated(group),
		automator.WithProgress(progressPrinter(showCode)),
	)
	if err != nil {
		return err
	}

	report, err := run(auto)
	if err != nil {
		return err
	}

	printSummary(report)
	if !report.Succeeded() {
		return errRunFailed
	}
	return nil
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	if cfg.Model.APIKey == "" {
		return nil, errors.New("no API key configured (set DROVER_API_KEY or run 'drover setup')")
	}
	opts := []openai.ProviderOption{
		openai.WithModel(cfg.Model.Name),
		openai.WithTemperature(cfg.Model.Temperature),
		openai.WithMaxRetries(cfg.Model.MaxRetries),
		openai.WithRetryDelay(cfg.Model.RetryDelayDuration()),
	}
	if cfg.Model.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Model.BaseURL))
	}
	return openai.NewProvider(cfg.Model.APIKey, opts...)
}

// progressPrinter renders per-action progress as the run advances.
func progressPrinter(showCode bool) automator.ProgressFunc {
	return func(ev automator.Event) {
		switch ev.Kind {
		case automator.EventRunStarted:
			fmt.Println(titleStyle.Render(fmt.Sprintf("Running %d action(s)", ev.Total)))
		case automator.EventActionStarted:
			fmt.Printf("%s %s\n",
				dimStyle.Render(fmt.Sprintf("[%d/%d]", ev.Index, ev.Total)),
				stepStyle.Render(indentContinuations(ev.Action.Description)))
		case automator.EventActionFinished:
			printActionResult(ev.Record, showCode)
		}
	}
}

func printActionResult(rec *automator.ActionRecord, showCode bool) {
	switch rec.Status {
	case automator.StatusSucceeded:
		label := fmt.Sprintf("✓ done (%d attempt(s), %s)", rec.Attempts, rec.Elapsed.Round(time.Millisecond))
		if rec.Cached {
			label += " [cached]"
		}
		fmt.Println("  " + successStyle.Render(label))
	case automator.StatusFailed:
		fmt.Println("  " + failStyle.Render(fmt.Sprintf("✗ failed after %d attempt(s)", rec.Attempts)))
		fmt.Println("  " + failStyle.Render("  "+rec.Error))
		if rec.ScreenshotPath != "" {
			fmt.Println("  " + dimStyle.Render("screenshot: "+rec.ScreenshotPath))
		}
	}

	if showCode && rec.Snippet != "" {
		fmt.Println(dimStyle.Render("  generated code:"))
		printSnippet(rec.Snippet)
	}
	if rec.Output != "" {
		fmt.Println(dimStyle.Render("  output:"))
		fmt.Println("    " + strings.ReplaceAll(rec.Output, "\n", "\n    "))
	}
}

// printSnippet highlights generated code for the terminal. The snippet
// grammar is close enough to Python for the lexer.
func printSnippet(code string) {
	indented := "    " + strings.ReplaceAll(code, "\n", "\n    ")
	if err := quick.Highlight(os.Stdout, indented+"\n", "python", "terminal256", "monokai"); err != nil {
		fmt.Println(indented)
	}
}

func printPlan(actions []instruction.Action) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Plan: %d action(s)", len(actions))))
	for i, action := range actions {
		fmt.Printf("%s %s %s\n",
			dimStyle.Render(fmt.Sprintf("%3d.", i+1)),
			stepStyle.Render(indentContinuations(action.Description)),
			dimStyle.Render("["+string(action.Type)+"]"))
	}
}

// indentContinuations keeps grouped multi-line descriptions readable in
// single-line progress output.
func indentContinuations(description string) string {
	return strings.ReplaceAll(description, "\n", "\n        ")
}

func printSummary(report *automator.Report) {
	var b strings.Builder

	if report.Succeeded() {
		b.WriteString(successStyle.Render("✓ Run succeeded"))
	} else if report.Halted {
		b.WriteString(failStyle.Render("✗ Run halted"))
	} else {
		b.WriteString(failStyle.Render("✗ Run finished with failures"))
	}
	b.WriteString(dimStyle.Render("  (" + report.RunID + ")"))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Actions: %d  %s %s %s\n",
		report.Totals.Actions,
		successStyle.Render(fmt.Sprintf("%d ok", report.Totals.Succeeded)),
		failStyle.Render(fmt.Sprintf("%d failed", report.Totals.Failed)),
		skipStyle.Render(fmt.Sprintf("%d skipped", report.Totals.Skipped))))

	b.WriteString(fmt.Sprintf("Attempts: %d  Duration: %s\n",
		report.Totals.Attempts, report.Duration.Round(time.Millisecond)))

	b.WriteString(dimStyle.Render(fmt.Sprintf("Tokens: %d prompt / %d completion  Cache: %d hits / %d misses",
		report.Totals.PromptTokens, report.Totals.CompletionTokens,
		report.Totals.CacheHits, report.Totals.CacheMisses)))

	fmt.Println()
	fmt.Println(summaryBoxStyle.Render(b.String()))
}
