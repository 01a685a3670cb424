// Package main provides the Drover CLI: natural-language browser automation
// driven by an AI model. Instructions are plain text or YAML, one action per
// line; Drover generates a restricted snippet for each action and executes
// it against a Playwright browser session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Signal handling for graceful shutdown: the browser session is
	// released on cancellation instead of leaving chromium behind.
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()
	defer cancel()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:])
	case "quick":
		err = quickCmd(ctx, os.Args[2:])
	case "setup":
		err = setupCmd(os.Args[2:])
	case "info":
		err = infoCmd(os.Args[2:])
	case "version", "-version", "--version":
		fmt.Printf("Drover v%s\n", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		if err == errRunFailed {
			// The per-action summary already told the story.
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Drover - AI-driven browser automation\n\n")
	fmt.Fprintf(os.Stderr, "Usage: drover <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run      Execute an instruction file against a browser\n")
	fmt.Fprintf(os.Stderr, "  quick    Execute a single instruction\n")
	fmt.Fprintf(os.Stderr, "  setup    Interactive configuration wizard\n")
	fmt.Fprintf(os.Stderr, "  info     Show version, configuration, and environment\n")
	fmt.Fprintf(os.Stderr, "  version  Show version and exit\n\n")
	fmt.Fprintf(os.Stderr, "Run 'drover <command> -h' for command options.\n\n")
	fmt.Fprintf(os.Stderr, "Examples:\n")
	fmt.Fprintf(os.Stderr, "  # Run an instruction script\n")
	fmt.Fprintf(os.Stderr, "  drover run -file checkout.txt\n\n")
	fmt.Fprintf(os.Stderr, "  # One-off instruction, showing the generated code\n")
	fmt.Fprintf(os.Stderr, "  drover quick \"Go to https://example.com and click Sign in\" -show-code\n\n")
	fmt.Fprintf(os.Stderr, "  # First-time configuration\n")
	fmt.Fprintf(os.Stderr, "  drover setup\n\n")
	fmt.Fprintf(os.Stderr, "Environment Variables:\n")
	fmt.Fprintf(os.Stderr, "  DROVER_API_KEY     API key for the model provider\n")
	fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY     Fallback API key\n")
}
