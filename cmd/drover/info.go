package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/drover/pkg/config"
	"github.com/entrhq/drover/pkg/logging"
)

func infoCmd(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file (default: ./drover.yaml, then ~/.drover/config.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Drover v" + version))
	fmt.Println()

	resolved := config.ResolvePath(*configPath)
	if resolved == "" {
		fmt.Println(stepStyle.Render("Config: ") + dimStyle.Render("(defaults, no file found)"))
	} else {
		fmt.Println(stepStyle.Render("Config: ") + resolved)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	fmt.Printf("  Model:        %s/%s\n", cfg.Model.Provider, cfg.Model.Name)
	fmt.Printf("  API key:      %s\n", maskKey(cfg.Model.APIKey))
	if cfg.Model.BaseURL != "" {
		fmt.Printf("  Base URL:     %s\n", cfg.Model.BaseURL)
	}
	fmt.Printf("  Browser:      headless=%t %dx%d\n",
		cfg.Browser.Headless, cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
	fmt.Printf("  Automation:   attempts=%d cache=%t continue=%t\n",
		cfg.Automation.MaxAttempts, cfg.Automation.CacheEnabled, cfg.Automation.ContinueOnFailure)
	fmt.Println()

	if logDir, err := logging.GetLogDirectory(); err == nil {
		fmt.Println(stepStyle.Render("Logs:   ") + logDir)
	} else {
		fmt.Println(stepStyle.Render("Logs:   ") + dimStyle.Render("(unavailable: "+err.Error()+")"))
	}
	fmt.Println()

	fmt.Println(stepStyle.Render("Environment:"))
	printEnvStatus("DROVER_API_KEY")
	printEnvStatus("OPENAI_API_KEY")
	return nil
}

func printEnvStatus(name string) {
	if _, ok := os.LookupEnv(name); ok {
		fmt.Printf("  %s  %s\n", name, successStyle.Render("set"))
	} else {
		fmt.Printf("  %s  %s\n", name, dimStyle.Render("not set"))
	}
}

// maskKey hides all but the first characters of an API key.
func maskKey(key string) string {
	if key == "" {
		return dimStyle.Render("(not configured)")
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 8)
}
