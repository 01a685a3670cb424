package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/drover/pkg/config"
)

// setupStep is one question in the wizard.
type setupStep struct {
	prompt      string
	placeholder string
	secret      bool
	validate    func(string) error
}

func setupSteps() []setupStep {
	return []setupStep{
		{
			prompt:      "OpenAI API key (blank keeps DROVER_API_KEY / OPENAI_API_KEY)",
			placeholder: "sk-...",
			secret:      true,
		},
		{
			prompt:      "Model name",
			placeholder: config.DefaultModelName,
		},
		{
			prompt:      "Run the browser headless? (y/n)",
			placeholder: "y",
			validate:    validateYesNo,
		},
		{
			prompt:      "Max attempts per action",
			placeholder: "3",
			validate:    validateAttempts,
		},
	}
}

func validateYesNo(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "y", "yes", "n", "no":
		return nil
	}
	return errors.New("answer y or n")
}

func validateAttempts(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return errors.New("enter a whole number of at least 1")
	}
	return nil
}

// setupModel drives the sequential wizard. One input is reused across
// steps; answers are collected as the user confirms each one.
type setupModel struct {
	steps    []setupStep
	input    textinput.Model
	step     int
	answers  []string
	errMsg   string
	done     bool
	canceled bool
}

func newSetupModel() *setupModel {
	m := &setupModel{steps: setupSteps()}
	m.input = textinput.New()
	m.input.CharLimit = 256
	m.input.Width = 48
	m.input.Focus()
	m.configureInput()
	return m
}

// configureInput resets the shared input for the current step.
func (m *setupModel) configureInput() {
	step := m.steps[m.step]
	m.input.Placeholder = step.placeholder
	m.input.SetValue("")
	if step.secret {
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '•'
	} else {
		m.input.EchoMode = textinput.EchoNormal
	}
}

func (m *setupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.confirmStep()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *setupModel) confirmStep() (tea.Model, tea.Cmd) {
	step := m.steps[m.step]
	value := m.input.Value()
	if step.validate != nil {
		if err := step.validate(value); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
	}

	m.errMsg = ""
	m.answers = append(m.answers, strings.TrimSpace(value))
	m.step++
	if m.step >= len(m.steps) {
		m.done = true
		return m, tea.Quit
	}
	m.configureInput()
	return m, nil
}

func (m *setupModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Drover setup"))
	b.WriteString("\n\n")

	for i, answer := range m.answers {
		display := answer
		if display == "" {
			display = dimStyle.Render("(default)")
		} else if m.steps[i].secret {
			display = strings.Repeat("•", 8)
		}
		b.WriteString(successStyle.Render("✓") + " " + dimStyle.Render(m.steps[i].prompt) + " " + display + "\n")
	}

	if !m.done {
		b.WriteString("\n" + stepStyle.Render(m.steps[m.step].prompt) + "\n")
		b.WriteString(m.input.View() + "\n")
		if m.errMsg != "" {
			b.WriteString(failStyle.Render(m.errMsg) + "\n")
		}
		b.WriteString("\n" + dimStyle.Render("enter to confirm • esc to cancel") + "\n")
	}

	return b.String()
}

func setupCmd(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	out := fs.String("out", "", "Write the config to this path instead of ~/.drover/config.yaml")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: drover setup [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	m := newSetupModel()
	program := tea.NewProgram(m)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run setup wizard: %w", err)
	}
	if m.canceled {
		return errors.New("setup canceled")
	}

	cfg := buildSetupConfig(m.answers)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	path := *out
	if path != "" {
		if err := config.Save(cfg, path); err != nil {
			return err
		}
	} else {
		var err error
		path, err = config.SaveUserConfig(cfg)
		if err != nil {
			return err
		}
	}

	fmt.Println(successStyle.Render("✓ Configuration saved to " + path))
	return nil
}

// buildSetupConfig overlays the wizard answers onto the defaults. Blank
// answers keep the default value.
func buildSetupConfig(answers []string) *config.Config {
	cfg := config.DefaultConfig()
	if answers[0] != "" {
		cfg.Model.APIKey = answers[0]
	}
	if answers[1] != "" {
		cfg.Model.Name = answers[1]
	}
	switch strings.ToLower(answers[2]) {
	case "n", "no":
		cfg.Browser.Headless = false
	}
	if answers[3] != "" {
		if n, err := strconv.Atoi(answers[3]); err == nil {
			cfg.Automation.MaxAttempts = n
		}
	}
	return cfg
}
