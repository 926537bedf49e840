package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/dori/vikta/internal/app"
	"github.com/dori/vikta/internal/config"
	"github.com/dori/vikta/internal/quickadd"
	"github.com/dori/vikta/internal/service/vikunja"
	"github.com/dori/vikta/internal/ui"
	"github.com/dori/vikta/internal/ui/theme"
)

var (
	version = "0.1.0"
)

func main() {
	// Subcommand handling
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "add":
			handleAdd(os.Args[2:])
			return
		case "version":
			fmt.Printf("vikta v%s\n", version)
			return
		case "help", "-h", "--help":
			printHelp()
			return
		}
	}

	themeFlag := flag.String("theme", "", "Theme name (nord, dracula, gruvbox, catppuccin)")
	flag.Parse()

	if err := runTUI(*themeFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	help := `vikta - A terminal client for Vikunja

Usage:
  vikta                     Start the TUI
  vikta add <task>          Quick add a task
  vikta version             Show version
  vikta help                Show this help

Configuration (environment or a .env file):
  INSTANCE_URL      Base URL of the Vikunja instance
  API_KEY           Vikunja API token
  VIKTA_DEBUG=1     Write debug logs to /tmp/vikta-debug.log

Quick Add Syntax:
  vikta add "Buy groceries"
  vikta add "Pay rent !2 due:2025-03-01"

  Priority:  !1 to !5 (5 is highest)
  Due date:  due:YYYY-MM-DD

Keybindings:
  Navigation:   ↑/↓ or j/k    Move cursor
                g/G           Go to top/bottom
                n/p           Next/previous page

  Actions:      a             Add new task
                enter         View task details
                x             Toggle done
                t             Switch done/undone
                r             Refresh

  System:       ctrl+t        Cycle theme
                ?             Help
                q             Quit

TUI Options:
  --theme <name>    Theme (nord, dracula, gruvbox, catppuccin)

For more info: https://github.com/dori/vikta`

	fmt.Println(help)
}

func handleAdd(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: vikta add <task>")
		fmt.Fprintln(os.Stderr, "Example: vikta add \"Pay rent !2 due:2025-03-01\"")
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// No instance lock needed for a one-shot create.
	draft := quickadd.Parse(strings.Join(args, " "))
	svc := vikunja.New(cfg.InstanceURL, cfg.APIKey)

	task, err := svc.Create(context.Background(), draft)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating task: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created: %s\n", task.Title)
	if task.DueDate != nil {
		fmt.Printf("Due: %s\n", formatDueDate(*task.DueDate))
	}
	if task.Priority > 0 {
		fmt.Printf("Priority: %d\n", task.Priority)
	}
}

// loadConfig reads an optional .env file, then the environment. Variables
// already set win over the file.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.FromEnv()
}

func formatDueDate(t time.Time) string {
	now := time.Now().UTC()

	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "today"
	}

	tomorrow := now.AddDate(0, 0, 1)
	if t.Year() == tomorrow.Year() && t.YearDay() == tomorrow.YearDay() {
		return "tomorrow"
	}

	return t.Format("2006-01-02")
}

func runTUI(themeName string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if themeName != "" {
		t, ok := theme.ByName(themeName)
		if !ok {
			return fmt.Errorf("unknown theme %q", themeName)
		}
		theme.SetTheme(t)
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	p := tea.NewProgram(
		ui.NewRootModel(application),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}
