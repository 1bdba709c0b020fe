// Package cmd provides CLI commands for the math agent.
//
// Commands:
//   - serve: HTTP API server for asking questions and recording feedback
//   - retrain: one retraining pass over the feedback log
//   - ingest: bulk-load knowledge entries from a CSV file
//
// Signal handling and graceful shutdown are implemented for all commands
// via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mathagent/mathagent/internal/log"
)

// Execute is the main entry point for the mathagent CLI.
func Execute() error {
	// Initialize logger once at entry point.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "retrain":
		return runRetrain()
	case "ingest":
		return runIngest()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("mathagent - math question answering service with a self-improving knowledge base")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mathagent serve [addr]    Start HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  mathagent retrain         Run one retraining pass over the feedback log")
	fmt.Println("  mathagent ingest <file>   Load knowledge entries from a CSV file")
	fmt.Println("  mathagent --version       Show version information")
	fmt.Println("  mathagent --help          Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY            Required for the gemini provider")
	fmt.Println("  SERPER_API_KEY            Required when web search is enabled")
	fmt.Println("  DATABASE_URL              Optional: overrides postgres connection settings")
	fmt.Println("  DEBUG                     Optional: enable debug logging")
}
