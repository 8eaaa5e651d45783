package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"aether-backend/internal/database"
	"aether-backend/internal/mcptools"
	"aether-backend/internal/models"
	"aether-backend/migrations"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readText returns the flag value, or the contents of file when set. "-"
// reads stdin.
func readText(cmd *cobra.Command, value, file string) (string, error) {
	switch file {
	case "":
		return value, nil
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		return string(data), nil
	}
}

// --- study ---

func newStudyCommand(ctx *commandContext) *cobra.Command {
	var query, document, documentFile string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "study",
		Short: "Ask a question about a document",
		Long: `Ask a question about a document.

Examples:
  aetherctl study --query "What are the key dates?" --document-file notes.md
  cat paper.txt | aetherctl study --query "Summarize the method" --document-file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readText(cmd, document, documentFile)
			if err != nil {
				return err
			}
			runner, err := ctx.ensureFlows()
			if err != nil {
				return err
			}

			result, err := runner.StudyAssistant(cmd.Context(), models.StudyAssistantRequest{Query: query, Document: doc})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			if result.Summary != nil {
				fmt.Fprintf(out, "Summary:\n%s\n\n", *result.Summary)
			}
			fmt.Fprintln(out, result.Answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "question to answer")
	cmd.Flags().StringVar(&document, "document", "", "document text")
	cmd.Flags().StringVarP(&documentFile, "document-file", "f", "", "read the document from a file (- for stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

// --- chat ---

func newChatCommand(ctx *commandContext) *cobra.Command {
	var historyFile, mode string

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message to the assistant",
		Long: `Send one message to the assistant.

A history file holds a JSON array of {"role": "user"|"assistant", "content": "..."}
messages, oldest first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var history []models.ChatMessage
			if historyFile != "" {
				raw, err := readText(cmd, "", historyFile)
				if err != nil {
					return err
				}
				if err := json.Unmarshal([]byte(raw), &history); err != nil {
					return fmt.Errorf("parsing history: %w", err)
				}
			}
			runner, err := ctx.ensureFlows()
			if err != nil {
				return err
			}

			resp, err := runner.IntelligentChatMemory(cmd.Context(), models.ChatRequest{
				Message:     strings.Join(args, " "),
				ChatHistory: history,
				Mode:        models.ChatMode(mode),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Response)
			return nil
		},
	}

	cmd.Flags().StringVar(&historyFile, "history", "", "JSON file with earlier messages (- for stdin)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "general, coding, cognitive, knowledge or task")
	return cmd
}

// --- automate ---

func newAutomateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "automate <task description>",
		Short: "Generate a script for a repetitive task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.ensureFlows()
			if err != nil {
				return err
			}

			result, err := runner.AutomateTask(cmd.Context(), models.AutomationRequest{TaskDescription: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", result.AutomationScript, result.Explanation)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// --- code ---

func newCodeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "code <request>",
		Short: "Generate a code snippet from a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.ensureFlows()
			if err != nil {
				return err
			}

			result, err := runner.GenerateCodeSnippet(cmd.Context(), models.CodeGenRequest{VoiceCommand: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.CodeSnippet)
			return nil
		},
	}
}

// --- mcp ---

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the AI tools over MCP (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.ensureFlows()
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stdio := server.NewStdioServer(mcptools.NewServer(runner, version))
			err = stdio.Listen(sigCtx, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil && !errors.Is(err, sigCtx.Err()) {
				return err
			}
			return nil
		},
	}
}

// --- migrate ---

func newMigrateCommand() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			godotenv.Load()
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}

			pool, err := database.NewPostgresPool(cmd.Context(), databaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := database.RunMigrations(cmd.Context(), pool, migrations.FS)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", applied)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (defaults to $DATABASE_URL)")
	return cmd
}
