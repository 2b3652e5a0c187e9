package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/markwbrown/TLDR/internal/chunk"
	"github.com/markwbrown/TLDR/internal/config"
	"github.com/markwbrown/TLDR/internal/events"
	"github.com/markwbrown/TLDR/internal/gmail"
	"github.com/markwbrown/TLDR/internal/google"
	"github.com/markwbrown/TLDR/internal/icloud"
	"github.com/markwbrown/TLDR/internal/models"
	"github.com/markwbrown/TLDR/internal/pipeline"
	"github.com/markwbrown/TLDR/internal/summarizer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "tldr",
		Usage: "Summarize labeled Gmail messages with OpenAI and turn detected events into calendar entries.",
		Commands: []*cli.Command{
			authCommand(),
			processCommand(),
			summarizeCommand(),
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account and save the API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.OAuthConfig(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			if err := google.SaveToken("token.json", token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", "token.json")
			return nil
		},
	}
}

func processCommand() *cli.Command {
	return &cli.Command{
		Name:  "process",
		Usage: "Run one pass over the labeled mailbox: summarize, extract events, relabel.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "Gmail label to process. Overrides GMAIL_SOURCE_LABEL."},
			&cli.Int64Flag{Name: "limit", Aliases: []string{"n"}, Value: 100, Usage: "Maximum number of emails to process."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Summarize only; don't create events, send digests, or change labels."},
			&cli.BoolFlag{Name: "no-events", Usage: "Skip event extraction and calendar creation."},
			&cli.StringFlag{Name: "ics", Usage: "Also write detected events to this iCalendar file."},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug logging."},
		},
		Action: func(c *cli.Context) error {
			settings := config.Load()
			if c.Bool("verbose") {
				settings.LogLevel = "debug"
			}
			logger := setupLogger(settings.LogLevel)

			if err := settings.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			sourceLabel := settings.SourceLabel
			if l := c.String("label"); l != "" {
				sourceLabel = l
			}
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			httpClient, err := google.NewHTTPClient(c.Context, settings.GoogleClientID, settings.GoogleClientSecret)
			if err != nil {
				return err
			}
			mail, err := gmail.NewClient(c.Context, logger, httpClient)
			if err != nil {
				return fmt.Errorf("failed to create gmail client: %w", err)
			}

			extractEvents := !c.Bool("no-events")
			summ := summarizer.NewClient(logger, summarizer.Options{
				APIKey:              settings.OpenAIAPIKey,
				Model:               settings.OpenAIModel,
				ExtractEvents:       extractEvents,
				TokenLimitPerMinute: settings.TokenLimitPerMinute,
				MaxAttempts:         settings.MaxAttempts,
			})

			var sink pipeline.CalendarSink
			if extractEvents {
				sink, err = newCalendarSink(c, logger, settings, httpClient)
				if err != nil {
					return err
				}
			}

			driver := pipeline.NewDriver(logger, mail, sink, summ, pipeline.Options{
				SourceLabel:    sourceLabel,
				ProcessedLabel: settings.ProcessedLabel,
				ToEmail:        settings.ToEmail,
				MaxChunkChars:  settings.MaxChunkChars(),
				Limit:          c.Int64("limit"),
				DryRun:         c.Bool("dry-run"),
			})

			processed, err := driver.Run(c.Context)
			if err != nil {
				return err
			}

			if path := c.String("ics"); path != "" {
				var all []models.Event
				for _, p := range processed {
					all = append(all, p.Events...)
				}
				if err := icloud.WriteICS(path, all); err != nil {
					logger.Error("Failed to write ics file", "path", path, "error", err)
				} else if len(all) > 0 {
					logger.Info("Wrote detected events to ics file.", "path", path, "events", len(all))
				}
			}

			return nil
		},
	}
}

// newCalendarSink builds the sink selected by CALENDAR_SINK, or nil when
// events should be extracted but not written to any calendar.
func newCalendarSink(c *cli.Context, logger *slog.Logger, settings *config.Settings, httpClient *http.Client) (pipeline.CalendarSink, error) {
	switch settings.CalendarSink {
	case config.SinkGoogle:
		sink, err := google.NewCalendarClient(c.Context, logger, httpClient, settings.CalendarID)
		if err != nil {
			return nil, fmt.Errorf("failed to create google calendar client: %w", err)
		}
		return sink, nil
	case config.SinkICloud:
		sink, err := icloud.NewClient(logger, settings.ICloudUsername, settings.ICloudPassword, settings.ICloudCalendar)
		if err != nil {
			return nil, fmt.Errorf("failed to create icloud client: %w", err)
		}
		return sink, nil
	default: // config.SinkNone
		return nil, nil
	}
}

func summarizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "Summarize text from the argument or stdin, without touching Gmail.",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "stdin", Usage: "Read the text from stdin."},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug logging."},
		},
		Action: func(c *cli.Context) error {
			settings := config.Load()
			if c.Bool("verbose") {
				settings.LogLevel = "debug"
			}
			logger := setupLogger(settings.LogLevel)

			if err := settings.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			var text string
			if c.Bool("stdin") {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			} else {
				text = c.Args().First()
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("provide text as an argument or use --stdin")
			}

			summ := summarizer.NewClient(logger, summarizer.Options{
				APIKey:              settings.OpenAIAPIKey,
				Model:               settings.OpenAIModel,
				ExtractEvents:       true,
				TokenLimitPerMinute: settings.TokenLimitPerMinute,
				MaxAttempts:         settings.MaxAttempts,
			})

			chunks, err := chunk.Split(text, settings.MaxChunkChars())
			if err != nil {
				return err
			}
			partials := make([]models.SummaryResult, 0, len(chunks))
			for i, piece := range chunks {
				res, err := summ.SummarizeChunk(c.Context, piece, i+1, len(chunks))
				if err != nil {
					return fmt.Errorf("summarization failed: %w", err)
				}
				partials = append(partials, res)
			}
			final, err := summ.Consolidate(c.Context, partials)
			if err != nil {
				return fmt.Errorf("consolidation failed: %w", err)
			}

			fmt.Println(events.ReplaceWithLinks(final.Text))
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Check or display the current configuration.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "validate", Usage: "Validate the configuration and exit."},
			&cli.BoolFlag{Name: "show", Usage: "Show the current configuration with secrets masked."},
		},
		Action: func(c *cli.Context) error {
			settings := config.Load()

			if c.Bool("validate") {
				if err := settings.Validate(); err != nil {
					return fmt.Errorf("configuration error: %w", err)
				}
				fmt.Println("Configuration is valid.")
			}

			if c.Bool("show") {
				fmt.Println("Current configuration:")
				fmt.Printf("  OpenAI model:        %s\n", settings.OpenAIModel)
				fmt.Printf("  OpenAI API key:      %s\n", maskSecret(settings.OpenAIAPIKey))
				fmt.Printf("  Token limit/minute:  %d\n", settings.TokenLimitPerMinute)
				fmt.Printf("  Max tokens/request:  %d\n", settings.MaxTokensPerRequest)
				fmt.Printf("  Response buffer:     %d\n", settings.ResponseBuffer)
				fmt.Printf("  Max attempts:        %d\n", settings.MaxAttempts)
				fmt.Printf("  Source label:        %s\n", settings.SourceLabel)
				fmt.Printf("  Processed label:     %s\n", settings.ProcessedLabel)
				fmt.Printf("  Digest recipient:    %s\n", valueOr(settings.ToEmail, "(not set)"))
				fmt.Printf("  Calendar sink:       %s\n", settings.CalendarSink)
				fmt.Printf("  Google calendar ID:  %s\n", settings.CalendarID)
			}

			if !c.Bool("validate") && !c.Bool("show") {
				return cli.ShowSubcommandHelp(c)
			}
			return nil
		},
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
