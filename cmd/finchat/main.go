package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"finchat/internal/chat"
	"finchat/internal/logger"
	"finchat/internal/macro"
	"finchat/internal/scheduler"
	"finchat/internal/server"
	"finchat/internal/types"
)

var version = "dev"

var (
	configPath string
	fc         *app
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "finchat",
		Short:         "Market analytics chat assistant for a benchmark ETF and a small stock universe",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeSystem(); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			fc = buildApp(cmd.Context(), cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if fc != nil {
				fc.close(context.Background())
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	root.AddCommand(
		newSnapshotCmd(),
		newContextCmd(),
		newNewsCmd(),
		newMacroCmd(),
		newChatCmd(),
		newServeCmd(),
	)
	return root
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <ticker>",
		Short: "Last session, volatility, momentum, indicators and month seasonality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := fc.assistant.NewSession()
			fc.assistant.Download(ctx, s, args[0])
			msg, err := fc.assistant.Snapshot(ctx, s, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg.Content)
			return nil
		},
	}
}

func newContextCmd() *cobra.Command {
	var asPrompt, asJSON bool
	cmd := &cobra.Command{
		Use:   "context <ticker>",
		Short: "Build the macro context for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mc, err := fc.assistant.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(mc)
			case asPrompt:
				fmt.Fprint(out, macro.RenderForPrompt(mc))
			default:
				fmt.Fprint(out, macro.RenderHuman(mc))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asPrompt, "prompt", false, "print the block handed to the LLM")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the context as JSON")
	cmd.MarkFlagsMutuallyExclusive("prompt", "json")
	return cmd
}

func newNewsCmd() *cobra.Command {
	var summarize bool
	cmd := &cobra.Command{
		Use:   "news <ticker>",
		Short: "Recent headlines for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := fc.assistant.NewSession()
			msg, err := fc.assistant.LoadNews(ctx, s, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg.Content)
			if !summarize {
				return nil
			}
			msg, err = fc.assistant.SummarizeNews(ctx, s, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), msg.Content)
			return nil
		},
	}
	cmd.Flags().BoolVar(&summarize, "summarize", false, "summarize the headlines with the LLM")
	return cmd
}

func newMacroCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "macro <ticker>",
		Short: "Macro context plus the LLM's interpretation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := fc.assistant.NewSession()
			fc.assistant.Download(ctx, s, args[0])
			msg, err := fc.assistant.Macro(ctx, s, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg.Content)
			return nil
		},
	}
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session on stdin",
		Long: "Interactive chat. Lines starting with / are actions:\n" +
			"  /download, /snapshot T, /news T, /summary T, /macro T, /quit\n" +
			"Anything else is sent to the assistant.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), fc.assistant, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runREPL(ctx context.Context, a *chat.Assistant, in io.Reader, out io.Writer) error {
	s := a.NewSession()
	fmt.Fprintln(out, s.Messages()[0].Content)
	fmt.Fprint(out, "\n> ")

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if line != "" {
			text, err := dispatch(ctx, a, s, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			} else {
				fmt.Fprintln(out, text)
			}
		}
		fmt.Fprint(out, "\n> ")
	}
	return sc.Err()
}

type tickerAction func(context.Context, *chat.Session, string) (types.Message, error)

func dispatch(ctx context.Context, a *chat.Assistant, s *chat.Session, line string) (string, error) {
	if !strings.HasPrefix(line, "/") {
		msg, err := a.Ask(ctx, s, line)
		return msg.Content, err
	}

	fields := strings.Fields(line)
	if fields[0] == "/download" {
		return a.Download(ctx, s, fields[1:]...).Content, nil
	}

	actions := map[string]tickerAction{
		"/snapshot": a.Snapshot,
		"/news":     a.LoadNews,
		"/summary":  a.SummarizeNews,
		"/macro":    a.Macro,
	}
	action, ok := actions[fields[0]]
	if !ok {
		return "", fmt.Errorf("unknown command %s", fields[0])
	}
	if len(fields) < 2 {
		return "", fmt.Errorf("%s needs a ticker", fields[0])
	}
	msg, err := action(ctx, s, fields[1])
	return msg.Content, err
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := fc.cfg
			if addr == "" {
				addr = cfg.Server.Addr
			}

			sched := scheduler.New(ctx, scheduler.Config{
				RefreshCron:   cfg.Schedule.RefreshCron,
				DigestCron:    cfg.Schedule.DigestCron,
				Tickers:       cfg.Tickers(),
				Period:        cfg.MarketData.Period,
				Interval:      cfg.MarketData.Interval,
				RetentionDays: cfg.Transcript.RetentionDays,
			}, fc.bars, fc.assistant, fc.digest, compressor(fc))
			if err := sched.RegisterAll(); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			srv := server.New(fc.assistant, cfg.Server.AllowedOrigins)
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe(addr) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				logger.Info(context.Background(), "Shutting down...")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// compressor returns nil when transcripts are disabled so the scheduler skips archiving.
func compressor(a *app) scheduler.Compressor {
	if a.transcript == nil {
		return nil
	}
	return a.transcript
}
