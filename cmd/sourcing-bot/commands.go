package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/app"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/extract"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot, the admin API and the daily jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}

		serveErr := a.Serve(ctx)
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("close failed")
		}
		return serveErr
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Post yesterday's product digest now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, func(a *app.App) func(context.Context) (*usecase.JobResult, error) {
			return a.Usecases.Digest.Run
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Post the chat report now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, func(a *app.App) func(context.Context) (*usecase.JobResult, error) {
			return a.Usecases.Report.Run
		})
	},
}

func runJob(cmd *cobra.Command, pick func(a *app.App) func(context.Context) (*usecase.JobResult, error)) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := pick(a)(ctx)
	if res != nil {
		printJSON(cmd, res)
	}
	return err
}

var (
	extractChannel string
	extractLookup  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <text>",
	Short: "Show identifiers, price and store found in a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		res := extract.Extract(text, extractChannel, cfg.Channels)
		if !extractLookup || !res.Any() {
			printJSON(cmd, res)
			return nil
		}

		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		printJSON(cmd, a.Usecases.Enrich.Enrich(cmd.Context(), res))
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <chat id or name> <text>",
	Short: "Send a text message to a chat",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		ctx := cmd.Context()

		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		chats, err := a.Repos.Message.ListChats(ctx)
		if err != nil {
			return fmt.Errorf("list chats: %w", err)
		}
		chat, _, ok := usecase.ResolveChat(chats, args[0])
		if !ok {
			return fmt.Errorf("%q: %w", args[0], repo.ErrChatNotFound)
		}

		if err := a.Repos.Message.SendText(ctx, chat.ChatID, strings.Join(args[1:], " ")); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent to %s (%s)\n", chat.Name, chat.ChatID)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractChannel, "channel", "", "channel name used for store detection")
	extractCmd.Flags().BoolVar(&extractLookup, "lookup", false, "also query the pricing service")
}

func printJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
