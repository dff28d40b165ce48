package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/msgboard/internal/client"
	"github.com/jpalmerr/msgboard/internal/store"
)

const defaultBoardURL = "http://localhost:8000"

func init() {
	rootCmd.PersistentFlags().String("url", defaultBoardURL, "base URL of a running board (client commands)")
	rootCmd.PersistentFlags().Bool("json", false, "print messages as JSON (client commands)")

	rootCmd.AddCommand(listCmd, postCmd, likeCmd, dislikeCmd, watchCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all messages on a running board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		msgs, err := c.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list failed: %w", err)
		}
		for _, m := range msgs {
			if err := printMessage(cmd, m); err != nil {
				return err
			}
		}
		return nil
	},
}

var postCmd = &cobra.Command{
	Use:   "post <text>...",
	Short: "Post a message",
	Long: `Post a message to a running board. Multiple arguments are joined
with spaces.

Example:
  msgboard post "hello world"
  msgboard post --url http://board.internal:8000 deploy finished`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		m, err := c.Post(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("post failed: %w", err)
		}
		return printMessage(cmd, m)
	},
}

var likeCmd = &cobra.Command{
	Use:   "like <timestamp>",
	Short: "Like a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReaction(cmd, args[0], (*client.Client).Like)
	},
}

var dislikeCmd = &cobra.Command{
	Use:   "dislike <timestamp>",
	Short: "Dislike a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReaction(cmd, args[0], (*client.Client).Dislike)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live message updates",
	Long: `Stream live updates from a running board until interrupted.

Every post, like and dislike is printed as it happens. Existing messages
are not replayed; use list for those.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var printErr error
		err = c.Watch(ctx, func(m store.Message) {
			if printErr == nil {
				printErr = printMessage(cmd, m)
			}
		})
		if err != nil {
			return fmt.Errorf("watch failed: %w", err)
		}
		return printErr
	},
}

func runReaction(cmd *cobra.Command, timestamp string, react func(*client.Client, context.Context, string) (store.Message, error)) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	m, err := react(c, cmd.Context(), timestamp)
	if err != nil {
		return fmt.Errorf("%s failed: %w", cmd.Name(), err)
	}
	return printMessage(cmd, m)
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	baseURL, _ := cmd.Flags().GetString("url")
	if env := os.Getenv("MSGBOARD_URL"); env != "" && !cmd.Flags().Changed("url") {
		baseURL = env
	}
	return client.New(baseURL)
}

// printMessage writes m as one line: JSON with --json, otherwise a
// human-readable summary.
func printMessage(cmd *cobra.Command, m store.Message) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	return writeMessage(cmd.OutOrStdout(), m, asJSON)
}

func writeMessage(w io.Writer, m store.Message, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(m)
	}
	_, err := fmt.Fprintf(w, "%s  +%d -%d  %s\n", m.Timestamp, m.Likes, m.Dislikes, m.Text)
	return err
}
