package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/slidecue/slidecue/internal/dispatch"
	"github.com/slidecue/slidecue/internal/script"
	"github.com/slidecue/slidecue/internal/viewer"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	server  string
	session string
	slide   int
	to      string
	card    string
	item    int
	dryRun  bool
	timeout time.Duration
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "slidecue-send",
		Short: "Email the cues of one slide",
		Long: `Fetches a session from a SlideCue server, renders the section pane of a
slide (or a single opened card with --card and --item) and sends it through
the server's email relay.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSend(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.server, "server", getEnv("SLIDECUE_SERVER", "http://localhost:8080"), "SlideCue server base URL")
	flags.StringVar(&opts.session, "session", "", "session ID")
	flags.IntVar(&opts.slide, "slide", 1, "slide number (1-based)")
	flags.StringVar(&opts.to, "to", "", "recipient address (prompted when empty)")
	flags.StringVar(&opts.card, "card", "", "section of a single card to send, e.g. hook or \"vibe reset\"")
	flags.IntVar(&opts.item, "item", 1, "card number within --card (1-based)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the HTML instead of sending it")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "HTTP timeout")
	_ = cmd.MarkFlagRequired("session")

	cmd.AddCommand(newTokenCmd())
	return cmd
}

func runSend(cmd *cobra.Command, opts *sendOptions) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	client := dispatch.New(opts.server, dispatch.WithHTTPClient(&http.Client{Timeout: opts.timeout}))

	sess, err := client.Session(ctx, opts.session)
	if err != nil {
		return err
	}

	state := viewer.NewState(sess.Images, sess.Script, sess.Modes)
	if !state.Goto(opts.slide - 1) {
		return fmt.Errorf("slide %d out of range (1-%d)", opts.slide, state.Bound())
	}

	card, err := selectCard(state, opts.card, opts.item)
	if err != nil {
		return err
	}

	html := string(viewer.RenderEmailBody(state, card, opts.item-1))
	if opts.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), html)
		return nil
	}

	to := strings.TrimSpace(opts.to)
	if to == "" {
		to, err = promptRecipient(cmd)
		if err != nil {
			return err
		}
		if to == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled, nothing sent.")
			return nil
		}
	}

	if err := client.Send(ctx, to, dispatch.Subject(state.Slide()), html); err != nil {
		var sendErr *dispatch.SendError
		if errors.As(err, &sendErr) {
			cmd.PrintErrf("Send failed: %s\n", sendErr.Detail)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sent slide %d to %s\n", state.Slide(), to)
	return nil
}

// selectCard resolves --card to a section key of the current slide. An empty
// flag selects the whole section pane.
func selectCard(state *viewer.State, card string, item int) (string, error) {
	if strings.TrimSpace(card) == "" {
		return "", nil
	}
	key := script.CanonicalKey(card)
	items := state.Sections().Items(key)
	if len(items) == 0 {
		return "", fmt.Errorf("slide %d has no %q card (have: %s)", state.Slide(), key, strings.Join(state.Sections().Keys(), ", "))
	}
	if item < 1 || item > len(items) {
		return "", fmt.Errorf("card %q has %d items, --item %d out of range", key, len(items), item)
	}
	return key, nil
}

func promptRecipient(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Send to (email): ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", fmt.Errorf("read recipient: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
