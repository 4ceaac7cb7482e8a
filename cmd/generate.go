package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/killallgit/course-api/api/types"
	"github.com/killallgit/course-api/internal/services/generation"
	"github.com/killallgit/course-api/pkg/eventstream"
	"github.com/spf13/cobra"
)

// generateCmd runs one generation session locally and writes its frames to stdout
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run a generation session and print its event stream",
	Long: `Run a single generation session without starting the server.

The request is read as JSON from --file, or from stdin when no file is
given. Every event is written to stdout as a wire frame, exactly as the
server would stream it.

Example:
  course-api generate --file request.json
  echo '{"kind":"video","title":"Go","contentId":"dQw4w9WgXcQ"}' | course-api generate`,
	RunE: runGenerateCmd,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringP("file", "f", "", "request file (defaults to stdin)")
}

func runGenerateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(cmd)
	if err != nil {
		return err
	}
	defer closeIn()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator, _, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}

	return runGenerate(ctx, orchestrator, in, cmd.OutOrStdout())
}

// runGenerate parses a request from in and streams the session to out.
// A session that ends in an error event is reported as an error.
func runGenerate(ctx context.Context, runner types.GenerationRunner, in io.Reader, out io.Writer) error {
	body, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	req, err := generation.ParseRequest(body)
	if err != nil {
		return err
	}

	h := eventstream.NewHandler(eventstream.NewFrameSink(out))
	if err := h.Start(ctx, uuid.NewString()); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	if err := runner.Run(ctx, req, h); err != nil {
		log.Printf("[DEBUG] Generation ended with error: %v", err)
	}
	if !h.Closed() {
		if err := h.Close(); err != nil {
			log.Printf("[WARN] Failed to close event stream: %v", err)
		}
	}

	if h.Terminal() != eventstream.TypeFinish {
		return fmt.Errorf("generation did not finish")
	}
	return nil
}

// openInput returns the --file contents, or stdin when the flag is empty
func openInput(cmd *cobra.Command) (io.Reader, func(), error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
