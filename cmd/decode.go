package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/killallgit/course-api/pkg/eventstream"
	"github.com/spf13/cobra"
)

// decodeCmd turns a captured event stream into one JSON event per line
var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a captured event stream",
	Long: `Decode a captured event stream into one JSON event per line.

Malformed frames are reported as error events rather than aborting, so
the output always has one line per frame.

Example:
  curl -sN -d @request.json localhost:8080/api/v1/generate | course-api decode
  course-api decode --file stream.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, closeIn, err := openInput(cmd)
		if err != nil {
			return err
		}
		defer closeIn()

		return runDecode(in, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringP("file", "f", "", "stream file (defaults to stdin)")
}

func runDecode(in io.Reader, out io.Writer) error {
	decoder := eventstream.NewDecoder(in)
	for {
		ev, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read stream: %w", err)
		}

		frame, err := eventstream.Encode(ev)
		if err != nil {
			return err
		}
		line := bytes.TrimSpace(bytes.TrimPrefix(frame, []byte(eventstream.FramePrefix)))
		if _, err := fmt.Fprintf(out, "%s\n", line); err != nil {
			return err
		}
	}
}
