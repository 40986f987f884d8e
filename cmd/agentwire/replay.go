package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"agentwire/internal/clienttool"
	"agentwire/internal/repo"
	"agentwire/internal/turn"
)

var replayAgainstProject bool

var replayCmd = &cobra.Command{
	Use:   "replay [frame-log]",
	Short: "Re-run a recorded frame stream through the interpreter",
	Long: `Feeds a recorded stream (one frame per line, as captured off the
wire) through the same decoder, transcript, and tool pipeline as a live
turn. By default tool calls execute against an in-memory repository so a
replay cannot touch the project; pass --against-project to run them for
real.`,
	Args: cobra.ExactArgs(1),
	RunE: replayTurn,
}

func init() {
	replayCmd.Flags().BoolVar(&replayAgainstProject, "against-project", false,
		"execute tool calls against the real project root instead of an in-memory repository")
}

func replayTurn(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open frame log: %w", err)
	}

	repository, err := replayRepository()
	if err != nil {
		file.Close()
		return err
	}

	exec := clienttool.NewExecutor(clienttool.NewCoreRegistry(), repository, "replay", nil)
	ctrl := turn.New(exec)

	// chunkedReader exercises the same partial-frame buffering a network
	// source would: a replay and a live run go through identical paths.
	snap, runErr := ctrl.Run(cmd.Context(), &chunkedReader{r: file, size: 7})

	fmt.Println(snap.Text)
	printSummary(snap)
	if runErr != nil {
		return runErr
	}
	return nil
}

func replayRepository() (repo.Repository, error) {
	if !replayAgainstProject {
		return repo.NewMemRepository(), nil
	}
	return repo.NewDiskRepository(workspace)
}

// chunkedReader wraps a reader and caps each Read at size bytes.
type chunkedReader struct {
	r    io.ReadCloser
	size int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(p) > c.size {
		p = p[:c.size]
	}
	return c.r.Read(p)
}

func (c *chunkedReader) Close() error {
	return c.r.Close()
}
