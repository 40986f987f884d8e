package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentwire/internal/archive"
	"agentwire/internal/clienttool"
	"agentwire/internal/config"
	"agentwire/internal/repo"
	"agentwire/internal/transcript"
	"agentwire/internal/turn"
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Stream one assistant turn from the backend",
	Long: `Sends the prompt to the configured backend and interprets the
response stream: text is printed as it arrives, client tool calls
(file read/write/edit/delete/list/search) execute against the project
root, and the finished transcript is archived. Ctrl-C cancels the turn;
in-flight tool executions are allowed to finish.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTurn,
}

func runTurn(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}

	repository, err := repo.NewDiskRepository(cfg.Project.Root)
	if err != nil {
		return fmt.Errorf("project root: %w", err)
	}

	onFilesChanged := func(projectID string) {
		logger.Info("project files changed", zap.String("project", projectID))
	}

	exec := clienttool.NewExecutor(clienttool.NewCoreRegistry(), repository, cfg.Project.ID, onFilesChanged)
	ctrl := turn.New(exec)

	// Watch the project for edits made outside the turn; the paths are
	// surfaced so the user can tell tool writes from their own saves.
	if cfg.Watcher.Enabled {
		watcher, werr := repo.NewWatcher(repository.Root(), cfg.WatcherDebounce(), func(paths []string) {
			logger.Info("project files changed on disk", zap.Strings("paths", paths))
		})
		if werr != nil {
			logger.Warn("file watcher unavailable", zap.Error(werr))
		} else if err := watcher.Start(cmd.Context()); err != nil {
			logger.Warn("file watcher failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	body, err := openTurnStream(cmd.Context(), cfg, args)
	if err != nil {
		return err
	}

	// Ctrl-C cancels the turn but lets dispatched tool executions drain.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			ctrl.Cancel()
		}
	}()

	watch := ctrl.Transcript().Watch()
	done := make(chan struct{})
	go printLive(watch, done)

	snap, runErr := ctrl.Run(cmd.Context(), body)
	close(done)

	printSummary(snap)

	if cfg.Archive.Enabled {
		if store, err := archive.Open(archivePath(cfg)); err == nil {
			if err := store.Save(snap); err != nil {
				logger.Warn("failed to archive turn", zap.Error(err))
			}
			store.Close()
		} else {
			logger.Warn("failed to open archive", zap.Error(err))
		}
	}

	if runErr != nil {
		return fmt.Errorf("turn %s failed: %w", snap.TurnID, runErr)
	}
	return nil
}

// openTurnStream obtains the byte stream for a turn. Everything before the
// response body - request shape, auth - is boundary plumbing; the interpreter
// starts at the returned reader.
func openTurnStream(ctx context.Context, cfg *config.Config, prompt []string) (io.ReadCloser, error) {
	payload, err := json.Marshal(map[string]any{
		"prompt": strings.Join(prompt, " "),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", cfg.Backend.BaseURL+"/v1/turns", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Backend.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Backend.APIKey)
	}

	client := &http.Client{Timeout: cfg.BackendTimeout()}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

// archivePath resolves the archive database path against the workspace.
func archivePath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Archive.DatabasePath) {
		return cfg.Archive.DatabasePath
	}
	return filepath.Join(workspace, cfg.Archive.DatabasePath)
}

// printLive writes text to stdout as it accumulates, tracking how much has
// already been printed.
func printLive(watch <-chan transcript.Snapshot, done <-chan struct{}) {
	printed := 0
	for {
		select {
		case snap := <-watch:
			if len(snap.Text) > printed {
				fmt.Print(snap.Text[printed:])
				printed = len(snap.Text)
			}
		case <-done:
			return
		}
	}
}

func printSummary(snap transcript.Snapshot) {
	fmt.Println()
	if len(snap.Calls) > 0 {
		fmt.Println("--- tool calls ---")
		for _, c := range snap.Calls {
			fmt.Printf("  %-12s %-14s %s\n", c.ID, c.Name, c.Status)
		}
	}
	fmt.Printf("[turn %s: %s]\n", snap.TurnID, snap.State)
}
