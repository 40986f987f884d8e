package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"agentwire/internal/archive"
	"agentwire/internal/config"
)

var (
	historyLimit int
	historyShow  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived turns",
	RunE:  showHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of turns to list")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "print the full transcript of a turn id")
}

func showHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}

	store, err := archive.Open(archivePath(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	if historyShow != "" {
		snap, err := store.Load(historyShow)
		if err != nil {
			return err
		}
		fmt.Println(snap.Text)
		printSummary(snap)
		return nil
	}

	turns, err := store.List(historyLimit)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Println("no archived turns")
		return nil
	}

	for _, t := range turns {
		fmt.Printf("%s  %-9s  %6dB  %2d calls  %s\n",
			t.ID, t.State, t.TextBytes, t.CallCount, t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
