package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/datallboy/gofetch/internal/infra/config"
	"github.com/datallboy/gofetch/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded transfers",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of rows")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if !cfg.History.Enabled {
		return fmt.Errorf("transfer history is disabled, set history.enabled: true")
	}

	st, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListTransfers(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tURL\tRANGE\tBYTES\tSTATUS\tATTEMPTS\tDURATION\tFINISHED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d-%d\t%d\t%s\t%d\t%s\t%s\n",
			r.ID, r.URL, r.RangeStart, r.RangeEnd, r.Bytes, r.Status,
			r.Attempts, r.Duration, r.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func openHistory(cfg *config.Config) (*store.PersistentStore, error) {
	st, err := store.NewPersistentStore(cfg.History.Driver, cfg.History.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return st, nil
}
