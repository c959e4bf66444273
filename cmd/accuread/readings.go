package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/accuread/internal/store"
)

var (
	readingsLimit int
	readingsCSV   bool
)

var readingsCmd = &cobra.Command{
	Use:   "readings",
	Short: "List the most recent stored readings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfg.DBPath); err != nil {
			return fmt.Errorf("no database at %s", cfg.DBPath)
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		return listReadings(cmd.OutOrStdout(), st, readingsLimit, readingsCSV)
	},
}

func init() {
	readingsCmd.Flags().IntVarP(&readingsLimit, "limit", "n", 20, "number of readings to show (0 for all)")
	readingsCmd.Flags().BoolVar(&readingsCSV, "csv", false, "write readings as CSV")
	rootCmd.AddCommand(readingsCmd)
}

func listReadings(out io.Writer, st *store.Store, limit int, asCSV bool) error {
	readings, err := st.Readings().List(limit, 0)
	if err != nil {
		return err
	}
	if asCSV {
		return store.WriteCSV(out, readings)
	}
	if len(readings) == 0 {
		fmt.Fprintln(out, "No readings found in database.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSERIAL\tKWH\tKVAH\tMD KW\tCONF\tVERIFIED\tCREATED")
	fmt.Fprintln(w, "--\t------\t---\t----\t-----\t----\t--------\t-------")
	for _, rd := range readings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.0f%%\t%t\t%s\n",
			shortID(rd.ID), rd.SerialNumber, rd.KWh, rd.KVAh, rd.MaxDemandKW,
			rd.MeanConfidence*100, rd.Verified, rd.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
