package cmd

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-spectro/store/sqlite"
)

func newFitsCmd(root *rootOptions) *cobra.Command {
	var (
		dbPath string
		lo, hi float64
	)

	cmd := &cobra.Command{
		Use:   "fits",
		Short: "List stored fit results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("db") {
				dbPath = root.cfg.Store.Path
			}
			if dbPath == "" {
				return fmt.Errorf("no database given (use --db or EWFIT_DB)")
			}

			store, err := sqlite.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(lo, hi)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout(), "ID", "Wavelength", "Species", "Strategy", "EW [mA]", "Reduced chi2", "Converged", "Created")
			for _, r := range records {
				sp := r.Species
				if sp == "" {
					sp = "unspecified"
				}
				t.row(
					fmt.Sprint(r.ID),
					fmt.Sprintf("%.3f", r.Wavelength),
					sp,
					r.Strategy,
					fmt.Sprintf("%.2f", r.EquivalentWidth),
					fmt.Sprintf("%.3f", r.ReducedChiSquare),
					fmt.Sprint(r.Converged),
					r.CreatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return t.flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database")
	cmd.Flags().Float64Var(&lo, "min", 0, "lowest wavelength")
	cmd.Flags().Float64Var(&hi, "max", math.MaxFloat64, "highest wavelength")
	return cmd
}
