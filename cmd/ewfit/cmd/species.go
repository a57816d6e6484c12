package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-spectro/spectro/species"
)

func newSpeciesCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "species [identifier ...]",
		Short: "Resolve species names and codes",
		Long: `Resolve species identifiers such as "Fe II", "Fe 2", "Ca" or the packed
code 26.1 (atomic number plus (ionisation - 1) / 10).`,
		Example: `  ewfit species "Fe II" 26.0 Ti
  ewfit species --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return printElements(cmd.OutOrStdout())
			}
			if len(args) == 0 {
				return fmt.Errorf("no species given (use --list to see elements)")
			}
			return printSpecies(cmd.OutOrStdout(), args)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list known element symbols")
	return cmd
}

func printElements(w io.Writer) error {
	t := newTable(w, "Z", "Element")
	for z := 1; z <= species.MaxAtomicNumber; z++ {
		sym, err := species.Element(z)
		if err != nil {
			return err
		}
		t.row(strconv.Itoa(z), sym)
	}
	return t.flush()
}

func printSpecies(w io.Writer, ids []string) error {
	t := newTable(w, "Input", "Species", "Element", "Z", "Ionisation", "Code")
	for _, id := range ids {
		s, err := species.ParseString(id)
		if err != nil {
			return err
		}
		t.row(id, s.String(), s.Element, strconv.Itoa(s.AtomicNumber), strconv.Itoa(s.Ionisation), fmt.Sprintf("%.1f", s.Code))
	}
	return t.flush()
}
