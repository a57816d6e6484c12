package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// table writes aligned columns with a dashed rule under the header.
type table struct {
	tw  *tabwriter.Writer
	err error
}

func newTable(w io.Writer, header ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	t.row(header...)
	rule := make([]string, len(header))
	for i, h := range header {
		rule[i] = strings.Repeat("-", len(h))
	}
	t.row(rule...)
	return t
}

func (t *table) row(cells ...string) {
	if t.err != nil {
		return
	}
	if _, err := fmt.Fprintln(t.tw, strings.Join(cells, "\t")); err != nil {
		t.err = fmt.Errorf("failed to write output row: %w", err)
	}
}

func (t *table) flush() error {
	if t.err != nil {
		return t.err
	}
	if err := t.tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}
