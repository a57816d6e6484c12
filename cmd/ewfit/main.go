// Command ewfit measures equivalent widths of absorption lines.
//
// Usage:
//
//	ewfit measure --spectrum star.txt --lines lines.yaml [flags]
//	ewfit species "Fe II" 26.1 Ti
//	ewfit fits --db fits.db
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cwbudde/algo-spectro/cmd/ewfit/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
