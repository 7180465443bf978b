// Command pricectl validates and publishes pricing catalogs, prices banners
// offline and mints admin tokens.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "pricectl",
		Short: "Operate the banner pricing catalog",
		Long: `pricectl works with the banner pricing catalog outside the API.

Examples:
  pricectl catalog validate catalog.yaml
  pricectl catalog publish catalog.yaml
  pricectl quote --width 24 --height 36 --qty 3 --option pole_pocket_top
  pricectl token ops@example.com --ttl 1h`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newCatalogCmd(), newQuoteCmd(), newTokenCmd())
	return root
}
