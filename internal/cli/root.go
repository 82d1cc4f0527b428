// Package cli implements eshopctl, the operator tool for inspecting and
// advancing shipments directly in the database.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sagasqlite "github.com/jcmexdev/eshop/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/eshop/internal/shipping"
	"github.com/jcmexdev/eshop/internal/shipping/adapters/memory"
	shipsqlite "github.com/jcmexdev/eshop/internal/shipping/adapters/sqlite"
)

type options struct {
	dbPath           string
	placementLogPath string
	jsonOutput       bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "eshopctl",
		Short:         "Inspect and advance eshop shipments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", envOr("DB_PATH", "./data/eshop.db"), "shipments database")
	cmd.PersistentFlags().StringVar(&opts.placementLogPath, "placement-log", envOr("PLACEMENT_LOG_PATH", "./data/placement.db"), "placement log database")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print JSON")

	cmd.AddCommand(newTypesCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newProcessCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newLogCmd(opts))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}

// openService opens the shipments database. The returned service has no
// notification channel; the CLI never creates shipments.
func (o *options) openService() (*shipping.Service, func() error, error) {
	repo, err := shipsqlite.Open(o.dbPath)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return shipping.NewService(repo, memory.NewQueue(), shipping.WithLogger(logger)), repo.Close, nil
}

func (o *options) openPlacementLog() (*sagasqlite.Repository, error) {
	return sagasqlite.Open(o.placementLogPath)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func statusLine(w io.Writer, id string, status shipping.Status) {
	fmt.Fprintf(w, "%s\t%s\n", id, status)
}
