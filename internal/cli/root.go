// Package cli implements the sortable command, which ranks the rows of a
// table described by a YAML behavior definition.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/syssam/sortable/dialect"
	"github.com/syssam/sortable/dialect/sql"
	"github.com/syssam/sortable/internal/config"
	"github.com/syssam/sortable/schema"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the sortable CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sortable",
		Short: "Keep the rows of a table ranked 1..N",
		Long: `sortable maintains a dense, gap-free rank column on a SQL table,
optionally partitioned by scope columns. The table is described by a YAML
behavior definition; the database by the configuration file or SORTABLE_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $SORTABLE_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newMoveCommand(opts))
	cmd.AddCommand(newStepCommand(opts, "up", "Swap a row with the one ranked above it", moveUp))
	cmd.AddCommand(newStepCommand(opts, "down", "Swap a row with the one ranked below it", moveDown))
	cmd.AddCommand(newStepCommand(opts, "top", "Move a row to rank 1", moveTop))
	cmd.AddCommand(newStepCommand(opts, "bottom", "Move a row to the last rank", moveBottom))
	cmd.AddCommand(newSwapCommand(opts))
	cmd.AddCommand(newRemoveCommand(opts))
	cmd.AddCommand(newRescopeCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))
	cmd.AddCommand(newRepairCommand(opts))

	return cmd
}

// session holds what a command needs to reach the configured table.
type session struct {
	cfg   *config.Config
	log   *slog.Logger
	def   *schema.Sortable
	drv   dialect.Driver
	stats *sql.StatsDriver
	out   *printer
}

// open loads the configuration and the behavior definition and opens the
// database. Statement logging and statistics wrap the driver when enabled.
func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "config", err)
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
	def, err := schema.LoadFile(cfg.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "schema", err)
	}
	db, err := sql.Open(cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	s := &session{
		cfg: cfg,
		log: log,
		def: def,
		drv: db,
		out: &printer{format: o.Format, w: cmd.OutOrStdout(), def: def},
	}
	if cfg.Debug {
		s.drv = sql.NewDebugDriver(s.drv, log)
	}
	if cfg.Stats {
		s.stats = sql.NewStatsDriver(s.drv,
			sql.WithSlowThreshold(cfg.SlowThreshold),
			sql.WithSlowQueryLog(log),
		)
		s.drv = s.stats
	}
	log.Debug("opened database", "dialect", cfg.Dialect, "table", def.Table)
	return s, nil
}

func (s *session) close(cmd *cobra.Command) {
	if s.stats != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), s.stats.QueryStats().Stats())
	}
	if err := s.drv.Close(); err != nil {
		s.log.Warn("close database", "error", err)
	}
}

// run opens a session, runs fn against the ledger of the configured table and
// closes the session.
func (o *RootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, s *session, t table) error) error {
	s, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd)
	return fn(cmd.Context(), s, newTable(s.def, s.drv, s.log))
}
