package cli

import (
	"context"

	"github.com/spf13/cobra"

	sqlschema "github.com/syssam/sortable/dialect/sql/schema"
)

func newInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the table and its rank index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close(cmd)
			if err := sqlschema.Create(cmd.Context(), s.drv, sqlschema.NewTable(s.def)); err != nil {
				return WrapExitError(ExitCommandError, "init", err)
			}
			return s.out.message("created table %s", s.def.Table)
		},
	}
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var scopeFlag []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the ranked rows of a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				scope, err := parseScope(s.def, scopeFlag)
				if err != nil {
					return err
				}
				rows, err := t.List(ctx, scope)
				if err != nil {
					return err
				}
				return s.out.rows(rows)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&scopeFlag, "scope", "s", nil, "scope value, repeated in scope column order")
	return cmd
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a row and its neighbours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				n, err := t.Show(ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.neighbours(n)
			})
		},
	}
}

func newAddCommand(opts *RootOptions) *cobra.Command {
	var (
		scopeFlag []string
		setFlag   []string
		id        string
		rank      int
		top       bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Insert a row, at the bottom unless --rank or --top is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				scope, err := parseScope(s.def, scopeFlag)
				if err != nil {
					return err
				}
				fields, err := parseFields(s.def, setFlag)
				if err != nil {
					return err
				}
				at := placement{top: top, rank: rank, ranked: cmd.Flags().Changed("rank")}
				r, err := t.Add(ctx, id, scope, fields, at)
				if err != nil {
					return err
				}
				return s.out.rows([]row{r})
			})
		},
	}
	cmd.Flags().StringArrayVarP(&scopeFlag, "scope", "s", nil, "scope value, repeated in scope column order")
	cmd.Flags().StringArrayVar(&setFlag, "set", nil, "field value as name=value")
	cmd.Flags().StringVar(&id, "id", "", "primary key (generated when empty)")
	cmd.Flags().IntVar(&rank, "rank", 0, "insert at this rank, shifting the rows below")
	cmd.Flags().BoolVar(&top, "top", false, "insert at rank 1")
	cmd.MarkFlagsMutuallyExclusive("rank", "top")
	return cmd
}

func newMoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <rank>",
		Short: "Move a row to a rank within its scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rank, err := parseRank(args[1])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				r, ok, err := t.Move(ctx, args[0], moveTo, rank)
				if err != nil {
					return err
				}
				return s.out.moved(r, ok)
			})
		},
	}
}

func newStepCommand(opts *RootOptions, use, short string, how movement) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				r, ok, err := t.Move(ctx, args[0], how, 0)
				if err != nil {
					return err
				}
				return s.out.moved(r, ok)
			})
		},
	}
}

func newSwapCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "swap <id> <id>",
		Short: "Exchange the ranks of two rows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				rows, err := t.Swap(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return s.out.rows(rows)
			})
		},
	}
}

func newRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Take a row out of its list, keeping the row with no rank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				r, err := t.Remove(ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.rows([]row{r})
			})
		},
	}
}

func newRescopeCommand(opts *RootOptions) *cobra.Command {
	var scopeFlag []string
	cmd := &cobra.Command{
		Use:   "rescope <id>",
		Short: "Move a row to the bottom of another scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				scope, err := parseScope(s.def, scopeFlag)
				if err != nil {
					return err
				}
				r, err := t.Rescope(ctx, args[0], scope)
				if err != nil {
					return err
				}
				return s.out.rows([]row{r})
			})
		},
	}
	cmd.Flags().StringArrayVarP(&scopeFlag, "scope", "s", nil, "new scope value, repeated in scope column order")
	return cmd
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a row and close the gap it leaves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				if err := t.Delete(ctx, args[0]); err != nil {
					return err
				}
				return s.out.message("deleted %s %s", s.out.entity(), args[0])
			})
		},
	}
}

func newVerifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every scope is ranked 1..N",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				if err := t.Verify(ctx); err != nil {
					return WrapExitError(ExitFailure, "verify", err)
				}
				return s.out.message("ok: %s is ranked 1..N in every scope", s.def.Table)
			})
		},
	}
}

func newRepairCommand(opts *RootOptions) *cobra.Command {
	var scopeFlag []string
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Renumber a scope 1..N in its current order, every scope when --scope is omitted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session, t table) error {
				all := len(scopeFlag) == 0
				var scope []any
				if !all {
					var err error
					if scope, err = parseScope(s.def, scopeFlag); err != nil {
						return err
					}
				}
				n, err := t.Repair(ctx, scope, all)
				if err != nil {
					return err
				}
				return s.out.message("repaired %d row(s)", n)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&scopeFlag, "scope", "s", nil, "scope value, repeated in scope column order")
	return cmd
}
