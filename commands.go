package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sheet_budget/internal/app"
	"sheet_budget/internal/budget"
	"sheet_budget/internal/config"
	"sheet_budget/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type cli struct {
	app *app.App
}

// close releases the app opened for the command, whether or not the command succeeded
func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func newRootCommand(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sheet-budget",
		Short:         "Track budgets kept as sheets of a Google Spreadsheet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			c.app, err = app.Open(cfg)
			return err
		},
	}

	rootCmd.AddCommand(
		c.loginCommand(),
		c.logoutCommand(),
		c.useCommand(),
		c.budgetsCommand(),
		c.showCommand(),
		c.addExpenseCommand(),
		c.newBudgetCommand(),
		c.archiveCommand("archive", "Archive a budget so it no longer takes expenses", true),
		c.archiveCommand("unarchive", "Make an archived budget active again", false),
		c.openOnLoadCommand(),
		c.refreshCommand(),
		c.settingsCommand(),
		c.urlCommand(),
		c.watchCommand(),
	)
	return rootCmd
}

// withService runs action against the remote spreadsheet. When Google sign-in is needed
// the login flow runs and the action is resumed once.
func (c *cli) withService(cmd *cobra.Command, action func(ctx context.Context, svc *budget.Service) error) error {
	ctx := cmd.Context()
	for attempt := 0; ; attempt++ {
		svc, err := c.app.Service(ctx)
		if err == nil {
			err = action(ctx, svc)
		}
		if !errors.Is(err, budget.ErrAuthRequired) || attempt > 0 {
			return err
		}

		log.Warn().Msg("Google sign-in required")
		if err := c.app.Auth.Login(ctx, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
}

// completeSheets offers cached sheet names for shell completion
func (c *cli) completeSheets(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	// completion requests skip the persistent hooks
	if c.app == nil {
		cfg, err := app.LoadConfig()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		if c.app, err = app.Open(cfg); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		defer c.close()
	}
	local, err := c.app.LocalService()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	entries, err := local.DisplayEntries()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.SheetName, toComplete) {
			names = append(names, entry.SheetName)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// =============================================================================================

func (c *cli) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Google",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Auth.Login(cmd.Context(), cmd.InOrStdin(), cmd.ErrOrStderr())
		},
	}
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove all local data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (c *cli) useCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use <spreadsheet-id>",
		Short: "Switch to another spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *budget.Service) error {
				result, err := svc.ChangeSpreadsheet(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Using spreadsheet %s with %d budgets\n", args[0], len(result.Entries))
				return nil
			})
		},
	}
}

func (c *cli) budgetsCommand() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:     "budgets",
		Aliases: []string{"ls"},
		Short:   "List budgets, open on load first and archived last",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refresh {
				err := c.withService(cmd, func(ctx context.Context, svc *budget.Service) error {
					_, err := svc.Refresh(ctx)
					return err
				})
				if err != nil {
					return err
				}
			}

			local, err := c.app.LocalService()
			if err != nil {
				return err
			}
			entries, err := local.DisplayEntries()
			if err != nil {
				return err
			}
			settings, err := local.Settings()
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries, settings.OpenOnLoad)
		},
	}
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "reconcile with the spreadsheet before listing")
	return cmd
}

func (c *cli) showCommand() *cobra.Command {
	var cached bool
	cmd := &cobra.Command{
		Use:               "show [sheet]",
		Short:             "Show a budget, or the open on load budget when none is given",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: c.completeSheets,
		RunE: func(cmd *cobra.Command, args []string) error {
			sheet := ""
			if len(args) == 1 {
				sheet = args[0]
			}

			if cached {
				return c.showCached(cmd, sheet)
			}

			return c.withService(cmd, func(ctx context.Context, svc *budget.Service) error {
				view, err := svc.OpenView(ctx, sheet)
				if err != nil {
					return err
				}
				if !view.IsBudget() {
					fmt.Fprintln(cmd.OutOrStdout(), view)
					return nil
				}

				loaded, err := svc.LoadSheet(ctx, view.SheetID)
				if errors.Is(err, budget.ErrSheetDeleted) {
					fmt.Fprintln(cmd.OutOrStdout(), "This sheet has been deleted")
					next, viewErr := svc.InitialView()
					if viewErr == nil {
						fmt.Fprintf(cmd.OutOrStdout(), "Now showing: %s\n", next)
					}
					return err
				}
				if err != nil {
					return err
				}
				view.SheetName = loaded.SheetName
				return printBudget(cmd.OutOrStdout(), view, loaded.Sheet)
			})
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "show the last loaded copy without contacting Google")
	return cmd
}

// showCached prints the last loaded copy of a budget without contacting Google
func (c *cli) showCached(cmd *cobra.Command, sheet string) error {
	local, err := c.app.LocalService()
	if err != nil {
		return err
	}

	view, err := local.InitialView()
	if err != nil {
		return err
	}
	if sheet != "" {
		entry, err := local.Resolve(sheet)
		if err != nil {
			return err
		}
		if view, err = local.ViewFor(entry.SheetID); err != nil {
			return err
		}
	}
	if !view.IsBudget() {
		fmt.Fprintln(cmd.OutOrStdout(), view)
		return nil
	}

	cachedSheet, ok, err := local.CachedSheet(view.SheetID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s has not been loaded yet", view.SheetName)
	}
	return printBudget(cmd.OutOrStdout(), view, cachedSheet)
}

func (c *cli) addExpenseCommand() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:               "add-expense <sheet> <amount> <description>",
		Short:             "Add an expense to an active budget",
		Args:              cobra.MinimumNArgs(3),
		ValidArgsFunction: c.completeSheets,
		RunE: func(cmd *cobra.Command, args []string) error {
			// reject bad amounts before signing in or touching the network
			if _, err := models.ParseAmount(args[1]); err != nil {
				return err
			}
			description := strings.Join(args[2:], " ")

			return c.withService(cmd, func(ctx context.Context, svc *budget.Service) error {
				entry, err := svc.ResolveFresh(ctx, args[0])
				if err != nil {
					return err
				}
				sheet, err := svc.AddExpense(ctx, entry.SheetID, date, description, args[1])
				if err != nil {
					return err
				}
				if sheet == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Added expense to %s\n", entry.SheetName)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added expense to %s, %d left\n", entry.SheetName, sheet.Leftover())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "expense date as M/D/YYYY (default today)")
	return cmd
}

func (c *cli) newBudgetCommand() *cobra.Command {
	var toSpend, leftover string
	cmd := &cobra.Command{
		Use:   "new-budget <name>",
		Short: "Create a new budget sheet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spend, err := models.ParseAmount(toSpend)
			if err != nil {
				return fmt.Errorf("--to-spend: %w", err)
			}
			carried, err := models.ParseAmount(leftover)
			if err != nil {
				return fmt.Errorf("--leftover: %w", err)
			}
			name := strings.Join(args, " ")

			return c.withService(cmd, func(ctx context.Context, svc *budget.Service) error {
				entry, err := svc.AddBudget(ctx, name, spend, carried)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created budget %s (sheet %s)\n", entry.SheetName, entry.SheetID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&toSpend, "to-spend", "", "amount available to spend")
	cmd.Flags().StringVar(&leftover, "leftover", "0", "amount carried over from earlier budgets")
	cmd.MarkFlagRequired("to-spend")
	return cmd
}

func (c *cli) archiveCommand(use, short string, archive bool) *cobra.Command {
	done := "Archived"
	if !archive {
		done = "Unarchived"
	}
	return &cobra.Command{
		Use:               use + " <sheet>",
		Short:             short,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeSheets,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *budget.Service) error {
				entry, err := svc.ResolveFresh(ctx, args[0])
				if err != nil {
					return err
				}
				if archive {
					err = svc.Archive(ctx, entry.SheetID)
				} else {
					err = svc.Unarchive(ctx, entry.SheetID)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, entry.SheetName)
				return nil
			})
		},
	}
}

func (c *cli) openOnLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "open-on-load <sheet>",
		Short:             "Show this budget when no other is requested",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeSheets,
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := c.app.LocalService()
			if err != nil {
				return err
			}
			entry, err := local.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := local.SetOpenOnLoad(entry.SheetID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s will open on load\n", entry.SheetName)
			return nil
		},
	}
}

func (c *cli) refreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reconcile the budget list with the spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, svc *budget.Service) error {
				result, err := svc.Refresh(ctx)
				if err != nil {
					return err
				}
				return printRefresh(cmd.OutOrStdout(), result)
			})
		},
	}
}

func (c *cli) settingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show the current spreadsheet and preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := c.app.LocalService()
			if err != nil {
				return err
			}
			settings, err := local.Settings()
			if err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), settings, c.app.Config)
		},
	}
}

func (c *cli) urlCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "url <sheet>",
		Short:             "Print the Google Sheets link for a budget",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeSheets,
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := c.app.LocalService()
			if err != nil {
				return err
			}
			entry, err := local.Resolve(args[0])
			if err != nil {
				return err
			}
			url, err := local.SheetURL(entry.SheetID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func (c *cli) watchCommand() *cobra.Command {
	var interval string
	var forever bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep reconciling and notify about changed or overspent budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			every := c.app.Config.WatchInterval
			if interval != "" {
				var err error
				if every, err = parseInterval(interval); err != nil {
					return err
				}
			}
			resilience := config.DefaultResilienceConfig
			if forever {
				resilience = config.InfiniteResilienceConfig
			}

			return c.withService(cmd, func(ctx context.Context, svc *budget.Service) error {
				// fail fast on missing credentials before entering the loop
				if _, err := svc.Refresh(ctx); errors.Is(err, budget.ErrAuthRequired) || errors.Is(err, budget.ErrNoSpreadsheet) {
					return err
				}
				return app.NewWatcher(svc, c.app.Notifier, resilience).Run(ctx, every)
			})
		},
	}
	cmd.Flags().StringVarP(&interval, "interval", "i", "", "time between checks, e.g. 5m (default WATCH_INTERVAL)")
	cmd.Flags().BoolVar(&forever, "retry-forever", false, "retry failed checks until they succeed")
	return cmd
}
