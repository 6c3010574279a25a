package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/fitquest/server/app"
	"github.com/fitquest/server/catalog"
	dbadapter "github.com/fitquest/server/db"
	mw "github.com/fitquest/server/middleware"
	"github.com/fitquest/server/model"
	"github.com/spf13/cobra"
)

func migrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			db, err := dbadapter.Open(cfg.Database, opts.logger())
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()
			if err := model.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date (%s)\n", okMark, cfg.Database.Mode)
			return nil
		},
	}
}

func seedCmd(opts *options) *cobra.Command {
	var (
		catalogPath string
		userName    string
		timezone    string
		steps       float64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Sync the quest catalog and optionally create a user",
		Long: `Upserts every quest template of the catalog by key. Without --catalog the
embedded default catalog is used. With --user a user is created, with a
baseline assessment when --steps is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return opts.withApp(cmd.Context(), false, func(a *app.App) error {
				cat, err := catalog.LoadFile(catalogPath)
				if err != nil {
					return err
				}
				n, err := catalog.Sync(cmd.Context(), a.DB, cat, a.Logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %d quest templates synced\n", okMark, n)

				if userName == "" {
					return nil
				}
				u := &model.User{Name: userName, Timezone: timezone}
				if err := a.DB.WithContext(cmd.Context()).Create(u).Error; err != nil {
					return fmt.Errorf("create user: %w", err)
				}
				if steps > 0 {
					if err := a.DB.WithContext(cmd.Context()).
						Create(&model.BaselineAssessment{UserID: u.ID, DailyStepsBaseline: steps}).Error; err != nil {
						return fmt.Errorf("create baseline: %w", err)
					}
				}
				fmt.Fprintf(out, "%s user %s created with id %d\n", okMark, userName, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog YAML file (embedded default when empty)")
	cmd.Flags().StringVar(&userName, "user", "", "create a user with this name")
	cmd.Flags().StringVar(&timezone, "tz", "UTC", "timezone of the created user")
	cmd.Flags().Float64Var(&steps, "steps", 0, "daily steps baseline of the created user")
	return cmd
}

func adaptCmd(opts *options) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "adapt",
		Short: "Run target adaptation for one user, or everyone",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return opts.withApp(cmd.Context(), false, func(a *app.App) error {
				if userID == 0 {
					sum, err := a.Adaptation.Run(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s %d users: %d adapted, %d unchanged, %d failed, %d skipped\n",
						okMark, sum.Users, sum.Adapted, sum.Unchanged, sum.Failed, sum.Skipped)
					return nil
				}
				res, err := a.Calibrator.RunAdaptationCycle(cmd.Context(), userID)
				if err != nil {
					return err
				}
				for _, r := range res.Results {
					switch {
					case r.Error != "":
						fmt.Fprintf(out, "%s template %d: %s\n", color.RedString("✗"), r.TemplateID, r.Error)
					case r.Changed():
						fmt.Fprintf(out, "%s %-16s %g → %g  %s\n", okMark, r.Metric, r.OldTarget, r.NewTarget, r.Reason)
					default:
						fmt.Fprintf(out, "%s %-16s %g  %s\n", warnMark, r.Metric, r.OldTarget, r.Reason)
					}
				}
				fmt.Fprintf(out, "user %d: %d adapted, %d unchanged, %d failed\n",
					userID, res.Adapted, res.Unchanged, res.Failed)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id (all users when 0)")
	return cmd
}

func streakCmd(opts *options) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Recompute and print a user's streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user is required")
			}
			out := cmd.OutOrStdout()
			return opts.withApp(cmd.Context(), false, func(a *app.App) error {
				info, err := a.Streaks.UpdateUserStreak(cmd.Context(), userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "current %d  longest %d  perfect %d  bonus %s (+%d%%)\n",
					info.CurrentStreak, info.LongestStreak, info.PerfectStreak, info.Bonus.Tier, info.Bonus.Percent)
				if info.DaysUntilNextTier != nil {
					fmt.Fprintf(out, "next tier in %d days\n", *info.DaysUntilNextTier)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	return cmd
}

func tokenCmd(opts *options) *cobra.Command {
	var (
		userID int64
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user is required")
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Security.JWTSecret == "" {
				return fmt.Errorf("security.jwt_secret is not set")
			}
			if ttl <= 0 {
				ttl = cfg.Security.JWTTTL
			}
			tok, err := mw.GenerateToken(userID, cfg.Security.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (security.jwt_ttl when 0)")
	return cmd
}
