// Package cli implements the fitquestctl operator commands.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/fitquest/server/app"
	"github.com/fitquest/server/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
)

type options struct {
	configPath string
	verbose    bool
}

func (o *options) load() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// withApp builds the service graph for one command and closes it afterwards.
func (o *options) withApp(ctx context.Context, sync bool, fn func(*app.App) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	cfg.Catalog.SyncOnStart = sync
	a, err := app.New(ctx, cfg, o.logger())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(a)
}

// NewRootCmd returns the fitquestctl command tree writing to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "fitquestctl",
		Short: "Operate the FitQuest progression engine",
		Long: `fitquestctl runs maintenance tasks against the progression database:
schema migration, catalog seeding, target adaptation, streak recomputation
and test token minting.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (defaults apply when empty)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(migrateCmd(opts))
	root.AddCommand(seedCmd(opts))
	root.AddCommand(adaptCmd(opts))
	root.AddCommand(streakCmd(opts))
	root.AddCommand(tokenCmd(opts))
	return root
}
