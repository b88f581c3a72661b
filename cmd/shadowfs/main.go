// Command shadowfs hosts the dual-tree storage area: an identifier-sharded
// primary store plus a patient/study/series shadow tree of links.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/shadowfs/internal/logger"
	"github.com/marmos91/shadowfs/pkg/config"
	"github.com/marmos91/shadowfs/pkg/storage"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the state shared by all subcommands.
type app struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "shadowfs",
		Short:         "DICOM-aware storage area with a human-navigable shadow tree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"path to config file (default $XDG_CONFIG_HOME/shadowfs/config.yaml)")

	root.AddCommand(
		a.initCommand(),
		a.startCommand(),
		a.putCommand(),
		a.getCommand(),
		a.deleteCommand(),
		a.inspectCommand(),
		a.gcCommand(),
	)

	return root
}

// loadConfig loads the configuration and applies its logging section.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return nil, err
	}

	return cfg, nil
}

// openEngine loads the configuration and builds an engine without metrics.
// One-shot commands skip the fan-out, which only matters for a long-running
// host.
func (a *app) openEngine(ctx context.Context) (*config.Config, *storage.Engine, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg.Storage.InitializeFanout = false

	engine, err := config.CreateEngine(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return cfg, engine, nil
}
