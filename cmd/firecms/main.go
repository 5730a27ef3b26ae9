// Command firecms inspects collection declarations and uploads files through
// the configured storage backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jinbe/firecms/collections"
	"github.com/jinbe/firecms/i18n"
	"github.com/jinbe/firecms/registry"
)

// app carries the state shared by subcommands.
type app struct {
	verbose     bool
	envFile     string
	collections string

	cfg *Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "firecms",
		Short:         "Resolve collection schemas and upload files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.envFile, cmd.Flags().Changed("env-file"))
			if err != nil {
				return err
			}
			if a.collections != "" {
				cfg.Collections = a.collections
			}
			a.cfg = cfg
			i18n.SetLanguage(cfg.Language)
			a.log, err = newLogger(a.verbose, cfg.LogFile)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment")
	root.PersistentFlags().StringVarP(&a.collections, "collections", "c", "", "collections file (overrides FIRECMS_COLLECTIONS)")

	root.AddCommand(a.resolveCmd(), a.uploadCmd(), a.watchCmd())
	return root
}

// registry loads the collections file into a new registry.
func (a *app) registry() (*registry.Registry, error) {
	b, err := collections.LoadFile(a.cfg.Collections)
	if err != nil {
		return nil, err
	}
	reg := registry.New(registry.WithLogger(a.log))
	b.Apply(reg)
	return reg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
