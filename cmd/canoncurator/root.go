package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"CanonCurator/internal/app"
	"CanonCurator/internal/config"
	"CanonCurator/internal/logging"
)

const (
	formatTable = "table"
	formatJSON  = "json"

	skipConfigAnnotation = "skip-config"
)

type commandContext struct {
	configFlag *string
	formatFlag *string
	cfg        *config.Config
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	c.cfg = &cfg
	return cfg, nil
}

// openApp builds the application. Logs go to stderr so stdout stays parseable.
func (c *commandContext) openApp(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return app.New(cmd.Context(), cfg, logger)
}

func (c *commandContext) jsonOutput() bool {
	return *c.formatFlag == formatJSON
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var formatFlag string

	ctx := &commandContext{configFlag: &configFlag, formatFlag: &formatFlag}

	rootCmd := &cobra.Command{
		Use:           "canoncurator",
		Short:         "Curation queue, topic coverage and date enrichment for the canon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if formatFlag != formatTable && formatFlag != formatJSON {
				return fmt.Errorf("unknown --format %q (want %s or %s)", formatFlag, formatTable, formatJSON)
			}
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default $CANON_CURATOR_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", formatTable, "Output format: table or json")

	rootCmd.AddCommand(newClassifyCommand(ctx))
	rootCmd.AddCommand(newInitDBCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newEnrichCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newCoverageCommand(ctx))
	rootCmd.AddCommand(newDomainsCommand(ctx))
	rootCmd.AddCommand(newAuditCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
