package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/campaigner/internal/channel"
	"github.com/unclebandit/campaigner/internal/config"
	"github.com/unclebandit/campaigner/internal/logging"
)

// Options lets callers replace the production channel and logger.
type Options struct {
	Channel channel.Channel
	Logger  *zap.Logger
}

type rootFlags struct {
	configPath string
	dataDir    string
}

func NewRootCmd(opts Options) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "campaigner",
		Short: "Personalized text-message campaigns through the Messages app",
		Long: `campaigner imports recipient lists, sends one personalized message at a
time through iMessage or SMS, and keeps per-recipient results and tracking
links in a JSON store.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "campaigner.yaml", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "directory holding campaigns.json (overrides DATA_DIR)")

	withApp := func(fn func(*App) error) error {
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return err
		}
		if flags.dataDir != "" {
			cfg.DataDir = flags.dataDir
		}

		logger := opts.Logger
		if logger == nil {
			logger, err = logging.New(cfg.LogLevel, cfg.LogDevelopment)
			if err != nil {
				return err
			}
		}

		app, err := Open(cfg, logger, opts.Channel)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer app.Close()
		return fn(app)
	}

	rootCmd.AddCommand(createCmd(withApp))
	rootCmd.AddCommand(listCmd(withApp))
	rootCmd.AddCommand(showCmd(withApp))
	rootCmd.AddCommand(sendCmd(withApp))
	rootCmd.AddCommand(responsesCmd(withApp))
	rootCmd.AddCommand(previewCmd(withApp))
	rootCmd.AddCommand(statsCmd(withApp))
	rootCmd.AddCommand(deleteCmd(withApp))

	return rootCmd
}
