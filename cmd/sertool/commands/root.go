// Package commands implements sertool's Cobra subcommands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/maekitalo/sertools/cmd/sertool/config"
	"github.com/maekitalo/sertools/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd is the base command when sertool is called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "sertool",
	Short: "sertool inspects and exercises the sertools serialization engine and RPC client",
	Long: `sertool is a diagnostic CLI over the sertools serialization engine: encode
and decode values between the binary wire format and the lenient JSON
variant, and fire a binary RPC call at a listening server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return logger.Init(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to sertool.yaml (default: ./sertool.yaml or $HOME/.config/sertool/sertool.yaml)")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(callCmd)
}
