// Package cmd implements the fieldmap command-line interface.
package cmd

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldmap/fieldmap/pkg/logging"
)

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "fieldmap",
	Short: "Resolve mapping templates against tabular datasets",
	Long: `fieldmap resolves a declarative mapping template against an uploaded
spreadsheet or CSV whose column names, order, and casing are unknown in
advance, and exports a self-contained mapped template document.

Examples:
  fieldmap map --template t.json --input data.xlsx --output out.json
  fieldmap validate --template t.json
  fieldmap suggestions list --store store.json --template "Carrier Rates" --field "Origin Zip"`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine; real deployments set env directly.
		_ = godotenv.Load()
		logging.ConfigureFromEnv()

		viper.AutomaticEnv()
		viper.SetEnvPrefix("FIELDMAP")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		if viper.GetBool("verbose") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
			logging.SetDefault(logging.Default().Level(zerolog.DebugLevel))
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logging.Default().Error().Err(err).Msg("Command failed")
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("store", "", "path to the suggestion store file")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}
