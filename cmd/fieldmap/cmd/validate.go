package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldmap/fieldmap/pkg/logging"
	"github.com/fieldmap/fieldmap/pkg/templates"
)

// validateCmd loads and validates a template without resolving anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a mapping template",
	Long: `Load a template file and check its structural invariants: required
names, layer shapes, unique header field keys, and GUID format. Unknown
layer types are accepted and pass through untouched.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("template", "t", "", "path to the template file (JSON or YAML)")
	_ = validateCmd.MarkFlagRequired("template")
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := viper.GetString("template")
	tmpl, err := templates.Load(path)
	if err != nil {
		return err
	}
	logging.Info().Str("template", tmpl.Name).Int("layers", len(tmpl.Layers)).
		Msg("Template is valid")
	return nil
}
