package cmd

import (
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldmap/fieldmap"
	"github.com/fieldmap/fieldmap/internal/gemini"
	"github.com/fieldmap/fieldmap/internal/tabular"
	"github.com/fieldmap/fieldmap/pkg/errors"
	"github.com/fieldmap/fieldmap/pkg/logging"
	"github.com/fieldmap/fieldmap/pkg/suggest"
	"github.com/fieldmap/fieldmap/pkg/templates"
)

// mapCmd resolves a template against a dataset and writes the output document.
var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Resolve a template against a dataset and export the mapped document",
	Long: `Resolve a mapping template against a spreadsheet or CSV file.

The suggestion store, when provided, preempts the matching cascades with
previously confirmed mappings. With --ai, unresolved required fields and
lookup values fall back to Gemini (requires GEMINI_API_KEY).`,
	RunE: runMap,
}

func init() {
	rootCmd.AddCommand(mapCmd)

	mapCmd.Flags().StringP("template", "t", "", "path to the template file (JSON or YAML)")
	mapCmd.Flags().StringP("input", "i", "", "path to the dataset (xlsx or csv)")
	mapCmd.Flags().StringP("output", "o", "", "path for the exported document (default stdout)")
	mapCmd.Flags().String("sheet", "", "Excel worksheet name (default first sheet)")
	mapCmd.Flags().Bool("ai", false, "enable the Gemini fallback for unresolved fields")
	mapCmd.Flags().StringSlice("never-auto-map", nil, "field keys never auto-populated")
	_ = mapCmd.MarkFlagRequired("template")
	_ = mapCmd.MarkFlagRequired("input")
}

func runMap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.Default()

	tmpl, err := templates.Load(viper.GetString("template"))
	if err != nil {
		return err
	}

	dataset, err := tabular.Read(viper.GetString("input"), viper.GetString("sheet"))
	if err != nil {
		return err
	}
	log.Info().Str("template", tmpl.Name).Int("columns", len(dataset.Columns)).
		Int("rows", len(dataset.Rows)).Msg("Dataset loaded")

	opts := []fieldmap.Option{
		fieldmap.WithTemplate(tmpl),
		fieldmap.WithColumns(dataset.Columns),
		fieldmap.WithRows(dataset.Rows),
		fieldmap.WithNeverAutoMap(viper.GetStringSlice("never-auto-map")...),
	}
	if storePath := viper.GetString("store"); storePath != "" {
		opts = append(opts, fieldmap.WithSuggestionStore(suggest.NewFileStore(storePath)))
	}
	if viper.GetBool("ai") {
		client, err := gemini.NewClient(ctx, "")
		if err != nil {
			return err
		}
		opts = append(opts,
			fieldmap.WithCompleter(client),
			fieldmap.WithEmbedder(client),
		)
	}

	session, err := fieldmap.New(opts...)
	if err != nil {
		return err
	}
	if err := session.Resolve(ctx); err != nil {
		return err
	}

	processID := uuid.NewString()
	out, err := session.ExportJSON(processID)
	if err != nil {
		return err
	}

	if path := viper.GetString("output"); path != "" {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return errors.WrapIO("write", path, err)
		}
		log.Info().Str("output", path).Str("process_id", processID).Msg("Mapped document written")
		return nil
	}
	cmd.Println(string(out))
	return nil
}
