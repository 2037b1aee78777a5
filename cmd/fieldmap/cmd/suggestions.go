package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldmap/fieldmap/pkg/errors"
	"github.com/fieldmap/fieldmap/pkg/logging"
	"github.com/fieldmap/fieldmap/pkg/suggest"
)

// suggestionsCmd groups suggestion-store maintenance commands.
var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Inspect and maintain the suggestion store",
}

var suggestionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored suggestions for a template/field pair",
	RunE:  runSuggestionsList,
}

var suggestionsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a stored suggestion by columns or formula",
	RunE:  runSuggestionsDelete,
}

func init() {
	rootCmd.AddCommand(suggestionsCmd)
	suggestionsCmd.AddCommand(suggestionsListCmd)
	suggestionsCmd.AddCommand(suggestionsDeleteCmd)

	for _, c := range []*cobra.Command{suggestionsListCmd, suggestionsDeleteCmd} {
		c.Flags().StringP("template", "t", "", "template name")
		c.Flags().StringP("field", "f", "", "field key")
		_ = c.MarkFlagRequired("template")
		_ = c.MarkFlagRequired("field")
	}
	suggestionsDeleteCmd.Flags().String("columns", "", "comma-separated columns identifying the suggestion")
	suggestionsDeleteCmd.Flags().String("formula", "", "formula text identifying the suggestion")
}

func openStore() (suggest.Store, error) {
	path := viper.GetString("store")
	if path == "" {
		return nil, errors.NewValidationError("store", path, "a --store path is required")
	}
	return suggest.NewFileStore(path), nil
}

func runSuggestionsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	suggestions, err := store.Get(viper.GetString("template"), viper.GetString("field"), nil)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(suggestions, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}

func runSuggestionsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	sel := suggest.Selector{Formula: viper.GetString("formula")}
	if cols := viper.GetString("columns"); cols != "" {
		for _, c := range strings.Split(cols, ",") {
			sel.Columns = append(sel.Columns, strings.TrimSpace(c))
		}
	}
	if sel.Formula == "" && sel.Columns == nil {
		return errors.NewValidationError("selector", nil, "either --columns or --formula is required")
	}

	removed, err := store.Delete(viper.GetString("template"), viper.GetString("field"), sel)
	if err != nil {
		return err
	}
	if !removed {
		logging.Warn().Msg("No matching suggestion found")
		return nil
	}
	logging.Info().Msg("Suggestion deleted")
	return nil
}
