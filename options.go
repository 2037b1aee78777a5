package fieldmap

import (
	"github.com/rs/zerolog"

	"github.com/fieldmap/fieldmap/pkg/errors"
	"github.com/fieldmap/fieldmap/pkg/mapping"
	"github.com/fieldmap/fieldmap/pkg/suggest"
	"github.com/fieldmap/fieldmap/pkg/templates"
)

// Option is a function that configures a mapping Session.
type Option func(*config) error

// config holds everything a Session is built from.
type config struct {
	template     *templates.Template
	columns      []string
	rows         []map[string]string
	store        suggest.Store
	completer    mapping.Completer
	embedder     mapping.Embedder
	adhocPrefix  string
	neverAutoMap []string
	logger       *zerolog.Logger
}

func defaultConfig() *config {
	return &config{}
}

// WithTemplate sets the template the session resolves against. Required.
func WithTemplate(t *templates.Template) Option {
	return func(c *config) error {
		if t == nil {
			return errors.NewValidationError("template", nil, "template must not be nil")
		}
		c.template = t
		return nil
	}
}

// WithColumns sets the source column names of the uploaded dataset, in
// source order. Required.
func WithColumns(columns []string) Option {
	return func(c *config) error {
		if len(columns) == 0 {
			return errors.NewValidationError("columns", columns, "at least one source column is required")
		}
		c.columns = columns
		return nil
	}
}

// WithRows sets the dataset rows keyed by column name. Rows feed the lookup
// cascade's distinct source values; header and computed resolution only need
// columns.
func WithRows(rows []map[string]string) Option {
	return func(c *config) error {
		c.rows = rows
		return nil
	}
}

// WithSuggestionStore sets the store consulted before every cascade run and
// written on Confirm. Without one, resolution is cascade-only and confirmed
// mappings are not persisted.
func WithSuggestionStore(store suggest.Store) Option {
	return func(c *config) error {
		c.store = store
		return nil
	}
}

// WithCompleter injects the AI completion capability used as a last-resort
// fallback for required unresolved fields and unresolved lookup values.
func WithCompleter(completer mapping.Completer) Option {
	return func(c *config) error {
		c.completer = completer
		return nil
	}
}

// WithEmbedder injects the embedding capability used by the lookup cascade's
// similarity stage.
func WithEmbedder(embedder mapping.Embedder) Option {
	return func(c *config) error {
		c.embedder = embedder
		return nil
	}
}

// WithAdHocPrefix overrides the field-key prefix that marks ad-hoc fields.
func WithAdHocPrefix(prefix string) Option {
	return func(c *config) error {
		if prefix == "" {
			return errors.NewValidationError("prefix", prefix, "ad-hoc prefix must not be empty")
		}
		c.adhocPrefix = prefix
		return nil
	}
}

// WithNeverAutoMap lists field keys that must never be auto-populated by the
// cascade or the AI fallback.
func WithNeverAutoMap(fieldKeys ...string) Option {
	return func(c *config) error {
		c.neverAutoMap = append(c.neverAutoMap, fieldKeys...)
		return nil
	}
}

// WithLogger sets the logger used for the session's context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}
