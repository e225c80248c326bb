// Package template renders HTML campaign templates by substituting
// per-recipient placeholder tokens of the form <!--fieldname-->.
package template

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shineum/bulkmail-lite/internal/recipients"
)

// ErrEmptyTemplate is returned when the template file has no content.
// An empty body is a fatal content error for the whole run.
var ErrEmptyTemplate = errors.New("template file is empty")

// Renderer holds the raw template text loaded once per run. Rendering never
// mutates the cached source, so the same Renderer serves every recipient.
type Renderer struct {
	source string
}

// Load reads the template file and returns a Renderer for it.
func Load(path string) (*Renderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyTemplate
	}
	return &Renderer{source: string(data)}, nil
}

// New returns a Renderer over the given raw template text.
func New(source string) (*Renderer, error) {
	if source == "" {
		return nil, ErrEmptyTemplate
	}
	return &Renderer{source: source}, nil
}

// Render substitutes every <!--key--> token for each of the record's columns
// with that column's value. Tokens naming unknown fields are left verbatim;
// substitution is best effort, not a template language.
func (r *Renderer) Render(rec recipients.Record) string {
	out := r.source
	for _, col := range rec.Columns {
		token := fmt.Sprintf("<!--%s-->", col)
		out = strings.ReplaceAll(out, token, rec.Fields[col])
	}
	return out
}
