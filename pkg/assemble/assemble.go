// Package assemble converts ranked search matches into a bounded
// textual context block plus a provenance list of source titles.
package assemble

import (
	"fmt"
	"strings"

	"github.com/kimbleai/engram/pkg/search"
)

// DefaultMaxItems is the default number of blocks included.
const DefaultMaxItems = 3

// separator joins context blocks with a blank line.
const separator = "\n\n"

// Options control assembly.
type Options struct {
	// MaxItems caps the number of included blocks. Values <= 0 fall
	// back to DefaultMaxItems.
	MaxItems int

	// MaxChars is the character budget for the assembled text. A block
	// that would push the output past the budget is omitted whole and
	// assembly stops; blocks are never truncated mid-text. Values <= 0
	// mean no budget.
	MaxChars int
}

// Context is the assembled result. Empty Text with empty Provenance is
// a valid state meaning "no relevant memory", not an error.
type Context struct {
	// Text is the assembled context, blocks separated by blank lines.
	Text string

	// Provenance lists the titles actually included, in order.
	Provenance []string
}

// Assemble builds a context block from ranked matches, preserving their
// order.
func Assemble(matches []search.Match, opts Options) Context {
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	var (
		b          strings.Builder
		provenance []string
	)

	for _, m := range matches {
		if len(provenance) >= maxItems {
			break
		}

		block := fmt.Sprintf("From '%s': %s", m.Item.Title, m.Item.Text)

		next := b.Len() + len(block)
		if b.Len() > 0 {
			next += len(separator)
		}
		if opts.MaxChars > 0 && next > opts.MaxChars {
			break
		}

		if b.Len() > 0 {
			b.WriteString(separator)
		}
		b.WriteString(block)
		provenance = append(provenance, m.Item.Title)
	}

	return Context{
		Text:       b.String(),
		Provenance: provenance,
	}
}
