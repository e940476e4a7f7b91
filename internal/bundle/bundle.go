// Package bundle serializes a resolved entry into one delimited text
// artifact.
package bundle

import (
	"bytes"
	"fmt"

	"github.com/agentx-labs/webbundle/internal/manifest"
	"github.com/agentx-labs/webbundle/internal/registry"
	"github.com/agentx-labs/webbundle/internal/resolver"
)

const rule = "===================="

// Options controls serialization.
type Options struct {
	// Preamble is written verbatim before the first block.
	Preamble string
}

// Bundle is the serialized artifact for one entry.
type Bundle struct {
	EntryID registry.ID
	Kind    manifest.Kind
	Order   []registry.ID
	Text    []byte
}

// New serializes a successful resolution of entry. It refuses results that
// carry errors so a broken bundle is never produced.
func New(entry *manifest.Entry, res *resolver.Result, opts Options) (*Bundle, error) {
	if !res.OK() {
		return nil, fmt.Errorf("bundling %s: %w", entry.ResourceID(), res.Err())
	}
	return &Bundle{
		EntryID: entry.ResourceID(),
		Kind:    entry.Kind,
		Order:   append([]registry.ID(nil), res.Order...),
		Text:    Serialize(res.Records, opts),
	}, nil
}

// Serialize writes the preamble, then every record in order, each wrapped
// in START/END delimiter lines naming its location. Content is copied
// byte-for-byte; a newline is added before the END line only when the
// content does not already end with one.
func Serialize(records []*registry.Record, opts Options) []byte {
	var b bytes.Buffer
	b.WriteString(opts.Preamble)
	for _, rec := range records {
		writeBlock(&b, rec)
	}
	return b.Bytes()
}

func writeBlock(b *bytes.Buffer, rec *registry.Record) {
	loc := Location(rec)
	fmt.Fprintf(b, "%s START: %s %s\n", rule, loc, rule)
	b.Write(rec.Content)
	if len(rec.Content) > 0 && rec.Content[len(rec.Content)-1] != '\n' {
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, "%s END: %s %s\n\n", rule, loc, rule)
}

// Location names a record inside a bundle: "." plus its source, then its
// path relative to that source, e.g. ".core/tasks/create-next-story.md".
func Location(rec *registry.Record) string {
	return "." + rec.Source + "/" + rec.RelPath
}
