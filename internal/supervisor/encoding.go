package supervisor

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// decoderFor resolves name (e.g. "utf-8", "latin1", "shift_jis") to a
// decode function via x/text's htmlindex, the same registry browsers use
// to resolve a <meta charset>. Unknown or empty names, and utf-8 itself,
// fall back to passing the line through unchanged — decoding is a best
// effort transcoding step, never a gate on output (spec.md §4.E).
func decoderFor(name string) func(string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return func(s string) string { return s }
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return func(s string) string { return s }
	}

	dec := enc.NewDecoder()
	return func(s string) string {
		out, err := dec.Bytes([]byte(s))
		if err != nil {
			// Partial/garbled input still gets surfaced rather than dropped,
			// using the replacement-character transform.
			out, _ = encoding.ReplaceUnsupported(dec).Bytes([]byte(s))
		}
		return string(out)
	}
}
