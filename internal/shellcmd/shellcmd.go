// Package shellcmd normalizes an argv sequence: it strips quoting
// artifacts, recognizes the "|" pipe token, splits pipelines, detects
// redirections, and renders a shell-safe command string.
//
// The rendering strategy (single-quote wrapping, inner quotes escaped as
// '\'') is carried from the teacher's pkg/remuxcmd command builder, which
// uses the identical approach to produce systemd/POSIX-safe ExecStart
// lines.
package shellcmd

import (
	"strings"

	"github.com/shellrunner/shellrunner-server/internal/shellerr"
)

// RedirKind identifies the direction of an I/O redirection.
type RedirKind string

const (
	RedirIn     RedirKind = "<"
	RedirOut    RedirKind = ">"
	RedirAppend RedirKind = ">>"
)

// Redirection describes one parsed `<file`, `>file`, or `>>file` token.
type Redirection struct {
	Kind RedirKind
	Path string
}

// CleanArgv removes outer matched quoting and empty tokens, preserving
// token boundaries.
func CleanArgv(argv []string) []string {
	out := make([]string, 0, len(argv))
	for _, tok := range argv {
		tok = stripOuterQuotes(tok)
		if tok == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func stripOuterQuotes(tok string) string {
	if len(tok) >= 2 {
		first, last := tok[0], tok[len(tok)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return tok[1 : len(tok)-1]
		}
	}
	return tok
}

// HasPipe reports whether any token equals the literal "|".
func HasPipe(argv []string) bool {
	for _, tok := range argv {
		if tok == "|" {
			return true
		}
	}
	return false
}

// SplitPipeCommands returns the ordered list of sub-argvs split on "|"
// tokens; empty leading/trailing segments are dropped.
func SplitPipeCommands(argv []string) [][]string {
	var out [][]string
	var cur []string
	for _, tok := range argv {
		if tok == "|" {
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// ParseRedirections extracts `<file`, `>file`, `>>file` tokens (contiguous
// as a single token, e.g. ">out.txt", or split across two tokens, e.g.
// ">", "out.txt") from argv, returning the remaining command argv and the
// parsed redirections in encounter order. Unknown or unbalanced
// redirections fail with an IORedirectionError.
func ParseRedirections(argv []string) ([]string, []Redirection, error) {
	var cmd []string
	var redirs []Redirection

	for i := 0; i < len(argv); i++ {
		tok := argv[i]

		kind, inlinePath, isRedir := splitRedirToken(tok)
		if !isRedir {
			cmd = append(cmd, tok)
			continue
		}

		path := inlinePath
		if path == "" {
			i++
			if i >= len(argv) {
				return nil, nil, shellerr.IORedirection("redirection %q missing target file", tok)
			}
			path = argv[i]
		}
		if path == "" {
			return nil, nil, shellerr.IORedirection("redirection %q has empty target file", tok)
		}

		redirs = append(redirs, Redirection{Kind: kind, Path: path})
	}

	return cmd, redirs, nil
}

// splitRedirToken recognizes a redirection operator at the start of tok,
// optionally with the target file appended directly (">out.txt").
func splitRedirToken(tok string) (kind RedirKind, inlinePath string, ok bool) {
	switch {
	case strings.HasPrefix(tok, ">>"):
		return RedirAppend, tok[2:], true
	case strings.HasPrefix(tok, ">"):
		return RedirOut, tok[1:], true
	case strings.HasPrefix(tok, "<"):
		return RedirIn, tok[1:], true
	default:
		return "", "", false
	}
}

// RenderShellString renders argv as a single shell-safe command line, each
// token single-quote wrapped with inner single quotes escaped.
func RenderShellString(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shQuote(a)
	}
	return strings.Join(quoted, " ")
}

// RenderPipeline renders a sequence of sub-argvs joined by " | ", suitable
// for submission to the controlling shell as one command.
func RenderPipeline(segments [][]string) string {
	rendered := make([]string, len(segments))
	for i, seg := range segments {
		rendered[i] = RenderShellString(seg)
	}
	return strings.Join(rendered, " | ")
}

// shQuote returns a POSIX-safe single-quoted token. Empty strings become
// '' to preserve round-trippability.
func shQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
