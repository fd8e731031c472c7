// Package allowlist decides whether a command and its pipeline/redirection
// form is permitted to run. It never spawns anything; it only validates.
package allowlist

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shellrunner/shellrunner-server/internal/shellerr"
)

// forbiddenOperators are standalone tokens that must never appear in a
// single (non-pipeline) command's argv.
var forbiddenOperators = []string{";", "&&", "||", "`", "$("}

// List is a configured set of permitted command basenames.
type List struct {
	allowed map[string]struct{}
	ci      bool // case-insensitive comparisons (Windows)
}

// New builds a List from the already-unioned, trimmed command names (see
// internal/env.Config.AllowCommands). An empty list means deny-all.
func New(commands []string) *List {
	l := &List{
		allowed: make(map[string]struct{}, len(commands)),
		ci:      runtime.GOOS == "windows",
	}
	for _, c := range commands {
		l.allowed[l.normalize(c)] = struct{}{}
	}
	return l
}

func (l *List) normalize(name string) string {
	if l.ci {
		return strings.ToLower(name)
	}
	return name
}

// head extracts the allow-list key from argv[0]: strip a leading "./" and
// any directory components, leaving only the basename.
func head(arg0 string) string {
	base := filepath.Base(arg0)
	return strings.TrimPrefix(base, "./")
}

func (l *List) permits(arg0 string) bool {
	_, ok := l.allowed[l.normalize(head(arg0))]
	return ok
}

// ValidateCommand fails unless argv is non-empty and argv[0]'s basename is
// allow-listed.
func (l *List) ValidateCommand(argv []string) error {
	if len(argv) == 0 {
		return shellerr.EmptyCommand("command is empty")
	}
	if !l.permits(argv[0]) {
		return shellerr.CommandValidation("Command not allowed: %s", head(argv[0]))
	}
	return nil
}

// ValidateNoShellOperators fails if token is one of the forbidden standalone
// shell operators.
func (l *List) ValidateNoShellOperators(token string) error {
	for _, op := range forbiddenOperators {
		if token == op {
			return shellerr.CommandValidation("shell operator not allowed: %s", token)
		}
	}
	return nil
}

// ValidatePipeline fails if the pipe form is malformed (leading/trailing
// "|", adjacent pipes, an empty segment) or if any segment's head command is
// not allow-listed.
func (l *List) ValidatePipeline(argv []string) error {
	if len(argv) == 0 {
		return shellerr.EmptyCommand("command is empty")
	}
	if argv[0] == "|" || argv[len(argv)-1] == "|" {
		return shellerr.CommandValidation("pipeline cannot start or end with '|'")
	}

	var segment []string
	flush := func() error {
		if len(segment) == 0 {
			return shellerr.CommandValidation("pipeline has an empty segment")
		}
		if err := l.ValidateCommand(segment); err != nil {
			return err
		}
		segment = nil
		return nil
	}

	for _, tok := range argv {
		if tok == "|" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		segment = append(segment, tok)
	}
	return flush()
}
