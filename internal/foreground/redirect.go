package foreground

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/shellrunner/shellrunner-server/internal/shellcmd"
	"github.com/shellrunner/shellrunner-server/internal/shellerr"
)

// openRedirections opens the file handles named by redirs relative to
// directory, returning them for the caller to wire onto cmd and close
// afterward. Redirection is foreground-only per spec.md's design notes —
// background processes never take user file redirections, only pipes to
// the log store.
func openRedirections(directory string, redirs []shellcmd.Redirection) ([]*os.File, error) {
	files := make([]*os.File, 0, len(redirs))
	for _, r := range redirs {
		path := r.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(directory, path)
		}

		var f *os.File
		var err error
		switch r.Kind {
		case shellcmd.RedirIn:
			f, err = os.Open(path)
		case shellcmd.RedirOut:
			f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		case shellcmd.RedirAppend:
			f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		}
		if err != nil {
			closeAll(files)
			return nil, shellerr.IORedirection("cannot open %s for redirection: %v", path, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// applyRedirections wires each opened file onto cmd's corresponding
// stream, in encounter order; a later redirection of the same kind
// overrides an earlier one, matching ordinary shell semantics.
func applyRedirections(cmd *exec.Cmd, redirs []shellcmd.Redirection, files []*os.File) {
	for i, r := range redirs {
		switch r.Kind {
		case shellcmd.RedirIn:
			cmd.Stdin = files[i]
		case shellcmd.RedirOut, shellcmd.RedirAppend:
			cmd.Stdout = files[i]
		}
	}
}

func closeAll(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
