//go:build !windows

package supervisor

import (
	"bufio"
	"os"
	"os/user"
	"strings"

	"github.com/shellrunner/shellrunner-server/internal/env"
)

// controllingShell resolves the POSIX controlling shell: the user's login
// shell, then $SHELL, then /bin/sh, invoked with -i -c (spec.md §E.2).
func controllingShell(cfg *env.Config) (shell string, args []string) {
	if sh := loginShell(); sh != "" {
		return sh, []string{"-i", "-c"}
	}
	if cfg.Shell != "" {
		return cfg.Shell, []string{"-i", "-c"}
	}
	return "/bin/sh", []string{"-i", "-c"}
}

// loginShell reads the current user's shell from /etc/passwd, mirroring
// what getpwnam(3) would return. Returns "" if it cannot be determined.
func loginShell() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	f, err := os.Open("/etc/passwd")
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), ":")
		// name:passwd:uid:gid:gecos:home:shell
		if len(fields) == 7 && fields[0] == u.Username {
			return fields[6]
		}
	}
	return ""
}
