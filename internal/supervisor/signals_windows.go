//go:build windows

package supervisor

import (
	"os"
	"os/signal"

	"go.uber.org/zap"
)

// InstallSignalHandler is the Windows counterpart of the POSIX handler:
// os.Interrupt is the only portable signal Go exposes there, so there is
// no default disposition to re-raise afterward.
func (s *Supervisor) InstallSignalHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		s.log.Warn("received shutdown signal, terminating live processes")
		s.CleanupAll()
		os.Exit(1)
	}()
}
