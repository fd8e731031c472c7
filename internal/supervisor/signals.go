//go:build !windows

package supervisor

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// InstallSignalHandler arranges for SIGINT/SIGTERM delivered to the
// supervisor's own process to force-terminate every live child before the
// process exits, so a killed supervisor never orphans running shells.
// The signal is re-raised with its default disposition afterward so the
// caller's own shutdown sequence (or the Go runtime's default handling)
// still takes effect.
func (s *Supervisor) InstallSignalHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-ch
		s.log.Warn("received shutdown signal, terminating live processes", zap.String("signal", sig.String()))
		s.CleanupAll()
		signal.Stop(ch)
		_ = syscall.Kill(os.Getpid(), sig.(syscall.Signal))
	}()
}
