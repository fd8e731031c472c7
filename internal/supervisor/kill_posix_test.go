//go:build !windows

package supervisor

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgroupKillerTerminateStopsProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	applyProcessIsolation(cmd)
	require.NoError(t, cmd.Start())

	k := newPgroupKiller(cmd)
	require.NoError(t, k.terminate())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = k.kill()
		<-done
		t.Fatal("process did not exit after terminate()")
	}
}

func TestPgroupKillerKillStopsProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	applyProcessIsolation(cmd)
	require.NoError(t, cmd.Start())

	k := newPgroupKiller(cmd)
	require.NoError(t, k.kill())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("process did not exit after kill()")
	}
}
