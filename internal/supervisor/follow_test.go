package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellrunner/shellrunner-server/internal/logstore"
)

func TestFollowOutputDeliversBacklogThenCompletes(t *testing.T) {
	s := testSupervisor(t)
	pid, err := s.Start(CreateParams{ShellCmd: "printf 'one\\ntwo\\n'", Description: "follow test"})
	require.NoError(t, err)
	waitTerminal(t, s, pid, 2*time.Second)

	var got []string
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = s.FollowOutput(ctx, pid, logstore.QueryOptions{Tail: 10}, false, func(e logstore.Entry) {
		got = append(got, e.Text)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestFollowOutputWithZeroTailSkipsBacklog(t *testing.T) {
	s := testSupervisor(t)
	pid, err := s.Start(CreateParams{ShellCmd: "printf 'one\\ntwo\\n'", Description: "follow test"})
	require.NoError(t, err)
	waitTerminal(t, s, pid, 2*time.Second)

	var got []string
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err = s.FollowOutput(ctx, pid, logstore.QueryOptions{}, false, func(e logstore.Entry) {
		got = append(got, e.Text)
	})
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestFollowOutputUnknownPidFails(t *testing.T) {
	s := testSupervisor(t)
	err := s.FollowOutput(context.Background(), 999999, logstore.QueryOptions{}, false, func(logstore.Entry) {})
	assert.Error(t, err)
}

func TestFollowOutputStopsOnContextCancel(t *testing.T) {
	s := testSupervisor(t)
	pid, err := s.Start(CreateParams{ShellCmd: "sleep 30", Description: "long runner"})
	require.NoError(t, err)
	defer s.Stop(pid, true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = s.FollowOutput(ctx, pid, logstore.QueryOptions{}, false, func(logstore.Entry) {})
	assert.NoError(t, err)
}
