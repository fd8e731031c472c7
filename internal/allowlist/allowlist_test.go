package allowlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shellrunner/shellrunner-server/internal/shellerr"
)

func TestValidateCommandAllowed(t *testing.T) {
	l := New([]string{"echo", "ls"})
	assert.NoError(t, l.ValidateCommand([]string{"echo", "hi"}))
}

func TestValidateCommandRejectsUnlisted(t *testing.T) {
	l := New([]string{"echo"})
	err := l.ValidateCommand([]string{"rm", "-rf", "/"})
	assert.True(t, shellerr.Is(err, shellerr.KindCommandValidation))
}

func TestValidateCommandRejectsEmpty(t *testing.T) {
	l := New([]string{"echo"})
	err := l.ValidateCommand(nil)
	assert.True(t, shellerr.Is(err, shellerr.KindEmptyCommand))
}

func TestValidateCommandStripsPathAndPrefix(t *testing.T) {
	l := New([]string{"echo"})
	assert.NoError(t, l.ValidateCommand([]string{"./echo", "hi"}))
	assert.NoError(t, l.ValidateCommand([]string{"/usr/bin/echo", "hi"}))
}

func TestValidateNoShellOperatorsRejectsForbidden(t *testing.T) {
	l := New([]string{"echo"})
	for _, op := range []string{";", "&&", "||", "`", "$("} {
		err := l.ValidateNoShellOperators(op)
		assert.True(t, shellerr.Is(err, shellerr.KindCommandValidation), "operator %q should be rejected", op)
	}
	assert.NoError(t, l.ValidateNoShellOperators("echo"))
}

func TestValidatePipelineAllSegmentsAllowed(t *testing.T) {
	l := New([]string{"cat", "grep"})
	err := l.ValidatePipeline([]string{"cat", "file.txt", "|", "grep", "foo"})
	assert.NoError(t, err)
}

func TestValidatePipelineRejectsDisallowedSegment(t *testing.T) {
	l := New([]string{"cat"})
	err := l.ValidatePipeline([]string{"cat", "file.txt", "|", "rm", "-rf", "/"})
	assert.True(t, shellerr.Is(err, shellerr.KindCommandValidation))
}

func TestValidatePipelineRejectsLeadingOrTrailingPipe(t *testing.T) {
	l := New([]string{"cat"})
	assert.True(t, shellerr.Is(l.ValidatePipeline([]string{"|", "cat"}), shellerr.KindCommandValidation))
	assert.True(t, shellerr.Is(l.ValidatePipeline([]string{"cat", "|"}), shellerr.KindCommandValidation))
}

func TestValidatePipelineRejectsEmptySegment(t *testing.T) {
	l := New([]string{"cat"})
	err := l.ValidatePipeline([]string{"cat", "|", "|", "cat"})
	assert.True(t, shellerr.Is(err, shellerr.KindCommandValidation))
}

func TestValidatePipelineRejectsEmptyArgv(t *testing.T) {
	l := New([]string{"cat"})
	err := l.ValidatePipeline(nil)
	assert.True(t, shellerr.Is(err, shellerr.KindEmptyCommand))
}

func TestEmptyListDeniesEverything(t *testing.T) {
	l := New(nil)
	err := l.ValidateCommand([]string{"echo", "hi"})
	assert.True(t, shellerr.Is(err, shellerr.KindCommandValidation))
}
