package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersRun(t *testing.T) {
	root := NewRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "run")
}

func TestBuildCommandRequiresSomethingToRun(t *testing.T) {
	_, _, err := buildCommand(nil, "", "", "", nil, "")
	assert.Error(t, err)
}

func TestBuildCommandRejectsSpecWithPositionalArgs(t *testing.T) {
	_, _, err := buildCommand([]string{"/bin/true"}, "spec.yaml", "", "", nil, "")
	assert.Error(t, err)
}

func TestBuildCommandMalformedEnvPair(t *testing.T) {
	_, _, err := buildCommand([]string{"/bin/true"}, "", "", "", []string{"NOEQUALS"}, "")
	assert.Error(t, err)
}

func TestBuildCommandFromArgs(t *testing.T) {
	command, stdin, err := buildCommand([]string{"/bin/echo", "hello"}, "", "/tmp", "", []string{"A=1"}, "")
	require.NoError(t, err)
	assert.NotNil(t, command)
	assert.Nil(t, stdin)
}
