package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "batch", "export", "purge"} {
		assert.True(t, names[want], want)
	}
}

func TestRunRequiresUser(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"run", "s1"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"user"`)
}

func TestRunRequiresSessionID(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"run", "--user", "u1"})

	assert.Error(t, root.Execute())
}

func TestBatchRejectsNonPositiveParallel(t *testing.T) {
	for _, p := range []string{"0", "-1"} {
		t.Run(p, func(t *testing.T) {
			root := newRootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs([]string{"batch", "--file", "missing.xlsx", "--parallel=" + p})

			err := root.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "--parallel must be at least 1")
		})
	}
}
