package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/config"
)

func TestRootCommand(t *testing.T) {
	root := newRootCommand()

	names := make([]string, 0)
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "detect", "migrate"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestDetectCommand_RequiresOneTarget(t *testing.T) {
	for _, args := range [][]string{{}, {"--group", "1", "--order", "2"}} {
		cmd := newDetectCommand()
		cmd.SetArgs(args)
		cmd.SilenceErrors = true
		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one of --group or --order")
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(&config.Config{LogLevel: "debug", PrettyLogs: true, AppName: "thistle-api"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger(&config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}
