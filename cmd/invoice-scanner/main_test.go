package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFatal, exitCode(common.NewConfigError("missing INPUT_DIR")))
	assert.Equal(t, exitFatal, exitCode(common.NewEnumerationError("read in", errors.New("denied"))))
	assert.Equal(t, exitLedger, exitCode(common.NewLedgerError("save", errors.New("disk full"))))
	assert.Equal(t, exitLedger, exitCode(fmt.Errorf("run: %w", common.NewLedgerError("save", errors.New("x")))))
	assert.Equal(t, exitFatal, exitCode(context.Canceled))
}

func TestSetupLogger(t *testing.T) {
	logFormat, logLevel = "json", "debug"
	assert.NoError(t, setupLogger())
	logFormat, logLevel = "text", "info"
	assert.NoError(t, setupLogger())

	logLevel = "loud"
	err := setupLogger()
	assert.True(t, errors.Is(err, common.ErrConfiguration))
	logLevel = "info"
}
