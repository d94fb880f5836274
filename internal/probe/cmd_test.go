package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdProbe_PassesOnExpectedExitCodeAndOutput(t *testing.T) {
	p, err := NewCmdProbe(Descriptor{
		Name: "echo-check",
		Type: KindCmd,
		Mode: ModeStartOfTest,
		Properties: map[string]any{
			"command":         "echo ready",
			"output_contains": "ready",
		},
	})
	require.NoError(t, err)

	res := p.SafeExecute(t.Context())
	assert.True(t, res.Passed)
}

func TestCmdProbe_FailsOnNonZeroExit(t *testing.T) {
	p, err := NewCmdProbe(Descriptor{
		Name:       "fail-check",
		Type:       KindCmd,
		Mode:       ModeEndOfTest,
		Properties: map[string]any{"command": "exit 1"},
	})
	require.NoError(t, err)

	res := p.SafeExecute(t.Context())
	assert.False(t, res.Passed)
}

func TestCmdProbe_TimesOut(t *testing.T) {
	p, err := NewCmdProbe(Descriptor{
		Name: "slow-check",
		Type: KindCmd,
		Mode: ModeOnChaos,
		Properties: map[string]any{
			"command":         "sleep 5",
			"timeout_seconds": float64(0.1),
		},
	})
	require.NoError(t, err)

	res := p.SafeExecute(t.Context())
	assert.False(t, res.Passed)
	assert.Contains(t, res.Error, "timed out")
}

func TestNewCmdProbe_MissingCommandErrors(t *testing.T) {
	_, err := NewCmdProbe(Descriptor{Name: "bad", Properties: map[string]any{}})
	assert.Error(t, err)
}
