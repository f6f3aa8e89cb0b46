package stream_test

import (
	"errors"
	"testing"

	"github.com/harperreed/brownnoise/internal/devicetest"
	"github.com/harperreed/brownnoise/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterruptionMonitorInstallOnce(t *testing.T) {
	src := devicetest.NewInterruptionSource()
	m := stream.NewInterruptionMonitor(src, nil, nil)

	require.NoError(t, m.Install())
	require.NoError(t, m.Install())
	assert.Equal(t, 1, src.Subscribes())
	assert.True(t, m.Installed())
}

func TestInterruptionMonitorPhases(t *testing.T) {
	src := devicetest.NewInterruptionSource()
	var began int
	m := stream.NewInterruptionMonitor(src, func() { began++ }, nil)
	require.NoError(t, m.Install())

	src.Emit(stream.Interruption{Phase: stream.InterruptionBegan})
	src.Emit(stream.Interruption{Phase: stream.InterruptionEnded, ShouldResume: true})
	src.Emit(stream.Interruption{Phase: stream.InterruptionEnded})

	assert.Equal(t, 1, began)
}

func TestInterruptionMonitorCloseIdempotent(t *testing.T) {
	src := devicetest.NewInterruptionSource()
	var began int
	m := stream.NewInterruptionMonitor(src, func() { began++ }, nil)
	require.NoError(t, m.Install())

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 0, src.Subscribers())

	src.Emit(stream.Interruption{Phase: stream.InterruptionBegan})
	assert.Equal(t, 0, began)
}

func TestInterruptionMonitorCloseWithoutInstall(t *testing.T) {
	m := stream.NewInterruptionMonitor(devicetest.NewInterruptionSource(), nil, nil)
	assert.NoError(t, m.Close())
}

func TestInterruptionMonitorSubscribeError(t *testing.T) {
	src := devicetest.NewInterruptionSource()
	src.SubscribeErr = errors.New("no bus")
	m := stream.NewInterruptionMonitor(src, nil, nil)

	err := m.Install()
	require.Error(t, err)
	assert.ErrorIs(t, err, src.SubscribeErr)
	assert.False(t, m.Installed())
}

func TestInterruptionPhaseString(t *testing.T) {
	assert.Equal(t, "began", stream.InterruptionBegan.String())
	assert.Equal(t, "ended", stream.InterruptionEnded.String())
	assert.Equal(t, "InterruptionPhase(7)", stream.InterruptionPhase(7).String())
}
