package stream_test

import (
	"errors"
	"testing"
	"time"

	"github.com/harperreed/brownnoise/internal/devicetest"
	"github.com/harperreed/brownnoise/pkg/audio"
	"github.com/harperreed/brownnoise/pkg/noise"
	"github.com/harperreed/brownnoise/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPullSchedulerFillsRequestedFrames(t *testing.T) {
	dev := devicetest.NewPullDevice(audio.Mono(44100))
	s := stream.NewPullScheduler(dev, noise.NewSeeded(1, 2), nil)
	require.NoError(t, s.Start())

	out := dev.Pull(audio.PullBufferSize)
	require.Len(t, out, audio.PullBufferSize)

	want := make([]float32, audio.PullBufferSize)
	noise.NewSeeded(1, 2).Fill(want)
	assert.Equal(t, want, out)

	st := s.Stats()
	assert.Equal(t, stream.ModePull, st.Mode)
	assert.Equal(t, int64(audio.PullBufferSize), st.SamplesGenerated)
	assert.Equal(t, int64(1), st.BuffersCompleted)
}

func TestPullSchedulerStaleCallbackIsSilent(t *testing.T) {
	dev := devicetest.NewPullDevice(audio.Mono(44100))
	s := stream.NewPullScheduler(dev, noise.NewSeeded(1, 2), nil)
	require.NoError(t, s.Start())

	process := dev.Processor()
	require.NotNil(t, process)
	require.NoError(t, s.Stop())

	out := []float32{1, 1, 1, 1}
	process(out)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
	assert.Nil(t, dev.Processor())
	assert.Equal(t, int64(0), s.Stats().SamplesGenerated)
}

func TestPullSchedulerStartFailure(t *testing.T) {
	dev := devicetest.NewPullDevice(audio.Mono(44100))
	dev.StartErr = errors.New("busy")
	s := stream.NewPullScheduler(dev, noise.NewSeeded(1, 2), nil)

	err := s.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, dev.StartErr)
	assert.Nil(t, dev.Processor())
}

func TestQueueSchedulerPrefillsBeforeStart(t *testing.T) {
	dev := devicetest.NewQueueDevice(audio.Mono(44100))
	s := stream.NewQueueScheduler(dev, noise.NewSeeded(1, 2), stream.QueueOptions{})
	require.NoError(t, s.Start())

	assert.Equal(t, []string{"enqueue", "enqueue", "enqueue", "start"}, dev.Calls())
	assert.Equal(t, 3, s.Depth())

	for _, buf := range dev.Queued() {
		assert.Equal(t, 88200, buf.Frames())
		assert.Equal(t, 2*time.Second, buf.Duration())
	}
}

func TestQueueSchedulerBuffersAreContiguous(t *testing.T) {
	dev := devicetest.NewQueueDevice(audio.Mono(100))
	s := stream.NewQueueScheduler(dev, noise.NewSeeded(5, 6), stream.QueueOptions{
		BufferDuration: 100 * time.Millisecond,
		MinQueued:      3,
	})
	require.NoError(t, s.Start())

	var got []float32
	for _, buf := range dev.Queued() {
		got = append(got, buf.Samples...)
	}

	want := make([]float32, 30)
	noise.NewSeeded(5, 6).Fill(want)
	assert.Equal(t, want, got)
}

func TestQueueSchedulerRestoresDepth(t *testing.T) {
	dev := devicetest.NewQueueDevice(audio.Mono(1000))
	s := stream.NewQueueScheduler(dev, noise.NewSeeded(1, 2), stream.QueueOptions{
		BufferDuration: 10 * time.Millisecond,
	})
	require.NoError(t, s.Start())

	for i := 0; i < 20; i++ {
		require.True(t, dev.Complete())
		assert.Equal(t, 3, s.Depth(), "after completion %d", i)
		assert.Equal(t, 3, dev.Depth())
	}

	st := s.Stats()
	assert.Equal(t, stream.ModePush, st.Mode)
	assert.Equal(t, int64(23), st.BuffersEnqueued)
	assert.Equal(t, int64(20), st.BuffersCompleted)
	assert.Equal(t, int64(23*10), st.SamplesGenerated)
}

func TestQueueSchedulerStopSuppressesRefill(t *testing.T) {
	dev := devicetest.NewQueueDevice(audio.Mono(1000))
	s := stream.NewQueueScheduler(dev, noise.NewSeeded(1, 2), stream.QueueOptions{
		BufferDuration: 10 * time.Millisecond,
	})
	require.NoError(t, s.Start())

	onEnded := dev.OnEnded()
	require.NotNil(t, onEnded)
	require.NoError(t, s.Stop())

	onEnded()
	assert.Equal(t, 3, dev.Enqueued())
	assert.Equal(t, 0, s.Depth())
	assert.Nil(t, dev.OnEnded())
}

func TestQueueSchedulerEnqueueFailure(t *testing.T) {
	dev := devicetest.NewQueueDevice(audio.Mono(1000))
	dev.EnqueueErr = errors.New("full")
	s := stream.NewQueueScheduler(dev, noise.NewSeeded(1, 2), stream.QueueOptions{})

	err := s.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, dev.EnqueueErr)
	assert.False(t, dev.Started())
}

type countingQueueDevice struct {
	*devicetest.QueueDevice
	underruns int
}

func (d *countingQueueDevice) Underruns() int { return d.underruns }

func TestQueueSchedulerReportsDeviceUnderruns(t *testing.T) {
	dev := &countingQueueDevice{QueueDevice: devicetest.NewQueueDevice(audio.Mono(1000))}
	s := stream.NewQueueScheduler(dev, noise.NewSeeded(1, 2), stream.QueueOptions{
		BufferDuration: 10 * time.Millisecond,
	})
	require.NoError(t, s.Start())
	assert.Equal(t, int64(0), s.Stats().Underruns)

	dev.underruns = 2
	assert.Equal(t, int64(2), s.Stats().Underruns)
}

func TestQueueSchedulerWithoutCounterReportsNoUnderruns(t *testing.T) {
	dev := devicetest.NewQueueDevice(audio.Mono(1000))
	s := stream.NewQueueScheduler(dev, noise.NewSeeded(1, 2), stream.QueueOptions{
		BufferDuration: 10 * time.Millisecond,
	})
	require.NoError(t, s.Start())
	assert.Equal(t, int64(0), s.Stats().Underruns)
}
