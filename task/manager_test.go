package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/testutil"
	"github.com/BaSui01/rewardflow/testutil/mocks"
	"github.com/BaSui01/rewardflow/types"
)

func newManager(cfg ManagerConfig, factory DriverFactory) *Manager {
	if cfg.Task.Quota.WorkUnitSize == 0 {
		cfg.Task = fastOptions(3)
	}
	return NewManager(cfg, Deps{Factory: factory, Words: wordList(), Logger: zap.NewNop()})
}

// emptySite 没有任何页面元素，任务会很快以未收敛结束
func emptySite(types.SiteProfile) *mocks.FakeDriver {
	return mocks.NewFakeDriver("about:blank")
}

func TestManager_Lifecycle(t *testing.T) {
	m := newManager(ManagerConfig{}, mocks.NewFakeFactory(emptySite))

	assert.Equal(t, 1.0, m.CompletedFraction(), "empty pool counts as complete")
	assert.ErrorIs(t, m.Wait(), ErrPoolNotStarted)

	tasks, err := m.Submit(testutil.Credentials(2), mocks.MobileProfile())
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Equal(t, 0.0, m.CompletedFraction())

	require.NoError(t, m.Start(context.Background()))
	assert.ErrorIs(t, m.Start(context.Background()), ErrPoolStarted)
	_, err = m.Submit(testutil.Credentials(1), mocks.MobileProfile())
	assert.ErrorIs(t, err, ErrPoolStarted)

	require.NoError(t, m.Wait())
	assert.Equal(t, 1.0, m.CompletedFraction())
	for _, res := range m.Results() {
		assert.NotEqual(t, OutcomePending, res.Outcome)
	}
}

func TestManager_EmptyPool(t *testing.T) {
	m := newManager(ManagerConfig{}, mocks.NewFakeFactory(emptySite))
	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, 1.0, m.CompletedFraction())
	assert.Empty(t, m.Results())
}

func TestManager_SubmitRejectsInvalidOptions(t *testing.T) {
	m := NewManager(ManagerConfig{Task: fastOptions(0)}, Deps{Factory: mocks.NewFakeFactory(nil), Words: wordList()})
	_, err := m.Submit(testutil.Credentials(1), mocks.DesktopProfile())
	assert.Error(t, err)
	assert.Empty(t, m.Tasks())
}

func TestManager_CompletedFractionIsMonotonic(t *testing.T) {
	gates := []chan struct{}{make(chan struct{}), make(chan struct{}), make(chan struct{})}
	var next atomic.Int32
	factory := mocks.NewFakeFactory(func(p types.SiteProfile) *mocks.FakeDriver {
		<-gates[next.Add(1)-1]
		return emptySite(p)
	})
	m := newManager(ManagerConfig{}, factory)
	_, err := m.Submit(testutil.Credentials(3), mocks.MobileProfile())
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		samples []float64
	)
	stop := make(chan struct{})
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		for {
			f := m.CompletedFraction()
			mu.Lock()
			samples = append(samples, f)
			mu.Unlock()
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
			}
		}
	}()

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, 0.0, m.CompletedFraction())

	close(gates[0])
	testutil.AssertEventuallyTrue(t, func() bool {
		return m.CompletedFraction() == 1.0/3
	}, 5*time.Second)

	close(gates[1])
	close(gates[2])
	require.NoError(t, m.Wait())
	close(stop)
	<-sampled

	assert.Equal(t, 1.0, m.CompletedFraction())
	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i], samples[i-1], "fraction decreased at sample %d", i)
	}
}

func TestManager_MaxConcurrent(t *testing.T) {
	var active, peak atomic.Int32
	factory := mocks.NewFakeFactory(func(p types.SiteProfile) *mocks.FakeDriver {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		d := emptySite(p)
		d.OnQuit = func() { active.Add(-1) }
		return d
	})

	m := newManager(ManagerConfig{MaxConcurrent: 2}, factory)
	_, err := m.Submit(testutil.Credentials(6), mocks.MobileProfile())
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background()))

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int64(6), factory.Opened())
	assert.Equal(t, int64(6), factory.Closed())
	assert.Zero(t, active.Load())
}

func TestManager_LaunchInterval(t *testing.T) {
	m := newManager(ManagerConfig{LaunchInterval: 30 * time.Millisecond}, mocks.NewFakeFactory(emptySite))
	_, err := m.Submit(testutil.Credentials(3), mocks.MobileProfile())
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, m.Run(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestManager_CancelledTasksStillFinish(t *testing.T) {
	ctx := testutil.CancelledContext()

	factory := mocks.NewFakeFactory(emptySite)
	m := newManager(ManagerConfig{LaunchInterval: time.Hour}, factory)
	_, err := m.Submit(testutil.Credentials(3), mocks.MobileProfile())
	require.NoError(t, err)
	require.NoError(t, m.Run(ctx))

	assert.Equal(t, 1.0, m.CompletedFraction())
	for _, tk := range m.Tasks() {
		assert.True(t, tk.Done())
		assert.Equal(t, OutcomeCancelled, tk.Result().Outcome)
	}
	assert.Equal(t, factory.Opened(), factory.Closed())
}
