package browser

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/types"
)

// newTestDriver creates a ChromeDPDriver with stub contexts suitable for testing.
// Quit() is safe to call (no-op cancel funcs).
func newTestDriver() *ChromeDPDriver {
	ctx, cancel := context.WithCancel(context.Background())
	return &ChromeDPDriver{
		ctx:         ctx,
		cancel:      cancel,
		allocCtx:    ctx,
		allocCancel: cancel,
		logger:      zap.NewNop(),
	}
}

func track(l *Launcher, d *ChromeDPDriver) *launchedDriver {
	ld := &launchedDriver{ChromeDPDriver: d, launcher: l}
	l.mu.Lock()
	l.active[ld] = struct{}{}
	l.launched++
	l.mu.Unlock()
	return ld
}

func TestLauncher_QuitReleasesOnce(t *testing.T) {
	l := NewLauncher(DefaultBrowserConfig(), zap.NewNop())
	ld := track(l, newTestDriver())

	require.NoError(t, ld.Quit())
	require.NoError(t, ld.Quit())

	active, launched, released := l.Stats()
	assert.Equal(t, 0, active)
	assert.Equal(t, 1, launched)
	assert.Equal(t, 1, released)
}

func TestLauncher_CloseQuitsActiveDrivers(t *testing.T) {
	l := NewLauncher(DefaultBrowserConfig(), zap.NewNop())
	drivers := []*launchedDriver{
		track(l, newTestDriver()),
		track(l, newTestDriver()),
	}

	require.NoError(t, l.Close())

	for _, d := range drivers {
		assert.Error(t, d.ChromeDPDriver.ctx.Err(), "driver context should be cancelled")
	}
	active, launched, released := l.Stats()
	assert.Equal(t, 0, active)
	assert.Equal(t, 2, launched)
	assert.Equal(t, 2, released)
}

func TestLauncher_NewDriverAfterClose(t *testing.T) {
	l := NewLauncher(DefaultBrowserConfig(), zap.NewNop())
	require.NoError(t, l.Close())

	_, err := l.NewDriver(context.Background(), types.SiteProfile{Name: types.ProfilePrimary})
	assert.Error(t, err)
}

// TestConcurrentQuitAndClose runs Quit and Close concurrently to verify no race/panic.
func TestConcurrentQuitAndClose(t *testing.T) {
	for iter := 0; iter < 50; iter++ {
		l := NewLauncher(DefaultBrowserConfig(), zap.NewNop())
		drivers := make([]*launchedDriver, 5)
		for i := range drivers {
			drivers[i] = track(l, newTestDriver())
		}

		var wg sync.WaitGroup
		for _, d := range drivers {
			wg.Add(1)
			go func(d *launchedDriver) {
				defer wg.Done()
				_ = d.Quit()
			}(d)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Close()
		}()
		wg.Wait()

		active, _, released := l.Stats()
		assert.Equal(t, 0, active)
		assert.Equal(t, 5, released)
	}
}

func TestChromeDPDriver_ClosedDriverReportsSessionLost(t *testing.T) {
	d := newTestDriver()
	require.NoError(t, d.Quit())

	_, err := d.CurrentURL(context.Background())
	assert.True(t, IsFatal(err))
}
