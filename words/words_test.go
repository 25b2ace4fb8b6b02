package words

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/BaSui01/rewardflow/internal/cache"
	"github.com/BaSui01/rewardflow/internal/ctxkeys"
)

func newWordServer(t *testing.T, body string) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestDictionary_SamplesWithoutReplacement(t *testing.T) {
	srv, hits := newWordServer(t, "apple\nbanana\ncherry\ndate\nelder\nfig\n")
	d := NewDictionary(DictionaryConfig{URL: srv.URL}, srv.Client(), nil, zap.NewNop(), nil)

	got, err := d.Generate(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	seen := make(map[string]bool)
	for _, w := range got {
		assert.False(t, seen[w], "duplicate word %q", w)
		seen[w] = true
	}

	_, err = d.Generate(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits), "list should be downloaded once")
}

func TestDictionary_ReturnsAllWhenAskingForMore(t *testing.T) {
	srv, _ := newWordServer(t, "one\ntwo\nthree\n")
	d := NewDictionary(DictionaryConfig{URL: srv.URL}, srv.Client(), nil, nil, nil)

	got, err := d.Generate(context.Background(), 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one", "two", "three"}, got)
}

func TestDictionary_Filters(t *testing.T) {
	srv, _ := newWordServer(t, "reading\nreader\nbread\nredo\nthread\n")
	d := NewDictionary(DictionaryConfig{URL: srv.URL, Prefix: "re", Suffix: "ing", Contains: "ad"}, srv.Client(), nil, nil, nil)

	got, err := d.Generate(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"reading"}, got)

	empty := NewDictionary(DictionaryConfig{URL: srv.URL, Prefix: "zz"}, srv.Client(), nil, nil, nil)
	_, err = empty.Generate(context.Background(), 1)
	assert.ErrorIs(t, err, ErrEmptyDictionary)
}

func TestDictionary_ZeroAndNegative(t *testing.T) {
	d := NewDictionary(DictionaryConfig{URL: "http://127.0.0.1:1/never"}, nil, nil, nil, nil)

	got, err := d.Generate(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = d.Generate(context.Background(), -1)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestDictionary_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	d := NewDictionary(DictionaryConfig{URL: srv.URL}, srv.Client(), nil, nil, nil)
	_, err := d.Generate(context.Background(), 3)
	assert.Error(t, err)
}

func TestDictionary_RemembersFailedDownload(t *testing.T) {
	var hits, healthy int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if atomic.LoadInt64(&healthy) == 0 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "alpha\nbeta\n")
	}))
	defer srv.Close()

	now := time.Unix(1_700_000_000, 0)
	d := NewDictionary(DictionaryConfig{URL: srv.URL, RetryAfter: time.Minute}, srv.Client(), nil, nil, nil)
	d.now = func() time.Time { return now }

	_, err := d.Generate(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDictionaryUnavailable)

	for i := 0; i < 3; i++ {
		_, err = d.Generate(context.Background(), 1)
		assert.ErrorIs(t, err, ErrDictionaryUnavailable)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits), "failure is served from memory while backing off")

	atomic.StoreInt64(&healthy, 1)
	now = now.Add(2 * time.Minute)
	got, err := d.Generate(context.Background(), 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, got)
	assert.Equal(t, int64(2), atomic.LoadInt64(&hits))
}

func TestDictionary_CancelledLoadIsNotRemembered(t *testing.T) {
	srv, hits := newWordServer(t, "alpha\n")
	d := NewDictionary(DictionaryConfig{URL: srv.URL}, srv.Client(), nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Generate(ctx, 1)
	require.Error(t, err)

	got, err := d.Generate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, got)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
}

func TestDictionary_UsesSharedCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	manager, err := cache.NewManager(cache.Config{Addr: mr.Addr(), KeyPrefix: "t:"}, zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	srv, hits := newWordServer(t, "alpha\nbeta\ngamma\n")
	cfg := DictionaryConfig{URL: srv.URL, CacheTTL: time.Hour}

	first := NewDictionary(cfg, srv.Client(), manager, nil, nil)
	_, err = first.Generate(context.Background(), 2)
	require.NoError(t, err)

	// 新实例应从 Redis 读取，不再下载
	second := NewDictionary(cfg, srv.Client(), manager, nil, nil)
	got, err := second.Generate(context.Background(), 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta", "gamma"}, got)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
}

func TestDictionary_ConcurrentFirstLoadDownloadsOnce(t *testing.T) {
	release := make(chan struct{})
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		<-release
		fmt.Fprint(w, strings.Repeat("word\n", 3))
	}))
	defer srv.Close()

	d := NewDictionary(DictionaryConfig{URL: srv.URL}, srv.Client(), nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Generate(context.Background(), 1)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestRandom_Bounds(t *testing.T) {
	_, err := NewRandom(0, 5)
	assert.ErrorIs(t, err, ErrInvalidBounds)
	_, err = NewRandom(6, 5)
	assert.ErrorIs(t, err, ErrInvalidBounds)

	rapid.Check(t, func(t *rapid.T) {
		minLen := rapid.IntRange(1, 8).Draw(t, "min")
		maxLen := rapid.IntRange(minLen, 12).Draw(t, "max")
		n := rapid.IntRange(0, 20).Draw(t, "n")

		r, err := NewRandom(minLen, maxLen)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := r.Generate(context.Background(), n)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != n {
			t.Fatalf("want %d words, got %d", n, len(got))
		}
		for _, w := range got {
			if len(w) < minLen || len(w) > maxLen {
				t.Fatalf("word %q outside [%d,%d]", w, minLen, maxLen)
			}
			if strings.Trim(w, alphabet) != "" {
				t.Fatalf("word %q has non-letters", w)
			}
		}
	})
}

func TestFallback(t *testing.T) {
	failing := GeneratorFunc(func(ctx context.Context, n int) ([]string, error) {
		return nil, errors.New("offline")
	})
	fixed := GeneratorFunc(func(ctx context.Context, n int) ([]string, error) {
		return []string{"backup"}, nil
	})

	f := NewFallback(failing, fixed, zap.NewNop())
	got, err := f.Generate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"backup"}, got)

	got, err = f.Generate(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NewFallback(failing, nil, nil).Generate(context.Background(), 2)
	assert.Error(t, err)
}

func TestFallback_CancelledContextSkipsBackup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var backupCalls int
	primary := GeneratorFunc(func(ctx context.Context, n int) ([]string, error) { return nil, ctx.Err() })
	backup := GeneratorFunc(func(ctx context.Context, n int) ([]string, error) {
		backupCalls++
		return []string{"x"}, nil
	})

	_, err := NewFallback(primary, backup, nil).Generate(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, backupCalls)
}

func TestFallback_LogsTaskContext(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	failing := GeneratorFunc(func(ctx context.Context, n int) ([]string, error) {
		return nil, errors.New("offline")
	})
	fixed := GeneratorFunc(func(ctx context.Context, n int) ([]string, error) {
		return []string{"backup"}, nil
	})

	ctx := ctxkeys.WithTaskID(context.Background(), "task-1")
	ctx = ctxkeys.WithAccount(ctx, "so***@example.com")
	_, err := NewFallback(failing, fixed, zap.New(core)).Generate(ctx, 1)
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "task-1", fields["task_id"])
	assert.Equal(t, "so***@example.com", fields["account"])
	assert.NotContains(t, fields, "profile")
}
