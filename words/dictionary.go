package words

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/rewardflow/internal/ctxkeys"
	"github.com/BaSui01/rewardflow/internal/metrics"
	"github.com/BaSui01/rewardflow/internal/tlsutil"
)

// DefaultDictionaryURL is a public plain-text word list, one word per line.
const DefaultDictionaryURL = "http://svnweb.freebsd.org/csrg/share/dict/words?view=co"

// ListCache stores the downloaded word list between runs.
type ListCache interface {
	GetList(ctx context.Context, key string) ([]string, error)
	SetList(ctx context.Context, key string, values []string, ttl time.Duration) error
}

// DictionaryConfig controls download and filtering.
type DictionaryConfig struct {
	URL      string        `yaml:"url" json:"url"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	Suffix   string        `yaml:"suffix" json:"suffix"`
	Contains string        `yaml:"contains" json:"contains"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	// RetryAfter is how long a failed download is remembered.
	RetryAfter time.Duration `yaml:"retry_after" json:"retry_after"`
}

// Dictionary samples words without replacement from a downloaded list.
// The list is fetched once per process and shared by every session.
type Dictionary struct {
	config  DictionaryConfig
	client  *http.Client
	cache   ListCache
	logger  *zap.Logger
	metrics *metrics.Collector

	group    singleflight.Group
	mu       sync.Mutex
	loaded   []string
	failErr  error
	failedAt time.Time
	now      func() time.Time
	rng      *rand.Rand
}

// NewDictionary creates a dictionary source. client and cache may be nil.
func NewDictionary(config DictionaryConfig, client *http.Client, cache ListCache, logger *zap.Logger, collector *metrics.Collector) *Dictionary {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.URL == "" {
		config.URL = DefaultDictionaryURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryAfter <= 0 {
		config.RetryAfter = 10 * time.Minute
	}
	if client == nil {
		client = tlsutil.SecureHTTPClient(config.Timeout)
	}
	return &Dictionary{
		config:  config,
		client:  client,
		cache:   cache,
		logger:  logger.With(zap.String("component", "dictionary")),
		metrics: collector,
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Generate returns n distinct filtered words, or every match when n is at
// least the number of matches.
func (d *Dictionary) Generate(ctx context.Context, n int) ([]string, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	if n == 0 {
		return []string{}, nil
	}

	pool, err := d.words(ctx)
	if err != nil {
		return nil, err
	}
	pool = d.filter(pool)
	if len(pool) == 0 {
		return nil, ErrEmptyDictionary
	}
	if n >= len(pool) {
		return pool, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// 部分 Fisher-Yates，pool 已是副本
	for i := 0; i < n; i++ {
		j := i + d.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n], nil
}

func (d *Dictionary) filter(all []string) []string {
	out := make([]string, 0, len(all))
	for _, w := range all {
		if d.config.Prefix != "" && !strings.HasPrefix(w, d.config.Prefix) {
			continue
		}
		if d.config.Suffix != "" && !strings.HasSuffix(w, d.config.Suffix) {
			continue
		}
		if d.config.Contains != "" && !strings.Contains(w, d.config.Contains) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (d *Dictionary) cacheKey() string {
	return "dictionary:" + d.config.URL
}

// words loads the list from memory, then the shared cache, then the network.
// Concurrent first calls share one load. A failed load is returned as is
// until RetryAfter has passed.
func (d *Dictionary) words(ctx context.Context) ([]string, error) {
	if loaded, err := d.remembered(); loaded != nil || err != nil {
		return loaded, err
	}

	v, err, _ := d.group.Do("load", func() (any, error) {
		if loaded, err := d.remembered(); loaded != nil || err != nil {
			return loaded, err
		}
		list, err := d.load(ctx)
		if err != nil && ctx.Err() == nil {
			d.mu.Lock()
			d.failErr, d.failedAt = err, d.now()
			d.mu.Unlock()
			d.logger.Warn("dictionary unavailable, backing off",
				append(ctxkeys.Fields(ctx), zap.Duration("retry_after", d.config.RetryAfter), zap.Error(err))...)
		}
		return list, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (d *Dictionary) remembered() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded != nil {
		return d.loaded, nil
	}
	if d.failErr != nil && d.now().Sub(d.failedAt) < d.config.RetryAfter {
		return nil, fmt.Errorf("%w: %w", ErrDictionaryUnavailable, d.failErr)
	}
	return nil, nil
}

func (d *Dictionary) load(ctx context.Context) ([]string, error) {
	if d.cache != nil {
		cached, err := d.cache.GetList(ctx, d.cacheKey())
		if err == nil {
			d.metrics.RecordCacheHit("dictionary")
			d.store(cached)
			return cached, nil
		}
		d.metrics.RecordCacheMiss("dictionary")
		d.logger.Debug("dictionary cache miss", append(ctxkeys.Fields(ctx), zap.Error(err))...)
	}

	fetched, err := d.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		if err := d.cache.SetList(ctx, d.cacheKey(), fetched, d.config.CacheTTL); err != nil {
			d.logger.Warn("failed to cache dictionary", append(ctxkeys.Fields(ctx), zap.Error(err))...)
		}
	}
	d.store(fetched)
	return fetched, nil
}

func (d *Dictionary) store(list []string) {
	d.mu.Lock()
	d.loaded = list
	d.failErr = nil
	d.mu.Unlock()
}

func (d *Dictionary) fetch(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build dictionary request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download dictionary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("download dictionary: unexpected status %d", resp.StatusCode)
	}

	var list []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if w := strings.TrimSpace(scanner.Text()); w != "" {
			list = append(list, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	if len(list) == 0 {
		return nil, errors.New("download dictionary: empty response")
	}

	d.logger.Info("dictionary downloaded", append(ctxkeys.Fields(ctx), zap.Int("words", len(list)))...)
	return list, nil
}
