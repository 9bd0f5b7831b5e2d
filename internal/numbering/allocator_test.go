package numbering

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestion-service/internal/apperr"
	"gestion-service/internal/model"
)

// memStore implements Store in memory with the same atomicity contract the
// SQL store provides through row-locked updates.
type memStore struct {
	mu      sync.Mutex
	configs map[uint]*model.NumberingConfig
}

func newMemStore(cfgs ...*model.NumberingConfig) *memStore {
	s := &memStore{configs: make(map[uint]*model.NumberingConfig)}
	for _, c := range cfgs {
		s.configs[c.ID] = c
	}
	return s
}

func (s *memStore) ConfigsFor(_ context.Context, tenantID uint, documentType string) ([]model.NumberingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.NumberingConfig
	for _, c := range s.configs {
		if c.TenantID == tenantID && c.DocumentType == documentType {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memStore) ReserveOrdinal(_ context.Context, configID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[configID]
	if !ok {
		return 0, apperr.ErrNotFound
	}
	if c.NextValue > c.RangeEnd {
		return 0, apperr.Wrap(apperr.ErrExhausted, "numbering %q has no ordinals left", c.Code)
	}
	ordinal := c.NextValue
	c.NextValue++
	return ordinal, nil
}

func (s *memStore) SwitchDefault(_ context.Context, tenantID uint, documentType string, configID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.configs[configID]
	if !ok || target.TenantID != tenantID || target.DocumentType != documentType {
		return apperr.ErrNotFound
	}
	for _, c := range s.configs {
		if c.TenantID == tenantID && c.DocumentType == documentType {
			c.IsDefault = c.ID == configID
		}
	}
	return nil
}

func invoiceConfig(id uint, start, end, next int64) *model.NumberingConfig {
	return &model.NumberingConfig{
		ID:           id,
		TenantID:     7,
		DocumentType: "Invoice",
		Code:         "FV-2026",
		Title:        "Electronic invoice",
		Prefix:       "FV",
		Separator:    "-",
		Width:        4,
		IsDefault:    true,
		RangeStart:   start,
		RangeEnd:     end,
		NextValue:    next,
	}
}

func TestReserveNextSequential(t *testing.T) {
	ctx := context.Background()
	alloc := NewAllocator(newMemStore(invoiceConfig(1, 1, 3, 1)))

	for want := int64(1); want <= 3; want++ {
		got, err := alloc.ReserveNext(ctx, 7, "Invoice")
		require.NoError(t, err)
		assert.Equal(t, want, got.Ordinal)
	}

	_, err := alloc.ReserveNext(ctx, 7, "Invoice")
	assert.ErrorIs(t, err, apperr.ErrExhausted)
}

func TestReserveNextFormatting(t *testing.T) {
	ctx := context.Background()
	alloc := NewAllocator(newMemStore(invoiceConfig(1, 980, 1200, 980)))

	got, err := alloc.ReserveNext(ctx, 7, "Invoice")
	require.NoError(t, err)
	assert.Equal(t, "FV-0980", got.Number)

	cfg := &model.NumberingConfig{Prefix: "NC", Separator: "", Width: 0}
	assert.Equal(t, "NC15", FormatNumber(cfg, 15))
}

func TestReserveNextExhaustionBoundary(t *testing.T) {
	ctx := context.Background()
	// cursor already at the last ordinal: exactly one success left
	alloc := NewAllocator(newMemStore(invoiceConfig(1, 1, 100, 100)))

	got, err := alloc.ReserveNext(ctx, 7, "Invoice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Ordinal)

	for i := 0; i < 3; i++ {
		_, err = alloc.ReserveNext(ctx, 7, "Invoice")
		assert.ErrorIs(t, err, apperr.ErrExhausted)
	}
}

func TestReserveNextConcurrentNoDuplicates(t *testing.T) {
	ctx := context.Background()
	const n = 64
	alloc := NewAllocator(newMemStore(invoiceConfig(1, 1, n, 1)))

	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := alloc.ReserveNext(ctx, 7, "Invoice")
			if err == nil {
				results <- got.Ordinal
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for ordinal := range results {
		require.False(t, seen[ordinal], "ordinal %d allocated twice", ordinal)
		require.GreaterOrEqual(t, ordinal, int64(1))
		require.LessOrEqual(t, ordinal, int64(n))
		seen[ordinal] = true
	}
	assert.Len(t, seen, n)
}

func TestReserveNextExpiry(t *testing.T) {
	ctx := context.Background()
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cfg := invoiceConfig(1, 1, 100, 1)
	cfg.IssuedAt = &issued
	cfg.ExpiresAt = &expires
	alloc := NewAllocator(newMemStore(cfg))

	// inside the window
	alloc.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	_, err := alloc.ReserveNext(ctx, 7, "Invoice")
	require.NoError(t, err)

	// before issue
	alloc.now = func() time.Time { return time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC) }
	_, err = alloc.ReserveNext(ctx, 7, "Invoice")
	assert.ErrorIs(t, err, apperr.ErrExpired)

	// the window is half-open: the expiry instant itself is rejected
	alloc.now = func() time.Time { return expires }
	_, err = alloc.ReserveNext(ctx, 7, "Invoice")
	assert.ErrorIs(t, err, apperr.ErrExpired)
}

func TestReserveNextNoWindowWhenPartial(t *testing.T) {
	ctx := context.Background()
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// only one bound set: no window check applies
	cfg := invoiceConfig(1, 1, 100, 1)
	cfg.IssuedAt = &issued
	alloc := NewAllocator(newMemStore(cfg))
	alloc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	_, err := alloc.ReserveNext(ctx, 7, "Invoice")
	assert.NoError(t, err)
}

func TestReserveNextResolution(t *testing.T) {
	ctx := context.Background()

	// no config at all
	alloc := NewAllocator(newMemStore())
	_, err := alloc.ReserveNext(ctx, 7, "Invoice")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	// several configs, one default: the default wins
	a := invoiceConfig(1, 1, 100, 1)
	a.IsDefault = false
	b := invoiceConfig(2, 500, 600, 500)
	alloc = NewAllocator(newMemStore(a, b))
	got, err := alloc.ReserveNext(ctx, 7, "Invoice")
	require.NoError(t, err)
	assert.Equal(t, uint(2), got.ConfigID)

	// several configs, no default
	c := invoiceConfig(3, 1, 100, 1)
	c.IsDefault = false
	d := invoiceConfig(4, 500, 600, 500)
	d.IsDefault = false
	alloc = NewAllocator(newMemStore(c, d))
	_, err = alloc.ReserveNext(ctx, 7, "Invoice")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	// several defaults persisted: defensively rejected
	e := invoiceConfig(5, 1, 100, 1)
	f := invoiceConfig(6, 500, 600, 500)
	alloc = NewAllocator(newMemStore(e, f))
	_, err = alloc.ReserveNext(ctx, 7, "Invoice")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestSetDefaultSingleWinner(t *testing.T) {
	ctx := context.Background()
	a := invoiceConfig(1, 1, 100, 1)
	b := invoiceConfig(2, 500, 600, 500)
	b.IsDefault = false
	c := invoiceConfig(3, 700, 800, 700)
	c.IsDefault = false
	store := newMemStore(a, b, c)
	alloc := NewAllocator(store)

	require.NoError(t, alloc.SetDefault(ctx, 7, "Invoice", 2))

	defaults := 0
	for _, cfg := range store.configs {
		if cfg.IsDefault {
			defaults++
			assert.Equal(t, uint(2), cfg.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestSetDefaultConcurrent(t *testing.T) {
	ctx := context.Background()
	cfgs := []*model.NumberingConfig{}
	for id := uint(1); id <= 4; id++ {
		c := invoiceConfig(id, 1, 100, 1)
		c.IsDefault = id == 1
		cfgs = append(cfgs, c)
	}
	store := newMemStore(cfgs...)
	alloc := NewAllocator(store)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		id := uint(i%4) + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, alloc.SetDefault(ctx, 7, "Invoice", id))
		}()
	}
	wg.Wait()

	// whatever interleaving happened, exactly one default survives
	defaults := 0
	for _, cfg := range store.configs {
		if cfg.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestSetDefaultUnknownConfig(t *testing.T) {
	ctx := context.Background()
	alloc := NewAllocator(newMemStore(invoiceConfig(1, 1, 100, 1)))

	assert.ErrorIs(t, alloc.SetDefault(ctx, 7, "Invoice", 99), apperr.ErrNotFound)
	// config of another document type is not reachable either
	assert.ErrorIs(t, alloc.SetDefault(ctx, 7, "Credit Note", 1), apperr.ErrNotFound)
}

func TestValidateConfig(t *testing.T) {
	ok := invoiceConfig(1, 1, 100, 1)
	assert.NoError(t, ValidateConfig(ok))

	// next_value may sit one past the end: the exhausted marker
	exhausted := invoiceConfig(1, 1, 100, 101)
	assert.NoError(t, ValidateConfig(exhausted))

	tooFar := invoiceConfig(1, 1, 100, 102)
	assert.Error(t, ValidateConfig(tooFar))

	below := invoiceConfig(1, 10, 100, 9)
	assert.Error(t, ValidateConfig(below))

	inverted := invoiceConfig(1, 100, 1, 100)
	assert.Error(t, ValidateConfig(inverted))
}
