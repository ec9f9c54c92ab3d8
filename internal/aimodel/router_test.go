package aimodel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jyra/internal/apperrors"
)

type scriptedProvider struct {
	name  string
	calls int
	errs  []error
	text  string
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, role RoleContext, history []Turn, memoryContext string, opts Options) (string, error) {
	idx := p.calls
	p.calls++
	if idx < len(p.errs) && p.errs[idx] != nil {
		return "", p.errs[idx]
	}
	return p.text, nil
}
func (p *scriptedProvider) Capabilities() Capabilities { return Capabilities{Name: p.name, Provider: p.name} }
func (p *scriptedProvider) Available(ctx context.Context) bool { return true }

func newTestCache(t *testing.T) *ResponseCache {
	t.Helper()
	c, err := NewResponseCache(t.TempDir(), time.Hour, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestModelRouter_ReturnsPrimaryOnSuccess(t *testing.T) {
	primary := &scriptedProvider{name: "primary", text: "hi there"}
	r := NewModelRouter(zap.NewNop(), newTestCache(t), primary)

	text, name, err := r.Generate(context.Background(), "hello", RoleContext{}, nil, "", Options{}, true)
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
	assert.Equal(t, "primary", name)
}

func TestModelRouter_FallsBackOnRateLimitError(t *testing.T) {
	primary := &scriptedProvider{name: "primary", errs: []error{apperrors.New(apperrors.KindRateLimit, "rate limited")}}
	secondary := &scriptedProvider{name: "secondary", text: "fallback response"}
	r := NewModelRouter(zap.NewNop(), newTestCache(t), primary, secondary)

	text, name, err := r.Generate(context.Background(), "hello", RoleContext{}, nil, "", Options{}, true)
	require.NoError(t, err)
	assert.Equal(t, "fallback response", text)
	assert.Equal(t, "secondary", name)
}

func TestModelRouter_DoesNotFallBackWhenDisabled(t *testing.T) {
	primary := &scriptedProvider{name: "primary", errs: []error{apperrors.New(apperrors.KindRateLimit, "rate limited")}}
	secondary := &scriptedProvider{name: "secondary", text: "fallback response"}
	r := NewModelRouter(zap.NewNop(), newTestCache(t), primary, secondary)

	_, _, err := r.Generate(context.Background(), "hello", RoleContext{}, nil, "", Options{}, false)
	assert.Error(t, err)
}

func TestModelRouter_DoesNotFallBackOnNonFallbackKind(t *testing.T) {
	primary := &scriptedProvider{name: "primary", errs: []error{apperrors.New(apperrors.KindValidation, "bad input")}}
	secondary := &scriptedProvider{name: "secondary", text: "fallback response"}
	r := NewModelRouter(zap.NewNop(), newTestCache(t), primary, secondary)

	_, name, err := r.Generate(context.Background(), "hello", RoleContext{}, nil, "", Options{}, true)
	assert.Error(t, err)
	assert.Equal(t, "primary", name)
}

func TestModelRouter_ReturnsLastErrorWhenAllProvidersFail(t *testing.T) {
	primary := &scriptedProvider{name: "primary", errs: []error{apperrors.New(apperrors.KindAuth, "bad key")}}
	secondary := &scriptedProvider{name: "secondary", errs: []error{apperrors.New(apperrors.KindProviderError, "down")}}
	r := NewModelRouter(zap.NewNop(), newTestCache(t), primary, secondary)

	_, _, err := r.Generate(context.Background(), "hello", RoleContext{}, nil, "", Options{}, true)
	assert.Error(t, err)
}

func TestModelRouter_CacheableResponseIsReusedWithoutCallingProviderAgain(t *testing.T) {
	primary := &scriptedProvider{name: "primary", text: "cached answer"}
	r := NewModelRouter(zap.NewNop(), newTestCache(t), primary)
	opts := Options{Temperature: 0.7}

	_, _, err := r.Generate(context.Background(), "hello", RoleContext{}, nil, "", opts, true)
	require.NoError(t, err)
	_, _, err = r.Generate(context.Background(), "hello", RoleContext{}, nil, "", opts, true)
	require.NoError(t, err)

	assert.Equal(t, 1, primary.calls)
}

func TestModelRouter_NonCacheableTemperatureAlwaysCallsProvider(t *testing.T) {
	primary := &scriptedProvider{name: "primary", text: "uncached"}
	r := NewModelRouter(zap.NewNop(), newTestCache(t), primary)
	opts := Options{Temperature: 0.2}

	_, _, err := r.Generate(context.Background(), "hello", RoleContext{}, nil, "", opts, true)
	require.NoError(t, err)
	_, _, err = r.Generate(context.Background(), "hello", RoleContext{}, nil, "", opts, true)
	require.NoError(t, err)

	assert.Equal(t, 2, primary.calls)
}
