package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/manifold/internal/domain"
	"github.com/davidbz/manifold/internal/provider/registry"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Complete(context.Context, *domain.CompletionRequest) (*domain.CompletionResult, error) {
	return nil, nil
}

func (s *stubProvider) Stream(context.Context, *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
	return nil, nil
}

func (s *stubProvider) Name() string            { return s.name }
func (s *stubProvider) SupportsStreaming() bool { return false }

func TestRegistry_RegisterAndGet(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	err := reg.Register(ctx, &stubProvider{name: "openai"})
	require.NoError(t, err)

	provider, err := reg.Get(ctx, "openai")
	require.NoError(t, err)
	require.Equal(t, "openai", provider.Name())
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	require.NoError(t, reg.Register(ctx, &stubProvider{name: "groq"}))

	err := reg.Register(ctx, &stubProvider{name: "groq"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already registered")
}

func TestRegistry_Register_Invalid(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	require.Error(t, reg.Register(ctx, nil))
	require.Error(t, reg.Register(ctx, &stubProvider{name: ""}))
}

func TestRegistry_Get_Unknown(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	provider, err := reg.Get(ctx, "acme")
	require.Error(t, err)
	require.Nil(t, provider)

	_, err = reg.Get(ctx, "")
	require.Error(t, err)
}

func TestRegistry_List(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	require.NoError(t, reg.Register(ctx, &stubProvider{name: "openai"}))
	require.NoError(t, reg.Register(ctx, &stubProvider{name: "anthropic"}))

	names, err := reg.List(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"openai", "anthropic"}, names)
}
