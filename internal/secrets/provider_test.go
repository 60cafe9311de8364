package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVault map[string]string

func (f fakeVault) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := f[name]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceVault, ResolveSource(SourceVault, "development"))
}

func TestProvider_GetSecretOrEnv(t *testing.T) {
	ctx := context.Background()
	env := map[string]string{"JWT_SECRET": "from-env"}

	p := NewProviderWithGetter(SourceVault, fakeVault{"jwt-secret": "from-vault", "openai-api-key": "sk"}, "production", zap.NewNop())
	p.lookupEnv = func(k string) string { return env[k] }

	t.Run("env override wins", func(t *testing.T) {
		v, err := p.GetSecretOrEnv(ctx, "jwt-secret", "JWT_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "from-env", v)
	})

	t.Run("falls back to vault", func(t *testing.T) {
		v, err := p.GetSecretOrEnv(ctx, "openai-api-key", "OPENAI_API_KEY")
		require.NoError(t, err)
		assert.Equal(t, "sk", v)
	})

	t.Run("default when missing", func(t *testing.T) {
		v := p.GetSecretOrEnvWithDefault(ctx, "missing", "MISSING", "fallback")
		assert.Equal(t, "fallback", v)
	})
}

func TestProvider_EnvironmentSource(t *testing.T) {
	p := NewProviderWithGetter(SourceEnvironment, nil, "development", zap.NewNop())
	p.lookupEnv = func(string) string { return "" }

	_, err := p.GetSecret(context.Background(), "SERVICE_API_KEY")
	assert.Error(t, err)
	assert.False(t, p.IsVaultEnabled())
}
