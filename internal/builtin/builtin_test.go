package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbenjam1n/validb/internal/datasource"
	"github.com/sbenjam1n/validb/internal/mapping"
	"github.com/sbenjam1n/validb/internal/registry"
	"github.com/sbenjam1n/validb/internal/rule"
	"github.com/sbenjam1n/validb/internal/vars"
)

func TestBuiltinCapabilities(t *testing.T) {
	r := New()

	_, err := registry.Load[rule.Rule](r, TemplateRule, map[string]any{
		"sql": "SELECT 1", "id": "{0}", "detection_type": "T", "msg": "m", "datasource": "d1", "level": 2,
	})
	require.NoError(t, err)

	_, err = registry.Load[datasource.DataSource](r, Postgres, map[string]any{"url": "postgres://localhost:5432/world"})
	require.NoError(t, err)
	_, err = registry.Load[datasource.Executor](r, SQL, map[string]any{"dsn": "postgres://localhost:5432/world"})
	require.NoError(t, err)
	_, err = registry.Load[datasource.DataSource](r, Redis, map[string]any{"url": "redis://localhost:6379/0"})
	require.NoError(t, err)

	_, err = registry.Load[vars.Extender](r, Today, map[string]any{"shift": -1})
	require.NoError(t, err)
	_, err = registry.Load[vars.Extender](r, Const, map[string]any{"values": map[string]any{"k": "v"}})
	require.NoError(t, err)

	_, err = registry.Load[mapping.OutputMapper](r, SimpleMapping, nil)
	require.NoError(t, err)
}

func TestBuiltinMismatches(t *testing.T) {
	r := New()

	_, err := registry.Load[datasource.Executor](r, Redis, map[string]any{"url": "redis://localhost:6379/0"})
	var mismatch *registry.CapabilityMismatchError
	assert.ErrorAs(t, err, &mismatch)

	_, err = registry.Load[rule.Rule](r, Today, nil)
	assert.ErrorAs(t, err, &mismatch)

	_, err = registry.Load[rule.Rule](r, DefaultLevel, nil)
	assert.ErrorIs(t, err, registry.ErrNotAClass)

	assert.Error(t, Register(r), "registering twice fails")
}
