package supervisor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/axe-engine/axe/internal/agentregistry"
	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/internal/store"
	"github.com/axe-engine/axe/internal/transcript"
	"github.com/axe-engine/axe/pkg/types"
)

func newTestSupervisor(t *testing.T, cfg Config) (*Supervisor, *agentregistry.Registry, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "axe.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	bus := eventbus.New()
	t.Cleanup(func() { bus.Close() })

	reg := agentregistry.New(st, bus, zerolog.Nop())
	tr := transcript.New("sess1", st, zerolog.Nop())

	s := New(cfg, reg, tr, bus, zerolog.Nop())
	return s, reg, st
}

func registerTestAgent(t *testing.T, reg *agentregistry.Registry, alias string) *types.Agent {
	t.Helper()
	a, err := reg.Register(context.Background(), alias, "worker", "model-x")
	require.NoError(t, err)
	return a
}
