package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axe-engine/axe/pkg/types"
)

func TestRequestBreakGrantedTransitionsStatus(t *testing.T) {
	cfg := DefaultConfig
	cfg.BreakMaxConcurrentFraction = 1.0
	s, reg, _ := newTestSupervisor(t, cfg)
	agent := registerTestAgent(t, reg, "alice")
	ctx := context.Background()

	granted, err := s.RequestBreak(ctx, agent.AgentID, 10, "stretch")
	require.NoError(t, err)
	assert.True(t, granted)

	got, err := reg.Resolve(agent.AgentID.String())
	require.NoError(t, err)
	assert.Equal(t, types.AgentOnBreak, got.Status)
}

func TestRequestBreakDeniedOverMaxMinutes(t *testing.T) {
	cfg := DefaultConfig
	cfg.BreakMaxMinutes = 5
	s, reg, _ := newTestSupervisor(t, cfg)
	agent := registerTestAgent(t, reg, "bob")
	ctx := context.Background()

	granted, err := s.RequestBreak(ctx, agent.AgentID, 30, "nap")
	require.NoError(t, err)
	assert.False(t, granted)

	got, err := reg.Resolve(agent.AgentID.String())
	require.NoError(t, err)
	assert.Equal(t, types.AgentActive, got.Status)
}

func TestRequestBreakDeniedOverPerHourQuota(t *testing.T) {
	cfg := DefaultConfig
	cfg.BreakPerHour = 1
	cfg.BreakMaxConcurrentFraction = 1.0
	s, reg, _ := newTestSupervisor(t, cfg)
	agent := registerTestAgent(t, reg, "carol")
	ctx := context.Background()

	granted, err := s.RequestBreak(ctx, agent.AgentID, 5, "first")
	require.NoError(t, err)
	require.True(t, granted)

	require.NoError(t, reg.SetStatus(ctx, agent.AgentID, types.AgentActive, "back", nil))

	granted, err = s.RequestBreak(ctx, agent.AgentID, 5, "second")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestRequestBreakDeniedOverGlobalConcurrentFraction(t *testing.T) {
	cfg := DefaultConfig
	cfg.BreakMaxConcurrentFraction = 0.3
	cfg.BreakPerHour = 10
	s, reg, _ := newTestSupervisor(t, cfg)
	a1 := registerTestAgent(t, reg, "alice")
	a2 := registerTestAgent(t, reg, "bob")
	registerTestAgent(t, reg, "carol")
	registerTestAgent(t, reg, "dave")
	ctx := context.Background()

	// total=4, (0+1)/4=0.25 <= 0.3: granted.
	granted, err := s.RequestBreak(ctx, a1.AgentID, 5, "first")
	require.NoError(t, err)
	assert.True(t, granted)

	// total=4, (1+1)/4=0.5 > 0.3: denied.
	granted, err = s.RequestBreak(ctx, a2.AgentID, 5, "second")
	require.NoError(t, err)
	assert.False(t, granted)
}
