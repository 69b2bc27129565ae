// Package agentregistry is the runtime source of truth for agent identity
// and ephemeral state. It loads agents from the Store at session start,
// holds the working set in an RWMutex-guarded map, and mirrors every
// mutation back to the Store.
package agentregistry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/internal/store"
	"github.com/axe-engine/axe/pkg/types"
)

// ErrDuplicateAlias is returned by Register when alias is already held by a
// non-retired agent in the session.
var ErrDuplicateAlias = errors.New("agentregistry: alias already registered")

// ErrNotFound is returned by Resolve when no agent matches.
var ErrNotFound = errors.New("agentregistry: agent not found")

// Registry holds the in-memory mirror of Agent rows for a session.
type Registry struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*types.Agent
	byAlias map[string]*types.Agent

	store *store.Store
	bus   *eventbus.Bus
	log   zerolog.Logger
}

// New constructs an empty Registry. Use LoadFromStore to populate it from
// durable state at session start.
func New(st *store.Store, bus *eventbus.Bus, log zerolog.Logger) *Registry {
	return &Registry{
		byID:    make(map[uuid.UUID]*types.Agent),
		byAlias: make(map[string]*types.Agent),
		store:   st,
		bus:     bus,
		log:     log.With().Str("component", "agentregistry").Logger(),
	}
}

// LoadFromStore populates the registry from every non-retired agent row.
func (r *Registry) LoadFromStore(ctx context.Context) error {
	agents, err := r.store.ListAgents(ctx, store.AgentFilter{})
	if err != nil {
		return fmt.Errorf("agentregistry: load from store: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range agents {
		if a.Status == types.AgentRetired {
			continue
		}
		r.byID[a.AgentID] = a
		r.byAlias[a.Alias] = a
	}
	return nil
}

// Register creates a new active agent, rejecting a duplicate alias among
// non-retired agents.
func (r *Registry) Register(ctx context.Context, alias, role, modelRef string) (*types.Agent, error) {
	r.mu.Lock()
	if existing, ok := r.byAlias[alias]; ok && existing.Status != types.AgentRetired {
		r.mu.Unlock()
		return nil, ErrDuplicateAlias
	}

	now := time.Now().UTC()
	agent := &types.Agent{
		AgentID:   uuid.New(),
		Alias:     alias,
		Role:      role,
		ModelRef:  modelRef,
		XP:        0,
		Level:     types.Level(0),
		Status:    types.AgentActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byID[agent.AgentID] = agent
	r.byAlias[agent.Alias] = agent
	r.mu.Unlock()

	if err := r.store.SaveAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("agentregistry: persist new agent %s: %w", alias, err)
	}
	if r.bus != nil {
		r.bus.Publish(eventbus.Event{Type: eventbus.AgentRegistered, Data: agent.Alias})
	}
	return agent, nil
}

// Resolve looks up an agent by alias or agent_id string.
func (r *Registry) Resolve(aliasOrID string) (*types.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.byAlias[aliasOrID]; ok {
		return a, nil
	}
	if id, err := uuid.Parse(aliasOrID); err == nil {
		if a, ok := r.byID[id]; ok {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

// SetStatus transitions an agent's status. Only the Supervisor calls
// this; the registry itself does not enforce that boundary — the
// construction order keeps Supervisor the only holder of a Registry
// reference capable of mutation-granting callers.
func (r *Registry) SetStatus(ctx context.Context, id uuid.UUID, newStatus types.AgentStatus, reason string, expiresAt *time.Time) error {
	r.mu.Lock()
	agent, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	agent.Status = newStatus
	agent.SleepExpiresAt = expiresAt
	agent.UpdatedAt = time.Now().UTC()
	r.mu.Unlock()

	if err := r.store.SaveAgent(ctx, agent); err != nil {
		return fmt.Errorf("agentregistry: persist status change for %s: %w", agent.Alias, err)
	}
	if r.bus != nil {
		r.bus.Publish(eventbus.Event{Type: eventbus.AgentStatusChanged, Data: map[string]any{
			"alias": agent.Alias, "status": string(newStatus), "reason": reason,
		}})
	}
	return nil
}

// AwardXP adjusts an agent's XP by delta (which may be negative) and
// recomputes level from the curve. Alongside the updated agent row, the
// effective delta is appended to the Store's xp_events history — effective,
// not requested, so the persisted deltas always sum to the stored total
// even when a penalty clamps at zero.
func (r *Registry) AwardXP(ctx context.Context, id uuid.UUID, delta int64, reason string) error {
	r.mu.Lock()
	agent, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	before := agent.XP
	agent.XP += delta
	if agent.XP < 0 {
		agent.XP = 0
	}
	effective := agent.XP - before
	agent.Level = types.Level(agent.XP)
	agent.UpdatedAt = time.Now().UTC()
	r.mu.Unlock()

	if err := r.store.SaveAgent(ctx, agent); err != nil {
		return fmt.Errorf("agentregistry: persist xp award for %s: %w", agent.Alias, err)
	}
	if err := r.store.RecordXPEvent(ctx, agent.AgentID.String(), effective, reason); err != nil {
		return fmt.Errorf("agentregistry: persist xp event for %s: %w", agent.Alias, err)
	}
	if r.bus != nil {
		r.bus.Publish(eventbus.Event{Type: eventbus.AgentXPAwarded, Data: map[string]any{
			"alias": agent.Alias, "delta": delta, "reason": reason,
		}})
	}
	return nil
}

// ListActive returns every agent whose status is active, sorted by alias.
func (r *Registry) ListActive() []*types.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*types.Agent
	for _, a := range r.byID {
		if a.Status == types.AgentActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// ListAll returns every known agent, including retired ones.
func (r *Registry) ListAll() []*types.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.Agent, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out
}

// WakeExpiredSleepers transitions any sleeping/on_break agent whose
// SleepExpiresAt has passed back to active, zeroing the timer. Called by the
// Supervisor's periodic tick.
func (r *Registry) WakeExpiredSleepers(ctx context.Context, now time.Time) ([]*types.Agent, error) {
	r.mu.Lock()
	var toWake []*types.Agent
	for _, a := range r.byID {
		if (a.Status == types.AgentSleeping || a.Status == types.AgentOnBreak) &&
			a.SleepExpiresAt != nil && !now.Before(*a.SleepExpiresAt) {
			a.Status = types.AgentActive
			a.SleepExpiresAt = nil
			a.UpdatedAt = now
			toWake = append(toWake, a)
		}
	}
	r.mu.Unlock()

	for _, a := range toWake {
		if err := r.store.SaveAgent(ctx, a); err != nil {
			return nil, fmt.Errorf("agentregistry: persist wake for %s: %w", a.Alias, err)
		}
		if r.bus != nil {
			r.bus.Publish(eventbus.Event{Type: eventbus.AgentWoke, Data: a.Alias})
		}
	}
	return toWake, nil
}
