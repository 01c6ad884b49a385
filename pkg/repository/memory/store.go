// Package memory provides an in-process cards.Store with the same uniqueness
// and transactional behaviour as the Postgres store. Transactions are
// serialized and work on a copy of the data that replaces the committed state
// only when the callback succeeds.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/tendant/healthcard-slim/pkg/cards"
	"github.com/tendant/healthcard-slim/pkg/domain"
)

type state struct {
	users      map[uuid.UUID]domain.User
	households map[uuid.UUID]domain.Household
	members    map[uuid.UUID]domain.Member
	plans      map[uuid.UUID]domain.Plan
	cards      map[uuid.UUID]domain.Card
	audit      []domain.AuditLog
}

func newState() *state {
	return &state{
		users:      map[uuid.UUID]domain.User{},
		households: map[uuid.UUID]domain.Household{},
		members:    map[uuid.UUID]domain.Member{},
		plans:      map[uuid.UUID]domain.Plan{},
		cards:      map[uuid.UUID]domain.Card{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		users:      cloneMap(s.users),
		households: cloneMap(s.households),
		members:    cloneMap(s.members),
		plans:      cloneMap(s.plans),
		cards:      cloneMap(s.cards),
		audit:      slices.Clone(s.audit),
	}
}

// Store is an in-memory cards.Store.
type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]error
}

var _ cards.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newState(), faults: map[string]error{}}
}

// RunInTx runs fn against a private copy of the data and commits it if fn
// returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(tx cards.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return domain.StoreUnavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&tx{state: work, faults: s.faults}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domain.StoreUnavailable(err)
	}
	s.data = work
	return nil
}

// InjectFault makes every later call of the named Tx method fail with err.
// A nil err clears the fault.
func (s *Store) InjectFault(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

// AddUser seeds a user.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

// AddHousehold seeds a household.
func (s *Store) AddHousehold(h domain.Household) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.households[h.ID] = h
}

// AddMember seeds a member.
func (s *Store) AddMember(m domain.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.members[m.ID] = m
}

// AddPlan seeds a plan.
func (s *Store) AddPlan(p domain.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.plans[p.ID] = p
}

// AddCard seeds a card as-is, bypassing the engine.
func (s *Store) AddCard(c domain.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.cards[c.ID] = c
}

// Card returns the committed card with the given id.
func (s *Store) Card(id uuid.UUID) (domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.cards[id]
	return c, ok
}

// CardCount returns the number of committed cards.
func (s *Store) CardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.cards)
}

// AuditLogs returns the committed audit entries in insertion order.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data.audit)
}
