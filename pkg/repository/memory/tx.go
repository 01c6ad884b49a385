package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

type tx struct {
	state  *state
	faults map[string]error
}

func (t *tx) fault(method string) error {
	return t.faults[method]
}

func (t *tx) GetHousehold(_ context.Context, id uuid.UUID) (*domain.Household, error) {
	if err := t.fault("GetHousehold"); err != nil {
		return nil, err
	}
	h, ok := t.state.households[id]
	if !ok {
		return nil, domain.ErrHouseholdNotFound
	}
	return &h, nil
}

func (t *tx) GetMember(_ context.Context, id uuid.UUID) (*domain.Member, error) {
	if err := t.fault("GetMember"); err != nil {
		return nil, err
	}
	m, ok := t.state.members[id]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return &m, nil
}

func (t *tx) ListMembersByHousehold(_ context.Context, householdID uuid.UUID) ([]domain.Member, error) {
	if err := t.fault("ListMembersByHousehold"); err != nil {
		return nil, err
	}
	return t.membersOf(householdID), nil
}

func (t *tx) membersOf(householdID uuid.UUID) []domain.Member {
	out := []domain.Member{}
	for _, m := range t.state.members {
		if m.HouseholdID == householdID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b domain.Member) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

func (t *tx) GetPlan(_ context.Context, id uuid.UUID) (*domain.Plan, error) {
	if err := t.fault("GetPlan"); err != nil {
		return nil, err
	}
	p, ok := t.state.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return &p, nil
}

func (t *tx) GetCard(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	if err := t.fault("GetCard"); err != nil {
		return nil, err
	}
	c, ok := t.state.cards[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return &c, nil
}

// GetCardForUpdate needs no row lock: transactions are already serialized.
func (t *tx) GetCardForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	if err := t.fault("GetCardForUpdate"); err != nil {
		return nil, err
	}
	return t.GetCard(ctx, id)
}

func (t *tx) GetCardByHousehold(_ context.Context, householdID uuid.UUID) (*domain.Card, error) {
	if err := t.fault("GetCardByHousehold"); err != nil {
		return nil, err
	}
	for _, c := range t.state.cards {
		if c.HouseholdID == householdID {
			return &c, nil
		}
	}
	return nil, domain.ErrNoCardForHousehold
}

func (t *tx) ListCards(_ context.Context, filter domain.CardFilter) ([]domain.CardDetails, error) {
	if err := t.fault("ListCards"); err != nil {
		return nil, err
	}

	matched := make([]domain.Card, 0, len(t.state.cards))
	for _, c := range t.state.cards {
		if filter.HouseholdID != nil && c.HouseholdID != *filter.HouseholdID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		matched = append(matched, c)
	}
	slices.SortFunc(matched, func(a, b domain.Card) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]domain.CardDetails, 0, len(matched))
	for _, c := range matched {
		out = append(out, domain.CardDetails{
			Card: c,
			Household: domain.HouseholdWithMembers{
				Household: t.state.households[c.HouseholdID],
				Members:   t.membersOf(c.HouseholdID),
			},
			Plan:      t.state.plans[c.PlanID],
			CreatedBy: t.userSummary(c.CreatedByID),
			UpdatedBy: t.userSummary(c.UpdatedByID),
		})
	}
	return out, nil
}

func (t *tx) userSummary(id uuid.UUID) domain.UserSummary {
	u, ok := t.state.users[id]
	if !ok {
		return domain.UserSummary{ID: id}
	}
	return u.Summary()
}

func (t *tx) InsertCard(_ context.Context, card *domain.Card) error {
	if err := t.fault("InsertCard"); err != nil {
		return err
	}
	if err := t.knownUser(card.CreatedByID, card.UpdatedByID); err != nil {
		return err
	}
	if _, ok := t.state.households[card.HouseholdID]; !ok {
		return domain.ErrHouseholdNotFound
	}
	if _, ok := t.state.plans[card.PlanID]; !ok {
		return domain.ErrPlanNotFound
	}
	for _, c := range t.state.cards {
		if c.HouseholdID == card.HouseholdID {
			return domain.ErrHouseholdAlreadyCarded
		}
	}
	t.state.cards[card.ID] = *card
	return nil
}

func (t *tx) UpdateCard(_ context.Context, card *domain.Card) error {
	if err := t.fault("UpdateCard"); err != nil {
		return err
	}
	if err := t.knownUser(card.UpdatedByID); err != nil {
		return err
	}
	if _, ok := t.state.cards[card.ID]; !ok {
		return domain.ErrCardNotFound
	}
	if _, ok := t.state.plans[card.PlanID]; !ok {
		return domain.ErrPlanNotFound
	}
	t.state.cards[card.ID] = *card
	return nil
}

func (t *tx) DeleteCard(_ context.Context, id uuid.UUID) error {
	if err := t.fault("DeleteCard"); err != nil {
		return err
	}
	if _, ok := t.state.cards[id]; !ok {
		return domain.ErrCardNotFound
	}
	delete(t.state.cards, id)
	return nil
}

func (t *tx) InsertAuditLog(_ context.Context, entry *domain.AuditLog) error {
	if err := t.fault("InsertAuditLog"); err != nil {
		return err
	}
	if err := t.knownUser(entry.UserID); err != nil {
		return err
	}
	t.state.audit = append(t.state.audit, *entry)
	return nil
}

// knownUser mirrors the users(id) foreign keys on cards and audit_logs.
func (t *tx) knownUser(ids ...uuid.UUID) error {
	for _, id := range ids {
		if _, ok := t.state.users[id]; !ok {
			return domain.ErrUnauthenticated
		}
	}
	return nil
}
