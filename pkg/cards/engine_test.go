package cards_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/healthcard-slim/internal/metrics"
	"github.com/tendant/healthcard-slim/pkg/cards"
	"github.com/tendant/healthcard-slim/pkg/domain"
	"github.com/tendant/healthcard-slim/pkg/policy"
	"github.com/tendant/healthcard-slim/pkg/repository/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fixture struct {
	store     *memory.Store
	clock     *fakeClock
	admin     *domain.Actor
	agent     *domain.Actor
	hospital  *domain.Actor
	household domain.Household
	member    domain.Member
	plan30    domain.Plan
	plan60    domain.Plan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.NewStore(),
		clock:    &fakeClock{now: date(2024, 1, 1)},
		admin:    &domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin},
		agent:    &domain.Actor{ID: uuid.New(), Role: domain.RoleOfficeAgent},
		hospital: &domain.Actor{ID: uuid.New(), Role: domain.RoleHospitalUser},
	}
	for _, a := range []*domain.Actor{f.admin, f.agent, f.hospital} {
		f.store.AddUser(domain.User{ID: a.ID, Name: string(a.Role), Email: a.ID.String() + "@example.com", Role: a.Role})
	}

	f.household = domain.Household{ID: uuid.New(), HeadName: "Maria Lopez", Address: "12 Elm St", Phone: "555-0100"}
	f.store.AddHousehold(f.household)

	f.member = domain.Member{
		ID:          uuid.New(),
		HouseholdID: f.household.ID,
		FirstName:   "Maria",
		LastName:    "Lopez",
		DOB:         date(1980, 5, 4),
		Relation:    domain.RelationHead,
	}
	f.store.AddMember(f.member)

	f.plan30 = domain.Plan{ID: uuid.New(), Name: "Basic", DurationDays: 30}
	f.plan60 = domain.Plan{ID: uuid.New(), Name: "Family", DurationDays: 60}
	f.store.AddPlan(f.plan30)
	f.store.AddPlan(f.plan60)
	return f
}

func (f *fixture) engine(opts cards.Options) *cards.Engine {
	opts.Clock = f.clock.Now
	return cards.NewEngine(f.store, opts)
}

func (f *fixture) issue(t *testing.T, e *cards.Engine) *domain.Card {
	t.Helper()
	card, err := e.Create(context.Background(), f.agent, cards.CreateInput{
		HouseholdID: f.household.ID,
		PlanID:      f.plan30.ID,
	})
	require.NoError(t, err)
	return card
}

func TestEngine_CreateComputesExpiryFromPlan(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})

	card := f.issue(t, e)

	assert.Equal(t, domain.CardStatusActive, card.Status)
	assert.Equal(t, date(2024, 1, 1), card.IssueDate)
	assert.Equal(t, date(2024, 1, 31), card.ExpiryDate)
	assert.Equal(t, f.agent.ID, card.CreatedByID)
	assert.Equal(t, f.agent.ID, card.UpdatedByID)

	logs := f.store.AuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, domain.AuditCardCreated, logs[0].Action)
	assert.Equal(t, f.agent.ID, logs[0].UserID)
	require.NotNil(t, logs[0].CardID)
	assert.Equal(t, card.ID, *logs[0].CardID)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(logs[0].Metadata, &meta))
	assert.Equal(t, "ACTIVE", meta["status"])
	assert.Equal(t, f.household.ID.String(), meta["householdId"])
	assert.Equal(t, f.plan30.ID.String(), meta["planId"])
}

func TestEngine_CreateWithExplicitStatus(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})

	card, err := e.Create(context.Background(), f.admin, cards.CreateInput{
		HouseholdID: f.household.ID,
		PlanID:      f.plan30.ID,
		Status:      domain.CardStatusSuspended,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusSuspended, card.Status)
}

func TestEngine_CreateSecondCardConflicts(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	f.issue(t, e)

	_, err := e.Create(context.Background(), f.admin, cards.CreateInput{
		HouseholdID: f.household.ID,
		PlanID:      f.plan60.ID,
	})
	require.ErrorIs(t, err, domain.ErrHouseholdAlreadyCarded)
	assert.True(t, domain.HasCode(err, domain.CodeConflict))
	assert.Len(t, f.store.AuditLogs(), 1)
	assert.Equal(t, 1, f.store.CardCount())
}

func TestEngine_CreateByRemovedUserIsUnauthenticated(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	ghost := &domain.Actor{ID: uuid.New(), Role: domain.RoleOfficeAgent}

	_, err := e.Create(context.Background(), ghost, cards.CreateInput{
		HouseholdID: f.household.ID,
		PlanID:      f.plan30.ID,
	})
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, 0, f.store.CardCount())
	assert.Empty(t, f.store.AuditLogs())
}

func TestEngine_CreateValidation(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	ctx := context.Background()

	tests := []struct {
		name  string
		actor *domain.Actor
		in    cards.CreateInput
		want  error
	}{
		{
			name:  "no actor",
			actor: nil,
			in:    cards.CreateInput{HouseholdID: f.household.ID, PlanID: f.plan30.ID},
			want:  domain.ErrUnauthenticated,
		},
		{
			name:  "hospital user",
			actor: f.hospital,
			in:    cards.CreateInput{HouseholdID: f.household.ID, PlanID: f.plan30.ID},
			want:  domain.ErrForbidden,
		},
		{
			name:  "unknown household",
			actor: f.agent,
			in:    cards.CreateInput{HouseholdID: uuid.New(), PlanID: f.plan30.ID},
			want:  domain.ErrHouseholdNotFound,
		},
		{
			name:  "unknown plan",
			actor: f.agent,
			in:    cards.CreateInput{HouseholdID: f.household.ID, PlanID: uuid.New()},
			want:  domain.ErrPlanNotFound,
		},
		{
			name:  "bad status",
			actor: f.agent,
			in:    cards.CreateInput{HouseholdID: f.household.ID, PlanID: f.plan30.ID, Status: "LOST"},
			want:  domain.ErrInvalidCardStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Create(ctx, tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.store.AuditLogs())
	assert.Zero(t, f.store.CardCount())
}

func TestEngine_ConcurrentCreateYieldsOneCard(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})

	const n = 16
	results := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, results[i] = e.Create(context.Background(), f.agent, cards.CreateInput{
				HouseholdID: f.household.ID,
				PlanID:      f.plan30.ID,
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var ok, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case domain.HasCode(err, domain.CodeConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, f.store.CardCount())
	assert.Len(t, f.store.AuditLogs(), 1)
}

func TestEngine_UpdatePlanRestartsCoverage(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	card := f.issue(t, e)

	f.clock.now = date(2024, 2, 1)
	updated, err := e.Update(context.Background(), f.admin, card.ID, cards.UpdateInput{PlanID: &f.plan60.ID})
	require.NoError(t, err)

	assert.Equal(t, f.plan60.ID, updated.PlanID)
	assert.Equal(t, date(2024, 4, 1), updated.ExpiryDate)
	assert.Equal(t, card.IssueDate, updated.IssueDate)
	assert.Equal(t, f.admin.ID, updated.UpdatedByID)
	assert.Equal(t, f.agent.ID, updated.CreatedByID)

	stored, ok := f.store.Card(card.ID)
	require.True(t, ok)
	assert.Equal(t, date(2024, 4, 1), stored.ExpiryDate)

	logs := f.store.AuditLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, domain.AuditCardUpdated, logs[1].Action)

	var meta struct {
		PreviousExpiryDate time.Time `json:"previousExpiryDate"`
		NewExpiryDate      time.Time `json:"newExpiryDate"`
		PreviousPlanID     uuid.UUID `json:"previousPlanId"`
		NewPlanID          uuid.UUID `json:"newPlanId"`
	}
	require.NoError(t, json.Unmarshal(logs[1].Metadata, &meta))
	assert.True(t, meta.PreviousExpiryDate.Equal(date(2024, 1, 31)))
	assert.True(t, meta.NewExpiryDate.Equal(date(2024, 4, 1)))
	assert.Equal(t, f.plan30.ID, meta.PreviousPlanID)
	assert.Equal(t, f.plan60.ID, meta.NewPlanID)
}

func TestEngine_UpdateSamePlanKeepsExpiry(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	card := f.issue(t, e)

	f.clock.now = date(2024, 1, 15)
	updated, err := e.Update(context.Background(), f.agent, card.ID, cards.UpdateInput{PlanID: &f.plan30.ID})
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 31), updated.ExpiryDate)
}

func TestEngine_UpdateStatusPermissive(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	card := f.issue(t, e)

	cancelled := domain.CardStatusCancelled
	_, err := e.Update(context.Background(), f.agent, card.ID, cards.UpdateInput{Status: &cancelled})
	require.NoError(t, err)

	active := domain.CardStatusActive
	updated, err := e.Update(context.Background(), f.agent, card.ID, cards.UpdateInput{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusActive, updated.Status)
	assert.Len(t, f.store.AuditLogs(), 3)
}

func TestEngine_UpdateStatusStrict(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{Transitions: policy.TransitionsStrict})
	card := f.issue(t, e)
	ctx := context.Background()

	cancelled := domain.CardStatusCancelled
	_, err := e.Update(ctx, f.agent, card.ID, cards.UpdateInput{Status: &cancelled})
	require.NoError(t, err)

	active := domain.CardStatusActive
	_, err = e.Update(ctx, f.agent, card.ID, cards.UpdateInput{Status: &active})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeConflict))

	stored, _ := f.store.Card(card.ID)
	assert.Equal(t, domain.CardStatusCancelled, stored.Status)
	assert.Len(t, f.store.AuditLogs(), 2)

	// Same-status updates are always accepted.
	_, err = e.Update(ctx, f.agent, card.ID, cards.UpdateInput{Status: &cancelled})
	assert.NoError(t, err)
}

func TestEngine_UpdateErrors(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	card := f.issue(t, e)
	ctx := context.Background()

	missing := uuid.New()
	bad := domain.CardStatus("LOST")

	_, err := e.Update(ctx, f.agent, uuid.New(), cards.UpdateInput{})
	assert.ErrorIs(t, err, domain.ErrCardNotFound)

	_, err = e.Update(ctx, f.agent, card.ID, cards.UpdateInput{PlanID: &missing})
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)

	_, err = e.Update(ctx, f.agent, card.ID, cards.UpdateInput{Status: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidCardStatus)

	_, err = e.Update(ctx, f.hospital, card.ID, cards.UpdateInput{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.Len(t, f.store.AuditLogs(), 1)
}

func TestEngine_DeleteRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	card := f.issue(t, e)

	err := e.Delete(context.Background(), f.agent, card.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, ok := f.store.Card(card.ID)
	assert.True(t, ok)
	assert.Len(t, f.store.AuditLogs(), 1)
}

func TestEngine_DeleteWritesAuditEntry(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	card := f.issue(t, e)

	require.NoError(t, e.Delete(context.Background(), f.admin, card.ID))

	_, ok := f.store.Card(card.ID)
	assert.False(t, ok)

	logs := f.store.AuditLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, domain.AuditCardDeleted, logs[1].Action)
	require.NotNil(t, logs[1].CardID)
	assert.Equal(t, card.ID, *logs[1].CardID)

	err := e.Delete(context.Background(), f.admin, card.ID)
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
}

func TestEngine_AuditFailureRollsBackMutation(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.ErrorLevel)
	e := f.engine(cards.Options{Logger: zap.New(core)})
	ctx := context.Background()

	boom := errors.New("disk full")
	f.store.InjectFault("InsertAuditLog", boom)

	_, err := e.Create(ctx, f.agent, cards.CreateInput{HouseholdID: f.household.ID, PlanID: f.plan30.ID})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, domain.CodeInternal, domain.CodeOf(err))
	assert.Zero(t, f.store.CardCount())
	assert.Empty(t, f.store.AuditLogs())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "create", logs.All()[0].ContextMap()["operation"])

	f.store.InjectFault("InsertAuditLog", nil)
	card := f.issue(t, e)

	f.store.InjectFault("InsertAuditLog", boom)
	suspended := domain.CardStatusSuspended
	_, err = e.Update(ctx, f.agent, card.ID, cards.UpdateInput{Status: &suspended})
	require.ErrorIs(t, err, boom)
	stored, _ := f.store.Card(card.ID)
	assert.Equal(t, domain.CardStatusActive, stored.Status)

	err = e.Delete(ctx, f.admin, card.ID)
	require.ErrorIs(t, err, boom)
	_, ok := f.store.Card(card.ID)
	assert.True(t, ok)
	assert.Len(t, f.store.AuditLogs(), 1)
}

func TestEngine_DeleteFailureDiscardsAuditEntry(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	card := f.issue(t, e)

	f.store.InjectFault("DeleteCard", domain.ErrStoreUnavailable)
	err := e.Delete(context.Background(), f.admin, card.ID)
	require.Error(t, err)
	assert.Equal(t, domain.CodeUnavailable, domain.CodeOf(err))
	assert.Len(t, f.store.AuditLogs(), 1)
}

func TestEngine_List(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	first := f.issue(t, e)

	other := domain.Household{ID: uuid.New(), HeadName: "Sam Park"}
	f.store.AddHousehold(other)
	f.clock.now = date(2024, 1, 2)
	second, err := e.Create(context.Background(), f.admin, cards.CreateInput{HouseholdID: other.ID, PlanID: f.plan60.ID})
	require.NoError(t, err)

	list, err := e.List(context.Background(), f.agent, domain.CardFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "Maria Lopez", list[1].Household.HeadName)
	require.Len(t, list[1].Household.Members, 1)
	assert.Equal(t, f.plan30.Name, list[1].Plan.Name)
	assert.Equal(t, f.agent.ID, list[1].CreatedBy.ID)
	assert.Equal(t, f.admin.ID, list[0].UpdatedBy.ID)

	list, err = e.List(context.Background(), f.agent, domain.CardFilter{HouseholdID: &other.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	list, err = e.List(context.Background(), f.agent, domain.CardFilter{Status: domain.CardStatusSuspended})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	_, err = e.List(context.Background(), f.hospital, domain.CardFilter{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, cards.DefaultListLimit, cards.NormalizeLimit(0))
	assert.Equal(t, cards.DefaultListLimit, cards.NormalizeLimit(-3))
	assert.Equal(t, 10, cards.NormalizeLimit(10))
	assert.Equal(t, cards.MaxListLimit, cards.NormalizeLimit(10_000))
}

func TestEngine_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	m := metrics.New(prometheus.NewRegistry())
	e := f.engine(cards.Options{Metrics: m})

	f.issue(t, e)
	_, err := e.Create(context.Background(), f.agent, cards.CreateInput{HouseholdID: f.household.ID, PlanID: f.plan30.ID})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CardMutations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CardMutations.WithLabelValues("create", string(domain.CodeConflict))))
}

func TestEngine_Get(t *testing.T) {
	f := newFixture(t)
	e := f.engine(cards.Options{})
	card := f.issue(t, e)

	got, err := e.Get(context.Background(), f.admin, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)
	assert.Equal(t, f.household.ID, got.Household.ID)
	assert.Equal(t, f.plan30.ID, got.Plan.ID)

	_, err = e.Get(context.Background(), f.admin, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCardNotFound)

	_, err = e.Get(context.Background(), f.hospital, card.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
