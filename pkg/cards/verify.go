package cards

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/healthcard-slim/internal/metrics"
	"github.com/tendant/healthcard-slim/pkg/domain"
	"github.com/tendant/healthcard-slim/pkg/policy"
)

// VerifyQuery selects the household to verify. When both ids are set the
// member id wins.
type VerifyQuery struct {
	HouseholdID uuid.UUID
	MemberID    uuid.UUID
}

// VerificationResult is the eligibility answer returned to hospital staff.
type VerificationResult struct {
	Verified  bool              `json:"verified"`
	Card      VerifiedCard      `json:"card"`
	Household VerifiedHousehold `json:"household"`
	Plan      VerifiedPlan      `json:"plan"`
	Members   []VerifiedMember  `json:"members"`
}

type VerifiedCard struct {
	ID         uuid.UUID         `json:"id"`
	Status     domain.CardStatus `json:"status"`
	IssueDate  time.Time         `json:"issueDate"`
	ExpiryDate time.Time         `json:"expiryDate"`
	IsExpired  bool              `json:"isExpired"`
}

type VerifiedHousehold struct {
	ID       uuid.UUID `json:"id"`
	HeadName string    `json:"headName"`
}

type VerifiedPlan struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type VerifiedMember struct {
	ID        uuid.UUID             `json:"id"`
	FirstName string                `json:"firstName"`
	LastName  string                `json:"lastName"`
	Relation  domain.MemberRelation `json:"relation"`
}

// Verifier answers eligibility queries. It never writes.
type Verifier struct {
	store   Store
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewVerifier creates a verifier on top of store. Transitions is ignored.
func NewVerifier(store Store, opts Options) *Verifier {
	opts = opts.withDefaults()
	return &Verifier{
		store:   store,
		now:     opts.Clock,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Verify resolves the household from the query, loads its card and reports
// whether the card is ACTIVE and not past its expiry date. Eligibility is
// computed on every call and is not stored.
func (v *Verifier) Verify(ctx context.Context, actor *domain.Actor, q VerifyQuery) (*VerificationResult, error) {
	res, err := v.verify(ctx, actor, q)
	switch {
	case err != nil:
		v.metrics.IncrementVerification(string(domain.CodeOf(err)))
		logFailure(v.logger, "verify", actor, q.MemberID, err)
	case res.Verified:
		v.metrics.IncrementVerification("verified")
	default:
		v.metrics.IncrementVerification("not_verified")
	}
	return res, err
}

func (v *Verifier) verify(ctx context.Context, actor *domain.Actor, q VerifyQuery) (*VerificationResult, error) {
	if err := policy.Check(actor, policy.ResourceCards, policy.ActionVerify); err != nil {
		return nil, err
	}
	if q.HouseholdID == uuid.Nil && q.MemberID == uuid.Nil {
		return nil, domain.ErrVerifyTargetRequired
	}

	var res *VerificationResult
	start := time.Now()
	err := v.store.RunInTx(ctx, func(tx Tx) error {
		householdID := q.HouseholdID
		if q.MemberID != uuid.Nil {
			member, err := tx.GetMember(ctx, q.MemberID)
			if err != nil {
				return err
			}
			householdID = member.HouseholdID
		}

		household, err := tx.GetHousehold(ctx, householdID)
		if err != nil {
			return err
		}
		card, err := tx.GetCardByHousehold(ctx, householdID)
		if err != nil {
			return err
		}
		plan, err := tx.GetPlan(ctx, card.PlanID)
		if err != nil {
			return err
		}
		members, err := tx.ListMembersByHousehold(ctx, householdID)
		if err != nil {
			return err
		}

		res = buildResult(card, household, plan, members, v.now())
		return nil
	})
	v.metrics.ObserveTx("verify", time.Since(start))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func buildResult(card *domain.Card, household *domain.Household, plan *domain.Plan, members []domain.Member, now time.Time) *VerificationResult {
	sorted := slices.Clone(members)
	slices.SortStableFunc(sorted, func(a, b domain.Member) int {
		if c := cmp.Compare(a.LastName, b.LastName); c != 0 {
			return c
		}
		return cmp.Compare(a.FirstName, b.FirstName)
	})

	covered := make([]VerifiedMember, 0, len(sorted))
	for _, m := range sorted {
		covered = append(covered, VerifiedMember{
			ID:        m.ID,
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Relation:  m.Relation,
		})
	}

	return &VerificationResult{
		Verified: card.IsEligible(now),
		Card: VerifiedCard{
			ID:         card.ID,
			Status:     card.Status,
			IssueDate:  card.IssueDate,
			ExpiryDate: card.ExpiryDate,
			IsExpired:  card.IsExpired(now),
		},
		Household: VerifiedHousehold{ID: household.ID, HeadName: household.HeadName},
		Plan:      VerifiedPlan{ID: plan.ID, Name: plan.Name},
		Members:   covered,
	}
}
