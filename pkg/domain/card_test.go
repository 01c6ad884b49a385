package domain

import (
	"errors"
	"testing"
	"time"
)

func TestExpiryFrom(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		days  int
		want  time.Time
	}{
		{
			name:  "thirty day plan from new year",
			start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			days:  30,
			want:  time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "sixty days across leap february",
			start: time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC),
			days:  60,
			want:  time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "one year plan",
			start: time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
			days:  365,
			want:  time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpiryFrom(tt.start, tt.days); !got.Equal(tt.want) {
				t.Errorf("ExpiryFrom() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCard_IsEligible(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	tests := []struct {
		name        string
		status      CardStatus
		expiry      time.Time
		wantExpired bool
		wantOK      bool
	}{
		{name: "active and current", status: CardStatusActive, expiry: tomorrow, wantOK: true},
		{name: "active expiring right now", status: CardStatusActive, expiry: now, wantOK: true},
		{name: "active but past expiry", status: CardStatusActive, expiry: yesterday, wantExpired: true},
		{name: "suspended and current", status: CardStatusSuspended, expiry: tomorrow},
		{name: "expired status and current date", status: CardStatusExpired, expiry: tomorrow},
		{name: "cancelled and past expiry", status: CardStatusCancelled, expiry: yesterday, wantExpired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := &Card{Status: tt.status, ExpiryDate: tt.expiry}
			if got := card.IsExpired(now); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			if got := card.IsEligible(now); got != tt.wantOK {
				t.Errorf("IsEligible() = %v, want %v", got, tt.wantOK)
			}
		})
	}
}

func TestParseCardStatus(t *testing.T) {
	for _, st := range CardStatuses {
		got, err := ParseCardStatus(string(st))
		if err != nil || got != st {
			t.Errorf("ParseCardStatus(%q) = %q, %v", st, got, err)
		}
	}
	if _, err := ParseCardStatus("LOST"); !errors.Is(err, ErrInvalidCardStatus) {
		t.Errorf("ParseCardStatus(LOST) error = %v, want ErrInvalidCardStatus", err)
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := StoreUnavailable(errors.New("dial tcp: connection refused"))

	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error is internal", err: errors.New("boom"), want: CodeInternal},
		{name: "sentinel", err: ErrCardNotFound, want: CodeNotFound},
		{name: "joined", err: errors.Join(ErrHouseholdAlreadyCarded), want: CodeConflict},
		{name: "wrapped driver error", err: wrapped, want: CodeUnavailable},
		{name: "transition", err: TransitionError(CardStatusCancelled, CardStatusActive), want: CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
