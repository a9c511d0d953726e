package service

import (
	"testing"
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/errs"
	"github.com/JaePyJs/CLMS-sub014/internal/model"
	"github.com/stretchr/testify/require"
)

func TestEvaluateEligibility(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)
	cfg := EligibilityConfig{MaxOpenSessions: 3, FineCapCents: 2000}

	var tests = []struct {
		name string
		snap model.PatronSnapshot
		want errs.PolicyReason
	}{
		{
			name: "clean patron",
			snap: model.PatronSnapshot{PatronID: "stu-1"},
		},
		{
			name: "banned without expiry",
			snap: model.PatronSnapshot{PatronID: "stu-1", Banned: true},
			want: errs.ReasonBanned,
		},
		{
			name: "ban still active",
			snap: model.PatronSnapshot{PatronID: "stu-1", Banned: true, BanExpiry: &future},
			want: errs.ReasonBanned,
		},
		{
			name: "ban window lapsed",
			snap: model.PatronSnapshot{PatronID: "stu-1", Banned: true, BanExpiry: &past},
		},
		{
			name: "fine balance at cap",
			snap: model.PatronSnapshot{PatronID: "stu-1", FineBalanceCents: 2000},
			want: errs.ReasonFineLimit,
		},
		{
			name: "fine balance below cap",
			snap: model.PatronSnapshot{PatronID: "stu-1", FineBalanceCents: 1999},
		},
		{
			name: "open sessions at limit",
			snap: model.PatronSnapshot{PatronID: "stu-1", OpenSessions: 3},
			want: errs.ReasonOpenLimit,
		},
		{
			name: "ban checked before fine cap",
			snap: model.PatronSnapshot{PatronID: "stu-1", Banned: true, FineBalanceCents: 9000},
			want: errs.ReasonBanned,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := evaluateEligibility(tt.snap, now, cfg)
			if tt.want == "" {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tt.want, got.Reason)
		})
	}
}
