package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEarningsLifecycle(t *testing.T) {
	sp := &StudentProfile{}
	now := time.Now()

	sp.AddPendingEarnings(930)
	assert.Equal(t, 930.0, sp.PendingPayments)
	assert.Equal(t, 0.0, sp.TotalEarned)

	sp.ReleaseEarnings(930, now)
	assert.Equal(t, 0.0, sp.PendingPayments)
	assert.Equal(t, 930.0, sp.TotalEarned)
	assert.Equal(t, 1, sp.CompletedProjects)
	require.NotNil(t, sp.LastPaymentDate)
}

func TestPendingEarningsNeverNegative(t *testing.T) {
	sp := &StudentProfile{PendingPayments: 100}

	sp.DeductPendingEarnings(500)
	assert.Equal(t, 0.0, sp.PendingPayments)

	drifted := &StudentProfile{PendingPayments: 100}
	drifted.ReleaseEarnings(930, time.Now())
	assert.Equal(t, 0.0, drifted.PendingPayments)
	assert.Equal(t, 930.0, drifted.TotalEarned)
}

func TestCompanySpendTracksGross(t *testing.T) {
	cp := &CompanyProfile{}
	cp.RecordSpend(1000)
	cp.RecordSpend(2500)

	assert.Equal(t, 3500.0, cp.TotalSpent)
	assert.Equal(t, 2, cp.CompletedProjects)
}
