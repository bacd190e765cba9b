package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePlatformFee(t *testing.T) {
	assert.Equal(t, 70.0, ComputePlatformFee(1000, 7))
	assert.Equal(t, 0.0, ComputePlatformFee(0, 7))
	// Fees round to the nearest whole unit.
	assert.Equal(t, 74.0, ComputePlatformFee(1055, 7))
	assert.Equal(t, 105.0, ComputePlatformFee(1500, 7))
}

func TestNewPaymentSplitsAmounts(t *testing.T) {
	pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, DefaultPlatformFeePercent)

	assert.Equal(t, 1000.0, pay.Amount)
	assert.Equal(t, 70.0, pay.PlatformFee)
	assert.Equal(t, 930.0, pay.NetAmount)
	assert.Equal(t, "INR", pay.Currency)
	assert.Equal(t, PaymentStatusPending, pay.Status)
}

func TestPaymentHappyPath(t *testing.T) {
	pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
	actor := uuid.New()
	admin := uuid.New()
	now := time.Now()

	require.NoError(t, pay.Capture(&actor, "pay_abc123", "sig_abc123", now))
	assert.Equal(t, PaymentStatusCaptured, pay.Status)
	require.NotNil(t, pay.CapturedAt)
	require.NotNil(t, pay.GatewayPaymentID)

	require.NoError(t, pay.MarkReadyForRelease(&actor, "", now))
	assert.Equal(t, PaymentStatusReadyForRelease, pay.Status)

	require.NoError(t, pay.Release(admin, ReleaseMethodManualTransfer, "UPI transfer done", now))
	assert.Equal(t, PaymentStatusReleased, pay.Status)
	require.NotNil(t, pay.ReleasedBy)
	assert.Equal(t, admin, *pay.ReleasedBy)

	// Every transition leaves an audit entry.
	require.Len(t, pay.History, 3)
	assert.Equal(t, "captured", pay.History[0].Action)
	assert.Equal(t, "ready_for_release", pay.History[1].Action)
	assert.Equal(t, "released", pay.History[2].Action)
}

func TestEscrowOnApprovalSkipsCapture(t *testing.T) {
	pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
	actor := uuid.New()
	now := time.Now()

	require.NoError(t, pay.EscrowOnApproval(&actor, now))
	assert.Equal(t, PaymentStatusReadyForRelease, pay.Status)
	assert.Nil(t, pay.CapturedAt)
	require.Len(t, pay.History, 1)
	assert.Equal(t, "ready_for_release", pay.History[0].Action)

	// Only a fresh pending payment can take the synthesized path.
	var transition *InvalidTransitionError
	assert.ErrorAs(t, pay.EscrowOnApproval(&actor, now), &transition)

	captured := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
	require.NoError(t, captured.Capture(nil, "", "", now))
	assert.ErrorAs(t, captured.EscrowOnApproval(&actor, now), &transition)
}

func TestPaymentBelongsToOrder(t *testing.T) {
	pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)

	// No order opened yet: nothing can match.
	assert.ErrorIs(t, pay.BelongsToOrder("order_abc"), ErrOrderMismatch)

	orderID := "order_abc"
	pay.GatewayOrderID = &orderID
	assert.NoError(t, pay.BelongsToOrder("order_abc"))
	assert.ErrorIs(t, pay.BelongsToOrder("order_xyz"), ErrOrderMismatch)
}

func TestPaymentForwardOnly(t *testing.T) {
	now := time.Now()
	admin := uuid.New()

	released := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
	require.NoError(t, released.Capture(nil, "", "", now))
	require.NoError(t, released.MarkReadyForRelease(nil, "", now))
	require.NoError(t, released.Release(admin, "", "", now))

	var transition *InvalidTransitionError
	assert.ErrorAs(t, released.Capture(nil, "", "", now), &transition)
	assert.ErrorAs(t, released.MarkReadyForRelease(nil, "", now), &transition)
	assert.ErrorAs(t, released.Release(admin, "", "", now), &transition)

	// Release without capture is not reachable.
	pending := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
	assert.ErrorAs(t, pending.Release(admin, "", "", now), &transition)
	assert.ErrorAs(t, pending.MarkReadyForRelease(nil, "", now), &transition)
}

func TestPaymentReleaseDefaultsToManual(t *testing.T) {
	pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 500, 7)
	now := time.Now()
	require.NoError(t, pay.Capture(nil, "", "", now))
	require.NoError(t, pay.MarkReadyForRelease(nil, "", now))
	require.NoError(t, pay.Release(uuid.New(), "", "", now))

	require.NotNil(t, pay.ReleaseMethod)
	assert.Equal(t, ReleaseMethodManualTransfer, *pay.ReleaseMethod)
}

func TestPaymentFailOnlyFromPending(t *testing.T) {
	pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
	now := time.Now()

	require.NoError(t, pay.Fail(nil, "card declined", now))
	assert.Equal(t, PaymentStatusFailed, pay.Status)

	captured := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
	require.NoError(t, captured.Capture(nil, "", "", now))
	var transition *InvalidTransitionError
	assert.ErrorAs(t, captured.Fail(nil, "too late", now), &transition)
}

func TestPaymentRefundGuards(t *testing.T) {
	admin := uuid.New()
	now := time.Now()

	t.Run("pending cannot be refunded", func(t *testing.T) {
		pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
		var transition *InvalidTransitionError
		assert.ErrorAs(t, pay.Refund(admin, "valid reason text", 0, now), &transition)
	})

	t.Run("reason must be meaningful", func(t *testing.T) {
		pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
		require.NoError(t, pay.Capture(nil, "", "", now))
		assert.ErrorIs(t, pay.Refund(admin, "bad", 0, now), ErrRefundReasonTooShort)
		assert.Equal(t, PaymentStatusCaptured, pay.Status)
	})

	t.Run("amount cannot exceed original", func(t *testing.T) {
		pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
		require.NoError(t, pay.Capture(nil, "", "", now))
		assert.ErrorIs(t, pay.Refund(admin, "dispute resolved in company's favor", 2000, now), ErrRefundTooLarge)
	})

	t.Run("zero amount defaults to full refund", func(t *testing.T) {
		pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
		require.NoError(t, pay.Capture(nil, "", "", now))
		require.NoError(t, pay.Refund(admin, "dispute resolved in company's favor", 0, now))
		assert.Equal(t, PaymentStatusRefunded, pay.Status)
		require.NotNil(t, pay.RefundAmount)
		assert.Equal(t, 1000.0, *pay.RefundAmount)
	})

	t.Run("refund after release keeps audit trail", func(t *testing.T) {
		pay := NewPayment(uuid.New(), uuid.New(), uuid.New(), 1000, 7)
		require.NoError(t, pay.Capture(nil, "", "", now))
		require.NoError(t, pay.MarkReadyForRelease(nil, "", now))
		require.NoError(t, pay.Release(admin, "", "", now))
		require.NoError(t, pay.Refund(admin, "chargeback received from gateway", 500, now))

		assert.Equal(t, PaymentStatusRefunded, pay.Status)
		assert.Equal(t, 500.0, *pay.RefundAmount)
		assert.Equal(t, "refunded", pay.History[len(pay.History)-1].Action)
	})
}
