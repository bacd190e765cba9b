package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	PaymentStatusPending         = "pending"
	PaymentStatusCaptured        = "captured"
	PaymentStatusReadyForRelease = "ready_for_release"
	PaymentStatusReleased        = "released"
	PaymentStatusRefunded        = "refunded"
	PaymentStatusFailed          = "failed"
)

const (
	ReleaseMethodGatewayPayout  = "gateway_payout"
	ReleaseMethodManualTransfer = "manual_transfer"
)

const DefaultPlatformFeePercent = 7.0

// ComputePlatformFee rounds to the nearest whole unit, matching the fee the
// student sees deducted.
func ComputePlatformFee(amount, percent float64) float64 {
	return math.Round(amount * percent / 100)
}

// Payment is one escrow transaction for a project. NetAmount is frozen at
// creation; the status only ever moves forward (refunded and failed are the
// permitted exits).
type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID `gorm:"not null;uniqueIndex" json:"project_id"`
	CompanyID uuid.UUID `gorm:"not null;index" json:"company_id"`
	StudentID uuid.UUID `gorm:"not null;index" json:"student_id"`

	Amount      float64 `gorm:"type:numeric(12,2);not null" json:"amount"`
	PlatformFee float64 `gorm:"type:numeric(12,2);not null" json:"platform_fee"`
	NetAmount   float64 `gorm:"type:numeric(12,2);not null" json:"net_amount"`
	Currency    string  `gorm:"size:3;not null;default:'INR'" json:"currency"`

	Status string `gorm:"size:30;not null;default:'pending';index" json:"status"`

	GatewayOrderID   *string `gorm:"size:255;unique" json:"gateway_order_id"`
	GatewayPaymentID *string `gorm:"size:255;unique" json:"gateway_payment_id"`
	GatewaySignature *string `gorm:"size:255" json:"-"`

	CapturedAt *time.Time `json:"captured_at"`
	ReleasedAt *time.Time `json:"released_at"`
	RefundedAt *time.Time `json:"refunded_at"`

	ReleasedBy    *uuid.UUID `json:"released_by"`
	ReleaseMethod *string    `gorm:"size:30" json:"release_method"`
	ReleaseNotes  *string    `gorm:"type:text" json:"release_notes"`

	RefundedBy   *uuid.UUID `json:"refunded_by"`
	RefundReason *string    `gorm:"type:text" json:"refund_reason"`
	RefundAmount *float64   `gorm:"type:numeric(12,2)" json:"refund_amount"`

	History []PaymentTransaction `gorm:"foreignkey:PaymentID" json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentTransaction is one entry in a payment's append-only audit log.
type PaymentTransaction struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	PaymentID   uuid.UUID  `gorm:"not null;index" json:"payment_id"`
	Action      string     `gorm:"size:50;not null" json:"action"`
	PerformedBy *uuid.UUID `json:"performed_by"`
	Notes       string     `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewPayment computes the fee split once; the amounts never change afterwards.
func NewPayment(projectID, companyID, studentID uuid.UUID, amount, feePercent float64) *Payment {
	fee := ComputePlatformFee(amount, feePercent)
	return &Payment{
		ID:          uuid.New(),
		ProjectID:   projectID,
		CompanyID:   companyID,
		StudentID:   studentID,
		Amount:      amount,
		PlatformFee: fee,
		NetAmount:   amount - fee,
		Currency:    "INR",
		Status:      PaymentStatusPending,
	}
}

// BelongsToOrder checks that a gateway callback references the order this
// payment was opened with.
func (pay *Payment) BelongsToOrder(orderID string) error {
	if pay.GatewayOrderID == nil || *pay.GatewayOrderID != orderID {
		return ErrOrderMismatch
	}
	return nil
}

func (pay *Payment) appendHistory(action string, actor *uuid.UUID, notes string, at time.Time) {
	pay.History = append(pay.History, PaymentTransaction{
		ID:          uuid.New(),
		PaymentID:   pay.ID,
		Action:      action,
		PerformedBy: actor,
		Notes:       notes,
		CreatedAt:   at,
	})
}

// Capture confirms the gateway payment and moves the escrow to captured.
func (pay *Payment) Capture(actor *uuid.UUID, gatewayPaymentID, gatewaySignature string, now time.Time) error {
	if pay.Status != PaymentStatusPending {
		return &InvalidTransitionError{Entity: "payment", Current: pay.Status, Required: PaymentStatusPending}
	}
	pay.Status = PaymentStatusCaptured
	pay.CapturedAt = &now
	if gatewayPaymentID != "" {
		pay.GatewayPaymentID = &gatewayPaymentID
	}
	if gatewaySignature != "" {
		pay.GatewaySignature = &gatewaySignature
	}
	pay.appendHistory("captured", actor, "Payment captured via gateway", now)
	return nil
}

// EscrowOnApproval moves a freshly created payment straight to
// ready_for_release, skipping pending and captured. Used when approval itself
// is the trust signal and no gateway payment preceded it.
func (pay *Payment) EscrowOnApproval(actor *uuid.UUID, now time.Time) error {
	if pay.Status != PaymentStatusPending {
		return &InvalidTransitionError{Entity: "payment", Current: pay.Status, Required: PaymentStatusPending}
	}
	pay.Status = PaymentStatusReadyForRelease
	pay.appendHistory("ready_for_release", actor, "Escrow recorded at work approval", now)
	return nil
}

func (pay *Payment) Fail(actor *uuid.UUID, notes string, now time.Time) error {
	if pay.Status != PaymentStatusPending {
		return &InvalidTransitionError{Entity: "payment", Current: pay.Status, Required: PaymentStatusPending}
	}
	pay.Status = PaymentStatusFailed
	pay.appendHistory("failed", actor, notes, now)
	return nil
}

func (pay *Payment) MarkReadyForRelease(actor *uuid.UUID, notes string, now time.Time) error {
	if pay.Status != PaymentStatusCaptured {
		return &InvalidTransitionError{Entity: "payment", Current: pay.Status, Required: PaymentStatusCaptured}
	}
	pay.Status = PaymentStatusReadyForRelease
	if notes == "" {
		notes = "Marked ready for release"
	}
	pay.appendHistory("ready_for_release", actor, notes, now)
	return nil
}

func (pay *Payment) Release(adminID uuid.UUID, method, notes string, now time.Time) error {
	if pay.Status != PaymentStatusReadyForRelease {
		return &InvalidTransitionError{Entity: "payment", Current: pay.Status, Required: PaymentStatusReadyForRelease}
	}
	if method == "" {
		method = ReleaseMethodManualTransfer
	}
	pay.Status = PaymentStatusReleased
	pay.ReleasedAt = &now
	pay.ReleasedBy = &adminID
	pay.ReleaseMethod = &method
	if notes != "" {
		pay.ReleaseNotes = &notes
	}
	pay.appendHistory("released", &adminID, "Payment released by admin", now)
	return nil
}

func (pay *Payment) Refund(adminID uuid.UUID, reason string, amount float64, now time.Time) error {
	switch pay.Status {
	case PaymentStatusCaptured, PaymentStatusReadyForRelease, PaymentStatusFailed, PaymentStatusReleased:
	default:
		return &InvalidTransitionError{
			Entity:   "payment",
			Current:  pay.Status,
			Required: "captured, ready_for_release, failed or released",
		}
	}
	if len(reason) < 5 {
		return ErrRefundReasonTooShort
	}
	if amount <= 0 {
		amount = pay.Amount
	}
	if amount > pay.Amount {
		return ErrRefundTooLarge
	}
	pay.Status = PaymentStatusRefunded
	pay.RefundedAt = &now
	pay.RefundedBy = &adminID
	pay.RefundReason = &reason
	pay.RefundAmount = &amount
	pay.appendHistory("refunded", &adminID, reason, now)
	return nil
}
