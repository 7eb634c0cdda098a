package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/and161185/libdesk/internal/model"
	"github.com/and161185/libdesk/internal/repository"
	"github.com/and161185/libdesk/internal/ui"
	"go.uber.org/zap"
)

// Navigation delays after a callback settles.
const (
	PaymentSuccessDelay = 3 * time.Second
	PaymentErrorDelay   = 5 * time.Second
)

// CallbackState is the payment callback state.
type CallbackState int

const (
	CallbackLoading CallbackState = iota
	CallbackSuccess
	CallbackError
)

func (s CallbackState) String() string {
	switch s {
	case CallbackSuccess:
		return "success"
	case CallbackError:
		return "error"
	}
	return "loading"
}

// Outcome is the settled result of a callback.
type Outcome struct {
	State   CallbackState
	Message string
	Params  model.CallbackParams
	Next    ui.Navigation
}

// ParseCallback reads the gateway's return parameters. transaction_id
// falls back to txnId; an unparsable amount reads as 0.
func ParseCallback(q url.Values) model.CallbackParams {
	p := model.CallbackParams{
		PIDX:            strings.TrimSpace(q.Get("pidx")),
		Status:          q.Get("status"),
		TransactionID:   firstNonBlank(q.Get("transaction_id"), q.Get("txnId")),
		PurchaseOrderID: q.Get("purchase_order_id"),
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(q.Get("amount")), 10, 64); err == nil {
		p.Amount = n
	}
	return p
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// PaymentCallback is a one-shot state machine: the first Run settles it and
// later calls return the same outcome whatever their parameters.
type PaymentCallback struct {
	payments repository.PaymentRepository
	log      *zap.Logger

	once sync.Once
	mu   sync.Mutex
	out  Outcome
}

// NewPaymentCallback constructs a PaymentCallback in the loading state.
func NewPaymentCallback(payments repository.PaymentRepository, log *zap.Logger) *PaymentCallback {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentCallback{payments: payments, log: log}
}

// State returns the current state.
func (c *PaymentCallback) State() CallbackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.State
}

// Run evaluates p once.
func (c *PaymentCallback) Run(ctx context.Context, p model.CallbackParams) Outcome {
	c.once.Do(func() {
		out := c.evaluate(ctx, p)
		c.mu.Lock()
		c.out = out
		c.mu.Unlock()
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out
}

func (c *PaymentCallback) evaluate(ctx context.Context, p model.CallbackParams) Outcome {
	failed := func(msg string) Outcome {
		return Outcome{
			State:   CallbackError,
			Message: msg,
			Params:  p,
			Next:    ui.Navigation{To: ui.RouteBorrows, After: PaymentErrorDelay},
		}
	}

	if p.PIDX == "" {
		return failed(MsgNoPaymentID)
	}
	switch p.Status {
	case model.PaymentCompleted:
	case model.PaymentUserCanceled, model.PaymentCanceled:
		return failed(MsgPaymentCanceled)
	case model.PaymentExpired:
		return failed(MsgPaymentExpired)
	default:
		return failed(fmt.Sprintf("Payment failed with status: %s.", p.Status))
	}

	v, err := c.payments.Verify(ctx, p.PIDX)
	if err != nil {
		c.log.Warn("verify payment", zap.String("pidx", p.PIDX), zap.Error(err))
		return failed(MsgPaymentUnverified)
	}
	if v.Status != model.PaymentCompleted {
		c.log.Warn("verification status mismatch", zap.String("pidx", p.PIDX), zap.String("status", v.Status))
		return failed(MsgPaymentUnverified)
	}
	return Outcome{
		State:   CallbackSuccess,
		Message: MsgPaymentVerified,
		Params:  p,
		Next:    ui.Navigation{To: ui.RouteBorrows, After: PaymentSuccessDelay},
	}
}
