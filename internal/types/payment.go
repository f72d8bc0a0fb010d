package types

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// PaymentEnvironment selects the Cashfree environment a session is built for
type PaymentEnvironment string

const (
	PaymentEnvironmentSandbox    PaymentEnvironment = "SANDBOX"
	PaymentEnvironmentProduction PaymentEnvironment = "PRODUCTION"
)

func (e PaymentEnvironment) String() string {
	return string(e)
}

func (e PaymentEnvironment) Validate() error {
	allowed := []PaymentEnvironment{
		PaymentEnvironmentSandbox,
		PaymentEnvironmentProduction,
	}
	if !lo.Contains(allowed, e) {
		return fmt.Errorf("invalid payment environment: %s", e)
	}
	return nil
}

// ParsePaymentEnvironment normalizes user input, falling back to def when raw is empty
func ParsePaymentEnvironment(raw string, def PaymentEnvironment) (PaymentEnvironment, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if def == "" {
			return PaymentEnvironmentSandbox, nil
		}
		return def, nil
	}
	env := PaymentEnvironment(strings.ToUpper(raw))
	if err := env.Validate(); err != nil {
		return "", err
	}
	return env, nil
}

// OutcomeStatus is the status reported back to application code for a call
type OutcomeStatus string

const (
	OutcomeStatusSuccess OutcomeStatus = "success"
	OutcomeStatusFailed  OutcomeStatus = "failed"
	OutcomeStatusOpened  OutcomeStatus = "opened"
	OutcomeStatusPending OutcomeStatus = "pending"
)

func (s OutcomeStatus) String() string {
	return string(s)
}

// CheckoutMode is the presentation used to collect the payment
type CheckoutMode string

const (
	CheckoutModeWeb       CheckoutMode = "WEB"
	CheckoutModeUPIIntent CheckoutMode = "UPI_INTENT"
)

func (m CheckoutMode) String() string {
	return string(m)
}

// OrderStatus mirrors the order_status values returned by Cashfree
type OrderStatus string

const (
	OrderStatusActive     OrderStatus = "ACTIVE"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusExpired    OrderStatus = "EXPIRED"
	OrderStatusTerminated OrderStatus = "TERMINATED"
	OrderStatusFailed     OrderStatus = "FAILED"
	OrderStatusDropped    OrderStatus = "USER_DROPPED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further payment can change the order
func (s OrderStatus) IsTerminal() bool {
	return lo.Contains([]OrderStatus{
		OrderStatusPaid,
		OrderStatusExpired,
		OrderStatusTerminated,
	}, s)
}

// CallState tracks a bridge call through its lifecycle
type CallState string

const (
	CallStatePending  CallState = "PENDING"
	CallStateResolved CallState = "RESOLVED"
	CallStateRejected CallState = "REJECTED"
)

func (s CallState) String() string {
	return string(s)
}

// DefaultCurrency is used when an order does not specify one
const DefaultCurrency = "INR"
