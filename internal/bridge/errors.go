package bridge

import (
	"fmt"

	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
)

// PaymentError carries the vendor's code and message for a failed payment
type PaymentError struct {
	Code    string
	Message string
	Status  string
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed: %s: %s", e.Code, e.Message)
}

// NewPaymentError wraps a vendor failure so it renders as a payment error
func NewPaymentError(cfErr *cashfree.CFError) error {
	if cfErr == nil {
		cfErr = cashfree.NewCFError(cashfree.CFErrorCodePaymentFailed, "Payment failed")
	}
	return ierr.WithError(&PaymentError{
		Code:    cfErr.Code,
		Message: cfErr.Message,
		Status:  cfErr.Status,
	}).
		WithHint(cfErr.Message).
		WithReportableDetails(map[string]any{
			"code":   cfErr.Code,
			"status": cfErr.Status,
		}).
		Mark(ierr.ErrPayment)
}

// genericFailureHint is shown to the application when a plugin fails unexpectedly
const genericFailureHint = "Something went wrong while processing the payment"
