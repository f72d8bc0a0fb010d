package cashfree

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wealthhorizon/paybridge/internal/types"
)

// CheckoutDescriptor is what the front end needs to present a checkout
type CheckoutDescriptor struct {
	Mode    types.CheckoutMode `json:"mode"`
	Session Session            `json:"session"`
	Theme   *Theme             `json:"theme,omitempty"`

	// web checkout
	CheckoutURL string `json:"checkout_url,omitempty"`
	SDKURL      string `json:"sdk_url,omitempty"`
	SDKMode     string `json:"sdk_mode,omitempty"`

	// UPI intent, keyed by app ("default", "gpay", "phonepe", "paytm", "bhim")
	IntentLinks map[string]string `json:"intent_links,omitempty"`
	CFPaymentID FlexibleID        `json:"cf_payment_id,omitempty"`
}

// ResponseCallback receives the terminal outcome of a checkout. Calls may
// arrive on any goroutine.
type ResponseCallback interface {
	OnPaymentVerify(orderID string)
	OnPaymentFailure(cfErr *CFError, orderID string)
}

// CFError is the failure reported to a ResponseCallback
type CFError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

func (e *CFError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Well known CFError codes produced by paybridge itself
const (
	CFErrorCodePaymentFailed   = "payment_failed"
	CFErrorCodeUserDropped     = "user_dropped"
	CFErrorCodeOrderExpired    = "order_expired"
	CFErrorCodeOrderTerminated = "order_terminated"
)

// NewCFError builds a failed-status CFError
func NewCFError(code, message string) *CFError {
	return &CFError{
		Status:  "FAILED",
		Code:    code,
		Message: message,
	}
}

// sdkMode maps an environment onto the mode string the JS SDK expects
func sdkMode(env types.PaymentEnvironment) string {
	return strings.ToLower(string(env))
}

func checkoutURL(template, orderID string) string {
	return strings.ReplaceAll(template, "{order_id}", url.PathEscape(orderID))
}
