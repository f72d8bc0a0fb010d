package cashfree

import (
	"regexp"

	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/types"
)

// Session identifies one payable order in one Cashfree environment
type Session struct {
	Environment      types.PaymentEnvironment `json:"environment"`
	OrderID          string                   `json:"order_id"`
	PaymentSessionID string                   `json:"payment_session_id"`
}

// SessionBuilder assembles a Session. Build fails if any field is missing.
type SessionBuilder struct {
	session Session
}

func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{}
}

func (b *SessionBuilder) SetEnvironment(env types.PaymentEnvironment) *SessionBuilder {
	b.session.Environment = env
	return b
}

func (b *SessionBuilder) SetOrderID(orderID string) *SessionBuilder {
	b.session.OrderID = orderID
	return b
}

func (b *SessionBuilder) SetPaymentSessionID(paymentSessionID string) *SessionBuilder {
	b.session.PaymentSessionID = paymentSessionID
	return b
}

func (b *SessionBuilder) Build() (*Session, error) {
	if b.session.Environment == "" {
		return nil, ierr.NewError("session environment is missing").
			WithHint("Environment is required to build a payment session").
			Mark(ierr.ErrSetup)
	}
	if err := b.session.Environment.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Unsupported environment %s", b.session.Environment).
			Mark(ierr.ErrSetup)
	}
	if b.session.OrderID == "" {
		return nil, ierr.NewError("session order id is missing").
			WithHint("Order ID is required to build a payment session").
			Mark(ierr.ErrSetup)
	}
	if b.session.PaymentSessionID == "" {
		return nil, ierr.NewError("payment session id is missing").
			WithHint("Payment session ID is required to build a payment session").
			Mark(ierr.ErrSetup)
	}

	session := b.session
	return &session, nil
}

const (
	DefaultNavigationBarBackgroundColor = "#6A3FD3"
	DefaultNavigationBarTextColor       = "#FFFFFF"
	DefaultButtonBackgroundColor        = "#6A3FD3"
	DefaultButtonTextColor              = "#FFFFFF"
	DefaultPrimaryTextColor             = "#11385b"
	DefaultSecondaryTextColor           = "#808080"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Theme is the presentation used by the checkout page
type Theme struct {
	NavigationBarBackgroundColor string `json:"navigation_bar_background_color"`
	NavigationBarTextColor       string `json:"navigation_bar_text_color"`
	ButtonBackgroundColor        string `json:"button_background_color"`
	ButtonTextColor              string `json:"button_text_color"`
	PrimaryTextColor             string `json:"primary_text_color"`
	SecondaryTextColor           string `json:"secondary_text_color"`
}

// ThemeBuilder assembles a Theme, starting from the brand defaults
type ThemeBuilder struct {
	theme Theme
}

func NewThemeBuilder() *ThemeBuilder {
	return &ThemeBuilder{theme: Theme{
		NavigationBarBackgroundColor: DefaultNavigationBarBackgroundColor,
		NavigationBarTextColor:       DefaultNavigationBarTextColor,
		ButtonBackgroundColor:        DefaultButtonBackgroundColor,
		ButtonTextColor:              DefaultButtonTextColor,
		PrimaryTextColor:             DefaultPrimaryTextColor,
		SecondaryTextColor:           DefaultSecondaryTextColor,
	}}
}

func (b *ThemeBuilder) SetNavigationBarBackgroundColor(color string) *ThemeBuilder {
	b.theme.NavigationBarBackgroundColor = color
	return b
}

func (b *ThemeBuilder) SetNavigationBarTextColor(color string) *ThemeBuilder {
	b.theme.NavigationBarTextColor = color
	return b
}

func (b *ThemeBuilder) SetButtonBackgroundColor(color string) *ThemeBuilder {
	b.theme.ButtonBackgroundColor = color
	return b
}

func (b *ThemeBuilder) SetButtonTextColor(color string) *ThemeBuilder {
	b.theme.ButtonTextColor = color
	return b
}

func (b *ThemeBuilder) SetPrimaryTextColor(color string) *ThemeBuilder {
	b.theme.PrimaryTextColor = color
	return b
}

func (b *ThemeBuilder) SetSecondaryTextColor(color string) *ThemeBuilder {
	b.theme.SecondaryTextColor = color
	return b
}

// Build validates every color and returns the theme
func (b *ThemeBuilder) Build() (*Theme, error) {
	colors := map[string]string{
		"navigation_bar_background_color": b.theme.NavigationBarBackgroundColor,
		"navigation_bar_text_color":       b.theme.NavigationBarTextColor,
		"button_background_color":         b.theme.ButtonBackgroundColor,
		"button_text_color":               b.theme.ButtonTextColor,
		"primary_text_color":              b.theme.PrimaryTextColor,
		"secondary_text_color":            b.theme.SecondaryTextColor,
	}
	for field, color := range colors {
		if !hexColor.MatchString(color) {
			return nil, ierr.NewErrorf("invalid theme color %q for %s", color, field).
				WithHintf("Theme color %s must be a hex color like #6A3FD3", field).
				WithReportableDetails(map[string]any{
					"field": field,
					"color": color,
				}).
				Mark(ierr.ErrSetup)
		}
	}

	theme := b.theme
	return &theme, nil
}
