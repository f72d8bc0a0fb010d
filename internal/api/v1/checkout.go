package v1

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/host"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
)

var webCheckoutPage = template.Must(template.New("checkout").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Complete your payment</title>
  <style>
    body { font-family: -apple-system, system-ui, Segoe UI, Roboto, Arial; margin: 0; color: {{.Theme.PrimaryTextColor}}; }
    header { background: {{.Theme.NavigationBarBackgroundColor}}; color: {{.Theme.NavigationBarTextColor}}; padding: 16px 24px; }
    .box { max-width: 480px; margin: 40px auto; text-align: center; }
    .muted { color: {{.Theme.SecondaryTextColor}}; }
    button { background: {{.Theme.ButtonBackgroundColor}}; color: {{.Theme.ButtonTextColor}}; border: 0; border-radius: 8px; padding: 12px 20px; font-size: 16px; }
  </style>
  <script src="{{.SDKURL}}"></script>
</head>
<body>
  <header>Order {{.Session.OrderID}}</header>
  <div class="box">
    <p class="muted">Opening the secure Cashfree checkout&hellip;</p>
    <button id="pay" type="button">Pay now</button>
  </div>
  <script>
    (function () {
      var cashfree = Cashfree({ mode: {{.SDKMode}} });
      function pay() {
        cashfree.checkout({ paymentSessionId: {{.Session.PaymentSessionID}}, redirectTarget: "_self" });
      }
      document.getElementById("pay").addEventListener("click", pay);
      pay();
    })();
  </script>
</body>
</html>`))

var checkoutReturnPage = template.Must(template.New("return").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Payment submitted</title>
  <style>
    body { font-family: -apple-system, system-ui, Segoe UI, Roboto, Arial; padding: 24px; }
    .box { max-width: 480px; margin: 40px auto; text-align: center; }
    .muted { opacity: 0.7; }
  </style>
</head>
<body>
  <div class="box">
    <h3>Thanks, we are confirming your payment</h3>
    <p class="muted">Order {{.OrderID}}. You can close this window and return to the app.</p>
  </div>
</body>
</html>`))

// CheckoutHandler serves the hosted web checkout and its return URL
type CheckoutHandler struct {
	gateway cashfree.PaymentGatewayService
	host    *host.ActivityHost
	log     *logger.Logger
}

func NewCheckoutHandler(gateway cashfree.PaymentGatewayService, host *host.ActivityHost, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{gateway: gateway, host: host, log: log}
}

// WebCheckout handles GET /checkout/web/:order_id, rendering the page that
// hands the session to the Cashfree JS SDK
func (h *CheckoutHandler) WebCheckout(c *gin.Context) {
	orderID := c.Param("order_id")
	descriptor, ok := h.gateway.GetWebCheckout(orderID)
	if !ok {
		c.Error(ierr.NewError("checkout not found").
			WithHintf("No checkout is open for order %s", orderID).
			Mark(ierr.ErrNotFound))
		return
	}

	theme := descriptor.Theme
	if theme == nil {
		theme, _ = cashfree.NewThemeBuilder().Build()
	}

	setNoStore(c)
	c.Status(http.StatusOK)
	if err := webCheckoutPage.Execute(c.Writer, map[string]any{
		"Session": descriptor.Session,
		"Theme":   theme,
		"SDKURL":  descriptor.SDKURL,
		"SDKMode": descriptor.SDKMode,
	}); err != nil {
		h.log.Errorw("failed to render checkout page", "order_id", orderID, "error", err)
	}
}

// CheckoutReturn handles GET /checkout/return, where Cashfree sends the
// shopper after a hosted checkout. The query is forwarded as a result event.
func (h *CheckoutHandler) CheckoutReturn(c *gin.Context) {
	data := cashfree.ResultData{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}

	orderID := data.OrderID()
	if orderID == "" {
		c.Error(ierr.NewError("missing order_id").
			WithHint("order_id is required").
			Mark(ierr.ErrValidation))
		return
	}

	delivered := h.host.OnActivityResult(c.Request.Context(), data)
	h.log.Infow("checkout return received",
		"order_id", orderID,
		"delivered", delivered)

	setNoStore(c)
	c.Status(http.StatusOK)
	if err := checkoutReturnPage.Execute(c.Writer, map[string]any{"OrderID": orderID}); err != nil {
		h.log.Errorw("failed to render return page", "order_id", orderID, "error", err)
	}
}

func setNoStore(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-store, max-age=0")
	c.Header("Referrer-Policy", "no-referrer")
}
