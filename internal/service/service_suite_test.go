package service

import (
	"sync"

	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/testutil"
)

// serviceSuite wires the services on top of the shared test dependencies
type serviceSuite struct {
	testutil.BaseServiceTestSuite
	params   ServiceParams
	callback *recordingCallback
}

func (s *serviceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetSentry(),
		s.GetStores().OrderRepo,
		s.GetClient(),
		s.GetGateway(),
		s.GetRegistry(),
		s.GetCache(),
		s.GetIdempotencyStore(),
	)
	s.callback = &recordingCallback{}
	s.GetGateway().SetCheckoutCallback(s.callback)
}

// recordingCallback captures what the gateway reports
type recordingCallback struct {
	mu       sync.Mutex
	verified []string
	failed   map[string]*cashfree.CFError
}

func (r *recordingCallback) OnPaymentVerify(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verified = append(r.verified, orderID)
}

func (r *recordingCallback) OnPaymentFailure(cfErr *cashfree.CFError, orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed == nil {
		r.failed = make(map[string]*cashfree.CFError)
	}
	r.failed[orderID] = cfErr
}

func (r *recordingCallback) Verified() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.verified...)
}

func (r *recordingCallback) Failure(orderID string) *cashfree.CFError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed[orderID]
}
