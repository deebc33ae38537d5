package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"subskit/config"
	"subskit/domain/entity"
	"subskit/domain/repository"
	"subskit/domain/service"
	"subskit/infra/storage"
	"subskit/transport"
)

// eventLog records the cross-collaborator call order so tests can assert
// sequencing rules like "finalize only after verification".
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.events...)
}

type apiCall struct {
	endpoint transport.Endpoint
	params   map[string]any
}

// fakeAPI scripts the transport layer per endpoint.
type fakeAPI struct {
	mu         sync.Mutex
	responses  map[transport.Endpoint]map[string]any
	errs       map[transport.Endpoint]error
	compareErr error
	sendResp   map[string]any
	sendErr    error
	calls      []apiCall
	sendURLs   []string
	events     *eventLog
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		responses: map[transport.Endpoint]map[string]any{},
		errs:      map[transport.Endpoint]error{},
	}
}

func (f *fakeAPI) respond(endpoint transport.Endpoint, envelope map[string]any) {
	f.responses[endpoint] = envelope
}

func (f *fakeAPI) fail(endpoint transport.Endpoint, err error) {
	f.errs[endpoint] = err
}

func (f *fakeAPI) SendSigned(_ context.Context, endpoint transport.Endpoint, params map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{endpoint: endpoint, params: params})
	f.mu.Unlock()
	if f.events != nil {
		f.events.add("api:" + endpoint.String())
	}

	if err := f.errs[endpoint]; err != nil {
		return nil, err
	}
	if envelope, ok := f.responses[endpoint]; ok {
		return envelope, nil
	}

	return map[string]any{}, nil
}

func (f *fakeAPI) Send(_ context.Context, url string, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.sendURLs = append(f.sendURLs, url)
	f.mu.Unlock()

	if f.sendErr != nil {
		return nil, f.sendErr
	}

	return f.sendResp, nil
}

func (f *fakeAPI) CompareServerTime(_ context.Context) error {
	if f.events != nil {
		f.events.add("api:compare_time")
	}

	return f.compareErr
}

func (f *fakeAPI) callsTo(endpoint transport.Endpoint) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, call := range f.calls {
		if call.endpoint == endpoint {
			out = append(out, call)
		}
	}

	return out
}

// fakePlatform scripts the platform store.
type fakePlatform struct {
	paymentsDisabled bool

	queryResult *service.ProductQueryResult
	queryErr    error

	purchaseOutcome *service.PurchaseOutcome
	purchaseErr     error
	restoreOutcome  *service.RestoreOutcome
	restoreErr      error

	receipt    []byte
	receiptErr error

	finalizeErr error

	mu        sync.Mutex
	finalized []service.Transaction
	events    *eventLog
}

func (f *fakePlatform) CanMakePayments() bool { return !f.paymentsDisabled }

func (f *fakePlatform) QueryProducts(_ context.Context, _ []string) (*service.ProductQueryResult, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryResult != nil {
		return f.queryResult, nil
	}

	return &service.ProductQueryResult{}, nil
}

func (f *fakePlatform) Purchase(_ context.Context, productID string, _ bool) (*service.PurchaseOutcome, error) {
	if f.events != nil {
		f.events.add("platform:purchase")
	}
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	if f.purchaseOutcome != nil {
		return f.purchaseOutcome, nil
	}

	return &service.PurchaseOutcome{
		Transaction: service.Transaction{ID: "tx-1", ProductID: productID, NeedsFinalization: true},
	}, nil
}

func (f *fakePlatform) Restore(_ context.Context, _ bool) (*service.RestoreOutcome, error) {
	if f.events != nil {
		f.events.add("platform:restore")
	}
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	if f.restoreOutcome != nil {
		return f.restoreOutcome, nil
	}

	return &service.RestoreOutcome{}, nil
}

func (f *fakePlatform) FetchReceipt(_ context.Context, _ bool) ([]byte, error) {
	if f.events != nil {
		f.events.add("platform:fetch_receipt")
	}
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.receipt != nil {
		return f.receipt, nil
	}

	return []byte("receipt-bytes"), nil
}

func (f *fakePlatform) Finalize(_ context.Context, tx service.Transaction) error {
	f.mu.Lock()
	f.finalized = append(f.finalized, tx)
	f.mu.Unlock()
	if f.events != nil {
		f.events.add("platform:finalize")
	}

	return f.finalizeErr
}

func (f *fakePlatform) finalizedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.finalized))
	for _, tx := range f.finalized {
		ids = append(ids, tx.ID)
	}

	return ids
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.API.BaseURL = "https://api.example.com/"
	cfg.API.TimeAuthorityURL = "https://time.example.com/"
	cfg.API.SkewToleranceMs = 60_000
	cfg.App.BundleID = "com.example.app"
	cfg.App.OSVersion = "17.0"

	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRepo is a real state repository over the in-memory store.
func testRepo() repository.StateRepository {
	return storage.NewStateRepository(storage.StateRepositoryParams{KV: storage.NewMemoryStore()})
}

// registeredRepo is a testRepo with a synced device identity already saved.
func registeredRepo(t *testing.T) repository.StateRepository {
	t.Helper()
	repo := testRepo()
	require.NoError(t, repo.SaveDeviceIdentity(entity.DeviceIdentity{Key: "device-1", ServerSynced: true}))

	return repo
}
