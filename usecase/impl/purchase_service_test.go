package impl

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subskit/domain/apierror"
	"subskit/domain/entity"
	"subskit/domain/service"
	"subskit/transport"
)

func newPurchaseService(t *testing.T, api *fakeAPI, platform service.PlatformStore) (*purchaseService, *fakeAPI) {
	t.Helper()
	svc := NewPurchaseService(PurchaseServiceParams{
		API:      api,
		Platform: platform,
		Repo:     registeredRepo(t),
		Config:   testConfig(),
		Logger:   testLogger(),
	}).(*purchaseService)

	return svc, api
}

func verifyEnvelope(purchases ...map[string]any) map[string]any {
	list := make([]any, 0, len(purchases))
	for _, p := range purchases {
		list = append(list, p)
	}

	return map[string]any{"purchase_list": list}
}

func TestPurchase(t *testing.T) {
	t.Parallel()

	t.Run("happy path verifies then finalizes", func(t *testing.T) {
		t.Parallel()

		events := &eventLog{}
		api := newFakeAPI()
		api.events = events
		api.respond(transport.EndpointVerifyReceipt, verifyEnvelope(map[string]any{
			"product_id":      "premium.monthly",
			"expires_date_ms": float64(time.Now().Add(time.Hour).UnixMilli()),
		}))
		platform := &fakePlatform{events: events, receipt: []byte("raw-receipt")}
		svc, _ := newPurchaseService(t, api, platform)

		require.NoError(t, svc.Purchase(context.Background(), "premium.monthly"))

		assert.Equal(t, []string{
			"api:compare_time",
			"platform:purchase",
			"platform:fetch_receipt",
			"api:" + transport.EndpointVerifyReceipt.String(),
			"platform:finalize",
		}, events.all())

		calls := api.callsTo(transport.EndpointVerifyReceipt)
		require.Len(t, calls, 1)
		assert.Equal(t, "device-1", calls[0].params["device_id"])
		assert.Equal(t, "com.example.app", calls[0].params["bundle_id"])
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("raw-receipt")), calls[0].params["receipt"])

		assert.Equal(t, []string{"tx-1"}, platform.finalizedIDs())
		require.Len(t, svc.Purchases(), 1)
		assert.Equal(t, "premium.monthly", svc.Purchases()[0].ProductID)
		assert.True(t, svc.IsPurchased())
	})

	t.Run("disabled payments fail before everything else", func(t *testing.T) {
		t.Parallel()

		events := &eventLog{}
		api := newFakeAPI()
		api.events = events
		svc, _ := newPurchaseService(t, api, &fakePlatform{paymentsDisabled: true, events: events})

		err := svc.Purchase(context.Background(), "p1")
		assert.ErrorIs(t, err, apierror.New(apierror.KindCannotMakePayments))
		assert.Empty(t, events.all())
	})

	t.Run("clock skew aborts before the payment sheet", func(t *testing.T) {
		t.Parallel()

		events := &eventLog{}
		api := newFakeAPI()
		api.events = events
		api.compareErr = apierror.New(apierror.KindInvalidTimestamps)
		svc, _ := newPurchaseService(t, api, &fakePlatform{events: events})

		err := svc.Purchase(context.Background(), "p1")
		assert.ErrorIs(t, err, apierror.New(apierror.KindInvalidTimestamps))
		assert.Equal(t, []string{"api:compare_time"}, events.all())
	})

	t.Run("time authority hiccups do not block the flow", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.compareErr = apierror.New(apierror.KindResponseError)
		api.respond(transport.EndpointVerifyReceipt, verifyEnvelope())
		svc, _ := newPurchaseService(t, api, &fakePlatform{})

		assert.NoError(t, svc.Purchase(context.Background(), "p1"))
	})

	t.Run("a dismissed payment sheet is cancellation, not failure", func(t *testing.T) {
		t.Parallel()

		events := &eventLog{}
		api := newFakeAPI()
		platform := &fakePlatform{purchaseErr: service.ErrPaymentCancelled, events: events}
		svc, _ := newPurchaseService(t, api, platform)

		err := svc.Purchase(context.Background(), "p1")
		assert.ErrorIs(t, err, apierror.New(apierror.KindPaymentCancelled))
		assert.NotContains(t, events.all(), "platform:fetch_receipt")
	})

	t.Run("platform failures surface as purchaseFailed", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("store unavailable")
		api := newFakeAPI()
		svc, _ := newPurchaseService(t, api, &fakePlatform{purchaseErr: cause})

		err := svc.Purchase(context.Background(), "p1")
		assert.ErrorIs(t, err, apierror.New(apierror.KindPurchaseFailed))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("receipt fetch failure never finalizes", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		platform := &fakePlatform{receiptErr: errors.New("no receipt")}
		svc, _ := newPurchaseService(t, api, platform)

		err := svc.Purchase(context.Background(), "p1")
		assert.ErrorIs(t, err, apierror.New(apierror.KindPurchaseReceiptValidationFailed))
		assert.Empty(t, platform.finalizedIDs(), "unverified transactions must stay open")
		assert.False(t, svc.IsPurchased())
	})

	t.Run("verification failure still finalizes", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.fail(transport.EndpointVerifyReceipt, apierror.New(apierror.KindSignatureInvalid))
		platform := &fakePlatform{}
		svc, _ := newPurchaseService(t, api, platform)

		err := svc.Purchase(context.Background(), "p1")
		assert.ErrorIs(t, err, apierror.New(apierror.KindSignatureInvalid))
		assert.Equal(t, []string{"tx-1"}, platform.finalizedIDs(),
			"the verification round trip completed, so the transaction is settled")
		assert.False(t, svc.IsPurchased())
	})

	t.Run("missing device identity fails without network", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		svc := NewPurchaseService(PurchaseServiceParams{
			API:      api,
			Platform: &fakePlatform{},
			Repo:     testRepo(),
			Config:   testConfig(),
			Logger:   testLogger(),
		}).(*purchaseService)

		err := svc.Purchase(context.Background(), "p1")
		assert.ErrorIs(t, err, apierror.New(apierror.KindBadParameters))
		assert.Empty(t, api.callsTo(transport.EndpointVerifyReceipt))
	})
}

// blockingPlatform parks inside the payment sheet until released.
type blockingPlatform struct {
	fakePlatform
	started chan struct{}
	release chan struct{}
}

func (b *blockingPlatform) Purchase(ctx context.Context, productID string, atomic bool) (*service.PurchaseOutcome, error) {
	close(b.started)
	<-b.release

	return b.fakePlatform.Purchase(ctx, productID, atomic)
}

func TestPurchaseInFlightGuard(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(transport.EndpointVerifyReceipt, verifyEnvelope())
	platform := &blockingPlatform{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, _ := newPurchaseService(t, api, platform)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- svc.Purchase(context.Background(), "p1")
	}()
	<-platform.started

	err := svc.Purchase(context.Background(), "p2")
	assert.ErrorIs(t, err, apierror.New(apierror.KindOperationInFlight))
	err = svc.Restore(context.Background())
	assert.ErrorIs(t, err, apierror.New(apierror.KindOperationInFlight))

	close(platform.release)
	require.NoError(t, <-firstDone)

	// The guard releases once the first flow settles.
	assert.NoError(t, svc.Restore(context.Background()))
}

func TestRestore(t *testing.T) {
	t.Parallel()

	t.Run("restored transactions go through verification", func(t *testing.T) {
		t.Parallel()

		events := &eventLog{}
		api := newFakeAPI()
		api.events = events
		api.respond(transport.EndpointVerifyReceipt, verifyEnvelope(map[string]any{
			"product_id": "premium.yearly",
		}))
		platform := &fakePlatform{
			events: events,
			restoreOutcome: &service.RestoreOutcome{Restored: []service.Transaction{
				{ID: "tx-a", ProductID: "premium.yearly", NeedsFinalization: true},
				{ID: "tx-b", ProductID: "premium.yearly", NeedsFinalization: false},
			}},
		}
		svc, _ := newPurchaseService(t, api, platform)

		require.NoError(t, svc.Restore(context.Background()))
		assert.Equal(t, []string{"tx-a"}, platform.finalizedIDs(), "already-settled transactions are skipped")
		require.Len(t, svc.Purchases(), 1)
	})

	t.Run("cancellation anywhere in the pass wins", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		platform := &fakePlatform{
			restoreOutcome: &service.RestoreOutcome{Failed: []service.RestoreFailure{
				{Err: errors.New("flaky"), ProductID: "p1"},
				{Err: service.ErrPaymentCancelled, ProductID: "p2"},
			}},
		}
		svc, _ := newPurchaseService(t, api, platform)

		err := svc.Restore(context.Background())
		assert.ErrorIs(t, err, apierror.New(apierror.KindPaymentCancelled))
	})

	t.Run("partial failures map to restoreFailed with details", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("download interrupted")
		api := newFakeAPI()
		platform := &fakePlatform{
			restoreOutcome: &service.RestoreOutcome{Failed: []service.RestoreFailure{{Err: cause, ProductID: "p1"}}},
		}
		svc, _ := newPurchaseService(t, api, platform)

		err := svc.Restore(context.Background())
		assert.ErrorIs(t, err, apierror.New(apierror.KindRestoreFailed))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("receipt failure uses the restore kind", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		platform := &fakePlatform{
			receiptErr:     errors.New("no receipt"),
			restoreOutcome: &service.RestoreOutcome{Restored: []service.Transaction{{ID: "tx-a"}}},
		}
		svc, _ := newPurchaseService(t, api, platform)

		err := svc.Restore(context.Background())
		assert.ErrorIs(t, err, apierror.New(apierror.KindRestoreReceiptValidationFailed))
	})
}

func TestGetPurchases(t *testing.T) {
	t.Parallel()

	t.Run("replaces the cache wholesale", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.respond(transport.EndpointGetPurchases, verifyEnvelope(map[string]any{"product_id": "new.product"}))
		svc, _ := newPurchaseService(t, api, &fakePlatform{})
		svc.cache.ReplacePurchases([]entity.Purchase{{ProductID: "stale.product"}})

		require.NoError(t, svc.GetPurchases(context.Background()))
		purchases := svc.Purchases()
		require.Len(t, purchases, 1)
		assert.Equal(t, "new.product", purchases[0].ProductID)
	})

	t.Run("missing purchase_list is badResult", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.respond(transport.EndpointGetPurchases, map[string]any{"data": map[string]any{}})
		svc, _ := newPurchaseService(t, api, &fakePlatform{})

		err := svc.GetPurchases(context.Background())
		assert.ErrorIs(t, err, apierror.New(apierror.KindBadResult))
	})

	t.Run("prices are joined from the catalog", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.respond(transport.EndpointGetPurchases, verifyEnvelope(map[string]any{"product_id": "premium.monthly"}))
		platform := &fakePlatform{queryResult: &service.ProductQueryResult{
			Retrieved: []entity.Product{{ID: "premium.monthly", Price: 4.99, CurrencyCode: "EUR"}},
		}}
		svc, _ := newPurchaseService(t, api, platform)

		require.NoError(t, svc.RetrieveProducts(context.Background()))
		require.NoError(t, svc.GetPurchases(context.Background()))

		purchases := svc.Purchases()
		require.Len(t, purchases, 1)
		assert.InDelta(t, 4.99, purchases[0].Price, 1e-9)
		assert.Equal(t, "EUR", purchases[0].Currency)
	})
}

func TestIsActive(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	svc, _ := newPurchaseService(t, api, &fakePlatform{})

	now := time.UnixMilli(1700000000000)
	svc.now = func() time.Time { return now }
	svc.cache.ReplacePurchases([]entity.Purchase{
		{ProductID: "exact", ExpiresMs: float64(now.UnixMilli())},
		{ProductID: "future", ExpiresMs: float64(now.UnixMilli() + 1)},
		{ProductID: "past", ExpiresMs: float64(now.UnixMilli() - 1)},
	})

	assert.False(t, svc.IsActive("exact"), "expiry exactly at now is inactive")
	assert.True(t, svc.IsActive("future"))
	assert.False(t, svc.IsActive("past"))
	assert.False(t, svc.IsActive("unknown"))
}

func TestPurchaseServiceSeedsFromRepository(t *testing.T) {
	t.Parallel()

	repo := registeredRepo(t)
	require.NoError(t, repo.SavePurchases([]entity.Purchase{{ProductID: "persisted"}}))

	svc := NewPurchaseService(PurchaseServiceParams{
		API:      newFakeAPI(),
		Platform: &fakePlatform{},
		Repo:     repo,
		Config:   testConfig(),
		Logger:   testLogger(),
	}).(*purchaseService)

	require.Len(t, svc.Purchases(), 1)
	assert.Equal(t, "persisted", svc.Purchases()[0].ProductID)
}
