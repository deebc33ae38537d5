package impl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"go.uber.org/fx"

	"subskit/config"
	"subskit/domain/apierror"
	"subskit/domain/entity"
	"subskit/domain/repository"
	"subskit/domain/service"
	"subskit/internal/errors"
	"subskit/transport"
	"subskit/usecase"
)

// flowPhase tracks where an in-flight purchase or restore operation stands.
type flowPhase int

const (
	phaseIdle flowPhase = iota
	phaseClockCheck
	phasePlatform
	phaseReceipt
	phaseVerification
	phaseSettled
)

func (p flowPhase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseClockCheck:
		return "clock_check"
	case phasePlatform:
		return "platform"
	case phaseReceipt:
		return "receipt"
	case phaseVerification:
		return "verification"
	case phaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// flowKind distinguishes the purchase and restore entry points, which share
// the same verification tail but surface different receipt-failure kinds.
type flowKind int

const (
	flowPurchase flowKind = iota
	flowRestore
)

func (f flowKind) receiptFailureKind() apierror.Kind {
	if f == flowRestore {
		return apierror.KindRestoreReceiptValidationFailed
	}

	return apierror.KindPurchaseReceiptValidationFailed
}

type purchaseService struct {
	api      transport.API
	platform service.PlatformStore
	repo     repository.StateRepository
	cache    *entitlementStore
	config   *config.Config
	logger   *slog.Logger
	now      func() time.Time

	productIDs []string
	// busy enforces "at most one purchase or restore in flight". A second
	// concurrent start is rejected rather than silently orphaning the first.
	busy  atomic.Bool
	phase atomic.Int32
}

// PurchaseServiceParams holds dependencies for PurchaseService, injected by Fx.
type PurchaseServiceParams struct {
	fx.In

	API      transport.API
	Platform service.PlatformStore
	Repo     repository.StateRepository
	Config   *config.Config
	Logger   *slog.Logger
}

// NewPurchaseService creates the purchase workflow service, seeding the
// entitlement cache with the last persisted snapshot.
func NewPurchaseService(params PurchaseServiceParams) usecase.PurchaseUsecase {
	svc := &purchaseService{
		api:      params.API,
		platform: params.Platform,
		repo:     params.Repo,
		cache:    newEntitlementStore(),
		config:   params.Config,
		logger:   params.Logger,
		now:      time.Now,
	}
	if saved, err := params.Repo.Purchases(); err == nil && saved != nil {
		svc.cache.ReplacePurchases(saved)
	}

	return svc
}

func (s *purchaseService) Setup(productIDs []string) {
	s.productIDs = productIDs
}

func (s *purchaseService) RetrieveProducts(ctx context.Context) error {
	result, err := s.platform.QueryProducts(ctx, s.productIDs)
	if err != nil {
		return apierror.Wrap(apierror.KindOther, err)
	}
	s.cache.SetProducts(result.Retrieved)
	if len(result.InvalidIDs) > 0 {
		s.logger.Error("store rejected product ids", slog.Any("invalid_ids", result.InvalidIDs))
	}

	return nil
}

func (s *purchaseService) GetPurchases(ctx context.Context) error {
	params, err := s.baseParams()
	if err != nil {
		return err
	}

	envelope, err := s.api.SendSigned(ctx, transport.EndpointGetPurchases, params)
	if err != nil {
		return err
	}

	return s.adoptPurchaseList(envelope)
}

func (s *purchaseService) Purchase(ctx context.Context, productID string) error {
	if !s.busy.CompareAndSwap(false, true) {
		return apierror.New(apierror.KindOperationInFlight)
	}
	defer s.settle()

	if !s.platform.CanMakePayments() {
		return apierror.New(apierror.KindCannotMakePayments)
	}

	if err := s.clockGate(ctx); err != nil {
		return err
	}

	s.setPhase(phasePlatform)
	outcome, err := s.platform.Purchase(ctx, productID, false)
	if err != nil {
		if errors.Is(err, service.ErrPaymentCancelled) {
			return apierror.New(apierror.KindPaymentCancelled)
		}
		s.logger.Error("platform purchase failed", slog.String("product_id", productID), slog.Any("error", err))

		return apierror.Wrap(apierror.KindPurchaseFailed, err)
	}

	// Deferred payments proceed like successes; the receipt decides.
	if err := s.reconcile(ctx, flowPurchase, []service.Transaction{outcome.Transaction}); err != nil {
		return err
	}
	if err := s.repo.SetPurchased(true); err != nil {
		s.logger.Error("persisting purchased flag failed", slog.Any("error", err))
	}

	return nil
}

func (s *purchaseService) Restore(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return apierror.New(apierror.KindOperationInFlight)
	}
	defer s.settle()

	if !s.platform.CanMakePayments() {
		return apierror.New(apierror.KindCannotMakePayments)
	}

	if err := s.clockGate(ctx); err != nil {
		return err
	}

	s.setPhase(phasePlatform)
	outcome, err := s.platform.Restore(ctx, false)
	if err != nil {
		return apierror.Wrap(apierror.KindRestoreFailed, err)
	}

	if len(outcome.Failed) > 0 {
		details := make([]error, 0, len(outcome.Failed))
		for _, failure := range outcome.Failed {
			if errors.Is(failure.Err, service.ErrPaymentCancelled) {
				return apierror.New(apierror.KindPaymentCancelled)
			}
			details = append(details, failure.Err)
		}
		s.logger.Error("restore reported failures", slog.Int("count", len(details)))

		return apierror.Wrap(apierror.KindRestoreFailed, details...)
	}

	return s.reconcile(ctx, flowRestore, outcome.Restored)
}

// clockGate runs the server-time comparison before any platform-store
// interaction. Only a skew failure aborts the flow; transport hiccups on the
// time authority do not block a purchase.
func (s *purchaseService) clockGate(ctx context.Context) error {
	s.setPhase(phaseClockCheck)
	if err := s.api.CompareServerTime(ctx); err != nil {
		if errors.Is(err, apierror.New(apierror.KindInvalidTimestamps)) {
			return apierror.New(apierror.KindInvalidTimestamps)
		}
		s.logger.Warn("server time comparison failed", slog.Any("error", err))
	}

	return nil
}

// reconcile is the shared tail of purchase and restore: receipt fetch,
// server verification, then transaction finalization. Transactions are
// finalized only after the verification round trip returns, success or
// failure; acknowledging them earlier could lose an entitlement if the
// client crashed between the two steps.
func (s *purchaseService) reconcile(ctx context.Context, flow flowKind, txs []service.Transaction) error {
	s.setPhase(phaseReceipt)
	receipt, err := s.platform.FetchReceipt(ctx, true)
	if err != nil {
		s.logger.Error("receipt fetch failed", slog.Any("error", err))

		return apierror.Wrap(flow.receiptFailureKind(), err)
	}

	s.setPhase(phaseVerification)
	verifyErr := s.verifyReceipt(ctx, base64.StdEncoding.EncodeToString(receipt))
	s.finalize(ctx, txs)

	return verifyErr
}

func (s *purchaseService) verifyReceipt(ctx context.Context, encodedReceipt string) error {
	params, err := s.baseParams()
	if err != nil {
		return err
	}
	params["receipt"] = encodedReceipt

	envelope, err := s.api.SendSigned(ctx, transport.EndpointVerifyReceipt, params)
	if err != nil {
		return err
	}

	return s.adoptPurchaseList(envelope)
}

// adoptPurchaseList replaces the entitlement cache with the server's
// purchase_list, joins prices from the product catalog and persists the
// snapshot.
func (s *purchaseService) adoptPurchaseList(envelope map[string]any) error {
	rawList, ok := envelope["purchase_list"].([]any)
	if !ok {
		return apierror.New(apierror.KindBadResult)
	}

	purchases := make([]entity.Purchase, 0, len(rawList))
	for _, item := range rawList {
		raw, err := json.Marshal(item)
		if err != nil {
			continue
		}
		purchase, err := entity.NewPurchase(raw)
		if err != nil {
			s.logger.Error("purchase record decode failed", slog.Any("error", err))

			continue
		}
		purchases = append(purchases, purchase.WithPrice(s.cache.ProductByID(purchase.ProductID)))
	}

	s.cache.ReplacePurchases(purchases)
	if err := s.repo.SavePurchases(purchases); err != nil {
		s.logger.Error("persisting purchase snapshot failed", slog.Any("error", err))
	}
	s.logger.Info("entitlements replaced", slog.Int("count", len(purchases)))

	return nil
}

func (s *purchaseService) finalize(ctx context.Context, txs []service.Transaction) {
	for _, tx := range txs {
		if !tx.NeedsFinalization {
			continue
		}
		if err := s.platform.Finalize(ctx, tx); err != nil {
			s.logger.Error("transaction finalization failed",
				slog.String("transaction_id", tx.ID), slog.Any("error", err))
		}
	}
}

func (s *purchaseService) Products() []entity.Product {
	return s.cache.Products()
}

func (s *purchaseService) Purchases() []entity.Purchase {
	return s.cache.Purchases()
}

func (s *purchaseService) IsActive(productID string) bool {
	return s.cache.IsActive(productID, s.now())
}

func (s *purchaseService) IsPurchased() bool {
	purchased, err := s.repo.IsPurchased()
	if err != nil {
		return false
	}

	return purchased
}

// baseParams assembles the device/bundle identifier pair every purchase
// endpoint requires, failing fast without a network call when the device
// identity is missing.
func (s *purchaseService) baseParams() (map[string]any, error) {
	identity, err := s.repo.DeviceIdentity()
	if err != nil || identity == nil || identity.Key == "" {
		return nil, apierror.New(apierror.KindBadParameters)
	}

	return map[string]any{
		"device_id": identity.Key,
		"bundle_id": s.config.App.BundleID,
	}, nil
}

func (s *purchaseService) setPhase(phase flowPhase) {
	s.phase.Store(int32(phase))
	s.logger.Debug("workflow phase", slog.String("phase", phase.String()))
}

func (s *purchaseService) settle() {
	s.setPhase(phaseSettled)
	s.busy.Store(false)
}
