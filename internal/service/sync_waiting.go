package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

// Reconciliation job names, also used as metric labels and lock keys.
const (
	JobSyncWaitingRecentPayment       = "waiting_recent_payment"
	JobSyncWaitingRecentPixDevolution = "waiting_recent_pix_devolution"
	JobSyncWaitingPixRefundDevolution = "waiting_pix_refund_devolution"
	JobSyncWaitingWarningDevolution   = "waiting_warning_pix_devolution"
	JobSyncReceivedPixFraudDetection  = "received_pix_fraud_detection"
	JobSyncPendingPixFraudDetection   = "pending_pix_fraud_detection"
)

// SyncConfig selects the records a reconciliation pass reads: those whose
// updated_at falls on the Comparison side of now - Threshold.
type SyncConfig struct {
	Threshold  time.Duration
	Comparison models.ThresholdDateComparisonType
}

func (c SyncConfig) thresholdDate(now time.Time) time.Time {
	return now.Add(-c.Threshold)
}

// waitingRecord adapts one WAITING record to the shared reconciliation loop.
type waitingRecord struct {
	id         uuid.UUID
	lookup     func(ctx context.Context) (*interfaces.PaymentStatusResponse, error)
	completed  func(ctx context.Context, endToEndID string)
	chargeback func(ctx context.Context, reason string, failed *models.Failed)
}

// reconcileWaiting resolves every record against the PSP. Gateway and
// translation failures are logged per record and never stop the batch.
func reconcileWaiting(ctx context.Context, job string, translate interfaces.TranslateService, records []waitingRecord) {
	for _, record := range records {
		logger := telemetry.Logger.With(zap.String("job", job), zap.String("id", record.id.String()))

		status, err := record.lookup(ctx)
		if err == nil && status == nil {
			err = fmt.Errorf("empty PSP response")
		}
		if err != nil {
			telemetry.SyncRecordsTotal.WithLabelValues(job, telemetry.SyncResultGatewayError).Inc()
			logger.Error("Failed to get payment status from PSP", zap.Error(err))
			continue
		}

		switch status.Status {
		case interfaces.PSPPaymentStatusSettled:
			record.completed(ctx, status.EndToEndID)
			telemetry.SyncRecordsTotal.WithLabelValues(job, telemetry.SyncResultCompleted).Inc()
			logger.Info("Waiting record settled", zap.String("end_to_end_id", status.EndToEndID))

		case interfaces.PSPPaymentStatusProcessing:
			telemetry.SyncRecordsTotal.WithLabelValues(job, telemetry.SyncResultProcessing).Inc()
			logger.Debug("Waiting record still processing")

		case interfaces.PSPPaymentStatusChargeback:
			failed, err := translate.TranslatePixPaymentFailed(ctx, status.ErrorCode)
			if err != nil {
				telemetry.SyncRecordsTotal.WithLabelValues(job, telemetry.SyncResultGatewayError).Inc()
				logger.Error("Failed to translate PSP error code",
					zap.String("error_code", status.ErrorCode),
					zap.Error(err),
				)
				continue
			}
			record.chargeback(ctx, status.Reason, failed)
			telemetry.SyncRecordsTotal.WithLabelValues(job, telemetry.SyncResultReverted).Inc()
			logger.Info("Waiting record charged back",
				zap.String("error_code", status.ErrorCode),
				zap.String("reason", status.Reason),
			)

		default:
			telemetry.SyncRecordsTotal.WithLabelValues(job, telemetry.SyncResultUnknown).Inc()
			logger.Warn("Unexpected PSP status", zap.String("status", string(status.Status)))
		}
	}
}

// SyncWaitingPayment reconciles WAITING payments against the PSP.
type SyncWaitingPayment struct {
	repo      interfaces.PaymentRepository
	psp       interfaces.PixPaymentGateway
	translate interfaces.TranslateService
	emitter   interfaces.PaymentEventEmitter
	cfg       SyncConfig
	job       string
	now       func() time.Time
}

// NewSyncWaitingRecentPayment reads payments that moved to WAITING within
// the threshold.
func NewSyncWaitingRecentPayment(
	repo interfaces.PaymentRepository,
	psp interfaces.PixPaymentGateway,
	translate interfaces.TranslateService,
	emitter interfaces.PaymentEventEmitter,
	threshold time.Duration,
) *SyncWaitingPayment {
	return &SyncWaitingPayment{
		repo:      repo,
		psp:       psp,
		translate: translate,
		emitter:   emitter,
		cfg:       SyncConfig{Threshold: threshold, Comparison: models.AfterOrEqualThan},
		job:       JobSyncWaitingRecentPayment,
		now:       time.Now,
	}
}

func (s *SyncWaitingPayment) Name() string { return s.job }

func (s *SyncWaitingPayment) Execute(ctx context.Context) error {
	start := time.Now()
	defer func() {
		telemetry.SyncDuration.WithLabelValues(s.job).Observe(time.Since(start).Seconds())
	}()

	ctx, span := telemetry.StartSpan(ctx, "SyncWaitingPayment", attribute.String("sync.job", s.job))
	defer span.End()

	threshold := s.cfg.thresholdDate(s.now())
	payments, err := s.repo.GetAllByStateAndThresholdDate(ctx, models.PaymentStateWaiting, threshold, s.cfg.Comparison)
	if err != nil {
		return fmt.Errorf("failed to list waiting payments: %w", err)
	}

	telemetry.Logger.Info("Reconciling waiting payments",
		zap.String("job", s.job),
		zap.Int("count", len(payments)),
		zap.Time("threshold", threshold),
	)

	records := make([]waitingRecord, 0, len(payments))
	for _, payment := range payments {
		payment := payment
		records = append(records, waitingRecord{
			id: payment.ID,
			lookup: func(ctx context.Context) (*interfaces.PaymentStatusResponse, error) {
				return s.psp.GetPayment(ctx, interfaces.GetPaymentRequest{
					ID:         payment.ID,
					EndToEndID: payment.EndToEndID,
				})
			},
			completed: func(ctx context.Context, endToEndID string) {
				payment.EndToEndID = endToEndID
				s.emitter.CompletedPayment(ctx, payment)
			},
			chargeback: func(ctx context.Context, reason string, failed *models.Failed) {
				payment.ChargebackReason = reason
				payment.Failed = failed
				s.emitter.RevertedPayment(ctx, payment)
			},
		})
	}

	reconcileWaiting(ctx, s.job, s.translate, records)

	return nil
}

// SyncWaitingDevolution reconciles WAITING devolutions of one kind.
type SyncWaitingDevolution[T models.Devolution] struct {
	repo      interfaces.DevolutionRepository[T]
	psp       interfaces.PixPaymentGateway
	translate interfaces.TranslateService
	emitter   interfaces.DevolutionEventEmitter[T]
	cfg       SyncConfig
	job       string
	now       func() time.Time
}

func newSyncWaitingDevolution[T models.Devolution](
	job string,
	repo interfaces.DevolutionRepository[T],
	psp interfaces.PixPaymentGateway,
	translate interfaces.TranslateService,
	emitter interfaces.DevolutionEventEmitter[T],
	cfg SyncConfig,
) *SyncWaitingDevolution[T] {
	return &SyncWaitingDevolution[T]{
		repo:      repo,
		psp:       psp,
		translate: translate,
		emitter:   emitter,
		cfg:       cfg,
		job:       job,
		now:       time.Now,
	}
}

// NewSyncWaitingRecentPixDevolution reads devolutions that moved to WAITING
// within the threshold.
func NewSyncWaitingRecentPixDevolution(
	repo interfaces.DevolutionRepository[*models.PixDevolution],
	psp interfaces.PixPaymentGateway,
	translate interfaces.TranslateService,
	emitter interfaces.DevolutionEventEmitter[*models.PixDevolution],
	threshold time.Duration,
) *SyncWaitingDevolution[*models.PixDevolution] {
	return newSyncWaitingDevolution(JobSyncWaitingRecentPixDevolution, repo, psp, translate, emitter,
		SyncConfig{Threshold: threshold, Comparison: models.AfterOrEqualThan})
}

// NewSyncWaitingPixRefundDevolution reads refund devolutions stuck in
// WAITING for longer than the threshold.
func NewSyncWaitingPixRefundDevolution(
	repo interfaces.DevolutionRepository[*models.PixRefundDevolution],
	psp interfaces.PixPaymentGateway,
	translate interfaces.TranslateService,
	emitter interfaces.DevolutionEventEmitter[*models.PixRefundDevolution],
	threshold time.Duration,
) *SyncWaitingDevolution[*models.PixRefundDevolution] {
	return newSyncWaitingDevolution(JobSyncWaitingPixRefundDevolution, repo, psp, translate, emitter,
		SyncConfig{Threshold: threshold, Comparison: models.BeforeThan})
}

// NewSyncWaitingWarningPixDevolution reads warning devolutions stuck in
// WAITING for longer than the threshold.
func NewSyncWaitingWarningPixDevolution(
	repo interfaces.DevolutionRepository[*models.WarningPixDevolution],
	psp interfaces.PixPaymentGateway,
	translate interfaces.TranslateService,
	emitter interfaces.DevolutionEventEmitter[*models.WarningPixDevolution],
	threshold time.Duration,
) *SyncWaitingDevolution[*models.WarningPixDevolution] {
	return newSyncWaitingDevolution(JobSyncWaitingWarningDevolution, repo, psp, translate, emitter,
		SyncConfig{Threshold: threshold, Comparison: models.BeforeThan})
}

func (s *SyncWaitingDevolution[T]) Name() string { return s.job }

func (s *SyncWaitingDevolution[T]) Execute(ctx context.Context) error {
	start := time.Now()
	defer func() {
		telemetry.SyncDuration.WithLabelValues(s.job).Observe(time.Since(start).Seconds())
	}()

	ctx, span := telemetry.StartSpan(ctx, "SyncWaitingDevolution", attribute.String("sync.job", s.job))
	defer span.End()

	threshold := s.cfg.thresholdDate(s.now())
	devolutions, err := s.repo.GetAllByStateAndThresholdDate(ctx, models.DevolutionStateWaiting, threshold, s.cfg.Comparison)
	if err != nil {
		return fmt.Errorf("failed to list waiting %s: %w", models.DevolutionKind[T](), err)
	}

	telemetry.Logger.Info("Reconciling waiting devolutions",
		zap.String("job", s.job),
		zap.Int("count", len(devolutions)),
		zap.Time("threshold", threshold),
	)

	records := make([]waitingRecord, 0, len(devolutions))
	for _, devolution := range devolutions {
		devolution := devolution
		base := devolution.Devolution()
		records = append(records, waitingRecord{
			id: base.ID,
			lookup: func(ctx context.Context) (*interfaces.PaymentStatusResponse, error) {
				return s.psp.GetPaymentByID(ctx, interfaces.GetPaymentByIDRequest{
					ID:         base.ID,
					ExternalID: base.ExternalID,
				})
			},
			completed: func(ctx context.Context, endToEndID string) {
				base.EndToEndID = endToEndID
				s.emitter.CompletedDevolution(ctx, devolution)
			},
			chargeback: func(ctx context.Context, reason string, failed *models.Failed) {
				base.ChargebackReason = reason
				base.Failed = failed
				s.emitter.RevertedDevolution(ctx, devolution)
			},
		})
	}

	reconcileWaiting(ctx, s.job, s.translate, records)

	return nil
}
