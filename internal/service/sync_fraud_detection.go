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

const defaultFraudDetectionPageSize = 100

// SyncReceivedPixFraudDetection imports the fraud reports other participants
// registered against our clients during the last window.
type SyncReceivedPixFraudDetection struct {
	repo     interfaces.PixFraudDetectionRepository
	psp      interfaces.PixFraudDetectionGateway
	emitter  interfaces.PixFraudDetectionEventEmitter
	window   time.Duration
	pageSize int
	now      func() time.Time
}

func NewSyncReceivedPixFraudDetection(
	repo interfaces.PixFraudDetectionRepository,
	psp interfaces.PixFraudDetectionGateway,
	emitter interfaces.PixFraudDetectionEventEmitter,
	window time.Duration,
	pageSize int,
) *SyncReceivedPixFraudDetection {
	if pageSize <= 0 {
		pageSize = defaultFraudDetectionPageSize
	}
	return &SyncReceivedPixFraudDetection{
		repo:     repo,
		psp:      psp,
		emitter:  emitter,
		window:   window,
		pageSize: pageSize,
		now:      time.Now,
	}
}

func (s *SyncReceivedPixFraudDetection) Name() string { return JobSyncReceivedPixFraudDetection }

func (s *SyncReceivedPixFraudDetection) Execute(ctx context.Context) error {
	start := time.Now()
	defer func() {
		telemetry.SyncDuration.WithLabelValues(JobSyncReceivedPixFraudDetection).Observe(time.Since(start).Seconds())
	}()

	ctx, span := telemetry.StartSpan(ctx, "SyncReceivedPixFraudDetection", attribute.String("sync.job", JobSyncReceivedPixFraudDetection))
	defer span.End()

	end := s.now()
	req := interfaces.GetAllFraudDetectionRequest{
		CreatedAtStart: end.Add(-s.window),
		CreatedAtEnd:   end,
		Page:           1,
		Size:           s.pageSize,
	}

	for {
		page, err := s.psp.GetAllFraudDetection(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to list fraud detections page %d: %w", req.Page, err)
		}

		for _, item := range page.FraudDetections {
			if err := s.receive(ctx, item); err != nil {
				return err
			}
		}

		if !page.HasNextPage || len(page.FraudDetections) == 0 {
			return nil
		}
		req.Page++
	}
}

func (s *SyncReceivedPixFraudDetection) receive(ctx context.Context, item interfaces.FraudDetectionResponse) error {
	if item.FraudDetectionID == "" {
		telemetry.SyncRecordsTotal.WithLabelValues(JobSyncReceivedPixFraudDetection, telemetry.SyncResultSkipped).Inc()
		telemetry.Logger.Warn("Fraud detection without id received from PSP", zap.String("document", item.Document))
		return nil
	}

	existing, err := s.repo.GetByExternalID(ctx, item.FraudDetectionID)
	if err != nil {
		return err
	}
	if existing != nil {
		telemetry.SyncRecordsTotal.WithLabelValues(JobSyncReceivedPixFraudDetection, telemetry.SyncResultSkipped).Inc()
		return nil
	}

	created, err := s.repo.Create(ctx, &models.PixFraudDetection{
		ID:         uuid.New(),
		ExternalID: item.FraudDetectionID,
		Document:   item.Document,
		Key:        item.Key,
		FraudType:  item.FraudType,
		Status:     models.PixFraudDetectionStatusReceived,
		State:      models.PixFraudDetectionStateReceived,
	})
	if err != nil {
		return err
	}

	telemetry.SyncRecordsTotal.WithLabelValues(JobSyncReceivedPixFraudDetection, telemetry.SyncResultCreated).Inc()
	telemetry.Logger.Info("Fraud detection received",
		zap.String("id", created.ID.String()),
		zap.String("external_id", created.ExternalID),
		zap.String("fraud_type", string(created.FraudType)),
	)

	s.emitter.ReceivedPixFraudDetection(ctx, created)

	return nil
}

// SyncPendingPixFraudDetection retries registrations left in
// REGISTERED_PENDING for longer than the threshold.
type SyncPendingPixFraudDetection struct {
	repo    interfaces.PixFraudDetectionRepository
	psp     interfaces.PixFraudDetectionGateway
	emitter interfaces.PixFraudDetectionEventEmitter
	cfg     SyncConfig
	now     func() time.Time
}

func NewSyncPendingPixFraudDetection(
	repo interfaces.PixFraudDetectionRepository,
	psp interfaces.PixFraudDetectionGateway,
	emitter interfaces.PixFraudDetectionEventEmitter,
	threshold time.Duration,
) *SyncPendingPixFraudDetection {
	return &SyncPendingPixFraudDetection{
		repo:    repo,
		psp:     psp,
		emitter: emitter,
		cfg:     SyncConfig{Threshold: threshold, Comparison: models.BeforeThan},
		now:     time.Now,
	}
}

func (s *SyncPendingPixFraudDetection) Name() string { return JobSyncPendingPixFraudDetection }

func (s *SyncPendingPixFraudDetection) Execute(ctx context.Context) error {
	const job = JobSyncPendingPixFraudDetection

	start := time.Now()
	defer func() {
		telemetry.SyncDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	}()

	ctx, span := telemetry.StartSpan(ctx, "SyncPendingPixFraudDetection", attribute.String("sync.job", job))
	defer span.End()

	threshold := s.cfg.thresholdDate(s.now())
	pending, err := s.repo.GetAllByStateAndThresholdDate(ctx, models.PixFraudDetectionStateRegisteredPending, threshold, s.cfg.Comparison)
	if err != nil {
		return fmt.Errorf("failed to list pending fraud detections: %w", err)
	}

	for _, fraudDetection := range pending {
		logger := telemetry.Logger.With(zap.String("job", job), zap.String("id", fraudDetection.ID.String()))

		// Never reached the PSP: register from scratch.
		if fraudDetection.ExternalID == "" {
			s.emitter.RegisterPendingPixFraudDetection(ctx, fraudDetection)
			telemetry.SyncRecordsTotal.WithLabelValues(job, telemetry.SyncResultCompleted).Inc()
			continue
		}

		found, err := s.psp.GetByIDFraudDetection(ctx, fraudDetection.ExternalID)
		if err != nil {
			telemetry.SyncRecordsTotal.WithLabelValues(job, telemetry.SyncResultGatewayError).Inc()
			logger.Error("Failed to get fraud detection from PSP", zap.Error(err))
			continue
		}

		if found == nil || found.Status != models.PixFraudDetectionStatusRegistered {
			telemetry.SyncRecordsTotal.WithLabelValues(job, telemetry.SyncResultUnknown).Inc()
			status := ""
			if found != nil {
				status = string(found.Status)
			}
			logger.Warn("Unexpected fraud detection status", zap.String("status", status))
			continue
		}

		s.emitter.RegisterPendingPixFraudDetection(ctx, fraudDetection)
		telemetry.SyncRecordsTotal.WithLabelValues(job, telemetry.SyncResultCompleted).Inc()
	}

	return nil
}
