package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/config"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/consumer"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/events"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/gateway"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/repository"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/scheduler"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/service"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

// app holds the connections and the two entry points into the lifecycle:
// the event consumer and the reconciliation scheduler.
type app struct {
	cfg       *config.Config
	db        *sql.DB
	redis     *redis.Client
	nc        *nats.Conn
	writer    *kafka.Writer
	consumer  *consumer.Consumer
	scheduler *scheduler.Scheduler
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})

	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	a := &app{
		cfg:    cfg,
		db:     db,
		redis:  redisClient,
		nc:     nc,
		writer: events.NewKafkaWriter(cfg.Brokers()),
	}
	if err := a.wire(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	cfg := a.cfg

	// Repositories
	tx := repository.NewTransactor(a.db)
	payments := repository.NewPaymentRepository(a.db)
	deposits := repository.NewPixDepositRepository(a.db)
	pixDevolutions := repository.NewPixDevolutionRepository(a.db)
	refundDevolutions := repository.NewPixRefundDevolutionRepository(a.db)
	warningDevolutions := repository.NewWarningPixDevolutionRepository(a.db)
	refunds := repository.NewPixRefundRepository(a.db)
	refundOperations := repository.NewPixInfractionRefundOperationRepository(a.db)
	infractions := repository.NewPixInfractionRepository(a.db)
	fraudDetections := repository.NewPixFraudDetectionRepository(a.db)

	// Gateways
	psp := gateway.NewPSPClient(gateway.PSPConfig{
		BaseURL:     cfg.PSP.BaseURL,
		Timeout:     cfg.PSP.Timeout,
		RetryCount:  cfg.PSP.RetryCount,
		MaxFailures: cfg.PSP.MaxFailures,
		OpenTimeout: cfg.PSP.BreakerTimeout,
	})
	operations := gateway.NewOperationClient(cfg.Ledger.BaseURL, cfg.Ledger.Timeout)
	issues := gateway.NewIssueClient(a.nc, cfg.Issue.Timeout)
	translate := gateway.NewTranslator(cfg.Translate)

	// Emitters
	publisher := events.NewPublisher(a.writer)
	paymentEmitter := events.NewPaymentEmitter(publisher)
	pixDevolutionEmitter := events.NewPixDevolutionEmitter(publisher)
	refundDevolutionEmitter := events.NewPixRefundDevolutionEmitter(publisher)
	warningDevolutionEmitter := events.NewWarningPixDevolutionEmitter(publisher)
	refundEmitter := events.NewPixRefundEmitter(publisher)
	infractionEmitter := events.NewPixInfractionEmitter(publisher)
	fraudDetectionEmitter := events.NewPixFraudDetectionEmitter(publisher)

	resolver := service.NewTransactionResolver(payments, pixDevolutions)

	var routes []consumer.Route
	routes = append(routes, consumer.PaymentRoutes(
		service.NewHandlePendingPaymentEvent(payments, psp, paymentEmitter),
		service.NewHandlePendingFailedPaymentEvent(payments, paymentEmitter),
		service.NewHandleCompletePaymentEvent(payments, operations, paymentEmitter),
		service.NewHandleRevertPaymentEvent(payments, operations, paymentEmitter),
	)...)
	routes = append(routes, consumer.DevolutionRoutes[*models.PixDevolution](
		events.PixDevolutionTopicPrefix,
		service.NewHandlePendingDevolutionEvent[*models.PixDevolution](pixDevolutions, psp, pixDevolutionEmitter),
		service.NewHandlePendingFailedDevolutionEvent[*models.PixDevolution](pixDevolutions, pixDevolutionEmitter),
		service.NewHandleCompleteDevolutionEvent[*models.PixDevolution](pixDevolutions, operations, pixDevolutionEmitter),
		service.NewHandleRevertDevolutionEvent[*models.PixDevolution](pixDevolutions, operations, pixDevolutionEmitter, deposits, tx),
		service.NewReceiveDevolutionChargeback[*models.PixDevolution](pixDevolutions, operations, pixDevolutionEmitter, deposits, tx),
	)...)
	routes = append(routes, consumer.DevolutionRoutes[*models.PixRefundDevolution](
		events.PixRefundDevolutionTopicPrefix,
		service.NewHandlePendingDevolutionEvent[*models.PixRefundDevolution](refundDevolutions, psp, refundDevolutionEmitter),
		service.NewHandlePendingFailedDevolutionEvent[*models.PixRefundDevolution](refundDevolutions, refundDevolutionEmitter),
		service.NewHandleCompleteDevolutionEvent[*models.PixRefundDevolution](refundDevolutions, operations, refundDevolutionEmitter),
		service.NewHandleRevertDevolutionEvent[*models.PixRefundDevolution](refundDevolutions, operations, refundDevolutionEmitter, nil, tx),
		service.NewReceiveDevolutionChargeback[*models.PixRefundDevolution](refundDevolutions, operations, refundDevolutionEmitter, nil, tx),
	)...)
	routes = append(routes, consumer.DevolutionRoutes[*models.WarningPixDevolution](
		events.WarningPixDevolutionTopicPrefix,
		service.NewHandlePendingDevolutionEvent[*models.WarningPixDevolution](warningDevolutions, psp, warningDevolutionEmitter),
		service.NewHandlePendingFailedDevolutionEvent[*models.WarningPixDevolution](warningDevolutions, warningDevolutionEmitter),
		service.NewHandleCompleteDevolutionEvent[*models.WarningPixDevolution](warningDevolutions, operations, warningDevolutionEmitter),
		service.NewHandleRevertDevolutionEvent[*models.WarningPixDevolution](warningDevolutions, operations, warningDevolutionEmitter, nil, tx),
		service.NewReceiveDevolutionChargeback[*models.WarningPixDevolution](warningDevolutions, operations, warningDevolutionEmitter, nil, tx),
	)...)
	routes = append(routes, consumer.RefundRoutes(
		service.NewCancelPixRefund(refunds, refundOperations, operations, refundEmitter),
		service.NewClosePixRefund(refunds, refundOperations, refundDevolutions, operations, resolver, refundEmitter,
			refundDevolutionEmitter),
	)...)
	routes = append(routes, consumer.InfractionRoutes(
		service.NewCreatePixInfraction(infractions, resolver, infractionEmitter),
		service.NewCancelPixInfraction(infractions, infractionEmitter),
		service.NewClosePixInfraction(infractions, infractionEmitter),
	)...)
	routes = append(routes, consumer.FraudDetectionRoutes(
		service.NewHandleRegisterPendingPixFraudDetectionEvent(fraudDetections, psp, issues, fraudDetectionEmitter),
		service.NewHandleCancelPendingPixFraudDetectionEvent(fraudDetections, psp, issues, fraudDetectionEmitter),
		service.NewHandleFailedPixFraudDetectionEvent(fraudDetections, fraudDetectionEmitter),
	)...)

	a.consumer = consumer.New(consumer.Config{
		Brokers:     cfg.Brokers(),
		GroupID:     cfg.KafkaGroupID,
		MaxAttempts: cfg.Consumer.MaxAttempts,
		Backoff:     cfg.Consumer.Backoff,
		MaxBackoff:  cfg.Consumer.MaxBackoff,
	}, routes...)

	jobCfg := func(name string) config.SyncJob { return cfg.Sync[name] }
	jobs := []scheduler.Job{
		service.NewSyncWaitingRecentPayment(payments, psp, translate, paymentEmitter,
			jobCfg(service.JobSyncWaitingRecentPayment).Threshold),
		service.NewSyncWaitingRecentPixDevolution(pixDevolutions, psp, translate, pixDevolutionEmitter,
			jobCfg(service.JobSyncWaitingRecentPixDevolution).Threshold),
		service.NewSyncWaitingPixRefundDevolution(refundDevolutions, psp, translate, refundDevolutionEmitter,
			jobCfg(service.JobSyncWaitingPixRefundDevolution).Threshold),
		service.NewSyncWaitingWarningPixDevolution(warningDevolutions, psp, translate, warningDevolutionEmitter,
			jobCfg(service.JobSyncWaitingWarningDevolution).Threshold),
		service.NewSyncReceivedPixFraudDetection(fraudDetections, psp, fraudDetectionEmitter,
			jobCfg(service.JobSyncReceivedPixFraudDetection).Window, jobCfg(service.JobSyncReceivedPixFraudDetection).PageSize),
		service.NewSyncPendingPixFraudDetection(fraudDetections, psp, fraudDetectionEmitter,
			jobCfg(service.JobSyncPendingPixFraudDetection).Threshold),
	}

	a.scheduler = scheduler.New(a.redis, cfg.LockExpiry)
	for _, job := range jobs {
		if err := a.scheduler.Register(jobCfg(job.Name()).Schedule, job); err != nil {
			return err
		}
	}

	return nil
}

func (a *app) close() {
	if err := a.writer.Close(); err != nil {
		telemetry.Logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
	a.nc.Close()
	if err := a.redis.Close(); err != nil {
		telemetry.Logger.Error("Failed to close Redis client", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		telemetry.Logger.Error("Failed to close database", zap.Error(err))
	}
}

func (a *app) ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}
