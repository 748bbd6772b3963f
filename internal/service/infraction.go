package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

var (
	infractionCancelTransition = transition[models.PixInfractionState]{
		entity: models.EntityPixInfraction,
		name:   "cancel",
		from:   []models.PixInfractionState{models.PixInfractionStateNewConfirmed},
		to:     models.PixInfractionStateCancelPending,
		noop:   []models.PixInfractionState{models.PixInfractionStateCancelPending, models.PixInfractionStateCancelConfirmed},
	}
	infractionCloseTransition = transition[models.PixInfractionState]{
		entity: models.EntityPixInfraction,
		name:   "close",
		from:   []models.PixInfractionState{models.PixInfractionStateNewConfirmed},
		to:     models.PixInfractionStateClosedPending,
		noop:   []models.PixInfractionState{models.PixInfractionStateClosedPending, models.PixInfractionStateClosedConfirmed},
	}
)

func loadInfraction(ctx context.Context, repo interfaces.PixInfractionRepository, issueID int64) (*models.PixInfraction, error) {
	if issueID == 0 {
		return nil, models.NewMissingDataError("issueId")
	}

	infraction, err := repo.GetByIssueID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if infraction == nil {
		return nil, models.NewNotFoundError(models.EntityPixInfraction, issueID)
	}

	return infraction, nil
}

// CreatePixInfraction records an infraction reported by the issue tracker.
// A second delivery for the same issue returns the stored record.
type CreatePixInfraction struct {
	repo     interfaces.PixInfractionRepository
	resolver *TransactionResolver
	emitter  interfaces.PixInfractionEventEmitter
}

func NewCreatePixInfraction(
	repo interfaces.PixInfractionRepository,
	resolver *TransactionResolver,
	emitter interfaces.PixInfractionEventEmitter,
) *CreatePixInfraction {
	return &CreatePixInfraction{repo: repo, resolver: resolver, emitter: emitter}
}

func (uc *CreatePixInfraction) Execute(ctx context.Context, infraction *models.PixInfraction) (*models.PixInfraction, error) {
	if infraction == nil {
		return nil, models.NewMissingDataError("infraction")
	}

	ctx, span := telemetry.StartSpan(ctx, "CreatePixInfraction", attribute.Int64("pix_infraction.issue_id", infraction.IssueID))
	defer span.End()

	var missing []string
	if infraction.IssueID == 0 {
		missing = append(missing, "issueId")
	}
	if infraction.InfractionType == "" {
		missing = append(missing, "infractionType")
	}
	if infraction.Status == "" {
		missing = append(missing, "status")
	}
	if infraction.Transaction.ID == uuid.Nil {
		missing = append(missing, "transaction.id")
	}
	if !infraction.Transaction.Type.IsValid() {
		missing = append(missing, "transaction.type")
	}
	if len(missing) > 0 {
		return nil, models.NewMissingDataError(missing...)
	}

	existing, err := uc.repo.GetByIssueID(ctx, infraction.IssueID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		telemetry.TransitionsTotal.WithLabelValues(models.EntityPixInfraction, "create", telemetry.OutcomeNoop).Inc()
		telemetry.Logger.Debug("Infraction already created", zap.Int64("issue_id", infraction.IssueID))
		return existing, nil
	}

	// A record that does not exist yet can only start from NEW.
	if infraction.Status != models.PixInfractionStatusNew {
		telemetry.TransitionsTotal.WithLabelValues(models.EntityPixInfraction, "create", telemetry.OutcomeRejected).Inc()
		return nil, models.NewInvalidStateError(models.EntityPixInfraction, strconv.FormatInt(infraction.IssueID, 10), string(infraction.Status))
	}

	resolved, err := uc.resolver.Resolve(ctx, infraction.Transaction)
	if err != nil {
		return nil, err
	}

	if infraction.ID == uuid.Nil {
		infraction.ID = uuid.New()
	}
	infraction.EndToEndID = resolved.EndToEndID
	infraction.State = models.PixInfractionStateNewConfirmed

	stored, created, err := uc.repo.Create(ctx, infraction)
	if err != nil {
		return nil, err
	}
	if !created {
		telemetry.TransitionsTotal.WithLabelValues(models.EntityPixInfraction, "create", telemetry.OutcomeNoop).Inc()
		telemetry.Logger.Debug("Infraction created concurrently", zap.Int64("issue_id", infraction.IssueID))
		return stored, nil
	}

	telemetry.TransitionsTotal.WithLabelValues(models.EntityPixInfraction, "create", telemetry.OutcomeApplied).Inc()
	telemetry.Logger.Info("Infraction created",
		zap.String("id", stored.ID.String()),
		zap.Int64("issue_id", stored.IssueID),
		zap.String("infraction_type", string(stored.InfractionType)),
		zap.String("transaction", stored.Transaction.String()),
	)

	uc.emitter.NewInfraction(ctx, stored)

	return stored, nil
}

// CancelPixInfraction withdraws an infraction that was not analysed yet.
type CancelPixInfraction struct {
	repo    interfaces.PixInfractionRepository
	emitter interfaces.PixInfractionEventEmitter
}

func NewCancelPixInfraction(repo interfaces.PixInfractionRepository, emitter interfaces.PixInfractionEventEmitter) *CancelPixInfraction {
	return &CancelPixInfraction{repo: repo, emitter: emitter}
}

func (uc *CancelPixInfraction) Execute(ctx context.Context, issueID int64) (*models.PixInfraction, error) {
	ctx, span := telemetry.StartSpan(ctx, "CancelPixInfraction", attribute.Int64("pix_infraction.issue_id", issueID))
	defer span.End()

	infraction, err := loadInfraction(ctx, uc.repo, issueID)
	if err != nil {
		return nil, err
	}

	v, err := infractionCancelTransition.check(issueID, infraction.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return infraction, nil
	}

	from := infraction.State
	infraction.State = models.PixInfractionStateCancelPending

	updated, err := uc.repo.Update(ctx, infraction, from)
	if infractionCancelTransition.superseded(issueID, err) {
		return loadInfraction(ctx, uc.repo, issueID)
	}
	if err != nil {
		return nil, err
	}
	infractionCancelTransition.applied(issueID, from)

	uc.emitter.CancelPendingInfraction(ctx, updated)

	return updated, nil
}

// ClosePixInfraction records the analysis result of an infraction.
type ClosePixInfraction struct {
	repo    interfaces.PixInfractionRepository
	emitter interfaces.PixInfractionEventEmitter
}

func NewClosePixInfraction(repo interfaces.PixInfractionRepository, emitter interfaces.PixInfractionEventEmitter) *ClosePixInfraction {
	return &ClosePixInfraction{repo: repo, emitter: emitter}
}

func (uc *ClosePixInfraction) Execute(
	ctx context.Context,
	issueID int64,
	analysisResult models.PixInfractionAnalysisResult,
	analysisDetails string,
) (*models.PixInfraction, error) {
	ctx, span := telemetry.StartSpan(ctx, "ClosePixInfraction", attribute.Int64("pix_infraction.issue_id", issueID))
	defer span.End()

	if analysisResult == "" {
		missing := []string{"analysisResult"}
		if issueID == 0 {
			missing = append([]string{"issueId"}, missing...)
		}
		return nil, models.NewMissingDataError(missing...)
	}

	infraction, err := loadInfraction(ctx, uc.repo, issueID)
	if err != nil {
		return nil, err
	}

	v, err := infractionCloseTransition.check(issueID, infraction.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return infraction, nil
	}

	from := infraction.State
	infraction.State = models.PixInfractionStateClosedPending
	infraction.AnalysisResult = analysisResult
	infraction.AnalysisDetails = analysisDetails

	updated, err := uc.repo.Update(ctx, infraction, from)
	if infractionCloseTransition.superseded(issueID, err) {
		return loadInfraction(ctx, uc.repo, issueID)
	}
	if err != nil {
		return nil, err
	}
	infractionCloseTransition.applied(issueID, from)

	uc.emitter.ClosePendingInfraction(ctx, updated)

	return updated, nil
}
