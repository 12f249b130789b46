package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"taskboard-api/core/errors"
	"taskboard-api/core/logger"
	"taskboard-api/modules/calendar/repository"
	"taskboard-api/modules/calendar/service"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeSyncUser = "calendar:sync"
	TypeSyncAll  = "calendar:sync:all"
)

type syncUserPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// NewSyncUserTask builds the per-user sync task.
func NewSyncUserTask(userID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(syncUserPayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSyncUser, payload, asynq.MaxRetry(2)), nil
}

// NewSyncAllTask builds the periodic fan-out task.
func NewSyncAllTask() *asynq.Task {
	return asynq.NewTask(TypeSyncAll, nil, asynq.MaxRetry(0))
}

// Handler processes the calendar background tasks.
type Handler struct {
	syncService service.SyncService
	connRepo    repository.ConnectionRepository
	client      *asynq.Client
}

func NewHandler(syncService service.SyncService, connRepo repository.ConnectionRepository, client *asynq.Client) *Handler {
	return &Handler{syncService: syncService, connRepo: connRepo, client: client}
}

// Register mounts the handlers on the asynq mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSyncUser, h.HandleSyncUser)
	mux.HandleFunc(TypeSyncAll, h.HandleSyncAll)
}

// HandleSyncUser runs one sync pass for one user. Failure kinds that require
// user action are not retried; they are already recorded on the connection.
func (h *Handler) HandleSyncUser(ctx context.Context, t *asynq.Task) error {
	var p syncUserPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid sync task payload: %w: %w", err, asynq.SkipRetry)
	}

	result, appErr := h.syncService.Sync(ctx, p.UserID)
	if appErr != nil {
		logger.Error("Jobs:HandleSyncUser:Error", "error", appErr, "user_id", p.UserID)
		if errors.Is(appErr, errors.ErrNotConnected) || errors.Is(appErr, errors.ErrRefreshFailed) {
			// Retrying cannot help until the user re-authorizes.
			return fmt.Errorf("%s: %w", appErr.Message, asynq.SkipRetry)
		}
		return appErr
	}

	logger.Info("Jobs:HandleSyncUser:Done", "user_id", p.UserID, "stored", result.Stored, "skipped", result.Skipped)
	return nil
}

// HandleSyncAll enqueues a per-user sync task for every connected user.
func (h *Handler) HandleSyncAll(ctx context.Context, _ *asynq.Task) error {
	userIDs, err := h.connRepo.ListConnectedUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list connected users: %w", err)
	}

	for _, userID := range userIDs {
		task, err := NewSyncUserTask(userID)
		if err != nil {
			logger.Error("Jobs:HandleSyncAll:BuildTask:Error", "error", err, "user_id", userID)
			continue
		}
		if _, err := h.client.EnqueueContext(ctx, task); err != nil {
			logger.Error("Jobs:HandleSyncAll:Enqueue:Error", "error", err, "user_id", userID)
		}
	}

	logger.Info("Jobs:HandleSyncAll:Enqueued", "count", len(userIDs))
	return nil
}
