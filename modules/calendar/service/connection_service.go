package service

import (
	"context"

	"taskboard-api/core/errors"
	"taskboard-api/core/logger"
	"taskboard-api/modules/calendar/dto"
	"taskboard-api/modules/calendar/repository"

	"github.com/google/uuid"
)

// ConnectionService covers the read side of a connection (status projection,
// mirror listing) and teardown.
type ConnectionService interface {
	// Status reflects stored state only; it never triggers a sync or a
	// refresh, so it stays cheap for frequent polling.
	Status(ctx context.Context, userID uuid.UUID) (*dto.StatusResponse, *errors.AppError)

	ListEvents(ctx context.Context, userID uuid.UUID) (*dto.MirroredEventListResponse, *errors.AppError)

	// Disconnect deletes the connection and every mirrored event for the
	// user.
	Disconnect(ctx context.Context, userID uuid.UUID) (*dto.DisconnectResponse, *errors.AppError)
}

type connectionService struct {
	connRepo  repository.ConnectionRepository
	eventRepo repository.EventRepository
}

func NewConnectionService(connRepo repository.ConnectionRepository, eventRepo repository.EventRepository) ConnectionService {
	return &connectionService{connRepo: connRepo, eventRepo: eventRepo}
}

func (s *connectionService) Status(ctx context.Context, userID uuid.UUID) (*dto.StatusResponse, *errors.AppError) {
	conn, err := s.connRepo.Get(ctx, userID)
	if err != nil {
		logger.Error("ConnectionService:Status:Get:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load calendar connection", err)
	}
	if conn == nil {
		return &dto.StatusResponse{Connected: false}, nil
	}

	email := conn.CalendarEmail
	return &dto.StatusResponse{
		Connected:        conn.HasCalendarScope,
		HasCalendarScope: conn.HasCalendarScope,
		Email:            &email,
		LastSync:         conn.LastSyncAt,
		Error:            conn.SyncError,
	}, nil
}

func (s *connectionService) ListEvents(ctx context.Context, userID uuid.UUID) (*dto.MirroredEventListResponse, *errors.AppError) {
	events, err := s.eventRepo.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("ConnectionService:ListEvents:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to list calendar events", err)
	}

	out := &dto.MirroredEventListResponse{Events: make([]dto.MirroredEventResponse, 0, len(events))}
	for _, ev := range events {
		out.Events = append(out.Events, dto.MirroredEventResponse{
			ExternalEventID: ev.ExternalEventID,
			Summary:         ev.Summary,
			Description:     ev.Description,
			StartTime:       ev.StartTime,
			EndTime:         ev.EndTime,
			AllDay:          ev.AllDay,
			Location:        ev.Location,
			Attendees:       ev.Attendees,
			UpdatedAt:       ev.UpdatedAt,
		})
	}
	return out, nil
}

func (s *connectionService) Disconnect(ctx context.Context, userID uuid.UUID) (*dto.DisconnectResponse, *errors.AppError) {
	conn, err := s.connRepo.Get(ctx, userID)
	if err != nil {
		logger.Error("ConnectionService:Disconnect:Get:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load calendar connection", err)
	}
	if conn == nil {
		return nil, errors.NewAppError(errors.ErrNotConnected, "no calendar connection for user", nil)
	}

	if err := s.connRepo.Clear(ctx, userID); err != nil {
		logger.Error("ConnectionService:Disconnect:Clear:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to disconnect calendar", err)
	}

	logger.Info("ConnectionService:Disconnected", "user_id", userID)
	return &dto.DisconnectResponse{Success: true, Message: "Google Calendar disconnected"}, nil
}
