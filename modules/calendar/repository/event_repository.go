package repository

import (
	"context"

	"taskboard-api/core/database"
	"taskboard-api/core/logger"
	"taskboard-api/modules/calendar/entity"

	"github.com/google/uuid"
)

// EventRepository owns the local event mirror.
type EventRepository interface {
	// Upsert inserts the event or overwrites its mutable fields when the
	// (user_id, external_event_id) key already exists.
	Upsert(ctx context.Context, ev *entity.MirroredEvent) error

	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.MirroredEvent, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type eventRepository struct {
	db database.IDatabase
}

func NewEventRepository(db database.IDatabase) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Upsert(ctx context.Context, ev *entity.MirroredEvent) error {
	query := `
		INSERT INTO calendar_events (
			user_id, external_event_id, summary, description, start_time, end_time,
			all_day, location, attendees, created_at, updated_at
		)
		VALUES (
			:user_id, :external_event_id, :summary, :description, :start_time, :end_time,
			:all_day, :location, :attendees, NOW(), NOW()
		)
		ON CONFLICT (user_id, external_event_id)
		DO UPDATE SET
			summary = EXCLUDED.summary,
			description = EXCLUDED.description,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			all_day = EXCLUDED.all_day,
			location = EXCLUDED.location,
			attendees = EXCLUDED.attendees,
			updated_at = NOW()
	`
	_, err := r.db.NamedExecContext(ctx, query, ev)
	if err != nil {
		logger.Error("EventRepository:Upsert:Error", "error", err,
			"user_id", ev.UserID, "external_event_id", ev.ExternalEventID)
		return err
	}
	return nil
}

func (r *eventRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.MirroredEvent, error) {
	var events []entity.MirroredEvent
	query := `
		SELECT id, user_id, external_event_id, summary, description, start_time, end_time,
		       all_day, location, attendees, created_at, updated_at
		FROM calendar_events
		WHERE user_id = $1
		ORDER BY start_time ASC
	`
	if err := r.db.SelectContext(ctx, &events, query, userID); err != nil {
		logger.Error("EventRepository:ListByUser:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM calendar_events WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		logger.Error("EventRepository:CountByUser:Error", "error", err, "user_id", userID)
		return 0, err
	}
	return count, nil
}
