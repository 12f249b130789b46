package repository

import (
	"context"
	"database/sql"
	"time"

	"taskboard-api/core/database"
	"taskboard-api/core/logger"
	"taskboard-api/modules/calendar/entity"

	"github.com/google/uuid"
)

// ConnectionRepository is the credential store: one connection row per user.
type ConnectionRepository interface {
	// Get returns nil, nil when the user has no connection.
	Get(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error)

	// Upsert writes the whole connection in one statement so a reader never
	// observes scope granted without a usable token.
	Upsert(ctx context.Context, conn *entity.CalendarConnection) error

	// UpdateToken persists a refreshed access token and expiry.
	UpdateToken(ctx context.Context, userID uuid.UUID, accessToken string, expiresAt time.Time) error

	// RecordSync stamps last_sync_at and clears any previous sync error.
	RecordSync(ctx context.Context, userID uuid.UUID, at time.Time) error

	// RecordError stores the sync failure cause on the connection.
	RecordError(ctx context.Context, userID uuid.UUID, message string) error

	// Clear deletes the connection and all mirrored events for the user in
	// one transaction.
	Clear(ctx context.Context, userID uuid.UUID) error

	// ListConnectedUserIDs returns users with a live connection, for the
	// scheduled sync fan-out.
	ListConnectedUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

type connectionRepository struct {
	db database.IDatabase
}

func NewConnectionRepository(db database.IDatabase) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Get(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	var conn entity.CalendarConnection
	query := `
		SELECT id, user_id, calendar_email, has_calendar_scope, access_token, refresh_token,
		       token_expires_at, connected_at, last_sync_at, sync_error, created_at, updated_at
		FROM calendar_connections
		WHERE user_id = $1
	`
	err := r.db.GetContext(ctx, &conn, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ConnectionRepository:Get:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) Upsert(ctx context.Context, conn *entity.CalendarConnection) error {
	query := `
		INSERT INTO calendar_connections (
			user_id, calendar_email, has_calendar_scope, access_token, refresh_token,
			token_expires_at, connected_at, last_sync_at, sync_error, created_at, updated_at
		)
		VALUES (
			:user_id, :calendar_email, :has_calendar_scope, :access_token, :refresh_token,
			:token_expires_at, :connected_at, :last_sync_at, :sync_error, NOW(), NOW()
		)
		ON CONFLICT (user_id)
		DO UPDATE SET
			calendar_email = EXCLUDED.calendar_email,
			has_calendar_scope = EXCLUDED.has_calendar_scope,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			connected_at = EXCLUDED.connected_at,
			sync_error = EXCLUDED.sync_error,
			updated_at = NOW()
	`
	_, err := r.db.NamedExecContext(ctx, query, conn)
	if err != nil {
		logger.Error("ConnectionRepository:Upsert:Error", "error", err, "user_id", conn.UserID)
		return err
	}
	return nil
}

func (r *connectionRepository) UpdateToken(ctx context.Context, userID uuid.UUID, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE calendar_connections
		SET access_token = $1, token_expires_at = $2, updated_at = NOW()
		WHERE user_id = $3
	`
	if err := r.db.ExecContext(ctx, query, accessToken, expiresAt, userID); err != nil {
		logger.Error("ConnectionRepository:UpdateToken:Error", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *connectionRepository) RecordSync(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE calendar_connections
		SET last_sync_at = $1, sync_error = NULL, updated_at = NOW()
		WHERE user_id = $2
	`
	if err := r.db.ExecContext(ctx, query, at, userID); err != nil {
		logger.Error("ConnectionRepository:RecordSync:Error", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *connectionRepository) RecordError(ctx context.Context, userID uuid.UUID, message string) error {
	query := `
		UPDATE calendar_connections
		SET sync_error = $1, updated_at = NOW()
		WHERE user_id = $2
	`
	if err := r.db.ExecContext(ctx, query, message, userID); err != nil {
		logger.Error("ConnectionRepository:RecordError:Error", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *connectionRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.db.SQLx().BeginTxx(ctx, nil)
	if err != nil {
		logger.Error("ConnectionRepository:Clear:Begin:Error", "error", err, "user_id", userID)
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_events WHERE user_id = $1`, userID); err != nil {
		logger.Error("ConnectionRepository:Clear:DeleteEvents:Error", "error", err, "user_id", userID)
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_connections WHERE user_id = $1`, userID); err != nil {
		logger.Error("ConnectionRepository:Clear:DeleteConnection:Error", "error", err, "user_id", userID)
		return err
	}

	return tx.Commit()
}

func (r *connectionRepository) ListConnectedUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `SELECT user_id FROM calendar_connections WHERE has_calendar_scope = true`
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		logger.Error("ConnectionRepository:ListConnectedUserIDs:Error", "error", err)
		return nil, err
	}
	return ids, nil
}
