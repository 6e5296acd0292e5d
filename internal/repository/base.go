package repository

import (
	"context"
	"errors"
	"strings"

	"yatube/internal/database"
	"yatube/internal/models"
	"yatube/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// readDB routes listing reads to the replica when one is connected.
func readDB(primary *gorm.DB) *gorm.DB {
	if database.ReadDB != nil {
		return database.ReadDB
	}
	return primary
}

// trackQuery opens a repository span and a latency timer. The returned func closes both.
func trackQuery(ctx context.Context, table, method string) (context.Context, func(error)) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, method, table)
	done := observability.TrackQuery(method, table)
	return ctx, func(err error) {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		done()
		span.End()
	}
}

// isUniqueConstraintError reports unique violations from postgres (SQLSTATE 23505) and sqlite.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

// isForeignKeyError reports foreign key violations from postgres (SQLSTATE 23503) and sqlite.
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

// insertError maps a failed insert of a dependent row. A missing referenced row, such as an
// author whose account was deleted while their token is still valid, is a client error.
func insertError(err error) error {
	if isForeignKeyError(err) {
		return models.NewValidationError("Referenced record no longer exists")
	}
	return models.NewInternalError(err)
}
