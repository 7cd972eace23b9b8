package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	bridge "github.com/goliatone/go-auth-bridge"
)

const pgUniqueViolation = "23505"

// Users is the bun backed bridge.Store.
type Users struct {
	repo repository.Repository[*bridge.User]
	db   bun.IDB
	now  func() time.Time
}

var _ bridge.Store = (*Users)(nil)

// NewUsers creates the store on db.
func NewUsers(db *bun.DB) *Users {
	repo := repository.NewRepository[*bridge.User](db, repository.ModelHandlers[*bridge.User]{
		NewRecord: func() *bridge.User { return &bridge.User{} },
		GetID: func(u *bridge.User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *bridge.User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &Users{
		repo: repo,
		db:   db,
		now:  time.Now,
	}
}

// Repository exposes the generic repository for callers that need list or
// delete operations.
func (u *Users) Repository() repository.Repository[*bridge.User] {
	return u.repo
}

// FindByExternalID implements bridge.Store.
func (u *Users) FindByExternalID(ctx context.Context, externalID string) (*bridge.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}

	record := &bridge.User{}
	err := u.db.NewSelect().
		Model(record).
		Where("?TableAlias.external_user_id = ?", externalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return record, nil
}

// Create implements bridge.Store.
func (u *Users) Create(ctx context.Context, user *bridge.User) (*bridge.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := u.now().UTC()
	if user.CreatedAt == nil {
		user.CreatedAt = &now
	}
	user.UpdatedAt = &now

	created, err := u.repo.CreateTx(ctx, u.db, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateError(user, err)
		}
		return nil, err
	}

	return created, nil
}

// Update implements bridge.Store.
func (u *Users) Update(ctx context.Context, user *bridge.User) (*bridge.User, error) {
	now := u.now().UTC()
	user.UpdatedAt = &now

	updated, err := u.repo.UpdateTx(ctx, u.db, user, repository.UpdateByID(user.ID.String()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateError(user, err)
		}
		return nil, err
	}

	return updated, nil
}

func duplicateError(user *bridge.User, cause error) error {
	clone := bridge.ErrDuplicateExternalID.Clone()
	clone.Source = cause
	return clone.WithMetadata(map[string]any{
		"external_user_id": user.GetExternalUserID(),
		"cause":            cause.Error(),
	})
}

// isUniqueViolation detects unique constraint failures from postgres (pgx)
// and sqlite drivers anywhere in the error chain.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := strings.ToLower(e.Error())
		if strings.Contains(msg, "unique constraint failed") ||
			strings.Contains(msg, "duplicate key value violates unique constraint") {
			return true
		}
	}

	return false
}
