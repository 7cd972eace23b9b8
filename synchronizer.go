package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SynchronizerConfig configures the identity synchronizer.
type SynchronizerConfig struct {
	Store   Store
	Logger  Logger
	Metrics *Metrics
	// Now defaults to time.Now.
	Now func() time.Time
	// Credential produces the placeholder credential for new records.
	// Defaults to RandomPasswordHash.
	Credential func() (string, error)
}

// Synchronizer mirrors payloads into local user records.
type Synchronizer struct {
	store      Store
	logger     Logger
	metrics    *Metrics
	now        func() time.Time
	credential func() (string, error)
}

// NewSynchronizer creates a synchronizer backed by store.
func NewSynchronizer(cfg SynchronizerConfig) *Synchronizer {
	logger := cfg.Logger
	if logger == nil {
		logger = DefaultLogger()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	credential := cfg.Credential
	if credential == nil {
		credential = RandomPasswordHash
	}

	return &Synchronizer{
		store:      cfg.Store,
		logger:     logger,
		metrics:    cfg.Metrics,
		now:        now,
		credential: credential,
	}
}

// Sync finds or creates the user for payload.ExternalID and refreshes the
// mirrored fields. Calling it twice with the same payload only moves the
// sync and last seen timestamps.
func (s *Synchronizer) Sync(ctx context.Context, payload *Payload, scope Scope) (*User, error) {
	if s == nil || s.store == nil {
		return nil, syncError(fmt.Errorf("identity store is required"), "init", "")
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	user, err := s.store.FindByExternalID(ctx, payload.ExternalID)
	if err != nil {
		s.metrics.ObserveSync("error")
		return nil, syncError(err, "find", payload.ExternalID)
	}

	if user == nil {
		user, err = s.create(ctx, payload, scope)
		if err == nil {
			s.metrics.ObserveSync("created")
			return user, nil
		}
		if !IsDuplicateExternalIDError(err) {
			s.metrics.ObserveSync("error")
			return nil, syncError(err, "create", payload.ExternalID)
		}

		s.logger.Debug("concurrent create for external id %s, retrying as update", payload.ExternalID)

		user, err = s.store.FindByExternalID(ctx, payload.ExternalID)
		if err != nil {
			s.metrics.ObserveSync("error")
			return nil, syncError(err, "find", payload.ExternalID)
		}
		if user == nil {
			s.metrics.ObserveSync("error")
			return nil, syncError(fmt.Errorf("record vanished after conflict"), "find", payload.ExternalID)
		}
	}

	if err := s.apply(user, payload, scope); err != nil {
		s.metrics.ObserveSync("error")
		return nil, syncError(err, "snapshot", payload.ExternalID)
	}

	user, err = s.store.Update(ctx, user)
	if err != nil {
		s.metrics.ObserveSync("error")
		return nil, syncError(err, "update", payload.ExternalID)
	}

	s.metrics.ObserveSync("updated")
	return user, nil
}

func (s *Synchronizer) create(ctx context.Context, payload *Payload, scope Scope) (*User, error) {
	hash, err := s.credential()
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:             uuid.New(),
		PasswordHash:   hash,
		ExternalUserID: stringPtr(payload.ExternalID),
	}

	if err := s.apply(user, payload, scope); err != nil {
		return nil, err
	}

	return s.store.Create(ctx, user)
}

func (s *Synchronizer) apply(user *User, payload *Payload, scope Scope) error {
	snapshot, err := payload.Snapshot()
	if err != nil {
		return err
	}

	now := s.now().UTC()

	if payload.DisplayName != "" {
		user.Name = stringPtr(payload.DisplayName)
	}
	if payload.Email != "" {
		user.Email = stringPtr(payload.Email)
	}

	user.AvatarURL = payload.AvatarURL
	user.ExternalStatus = payload.Status
	user.ExternalPayload = snapshot
	user.ExternalSyncedAt = &now
	user.LastSeenAt = &now

	if scope.AccountID != "" {
		user.ExternalAccountID = scope.AccountID
		user.ExternalAccounts = mergeUnique(user.ExternalAccounts, scope.AccountID)
	}
	if scope.AppKey != "" {
		user.ExternalApps = mergeUnique(user.ExternalApps, scope.AppKey)
	}

	return nil
}

func syncError(err error, operation, externalID string) error {
	clone := ErrSyncFailed.Clone()
	if clone == nil {
		return err
	}
	clone.Source = err
	return clone.WithMetadata(map[string]any{
		"operation":   operation,
		"external_id": externalID,
		"cause":       err.Error(),
	})
}
