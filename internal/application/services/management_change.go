package services

import (
	"context"
	"sort"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CheckUnique reports whether the given identity values are free to use.
// A nil return means every value is available; conflicts are collected per
// field so the caller can surface them all at once.
func (s *ManagementService) CheckUnique(ctx context.Context, fields map[string]string, ownID *uuid.UUID) error {
	if err := s.ensureFieldsValid(fields, s.opts.IdentityFields); err != nil {
		return err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	conflicts := make(map[string]string)
	for _, name := range names {
		n, err := s.gateway.Count(ctx, name, fields[name], ownID)
		if err != nil {
			return err
		}
		if n > 0 {
			conflicts[name] = "Already taken."
		}
	}
	if len(conflicts) > 0 {
		return &account.Error{
			Code:    account.CodeInvalidParams,
			Message: "values already taken",
			Details: conflicts,
		}
	}
	return nil
}

// PasswordChange replaces the password of an identified user after checking
// the current one.
func (s *ManagementService) PasswordChange(ctx context.Context, call account.CallContext, identify map[string]string, oldPassword, newPassword string) (*account.User, error) {
	if err := s.ensureFieldsValid(identify, s.opts.IdentityFields); err != nil {
		return nil, err
	}

	u, err := s.findUser(ctx, WorkflowPasswordChange, identify)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwnAccount(call, u); err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(u.PasswordHash, oldPassword); err != nil {
		return nil, account.NewError(account.CodeIncorrectPassword, "current password is incorrect")
	}
	if err := s.validateNewPassword(newPassword); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	u2, err := s.patchUser(ctx, WorkflowPasswordChange, u, &account.Patch{PasswordHash: &hash})
	if err != nil {
		return nil, err
	}

	if err := s.notify(ctx, ports.NotifyPasswordChange, u2, nil); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u2.ID}).Info("password changed")
	}
	return s.sanitize(call, u2), nil
}

// IdentityChange records a password-confirmed request to change identity
// fields. The changes are stored as pending alongside a fresh verify token
// triple; nothing is applied until the token is redeemed.
func (s *ManagementService) IdentityChange(ctx context.Context, call account.CallContext, identify map[string]string, password string, changes map[string]string) (*account.User, error) {
	if err := s.ensureFieldsValid(identify, s.opts.IdentityFields); err != nil {
		return nil, err
	}
	if err := s.ensureFieldsValid(changes, s.opts.IdentityFields); err != nil {
		return nil, err
	}

	u, err := s.findUser(ctx, WorkflowIdentityChange, identify)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwnAccount(call, u); err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, account.NewError(account.CodeIncorrectPassword, "password is incorrect")
	}

	triple, err := s.newTriple(s.opts.VerifyDelay)
	if err != nil {
		return nil, err
	}
	pending := account.ChangeSet(changes)
	u2, err := s.patchUser(ctx, WorkflowIdentityChange, u, &account.Patch{
		Verify:        &triple,
		VerifyChanges: &pending,
	})
	if err != nil {
		return nil, err
	}

	if err := s.notify(ctx, ports.NotifyIdentityChange, u2, nil); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u2.ID, "pending_changes": len(changes)}).Info("identity change requested")
	}
	return s.sanitize(call, u2), nil
}
