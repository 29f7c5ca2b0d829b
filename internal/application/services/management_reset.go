package services

import (
	"context"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// SendResetPwd issues a fresh reset token triple for a verified user and
// dispatches the reset notification.
func (s *ManagementService) SendResetPwd(ctx context.Context, call account.CallContext, identify map[string]string, notifierOptions map[string]interface{}) (*account.User, error) {
	if err := s.ensureFieldsValid(identify, s.opts.IdentityFields); err != nil {
		return nil, err
	}

	u, err := s.findUser(ctx, WorkflowSendResetPwd, identify)
	if err != nil {
		return nil, err
	}
	if !u.IsVerified {
		return nil, account.NewError(account.CodeNotVerified, "user is not verified")
	}

	triple, err := s.newTriple(s.opts.ResetDelay)
	if err != nil {
		return nil, err
	}
	u2, err := s.patchUser(ctx, WorkflowSendResetPwd, u, &account.Patch{Reset: &triple})
	if err != nil {
		return nil, err
	}

	if err := s.notify(ctx, ports.NotifySendResetPwd, u2, notifierOptions); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u2.ID}).Info("password reset token issued")
	}
	return s.sanitize(call, u2), nil
}

// ResetPwdLong sets a new password using the long reset token.
func (s *ManagementService) ResetPwdLong(ctx context.Context, call account.CallContext, token, password string) (*account.User, error) {
	if token == "" {
		return nil, account.NewError(account.CodeInvalidParams, "reset token is required")
	}

	u, err := s.findUser(ctx, WorkflowResetPassword, map[string]string{account.FieldResetToken: token})
	if err != nil {
		return nil, maskTokenLookup(err)
	}
	return s.completeReset(ctx, call, u, u.ResetToken, token, password)
}

// ResetPwdShort sets a new password using the short reset token plus
// identity fields that must name the token's own record.
func (s *ManagementService) ResetPwdShort(ctx context.Context, call account.CallContext, token, password string, identify map[string]string) (*account.User, error) {
	if token == "" {
		return nil, account.NewError(account.CodeInvalidParams, "reset token is required")
	}
	if err := s.ensureFieldsValid(identify, s.opts.IdentityFields); err != nil {
		return nil, err
	}

	u, err := s.findUser(ctx, WorkflowResetPassword, identify)
	if err != nil {
		return nil, err
	}
	return s.completeReset(ctx, call, u, u.ResetShortToken, token, password)
}

// completeReset runs the shared reset tail: verified/token/expiry checks,
// then a single patch that installs the new hash and consumes the triple.
func (s *ManagementService) completeReset(ctx context.Context, call account.CallContext, u *account.User, stored *string, supplied, password string) (*account.User, error) {
	if !u.IsVerified {
		return nil, account.NewError(account.CodeNotVerified, "user is not verified")
	}
	triple := u.ResetTriple()
	if !triple.IsSet() || stored == nil || *stored != supplied {
		return nil, account.NewError(account.CodeBadToken, "reset token is expired or invalid")
	}
	if triple.Expired(s.now()) {
		cleared := account.ClearedTriple()
		if _, err := s.patchUser(ctx, WorkflowResetPassword, u, &account.Patch{Reset: &cleared}); err != nil {
			return nil, err
		}
		return nil, account.NewError(account.CodeBadToken, "reset token is expired or invalid")
	}
	if err := s.validateNewPassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	cleared := account.ClearedTriple()
	u2, err := s.patchUser(ctx, WorkflowResetPassword, u, &account.Patch{
		PasswordHash: &hash,
		Reset:        &cleared,
	})
	if err != nil {
		return nil, err
	}

	if err := s.notify(ctx, ports.NotifyResetPwd, u2, nil); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u2.ID}).Info("password reset completed")
	}
	return s.sanitize(call, u2), nil
}
