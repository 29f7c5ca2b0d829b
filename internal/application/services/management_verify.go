package services

import (
	"context"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// ResendVerifySignup issues a fresh verify token triple for an unverified
// user. Resending for an already verified user is rejected; that policy is
// deliberate, not configurable.
func (s *ManagementService) ResendVerifySignup(ctx context.Context, call account.CallContext, identify map[string]string, notifierOptions map[string]interface{}) (*account.User, error) {
	// The record may also be identified by the token it already holds,
	// e.g. when a user clicks "resend" on an expired verification link.
	allowed := append([]string{account.FieldVerifyToken, account.FieldVerifyShortToken}, s.opts.IdentityFields...)
	if err := s.ensureFieldsValid(identify, allowed); err != nil {
		return nil, err
	}

	u, err := s.findUser(ctx, WorkflowResendVerifySignup, identify)
	if err != nil {
		return nil, err
	}
	if u.IsVerified {
		return nil, account.NewError(account.CodeInvalidParams, "user is already verified")
	}

	triple, err := s.newTriple(s.opts.VerifyDelay)
	if err != nil {
		return nil, err
	}
	u2, err := s.patchUser(ctx, WorkflowResendVerifySignup, u, &account.Patch{
		IsVerified: boolPtr(false),
		Verify:     &triple,
	})
	if err != nil {
		return nil, err
	}

	typ := ports.NotifyResendVerifySignup
	if u2.IsInvitation {
		typ = ports.NotifyResendInvitationSignup
	}
	if err := s.notify(ctx, typ, u2, notifierOptions); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u2.ID}).Info("verification signup token reissued")
	}
	return s.sanitize(call, u2), nil
}

// VerifySignupLong completes signup (or a pending identity change) using the
// long verification token.
func (s *ManagementService) VerifySignupLong(ctx context.Context, call account.CallContext, token string) (*account.User, error) {
	if token == "" {
		return nil, account.NewError(account.CodeInvalidParams, "verification token is required")
	}

	u, err := s.findUser(ctx, WorkflowVerifySignup, map[string]string{account.FieldVerifyToken: token})
	if err != nil {
		return nil, maskTokenLookup(err)
	}
	return s.completeVerify(ctx, call, u, u.VerifyToken, token)
}

// VerifySignupShort completes signup using the short verification token plus
// identity fields that must name the token's own record.
func (s *ManagementService) VerifySignupShort(ctx context.Context, call account.CallContext, token string, identify map[string]string) (*account.User, error) {
	if token == "" {
		return nil, account.NewError(account.CodeInvalidParams, "verification token is required")
	}
	if err := s.ensureFieldsValid(identify, s.opts.IdentityFields); err != nil {
		return nil, err
	}

	u, err := s.findUser(ctx, WorkflowVerifySignup, identify)
	if err != nil {
		return nil, err
	}
	return s.completeVerify(ctx, call, u, u.VerifyShortToken, token)
}

// completeVerify runs the shared verification tail: token/expiry checks,
// then a single patch that marks the user verified, consumes the triple and
// applies any pending identity changes.
func (s *ManagementService) completeVerify(ctx context.Context, call account.CallContext, u *account.User, stored *string, supplied string) (*account.User, error) {
	if u.IsVerified && len(u.VerifyChanges) == 0 {
		return nil, account.NewError(account.CodeInvalidParams, "user is already verified")
	}
	triple := u.VerifyTriple()
	if !triple.IsSet() || stored == nil || *stored != supplied {
		return nil, account.NewError(account.CodeBadToken, "verification token is expired or invalid")
	}
	if triple.Expired(s.now()) {
		cleared := account.ClearedTriple()
		if _, err := s.patchUser(ctx, WorkflowVerifySignup, u, &account.Patch{Verify: &cleared}); err != nil {
			return nil, err
		}
		return nil, account.NewError(account.CodeBadToken, "verification token is expired or invalid")
	}

	cleared := account.ClearedTriple()
	noChanges := account.ChangeSet(nil)
	u2, err := s.patchUser(ctx, WorkflowVerifySignup, u, &account.Patch{
		IsVerified:    boolPtr(true),
		Verify:        &cleared,
		VerifyChanges: &noChanges,
		Identity:      u.VerifyChanges,
	})
	if err != nil {
		return nil, err
	}

	if err := s.notify(ctx, ports.NotifyVerifySignup, u2, nil); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": u2.ID, "applied_changes": len(u.VerifyChanges)}).Info("signup verified")
	}
	return s.sanitize(call, u2), nil
}

// maskTokenLookup hides whether a token-keyed lookup failed because the
// token is unknown or because it matched several records; either way the
// caller only learns the token did not work.
func maskTokenLookup(err error) error {
	switch account.CodeOf(err) {
	case account.CodeNotFound, account.CodeAmbiguousMatch:
		return account.WrapError(account.CodeBadToken, "token is expired or invalid", err)
	}
	return err
}
