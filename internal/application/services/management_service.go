package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// minPasswordLen applies to every workflow that sets a new password.
const minPasswordLen = 8

// ManagementOptions is the immutable configuration of the workflow engine.
// Collaborators (gateway, notifier, hasher, token generator) are passed to
// the constructor separately.
type ManagementOptions struct {
	LongTokenLen     int
	ShortTokenLen    int
	ShortTokenDigits bool
	VerifyDelay      time.Duration
	ResetDelay       time.Duration
	IdentityFields   []string
	OwnAcctOnly      bool
	ActionsNoAuth    []string
	ReturnTokens     bool
}

// DefaultManagementOptions returns the defaults used when configuration
// leaves a value unset.
func DefaultManagementOptions() ManagementOptions {
	return ManagementOptions{
		LongTokenLen:     15,
		ShortTokenLen:    6,
		ShortTokenDigits: true,
		VerifyDelay:      5 * 24 * time.Hour,
		ResetDelay:       2 * time.Hour,
		IdentityFields:   []string{account.FieldEmail, account.FieldDialablePhone},
		OwnAcctOnly:      true,
		ActionsNoAuth: []string{
			account.ActionResendVerifySignup,
			account.ActionVerifySignupLong,
			account.ActionVerifySignupShort,
			account.ActionSendResetPwd,
			account.ActionResetPwdLong,
			account.ActionResetPwdShort,
		},
	}
}

// ErrorHook may transform workflow errors before they reach the caller.
// The default hook returns the error unchanged.
type ErrorHook func(ctx context.Context, err error, req *account.Request) error

// Workflow keys accepted by WithCallStrategies.
const (
	WorkflowCheckUnique        = "checkUnique"
	WorkflowResendVerifySignup = "resendVerifySignup"
	WorkflowVerifySignup       = "verifySignup"
	WorkflowSendResetPwd       = "sendResetPwd"
	WorkflowResetPassword      = "resetPassword"
	WorkflowPasswordChange     = "passwordChange"
	WorkflowIdentityChange     = "identityChange"
)

// ManagementService orchestrates the credential-change workflows over the
// injected collaborators. It holds no mutable state of its own; every call
// carries its full context as parameters.
type ManagementService struct {
	gateway    ports.UserGateway
	notifier   ports.Notifier
	hasher     ports.PasswordHasher
	tokens     ports.TokenGenerator
	opts       ManagementOptions
	logger     *logrus.Logger
	errHook    ErrorHook
	strategies map[string]ports.CallStrategies
	noAuth     map[string]struct{}
	now        func() time.Time
}

// Option customizes a ManagementService at construction time.
type Option func(*ManagementService)

// WithErrorHook installs a recovery hook run on every dispatch error.
func WithErrorHook(hook ErrorHook) Option {
	return func(s *ManagementService) { s.errHook = hook }
}

// WithCallStrategies overrides the find/patch strategies of one workflow.
func WithCallStrategies(workflow string, cs ports.CallStrategies) Option {
	return func(s *ManagementService) { s.strategies[workflow] = cs }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ManagementService) { s.now = now }
}

// NewManagementService creates the workflow engine.
func NewManagementService(
	gateway ports.UserGateway,
	notifier ports.Notifier,
	hasher ports.PasswordHasher,
	tokens ports.TokenGenerator,
	opts ManagementOptions,
	logger *logrus.Logger,
	options ...Option,
) ports.ManagementService {
	defaults := DefaultManagementOptions()
	if opts.LongTokenLen <= 0 {
		opts.LongTokenLen = defaults.LongTokenLen
	}
	if opts.ShortTokenLen <= 0 {
		opts.ShortTokenLen = defaults.ShortTokenLen
	}
	if opts.VerifyDelay <= 0 {
		opts.VerifyDelay = defaults.VerifyDelay
	}
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = defaults.ResetDelay
	}
	if len(opts.IdentityFields) == 0 {
		opts.IdentityFields = defaults.IdentityFields
	}
	if opts.ActionsNoAuth == nil {
		opts.ActionsNoAuth = defaults.ActionsNoAuth
	}

	s := &ManagementService{
		gateway:    gateway,
		notifier:   notifier,
		hasher:     hasher,
		tokens:     tokens,
		opts:       opts,
		logger:     logger,
		strategies: make(map[string]ports.CallStrategies),
		noAuth:     make(map[string]struct{}, len(opts.ActionsNoAuth)),
		now:        time.Now,
	}
	for _, action := range opts.ActionsNoAuth {
		s.noAuth[action] = struct{}{}
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Dispatch routes an {action, value} request to the matching workflow and
// runs any error through the recovery hook.
func (s *ManagementService) Dispatch(ctx context.Context, call account.CallContext, req *account.Request) (*account.User, error) {
	u, err := s.dispatch(ctx, call, req)
	if err != nil {
		if s.logger != nil {
			action := ""
			if req != nil {
				action = req.Action
			}
			s.logger.WithFields(logrus.Fields{"action": action, "code": account.CodeOf(err)}).Debug("management action failed")
		}
		if s.errHook != nil {
			return nil, s.errHook(ctx, err, req)
		}
		return nil, err
	}
	return u, nil
}

func (s *ManagementService) dispatch(ctx context.Context, call account.CallContext, req *account.Request) (*account.User, error) {
	if req == nil || req.Action == "" {
		return nil, account.NewError(account.CodeInvalidAction, "action is required")
	}

	if !isKnownAction(req.Action) {
		return nil, account.NewError(account.CodeInvalidAction, fmt.Sprintf("action '%s' is invalid", req.Action))
	}

	if call.Origin == account.OriginExternal && call.AuthUserID == nil {
		if _, ok := s.noAuth[req.Action]; !ok {
			return nil, account.NewError(account.CodeForbidden, fmt.Sprintf("action '%s' requires an authenticated caller", req.Action))
		}
	}

	switch req.Action {
	case account.ActionCheckUnique:
		var v account.CheckUniqueValue
		if err := decodeValue(req.Value, &v); err != nil {
			return nil, err
		}
		return nil, s.CheckUnique(ctx, v.User, v.OwnID)

	case account.ActionResendVerifySignup:
		var v account.IdentifyValue
		if err := decodeValue(req.Value, &v); err != nil {
			return nil, err
		}
		return s.ResendVerifySignup(ctx, call, v.User, req.NotifierOptions)

	case account.ActionVerifySignupLong:
		var v account.VerifyLongValue
		if err := decodeValue(req.Value, &v); err != nil {
			return nil, err
		}
		return s.VerifySignupLong(ctx, call, v.Token)

	case account.ActionVerifySignupShort:
		var v account.VerifyShortValue
		if err := decodeValue(req.Value, &v); err != nil {
			return nil, err
		}
		return s.VerifySignupShort(ctx, call, v.Token, v.User)

	case account.ActionSendResetPwd:
		var v account.IdentifyValue
		if err := decodeValue(req.Value, &v); err != nil {
			return nil, err
		}
		return s.SendResetPwd(ctx, call, v.User, req.NotifierOptions)

	case account.ActionResetPwdLong:
		var v account.ResetLongValue
		if err := decodeValue(req.Value, &v); err != nil {
			return nil, err
		}
		return s.ResetPwdLong(ctx, call, v.Token, v.Password)

	case account.ActionResetPwdShort:
		var v account.ResetShortValue
		if err := decodeValue(req.Value, &v); err != nil {
			return nil, err
		}
		return s.ResetPwdShort(ctx, call, v.Token, v.Password, v.User)

	case account.ActionPasswordChange:
		var v account.PasswordChangeValue
		if err := decodeValue(req.Value, &v); err != nil {
			return nil, err
		}
		return s.PasswordChange(ctx, call, v.User, v.OldPassword, v.Password)

	case account.ActionIdentityChange:
		var v account.IdentityChangeValue
		if err := decodeValue(req.Value, &v); err != nil {
			return nil, err
		}
		return s.IdentityChange(ctx, call, v.User, v.Password, v.Changes)

	default:
		return nil, account.NewError(account.CodeInvalidAction, fmt.Sprintf("action '%s' is invalid", req.Action))
	}
}

func isKnownAction(action string) bool {
	switch action {
	case account.ActionCheckUnique, account.ActionResendVerifySignup,
		account.ActionVerifySignupLong, account.ActionVerifySignupShort,
		account.ActionSendResetPwd, account.ActionResetPwdLong,
		account.ActionResetPwdShort, account.ActionPasswordChange,
		account.ActionIdentityChange:
		return true
	}
	return false
}

func decodeValue(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return account.NewError(account.CodeInvalidParams, "value payload is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return account.WrapError(account.CodeInvalidParams, "malformed value payload", err)
	}
	return nil
}

// ensureFieldsValid checks an identify-by-fields map against an allow-list.
// Unknown keys and empty values are rejected so a caller cannot smuggle
// token columns into an identity query.
func (s *ManagementService) ensureFieldsValid(fields map[string]string, allowed []string) error {
	if len(fields) == 0 {
		return account.NewError(account.CodeInvalidParams, "user identification fields are required")
	}
	for name, value := range fields {
		if !containsField(allowed, name) {
			return &account.Error{
				Code:    account.CodeInvalidParams,
				Message: fmt.Sprintf("field '%s' may not be used to identify a user", name),
				Details: map[string]string{name: "not allowed"},
			}
		}
		if value == "" {
			return &account.Error{
				Code:    account.CodeInvalidParams,
				Message: fmt.Sprintf("field '%s' must not be empty", name),
				Details: map[string]string{name: "empty"},
			}
		}
	}
	return nil
}

func containsField(allowed []string, name string) bool {
	for _, a := range allowed {
		if a == name {
			return true
		}
	}
	return false
}

func (s *ManagementService) strategiesFor(workflow string) ports.CallStrategies {
	if cs, ok := s.strategies[workflow]; ok {
		if cs.Find == nil || cs.Patch == nil {
			def := ports.DefaultStrategies()
			if cs.Find == nil {
				cs.Find = def.Find
			}
			if cs.Patch == nil {
				cs.Patch = def.Patch
			}
		}
		return cs
	}
	return ports.DefaultStrategies()
}

func (s *ManagementService) findUser(ctx context.Context, workflow string, query map[string]string) (*account.User, error) {
	return s.strategiesFor(workflow).Find(ctx, s.gateway, query)
}

func (s *ManagementService) patchUser(ctx context.Context, workflow string, u *account.User, p *account.Patch) (*account.User, error) {
	return s.strategiesFor(workflow).Patch(ctx, s.gateway, u.ID, p)
}

// ensureOwnAccount enforces the own-account policy for networked calls that
// carry an authenticated caller. Server-originated calls are trusted and
// skip the check.
func (s *ManagementService) ensureOwnAccount(call account.CallContext, u *account.User) error {
	if !s.opts.OwnAcctOnly || call.Origin == account.OriginServer || call.AuthUserID == nil {
		return nil
	}
	if *call.AuthUserID != u.ID {
		return account.NewError(account.CodeForbidden, "can only affect your own account")
	}
	return nil
}

func (s *ManagementService) newTriple(delay time.Duration) (account.TokenTriple, error) {
	long, err := s.tokens.LongToken(s.opts.LongTokenLen)
	if err != nil {
		return account.TokenTriple{}, account.WrapError(account.CodeGeneration, "failed to generate token", err)
	}
	short, err := s.tokens.ShortToken(s.opts.ShortTokenLen, s.opts.ShortTokenDigits)
	if err != nil {
		return account.TokenTriple{}, account.WrapError(account.CodeGeneration, "failed to generate token", err)
	}
	return account.NewTokenTriple(long, short, s.now().Add(delay)), nil
}

func (s *ManagementService) validateNewPassword(password string) error {
	if len(password) < minPasswordLen {
		return account.NewError(account.CodeInvalidParams,
			fmt.Sprintf("password must be at least %d characters long", minPasswordLen))
	}
	return nil
}

// sanitize prepares the record for the caller. Tokens survive only for
// server-originated calls when the engine is configured to return them.
func (s *ManagementService) sanitize(call account.CallContext, u *account.User) *account.User {
	retainTokens := call.Origin == account.OriginServer && s.opts.ReturnTokens
	return u.ForClient(retainTokens)
}

func (s *ManagementService) notify(ctx context.Context, typ ports.NotificationType, u *account.User, options map[string]interface{}) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, typ, u.ForNotifier(), options); err != nil {
		return fmt.Errorf("failed to notify '%s': %w", typ, err)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
