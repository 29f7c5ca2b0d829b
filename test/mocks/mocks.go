package mocks

import (
	"context"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	"github.com/google/uuid"
)

// UserGatewayMock is a lightweight mock for UserGateway
type UserGatewayMock struct {
	FindOneFn func(ctx context.Context, query map[string]string) (*account.User, error)
	GetByIDFn func(ctx context.Context, id uuid.UUID) (*account.User, error)
	PatchFn   func(ctx context.Context, id uuid.UUID, p *account.Patch) (*account.User, error)
	CountFn   func(ctx context.Context, field, value string, excludeID *uuid.UUID) (int, error)
}

func (m *UserGatewayMock) FindOne(ctx context.Context, query map[string]string) (*account.User, error) {
	if m.FindOneFn != nil {
		return m.FindOneFn(ctx, query)
	}
	return nil, account.NewError(account.CodeNotFound, "no user matched the given fields")
}
func (m *UserGatewayMock) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, account.NewError(account.CodeNotFound, "user not found")
}
func (m *UserGatewayMock) Patch(ctx context.Context, id uuid.UUID, p *account.Patch) (*account.User, error) {
	if m.PatchFn != nil {
		return m.PatchFn(ctx, id, p)
	}
	return nil, account.NewError(account.CodeNotFound, "user not found")
}
func (m *UserGatewayMock) Count(ctx context.Context, field, value string, excludeID *uuid.UUID) (int, error) {
	if m.CountFn != nil {
		return m.CountFn(ctx, field, value, excludeID)
	}
	return 0, nil
}

// NotifierMock records notifications instead of delivering them
type NotifierMock struct {
	NotifyFn func(ctx context.Context, typ ports.NotificationType, u *account.User, options map[string]interface{}) error

	Sent []SentNotification
}

// SentNotification is one recorded Notify call
type SentNotification struct {
	Type    ports.NotificationType
	User    *account.User
	Options map[string]interface{}
}

func (m *NotifierMock) Notify(ctx context.Context, typ ports.NotificationType, u *account.User, options map[string]interface{}) error {
	m.Sent = append(m.Sent, SentNotification{Type: typ, User: u, Options: options})
	if m.NotifyFn != nil {
		return m.NotifyFn(ctx, typ, u, options)
	}
	return nil
}

// PasswordHasherMock hashes with a reversible marker so tests can assert on
// plain values
type PasswordHasherMock struct {
	HashFn    func(password string) (string, error)
	CompareFn func(hash, password string) error
}

func (m *PasswordHasherMock) Hash(password string) (string, error) {
	if m.HashFn != nil {
		return m.HashFn(password)
	}
	return "hashed:" + password, nil
}
func (m *PasswordHasherMock) Compare(hash, password string) error {
	if m.CompareFn != nil {
		return m.CompareFn(hash, password)
	}
	if hash != "hashed:"+password {
		return account.NewError(account.CodeIncorrectPassword, "mismatch")
	}
	return nil
}

// TokenGeneratorMock returns fixed tokens
type TokenGeneratorMock struct {
	LongTokenFn  func(length int) (string, error)
	ShortTokenFn func(length int, digitsOnly bool) (string, error)
}

func (m *TokenGeneratorMock) LongToken(length int) (string, error) {
	if m.LongTokenFn != nil {
		return m.LongTokenFn(length)
	}
	return "long-token", nil
}
func (m *TokenGeneratorMock) ShortToken(length int, digitsOnly bool) (string, error) {
	if m.ShortTokenFn != nil {
		return m.ShortTokenFn(length, digitsOnly)
	}
	return "123456", nil
}

// ManagementServiceMock is a lightweight mock for ManagementService
type ManagementServiceMock struct {
	DispatchFn           func(ctx context.Context, call account.CallContext, req *account.Request) (*account.User, error)
	CheckUniqueFn        func(ctx context.Context, fields map[string]string, ownID *uuid.UUID) error
	ResendVerifySignupFn func(ctx context.Context, call account.CallContext, identify map[string]string, notifierOptions map[string]interface{}) (*account.User, error)
	VerifySignupLongFn   func(ctx context.Context, call account.CallContext, token string) (*account.User, error)
	VerifySignupShortFn  func(ctx context.Context, call account.CallContext, token string, identify map[string]string) (*account.User, error)
	SendResetPwdFn       func(ctx context.Context, call account.CallContext, identify map[string]string, notifierOptions map[string]interface{}) (*account.User, error)
	ResetPwdLongFn       func(ctx context.Context, call account.CallContext, token, password string) (*account.User, error)
	ResetPwdShortFn      func(ctx context.Context, call account.CallContext, token, password string, identify map[string]string) (*account.User, error)
	PasswordChangeFn     func(ctx context.Context, call account.CallContext, identify map[string]string, oldPassword, newPassword string) (*account.User, error)
	IdentityChangeFn     func(ctx context.Context, call account.CallContext, identify map[string]string, password string, changes map[string]string) (*account.User, error)
}

func (m *ManagementServiceMock) Dispatch(ctx context.Context, call account.CallContext, req *account.Request) (*account.User, error) {
	if m.DispatchFn != nil {
		return m.DispatchFn(ctx, call, req)
	}
	return nil, account.NewError(account.CodeInvalidAction, "not implemented")
}
func (m *ManagementServiceMock) CheckUnique(ctx context.Context, fields map[string]string, ownID *uuid.UUID) error {
	if m.CheckUniqueFn != nil {
		return m.CheckUniqueFn(ctx, fields, ownID)
	}
	return nil
}
func (m *ManagementServiceMock) ResendVerifySignup(ctx context.Context, call account.CallContext, identify map[string]string, notifierOptions map[string]interface{}) (*account.User, error) {
	if m.ResendVerifySignupFn != nil {
		return m.ResendVerifySignupFn(ctx, call, identify, notifierOptions)
	}
	return nil, nil
}
func (m *ManagementServiceMock) VerifySignupLong(ctx context.Context, call account.CallContext, token string) (*account.User, error) {
	if m.VerifySignupLongFn != nil {
		return m.VerifySignupLongFn(ctx, call, token)
	}
	return nil, nil
}
func (m *ManagementServiceMock) VerifySignupShort(ctx context.Context, call account.CallContext, token string, identify map[string]string) (*account.User, error) {
	if m.VerifySignupShortFn != nil {
		return m.VerifySignupShortFn(ctx, call, token, identify)
	}
	return nil, nil
}
func (m *ManagementServiceMock) SendResetPwd(ctx context.Context, call account.CallContext, identify map[string]string, notifierOptions map[string]interface{}) (*account.User, error) {
	if m.SendResetPwdFn != nil {
		return m.SendResetPwdFn(ctx, call, identify, notifierOptions)
	}
	return nil, nil
}
func (m *ManagementServiceMock) ResetPwdLong(ctx context.Context, call account.CallContext, token, password string) (*account.User, error) {
	if m.ResetPwdLongFn != nil {
		return m.ResetPwdLongFn(ctx, call, token, password)
	}
	return nil, nil
}
func (m *ManagementServiceMock) ResetPwdShort(ctx context.Context, call account.CallContext, token, password string, identify map[string]string) (*account.User, error) {
	if m.ResetPwdShortFn != nil {
		return m.ResetPwdShortFn(ctx, call, token, password, identify)
	}
	return nil, nil
}
func (m *ManagementServiceMock) PasswordChange(ctx context.Context, call account.CallContext, identify map[string]string, oldPassword, newPassword string) (*account.User, error) {
	if m.PasswordChangeFn != nil {
		return m.PasswordChangeFn(ctx, call, identify, oldPassword, newPassword)
	}
	return nil, nil
}
func (m *ManagementServiceMock) IdentityChange(ctx context.Context, call account.CallContext, identify map[string]string, password string, changes map[string]string) (*account.User, error) {
	if m.IdentityChangeFn != nil {
		return m.IdentityChangeFn(ctx, call, identify, password, changes)
	}
	return nil, nil
}
