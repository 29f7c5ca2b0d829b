package services_test

import (
	"context"
	"time"

	impl "github.com/avatarctic/credential-management/internal/application/services"
	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	tmocks "github.com/avatarctic/credential-management/test/mocks"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func unverifiedUser() *account.User {
	return &account.User{
		ID:           uuid.New(),
		Email:        "a@example.com",
		PasswordHash: "hashed:OldPass123",
		IsVerified:   false,
	}
}

func verifiedUser() *account.User {
	u := unverifiedUser()
	u.IsVerified = true
	return u
}

// applyPatch mirrors what the real gateway UPDATE does so tests observe the
// stored record after each workflow step.
func applyPatch(u *account.User, p *account.Patch) *account.User {
	if p.IsVerified != nil {
		u.IsVerified = *p.IsVerified
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Verify != nil {
		u.VerifyToken = p.Verify.Token
		u.VerifyShortToken = p.Verify.ShortToken
		u.VerifyExpires = p.Verify.Expires
	}
	if p.Reset != nil {
		u.ResetToken = p.Reset.Token
		u.ResetShortToken = p.Reset.ShortToken
		u.ResetExpires = p.Reset.Expires
	}
	if p.VerifyChanges != nil {
		u.VerifyChanges = *p.VerifyChanges
	}
	for name, value := range p.Identity {
		switch name {
		case account.FieldEmail:
			u.Email = value
		case account.FieldDialablePhone:
			u.DialablePhone = value
		case account.FieldUsername:
			u.Username = value
		}
	}
	cp := *u
	return &cp
}

// singleUserGateway serves and patches one in-memory record.
func singleUserGateway(u *account.User) *tmocks.UserGatewayMock {
	return &tmocks.UserGatewayMock{
		FindOneFn: func(ctx context.Context, query map[string]string) (*account.User, error) {
			cp := *u
			return &cp, nil
		},
		PatchFn: func(ctx context.Context, id uuid.UUID, p *account.Patch) (*account.User, error) {
			return applyPatch(u, p), nil
		},
	}
}

func newTestEngine(gw ports.UserGateway, notifier *tmocks.NotifierMock, opts impl.ManagementOptions, options ...impl.Option) ports.ManagementService {
	options = append(options, impl.WithClock(func() time.Time { return testNow }))
	return impl.NewManagementService(
		gw,
		notifier,
		&tmocks.PasswordHasherMock{},
		&tmocks.TokenGeneratorMock{},
		opts,
		logrus.New(),
		options...,
	)
}
