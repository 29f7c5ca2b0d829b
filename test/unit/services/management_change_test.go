package services_test

import (
	"context"
	"errors"
	"testing"

	impl "github.com/avatarctic/credential-management/internal/application/services"
	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	tmocks "github.com/avatarctic/credential-management/test/mocks"
	"github.com/google/uuid"
)

func TestCheckUnique_AllAvailable(t *testing.T) {
	gw := &tmocks.UserGatewayMock{
		CountFn: func(ctx context.Context, field, value string, excludeID *uuid.UUID) (int, error) {
			return 0, nil
		},
	}
	svc := newTestEngine(gw, &tmocks.NotifierMock{}, impl.ManagementOptions{})

	err := svc.CheckUnique(context.Background(), map[string]string{"email": "free@example.com"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckUnique_ReportsEveryConflict(t *testing.T) {
	gw := &tmocks.UserGatewayMock{
		CountFn: func(ctx context.Context, field, value string, excludeID *uuid.UUID) (int, error) {
			return 1, nil
		},
	}
	svc := newTestEngine(gw, &tmocks.NotifierMock{}, impl.ManagementOptions{})

	err := svc.CheckUnique(context.Background(),
		map[string]string{"email": "taken@example.com", "dialablePhone": "+15550100"}, nil)
	if account.CodeOf(err) != account.CodeInvalidParams {
		t.Fatalf("expected invalid-params, got %v", err)
	}
	var mgmtErr *account.Error
	if !errors.As(err, &mgmtErr) {
		t.Fatalf("expected a typed error, got %T", err)
	}
	if len(mgmtErr.Details) != 2 {
		t.Fatalf("expected both fields in details, got %v", mgmtErr.Details)
	}
	if mgmtErr.Details["email"] != "Already taken." {
		t.Fatalf("unexpected details: %v", mgmtErr.Details)
	}
}

func TestCheckUnique_ExcludesOwnRecord(t *testing.T) {
	ownID := uuid.New()
	var gotExclude *uuid.UUID
	gw := &tmocks.UserGatewayMock{
		CountFn: func(ctx context.Context, field, value string, excludeID *uuid.UUID) (int, error) {
			gotExclude = excludeID
			return 0, nil
		},
	}
	svc := newTestEngine(gw, &tmocks.NotifierMock{}, impl.ManagementOptions{})

	if err := svc.CheckUnique(context.Background(), map[string]string{"email": "me@example.com"}, &ownID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotExclude == nil || *gotExclude != ownID {
		t.Fatalf("expected own id to be excluded, got %v", gotExclude)
	}
}

func TestPasswordChange_WrongOldPassword(t *testing.T) {
	stored := verifiedUser()
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.PasswordChange(context.Background(), account.ServerCall(),
		map[string]string{"email": "a@example.com"}, "WrongPass999", "NewPass1234")
	if account.CodeOf(err) != account.CodeIncorrectPassword {
		t.Fatalf("expected incorrect-password, got %v", err)
	}
	if stored.PasswordHash != "hashed:OldPass123" {
		t.Fatal("password must not change on a failed check")
	}
}

func TestPasswordChange_Success(t *testing.T) {
	stored := verifiedUser()
	notifier := &tmocks.NotifierMock{}
	svc := newTestEngine(singleUserGateway(stored), notifier, impl.ManagementOptions{})

	_, err := svc.PasswordChange(context.Background(), account.ServerCall(),
		map[string]string{"email": "a@example.com"}, "OldPass123", "NewPass1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.PasswordHash != "hashed:NewPass1234" {
		t.Fatalf("expected new password hash, got %s", stored.PasswordHash)
	}
	if len(notifier.Sent) != 1 || notifier.Sent[0].Type != ports.NotifyPasswordChange {
		t.Fatalf("unexpected notifications: %+v", notifier.Sent)
	}
}

func TestPasswordChange_OtherAccountForbidden(t *testing.T) {
	stored := verifiedUser()
	otherID := uuid.New()
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	call := account.CallContext{Origin: account.OriginExternal, AuthUserID: &otherID}
	_, err := svc.PasswordChange(context.Background(), call,
		map[string]string{"email": "a@example.com"}, "OldPass123", "NewPass1234")
	if account.CodeOf(err) != account.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestPasswordChange_OwnAccountAllowed(t *testing.T) {
	stored := verifiedUser()
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	call := account.CallContext{Origin: account.OriginExternal, AuthUserID: &stored.ID}
	_, err := svc.PasswordChange(context.Background(), call,
		map[string]string{"email": "a@example.com"}, "OldPass123", "NewPass1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIdentityChange_StoresPendingWithoutApplying(t *testing.T) {
	stored := verifiedUser()
	notifier := &tmocks.NotifierMock{}
	svc := newTestEngine(singleUserGateway(stored), notifier, impl.ManagementOptions{})

	_, err := svc.IdentityChange(context.Background(), account.ServerCall(),
		map[string]string{"email": "a@example.com"}, "OldPass123",
		map[string]string{"email": "new@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Email != "a@example.com" {
		t.Fatalf("identity change must not apply immediately, got email %s", stored.Email)
	}
	if stored.VerifyChanges["email"] != "new@example.com" {
		t.Fatalf("expected pending change to be stored, got %v", stored.VerifyChanges)
	}
	if stored.VerifyToken == nil {
		t.Fatal("expected a fresh verify token for the pending change")
	}
	if len(notifier.Sent) != 1 || notifier.Sent[0].Type != ports.NotifyIdentityChange {
		t.Fatalf("unexpected notifications: %+v", notifier.Sent)
	}
}

func TestIdentityChange_WrongPassword(t *testing.T) {
	stored := verifiedUser()
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.IdentityChange(context.Background(), account.ServerCall(),
		map[string]string{"email": "a@example.com"}, "WrongPass999",
		map[string]string{"email": "new@example.com"})
	if account.CodeOf(err) != account.CodeIncorrectPassword {
		t.Fatalf("expected incorrect-password, got %v", err)
	}
	if len(stored.VerifyChanges) != 0 {
		t.Fatal("no pending changes may be stored on a failed password check")
	}
}

func TestIdentityChange_RejectsNonIdentityChangeField(t *testing.T) {
	stored := verifiedUser()
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.IdentityChange(context.Background(), account.ServerCall(),
		map[string]string{"email": "a@example.com"}, "OldPass123",
		map[string]string{"isVerified": "true"})
	if account.CodeOf(err) != account.CodeInvalidParams {
		t.Fatalf("expected invalid-params, got %v", err)
	}
}
