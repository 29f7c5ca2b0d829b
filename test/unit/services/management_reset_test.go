package services_test

import (
	"context"
	"testing"
	"time"

	impl "github.com/avatarctic/credential-management/internal/application/services"
	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	tmocks "github.com/avatarctic/credential-management/test/mocks"
)

func TestSendResetPwd_RequiresVerifiedUser(t *testing.T) {
	svc := newTestEngine(singleUserGateway(unverifiedUser()), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.SendResetPwd(context.Background(), account.ServerCall(),
		map[string]string{"email": "a@example.com"}, nil)
	if account.CodeOf(err) != account.CodeNotVerified {
		t.Fatalf("expected not-verified, got %v", err)
	}
}

func TestSendResetPwd_IssuesResetTokens(t *testing.T) {
	stored := verifiedUser()
	notifier := &tmocks.NotifierMock{}
	svc := newTestEngine(singleUserGateway(stored), notifier, impl.ManagementOptions{})

	_, err := svc.SendResetPwd(context.Background(), account.CallContext{Origin: account.OriginExternal},
		map[string]string{"email": "a@example.com"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ResetToken == nil || *stored.ResetToken != "long-token" {
		t.Fatalf("expected reset token to be stored, got %v", stored.ResetToken)
	}
	if stored.ResetExpires == nil || !stored.ResetExpires.Equal(testNow.Add(2*time.Hour)) {
		t.Fatalf("unexpected reset expiry: %v", stored.ResetExpires)
	}
	if len(notifier.Sent) != 1 || notifier.Sent[0].Type != ports.NotifySendResetPwd {
		t.Fatalf("unexpected notifications: %+v", notifier.Sent)
	}
}

func TestResetPwdLong_SetsPasswordAndConsumesToken(t *testing.T) {
	stored := verifiedUser()
	stored.ResetToken = strPtr("long-token")
	stored.ResetShortToken = strPtr("123456")
	stored.ResetExpires = timePtr(testNow.Add(time.Hour))
	notifier := &tmocks.NotifierMock{}
	svc := newTestEngine(singleUserGateway(stored), notifier, impl.ManagementOptions{})

	_, err := svc.ResetPwdLong(context.Background(), account.ServerCall(), "long-token", "NewPass1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.PasswordHash != "hashed:NewPass1234" {
		t.Fatalf("expected new password hash, got %s", stored.PasswordHash)
	}
	if stored.ResetToken != nil || stored.ResetShortToken != nil || stored.ResetExpires != nil {
		t.Fatal("expected reset triple to be consumed")
	}
	if len(notifier.Sent) != 1 || notifier.Sent[0].Type != ports.NotifyResetPwd {
		t.Fatalf("unexpected notifications: %+v", notifier.Sent)
	}
}

func TestResetPwdLong_ExpiredTokenIsClearedAndRejected(t *testing.T) {
	stored := verifiedUser()
	stored.ResetToken = strPtr("long-token")
	stored.ResetShortToken = strPtr("123456")
	stored.ResetExpires = timePtr(testNow.Add(-time.Minute))
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.ResetPwdLong(context.Background(), account.ServerCall(), "long-token", "NewPass1234")
	if account.CodeOf(err) != account.CodeBadToken {
		t.Fatalf("expected token-expired-or-invalid, got %v", err)
	}
	if stored.ResetToken != nil {
		t.Fatal("expected expired triple to be cleared from the record")
	}
	if stored.PasswordHash != "hashed:OldPass123" {
		t.Fatal("expired token must not change the password")
	}
}

func TestResetPwdLong_RejectsShortPassword(t *testing.T) {
	stored := verifiedUser()
	stored.ResetToken = strPtr("long-token")
	stored.ResetShortToken = strPtr("123456")
	stored.ResetExpires = timePtr(testNow.Add(time.Hour))
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.ResetPwdLong(context.Background(), account.ServerCall(), "long-token", "short")
	if account.CodeOf(err) != account.CodeInvalidParams {
		t.Fatalf("expected invalid-params, got %v", err)
	}
	if stored.PasswordHash != "hashed:OldPass123" {
		t.Fatal("rejected password must not be stored")
	}
}

func TestResetPwdShort_WrongTokenForIdentifiedUser(t *testing.T) {
	stored := verifiedUser()
	stored.ResetToken = strPtr("long-token")
	stored.ResetShortToken = strPtr("123456")
	stored.ResetExpires = timePtr(testNow.Add(time.Hour))
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.ResetPwdShort(context.Background(), account.ServerCall(), "000000", "NewPass1234",
		map[string]string{"email": "a@example.com"})
	if account.CodeOf(err) != account.CodeBadToken {
		t.Fatalf("expected token-expired-or-invalid, got %v", err)
	}
}

func TestResetPwdShort_Success(t *testing.T) {
	stored := verifiedUser()
	stored.ResetToken = strPtr("long-token")
	stored.ResetShortToken = strPtr("123456")
	stored.ResetExpires = timePtr(testNow.Add(time.Hour))
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.ResetPwdShort(context.Background(), account.ServerCall(), "123456", "NewPass1234",
		map[string]string{"email": "a@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.PasswordHash != "hashed:NewPass1234" {
		t.Fatalf("expected new password hash, got %s", stored.PasswordHash)
	}
}
