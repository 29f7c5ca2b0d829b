package services_test

import (
	"context"
	"encoding/json"
	"testing"

	impl "github.com/avatarctic/credential-management/internal/application/services"
	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	tmocks "github.com/avatarctic/credential-management/test/mocks"
)

func TestDispatch_UnknownAction(t *testing.T) {
	svc := newTestEngine(&tmocks.UserGatewayMock{}, &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.Dispatch(context.Background(), account.ServerCall(), &account.Request{Action: "selfDestruct"})
	if account.CodeOf(err) != account.CodeInvalidAction {
		t.Fatalf("expected invalid-action, got %v", err)
	}
}

func TestDispatch_MissingAction(t *testing.T) {
	svc := newTestEngine(&tmocks.UserGatewayMock{}, &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.Dispatch(context.Background(), account.ServerCall(), &account.Request{})
	if account.CodeOf(err) != account.CodeInvalidAction {
		t.Fatalf("expected invalid-action, got %v", err)
	}
}

func TestDispatch_ProtectedActionNeedsAuthenticatedCaller(t *testing.T) {
	svc := newTestEngine(&tmocks.UserGatewayMock{}, &tmocks.NotifierMock{}, impl.ManagementOptions{})

	value, _ := json.Marshal(account.PasswordChangeValue{
		User:        map[string]string{"email": "a@example.com"},
		OldPassword: "OldPass123",
		Password:    "NewPass1234",
	})
	call := account.CallContext{Origin: account.OriginExternal}
	_, err := svc.Dispatch(context.Background(), call, &account.Request{Action: account.ActionPasswordChange, Value: value})
	if account.CodeOf(err) != account.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDispatch_AllowlistedActionWorksUnauthenticated(t *testing.T) {
	stored := verifiedUser()
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{}, impl.ManagementOptions{})

	value, _ := json.Marshal(account.IdentifyValue{User: map[string]string{"email": "a@example.com"}})
	call := account.CallContext{Origin: account.OriginExternal}
	_, err := svc.Dispatch(context.Background(), call, &account.Request{Action: account.ActionSendResetPwd, Value: value})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatch_MalformedValuePayload(t *testing.T) {
	svc := newTestEngine(&tmocks.UserGatewayMock{}, &tmocks.NotifierMock{}, impl.ManagementOptions{})

	_, err := svc.Dispatch(context.Background(), account.ServerCall(),
		&account.Request{Action: account.ActionVerifySignupLong, Value: json.RawMessage(`{`)})
	if account.CodeOf(err) != account.CodeInvalidParams {
		t.Fatalf("expected invalid-params, got %v", err)
	}
}

func TestDispatch_ErrorHookTransformsErrors(t *testing.T) {
	hook := func(ctx context.Context, err error, req *account.Request) error {
		return account.NewError(account.CodeNotFound, "rewritten")
	}
	svc := newTestEngine(&tmocks.UserGatewayMock{}, &tmocks.NotifierMock{}, impl.ManagementOptions{},
		impl.WithErrorHook(hook))

	_, err := svc.Dispatch(context.Background(), account.ServerCall(), &account.Request{Action: "bogus"})
	if account.CodeOf(err) != account.CodeNotFound {
		t.Fatalf("expected hook-rewritten error, got %v", err)
	}
}

func TestDispatch_ServerCallRetainsTokensWhenConfigured(t *testing.T) {
	stored := unverifiedUser()
	svc := newTestEngine(singleUserGateway(stored), &tmocks.NotifierMock{},
		impl.ManagementOptions{ReturnTokens: true})

	value, _ := json.Marshal(account.IdentifyValue{User: map[string]string{"email": "a@example.com"}})
	u, err := svc.Dispatch(context.Background(), account.ServerCall(),
		&account.Request{Action: account.ActionResendVerifySignup, Value: value})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.VerifyToken == nil || *u.VerifyToken != "long-token" {
		t.Fatalf("expected tokens retained for server call, got %+v", u)
	}
	// Expiry stays hidden even when tokens are returned.
	if u.PasswordHash != "" {
		t.Fatal("password hash must never be returned")
	}
}

func TestDispatch_CustomFindStrategy(t *testing.T) {
	stored := verifiedUser()
	gw := singleUserGateway(stored)
	var strategyCalls int
	strategies := ports.CallStrategies{
		Find: func(ctx context.Context, g ports.UserGateway, query map[string]string) (*account.User, error) {
			strategyCalls++
			return g.FindOne(ctx, query)
		},
	}
	svc := newTestEngine(gw, &tmocks.NotifierMock{}, impl.ManagementOptions{},
		impl.WithCallStrategies(impl.WorkflowSendResetPwd, strategies))

	value, _ := json.Marshal(account.IdentifyValue{User: map[string]string{"email": "a@example.com"}})
	_, err := svc.Dispatch(context.Background(), account.ServerCall(),
		&account.Request{Action: account.ActionSendResetPwd, Value: value})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategyCalls == 0 {
		t.Fatal("expected the injected find strategy to be used")
	}
}
