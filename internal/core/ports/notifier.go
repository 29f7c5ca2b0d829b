package ports

import (
	"context"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
)

// NotificationType identifies which workflow triggered a notification.
type NotificationType string

const (
	NotifyResendVerifySignup     NotificationType = "resendVerifySignup"
	NotifyResendInvitationSignup NotificationType = "resendInvitationSignup"
	NotifyVerifySignup           NotificationType = "verifySignup"
	NotifySendResetPwd           NotificationType = "sendResetPwd"
	NotifyResetPwd               NotificationType = "resetPwd"
	NotifyPasswordChange         NotificationType = "passwordChange"
	NotifyIdentityChange         NotificationType = "identityChange"
)

// Notifier delivers workflow notifications. The user passed in is sanitized
// for notifier use: token fields are present (links need them) but the
// password hash is not.
type Notifier interface {
	Notify(ctx context.Context, typ NotificationType, user *account.User, options map[string]interface{}) error
}
