package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/core/ports"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// NotifierConfig holds notifier configuration
type NotifierConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	CompanyName    string
	BaseURL        string
}

// notification pairs a subject line with its body template.
type notification struct {
	subject string
	body    *template.Template
}

// SendGridNotifier delivers workflow notifications by email through SendGrid.
type SendGridNotifier struct {
	config        *NotifierConfig
	logger        *logrus.Logger
	client        *sendgrid.Client
	notifications map[ports.NotificationType]notification
}

// notificationData is the payload available to every body template.
type notificationData struct {
	CompanyName string
	Email       string
	NewEmail    string
	Token       string
	ShortToken  string
	VerifyURL   string
	ResetURL    string
	Options     map[string]interface{}
}

var bodyTemplates = map[ports.NotificationType]struct {
	subject string
	body    string
}{
	ports.NotifyResendVerifySignup: {
		subject: "Verify Your Account - %s",
		body: `<p>Please verify your account by clicking <a href="{{.VerifyURL}}">this link</a>,
or enter the code <strong>{{.ShortToken}}</strong> where prompted.</p>`,
	},
	ports.NotifyResendInvitationSignup: {
		subject: "You Have Been Invited - %s",
		body: `<p>You have been invited to {{.CompanyName}}. Accept the invitation by clicking
<a href="{{.VerifyURL}}">this link</a>, or enter the code <strong>{{.ShortToken}}</strong> where prompted.</p>`,
	},
	ports.NotifyVerifySignup: {
		subject: "Your Account Is Verified - %s",
		body:    `<p>Your account has been verified. You can now sign in.</p>`,
	},
	ports.NotifySendResetPwd: {
		subject: "Reset Your Password - %s",
		body: `<p>A password reset was requested for this account. Reset it by clicking
<a href="{{.ResetURL}}">this link</a>, or enter the code <strong>{{.ShortToken}}</strong> where prompted.
If you did not request this, you can ignore this email.</p>`,
	},
	ports.NotifyResetPwd: {
		subject: "Your Password Was Reset - %s",
		body:    `<p>The password for this account was just reset. If this was not you, contact support immediately.</p>`,
	},
	ports.NotifyPasswordChange: {
		subject: "Your Password Was Changed - %s",
		body:    `<p>The password for this account was just changed. If this was not you, contact support immediately.</p>`,
	},
	ports.NotifyIdentityChange: {
		subject: "Confirm Your Account Changes - %s",
		body: `<p>A change to your account details was requested. Confirm it by clicking
<a href="{{.VerifyURL}}">this link</a>, or enter the code <strong>{{.ShortToken}}</strong> where prompted.
If you did not request this, contact support immediately.</p>`,
	},
}

// NewSendGridNotifier creates a notifier backed by SendGrid.
func NewSendGridNotifier(config *NotifierConfig, logger *logrus.Logger) (ports.Notifier, error) {
	client := sendgrid.NewSendClient(config.SendGridAPIKey)

	notifications := make(map[ports.NotificationType]notification, len(bodyTemplates))
	for typ, t := range bodyTemplates {
		tmpl, err := template.New(string(typ)).Parse(t.body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", typ, err)
		}
		notifications[typ] = notification{
			subject: fmt.Sprintf(t.subject, config.CompanyName),
			body:    tmpl,
		}
	}

	return &SendGridNotifier{
		config:        config,
		logger:        logger,
		client:        client,
		notifications: notifications,
	}, nil
}

// Notify renders and sends the email for one notification type. Identity
// change confirmations go to the pending new address when the change
// includes one, so the owner of that address confirms it.
func (n *SendGridNotifier) Notify(ctx context.Context, typ ports.NotificationType, u *account.User, options map[string]interface{}) error {
	nf, ok := n.notifications[typ]
	if !ok {
		return fmt.Errorf("unknown notification type %s", typ)
	}

	data := notificationData{
		CompanyName: n.config.CompanyName,
		Email:       u.Email,
		Options:     options,
	}
	if u.VerifyToken != nil {
		data.Token = *u.VerifyToken
		data.VerifyURL = fmt.Sprintf("%s/verify-signup?token=%s", n.config.BaseURL, *u.VerifyToken)
	}
	if u.VerifyShortToken != nil {
		data.ShortToken = *u.VerifyShortToken
	}
	if typ == ports.NotifySendResetPwd {
		if u.ResetToken != nil {
			data.Token = *u.ResetToken
			data.ResetURL = fmt.Sprintf("%s/reset-password?token=%s", n.config.BaseURL, *u.ResetToken)
		}
		if u.ResetShortToken != nil {
			data.ShortToken = *u.ResetShortToken
		}
	}

	to := u.Email
	if typ == ports.NotifyIdentityChange {
		if newEmail, ok := u.VerifyChanges[account.FieldEmail]; ok && newEmail != "" {
			data.NewEmail = newEmail
			to = newEmail
		}
	}

	var buf bytes.Buffer
	if err := nf.body.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", typ, err)
	}

	return n.sendEmail(to, nf.subject, buf.String())
}

// sendEmail sends an email using SendGrid
func (n *SendGridNotifier) sendEmail(to, subject, htmlContent string) error {
	from := mail.NewEmail(n.config.FromName, n.config.FromEmail)
	recipient := mail.NewEmail("", to)

	message := mail.NewSingleEmail(from, subject, recipient, "", htmlContent)

	response, err := n.client.Send(message)
	if err != nil {
		n.logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
			"error":   err,
		}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"to":          to,
		"subject":     subject,
		"status_code": response.StatusCode,
	}).Info("Email sent successfully")

	return nil
}
