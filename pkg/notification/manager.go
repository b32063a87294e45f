package notification

import (
	"fmt"
	"net/url"
	"strings"
)

// NotificationManager renders and dispatches the notices the auth flows
// send: password reset links, sign-in codes and verification codes.
type NotificationManager struct {
	baseURL   string
	notifier  Notifier
	templates map[NoticeType]NoticeTemplate
}

// ManagerOption configures a NotificationManager
type ManagerOption func(*NotificationManager)

// WithTemplate overrides the template for one notice type
func WithTemplate(noticeType NoticeType, template NoticeTemplate) ManagerOption {
	return func(nm *NotificationManager) {
		nm.templates[noticeType] = template
	}
}

// NewNotificationManager creates a manager with the default templates.
// baseURL is the public site origin used to build links in notices.
func NewNotificationManager(baseURL string, notifier Notifier, options ...ManagerOption) *NotificationManager {
	nm := &NotificationManager{
		baseURL:   strings.TrimRight(baseURL, "/"),
		notifier:  notifier,
		templates: DefaultTemplates(),
	}

	for _, option := range options {
		option(nm)
	}

	return nm
}

// SendPasswordReset emails a reset link carrying the opaque token
func (nm *NotificationManager) SendPasswordReset(email, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", nm.baseURL, url.QueryEscape(token))
	return nm.send(NoticePasswordReset, email, map[string]string{"Link": link})
}

// SendMFACode emails a sign-in code
func (nm *NotificationManager) SendMFACode(email, code string) error {
	return nm.send(NoticeMFACode, email, map[string]string{"Code": code})
}

// SendVerificationCode emails a standalone verification code
func (nm *NotificationManager) SendVerificationCode(email, code string) error {
	return nm.send(NoticeVerificationCode, email, map[string]string{"Code": code})
}

func (nm *NotificationManager) send(noticeType NoticeType, to string, data map[string]string) error {
	template, ok := nm.templates[noticeType]
	if !ok {
		return fmt.Errorf("no template registered for notice type %q", noticeType)
	}

	return nm.notifier.Send(noticeType, NotificationData{To: to, Data: data}, template)
}
