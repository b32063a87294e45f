package notification

// NoticeType identifies one kind of notice sent to users
type NoticeType string

const (
	NoticePasswordReset    NoticeType = "password_reset"
	NoticeMFACode          NoticeType = "mfa_code"
	NoticeVerificationCode NoticeType = "verification_code"
)

// NoticeTemplate holds the rendered-template sources for one notice.
// Text and Html are Go text/html templates executed against
// NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// NotificationData is the payload for one outgoing notice
type NotificationData struct {
	To   string            // Recipient address
	Data map[string]string // Template values (e.g. Link, Code)
}

// Notifier delivers a rendered notice
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
