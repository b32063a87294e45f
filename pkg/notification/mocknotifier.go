package notification

import "sync"

// SentNotice is one notice captured by MockNotifier
type SentNotice struct {
	Type     NoticeType
	Data     NotificationData
	Template NoticeTemplate
}

// MockNotifier records notices instead of delivering them
type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentNotice
	Err  error // returned from Send when set
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentNotice{Type: noticeType, Data: notification, Template: template})
	return nil
}

// SentTo returns the notices sent to a recipient
func (m *MockNotifier) SentTo(to string) []SentNotice {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []SentNotice
	for _, s := range m.Sent {
		if s.Data.To == to {
			out = append(out, s)
		}
	}
	return out
}
