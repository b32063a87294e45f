package password

import "time"

// IsPasswordExpired reports whether a password last changed at lastChange is
// older than expiryDays. A zero lastChange or non-positive expiryDays
// disables expiry.
func IsPasswordExpired(lastChange time.Time, expiryDays int) bool {
	if expiryDays <= 0 || lastChange.IsZero() {
		return false
	}
	return time.Since(lastChange) > time.Duration(expiryDays)*24*time.Hour
}
