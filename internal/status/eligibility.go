// internal/status/eligibility.go
package status

import "time"

// Renewal window in days relative to expiry. Permits become renewable seven
// days before expiry and stay renewable for fifteen days after.
const (
	renewBeforeDays = 7
	renewAfterDays  = 15

	expiringSoonDays = 30
)

// DaysUntilExpiry counts whole calendar days from today to the expiry date,
// negative once expired. Both dates are compared at midnight UTC.
func DaysUntilExpiry(expiry time.Time, now time.Time) int {
	startOfDay := func(t time.Time) time.Time {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return int(startOfDay(expiry).Sub(startOfDay(now)).Hours() / 24)
}

// IsEligibleForRenewal reports whether a permit expiring at the given date
// may be renewed today.
func IsEligibleForRenewal(expiry *time.Time, now time.Time) bool {
	if expiry == nil {
		return false
	}
	days := DaysUntilExpiry(*expiry, now)
	return days >= -renewAfterDays && days <= renewBeforeDays
}

// IsExpiringSoon reports whether the expiring-soon banner applies: the permit
// is still valid and expires within thirty days.
func IsExpiringSoon(expiry *time.Time, now time.Time) bool {
	if expiry == nil {
		return false
	}
	days := DaysUntilExpiry(*expiry, now)
	return days > 0 && days <= expiringSoonDays
}
