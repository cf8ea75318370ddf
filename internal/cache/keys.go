package cache

import "fmt"

// Key builders for every logical cache namespace. All redis keys used by the
// engine are minted here so namespaces cannot collide and tests can assert
// exact keys.

// StudentDayLockKey guards booking mutations for one student on one calendar
// date. Always acquired before SessionLockKey.
func StudentDayLockKey(studentID, examDate string) string {
	return fmt.Sprintf("lock:student:%s:date:%s", studentID, examDate)
}

// SessionLockKey guards capacity accounting for one session.
func SessionLockKey(sessionID string) string {
	return fmt.Sprintf("lock:session:%s", sessionID)
}

// SessionSeatsKey holds the real-time booking counter for a session.
func SessionSeatsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:seats", sessionID)
}

// DuplicateMarkerKey holds the tier-1 duplicate-detection marker for a
// (student, date) pair.
func DuplicateMarkerKey(studentID, examDate string) string {
	return fmt.Sprintf("booking:dup:%s:%s", studentID, examDate)
}
