package booking

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// maxKeyGenerations bounds the cancelled-booking key-bump loop. Each
// generation corresponds to one cancel-and-rebook of the same slot.
const maxKeyGenerations = 32

// deriveIdempotencyKey fingerprints a booking attempt. Requests without a
// client-supplied key collapse to one attempt within the same hour bucket;
// the generation counter mints a fresh key once a prior booking for the same
// fingerprint was cancelled or failed, so the slot can be legitimately
// rebooked.
func deriveIdempotencyKey(studentID, sessionID, examType, examDate string, bucket time.Time, generation int) string {
	parts := []string{
		studentID,
		sessionID,
		examType,
		examDate,
		bucket.UTC().Format("2006010215"),
		strconv.Itoa(generation),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// bumpClientKey derives a successor for a client-supplied key whose prior
// booking was cancelled; the original key stays bound to the dead booking.
func bumpClientKey(clientKey string, generation int) string {
	sum := sha256.Sum256([]byte(clientKey + "|gen|" + strconv.Itoa(generation)))
	return hex.EncodeToString(sum[:])
}
