package booking

import (
	"context"
	"log"
	"strings"
	"time"

	"examseat/internal/cache"
)

// Duplicate marker values. "active:<bookingID>" tags a live booking,
// markerNone is an explicit negative so the common no-duplicate case resolves
// without a replica read, markerCancelled deliberately falls through to the
// durable check instead of allowing outright (narrow race between
// cancellation and rebooking).
const (
	markerNone         = "none"
	markerCancelled    = "cancelled"
	markerActivePrefix = "active:"
)

// DuplicateDetector answers "does an active booking already exist for this
// student and date?" with a cache tier in front of the replica. The cache is
// advisory: any store error falls through to the durable tier.
type DuplicateDetector struct {
	store     cache.Store
	bookings  BookingRepository
	markerTTL time.Duration
}

func NewDuplicateDetector(store cache.Store, bookings BookingRepository, markerTTL time.Duration) *DuplicateDetector {
	return &DuplicateDetector{store: store, bookings: bookings, markerTTL: markerTTL}
}

// FastCheck is the tier-1 lookup. It returns ErrDuplicateBooking on a cached
// active marker and nil otherwise; callers that are about to create a booking
// must still run DurableCheck under the (student, date) lock.
func (d *DuplicateDetector) FastCheck(ctx context.Context, studentID, examDate string) error {
	raw, err := d.store.Get(ctx, cache.DuplicateMarkerKey(studentID, examDate))
	if err != nil {
		if err != cache.ErrMiss {
			log.Printf("dedup_cache_read_failed student_id=%s err=%v", studentID, err)
		}
		return nil
	}
	if strings.HasPrefix(raw, markerActivePrefix) {
		return ErrDuplicateBooking
	}
	return nil
}

// DurableCheck is the tier-2 lookup against the replica, spanning the full
// booking history. On a hit it caches an active marker through the exam date;
// on a miss it caches the negative marker for markerTTL.
func (d *DuplicateDetector) DurableCheck(ctx context.Context, studentID, examDate string) error {
	dup, err := d.bookings.HasActiveForStudentDate(ctx, studentID, examDate)
	if err != nil {
		return err
	}

	key := cache.DuplicateMarkerKey(studentID, examDate)
	if dup {
		if err := d.store.Set(ctx, key, markerActivePrefix+"unknown", ttlThroughDate(examDate)); err != nil {
			log.Printf("dedup_cache_write_failed student_id=%s err=%v", studentID, err)
		}
		return ErrDuplicateBooking
	}

	if err := d.store.Set(ctx, key, markerNone, d.markerTTL); err != nil {
		log.Printf("dedup_cache_write_failed student_id=%s err=%v", studentID, err)
	}
	return nil
}

// MarkActive tags the pair with the booking that now holds it, valid through
// the end of the exam date.
func (d *DuplicateDetector) MarkActive(ctx context.Context, studentID, examDate, bookingID string) {
	key := cache.DuplicateMarkerKey(studentID, examDate)
	if err := d.store.Set(ctx, key, markerActivePrefix+bookingID, ttlThroughDate(examDate)); err != nil {
		log.Printf("dedup_cache_write_failed student_id=%s err=%v", studentID, err)
	}
}

// MarkCancelled clears the way for a rebooking while keeping the conservative
// fall-through semantics of the cancelled marker.
func (d *DuplicateDetector) MarkCancelled(ctx context.Context, studentID, examDate string) {
	key := cache.DuplicateMarkerKey(studentID, examDate)
	if err := d.store.Set(ctx, key, markerCancelled, d.markerTTL); err != nil {
		log.Printf("dedup_cache_write_failed student_id=%s err=%v", studentID, err)
	}
}

// ttlThroughDate keeps a marker alive until the end of the exam date (UTC),
// with a floor of one hour for dates that are already close.
func ttlThroughDate(examDate string) time.Duration {
	day, err := time.ParseInLocation("2006-01-02", examDate, time.UTC)
	if err != nil {
		return time.Hour
	}
	ttl := time.Until(day.AddDate(0, 0, 1))
	if ttl < time.Hour {
		ttl = time.Hour
	}
	return ttl
}
