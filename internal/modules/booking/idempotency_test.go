package booking

import (
	"testing"
	"time"
)

func TestDeriveIdempotencyKeyStableWithinBucket(t *testing.T) {
	bucket := time.Date(2026, 9, 14, 10, 22, 0, 0, time.UTC)
	sameBucket := time.Date(2026, 9, 14, 10, 58, 0, 0, time.UTC)

	a := deriveIdempotencyKey("ST1", "sess-1", "judgment", "2026-09-14", bucket, 0)
	b := deriveIdempotencyKey("ST1", "sess-1", "judgment", "2026-09-14", sameBucket, 0)

	if a != b {
		t.Fatal("retries within the same hour bucket must collapse to one key")
	}
}

func TestDeriveIdempotencyKeyVariesAcrossInputs(t *testing.T) {
	bucket := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	base := deriveIdempotencyKey("ST1", "sess-1", "judgment", "2026-09-14", bucket, 0)

	variants := []string{
		deriveIdempotencyKey("ST2", "sess-1", "judgment", "2026-09-14", bucket, 0),
		deriveIdempotencyKey("ST1", "sess-2", "judgment", "2026-09-14", bucket, 0),
		deriveIdempotencyKey("ST1", "sess-1", "skills", "2026-09-14", bucket, 0),
		deriveIdempotencyKey("ST1", "sess-1", "judgment", "2026-09-15", bucket, 0),
		deriveIdempotencyKey("ST1", "sess-1", "judgment", "2026-09-14", bucket.Add(time.Hour), 0),
		deriveIdempotencyKey("ST1", "sess-1", "judgment", "2026-09-14", bucket, 1),
	}

	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collided with base key", i)
		}
	}
}

func TestBumpClientKeyNeverReturnsOriginal(t *testing.T) {
	seen := map[string]bool{"retry-abc": true}
	for gen := 1; gen <= 4; gen++ {
		k := bumpClientKey("retry-abc", gen)
		if seen[k] {
			t.Fatalf("generation %d produced a repeated key", gen)
		}
		seen[k] = true
	}
}
