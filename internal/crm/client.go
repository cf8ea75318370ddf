package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Object type identifiers in the system of record.
const (
	ObjectContacts = "0-1"
	ObjectBookings = "2-50158943"
	ObjectSessions = "2-50158944"
)

// Contact is the slice of a CRM contact the booking engine reads when priming
// a student's credit ledger.
type Contact struct {
	ID                string `json:"id"`
	StudentID         string `json:"student_id"`
	Email             string `json:"email"`
	JudgmentCredits   int    `json:"judgment_credits"`
	SkillsCredits     int    `json:"skills_credits"`
	MiniCredits       int    `json:"mini_credits"`
	DiscussionCredits int    `json:"discussion_credits"`
	SharedCredits     int    `json:"shared_credits"`
}

// BookingRecord is the payload mirrored into the system of record after a
// booking commits locally.
type BookingRecord struct {
	ExternalID string `json:"external_id"`
	ContactRef string `json:"contact_ref"`
	SessionRef string `json:"session_ref"`
	ExamType   string `json:"exam_type"`
	ExamDate   string `json:"exam_date"`
	Status     string `json:"status"`
}

// Client talks to the system of record. Every call is routed through the
// rate-limited queue; nothing here is on the booking hot path except the
// one-time contact read that primes a ledger.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	queue   *Queue
}

func NewClient(baseURL, token string, queue *Queue) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		queue:   queue,
	}
}

func (c *Client) Queue() *Queue { return c.queue }

// ReadContact looks a contact up by student id and email. Blocks behind the
// throttle; callers should treat it as slow.
func (c *Client) ReadContact(ctx context.Context, studentID, email string) (*Contact, error) {
	var contact Contact
	err := c.queue.Do(ctx, func(ctx context.Context) error {
		q := url.Values{}
		q.Set("student_id", studentID)
		q.Set("email", email)
		return c.call(ctx, http.MethodGet, fmt.Sprintf("/objects/%s/search?%s", ObjectContacts, q.Encode()), nil, &contact)
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// CreateBookingRecord mirrors a committed booking into the system of record,
// keyed by the booking's external id so retries upsert instead of duplicating.
func (c *Client) CreateBookingRecord(ctx context.Context, rec BookingRecord) error {
	return c.queue.Do(ctx, func(ctx context.Context) error {
		return c.call(ctx, http.MethodPost, fmt.Sprintf("/objects/%s", ObjectBookings), rec, nil)
	})
}

// PatchProperties updates named properties on a CRM object.
func (c *Client) PatchProperties(ctx context.Context, objectType, externalID string, props map[string]interface{}) error {
	return c.queue.Do(ctx, func(ctx context.Context) error {
		body := map[string]interface{}{"properties": props}
		return c.call(ctx, http.MethodPatch, fmt.Sprintf("/objects/%s/%s", objectType, url.PathEscape(externalID)), body, nil)
	})
}

func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("crm %s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
