package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type ContentType int

const (
	ContentUnknown ContentType = iota
	ContentUpload
)

func (c ContentType) String() string {
	switch c {
	case ContentUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// RawMessage is a channel-history entry as returned by the chat API.
// Text is nil when the entry carried no text field.
type RawMessage struct {
	Timestamp string
	Text      *string
	Upload    bool
	Files     int
}

type Message struct {
	Time    time.Time
	Text    string
	Content ContentType
}

func (m Message) String() string {
	return fmt.Sprintf("Message(ts=%s, text=%s)", m.Time.Format("15:04:05"), m.Text)
}

// Interval is a search window [now-Earliest, now-Latest] plus the text appended to reminders.
type Interval struct {
	Name     string
	Earliest time.Duration
	Latest   time.Duration
	Suffix   string
}

func (iv Interval) Validate() error {
	if iv.Earliest <= 0 {
		return fmt.Errorf("%w: interval %q: earliest offset must be > 0", ErrConfigInvalid, iv.Name)
	}
	if iv.Latest < 0 {
		return fmt.Errorf("%w: interval %q: latest offset must be >= 0", ErrConfigInvalid, iv.Name)
	}
	if iv.Earliest <= iv.Latest {
		return fmt.Errorf("%w: interval %q: earliest offset must be greater than latest offset", ErrConfigInvalid, iv.Name)
	}
	return nil
}

// Reminder is one composed reminder ready to be posted.
type Reminder struct {
	Interval string
	Source   Message
	Text     string
}

func Classify(raw RawMessage) (Message, error) {
	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return Message{}, err
	}
	if raw.Text == nil {
		return Message{}, fmt.Errorf("%w: entry %q has no text", ErrMalformedMessage, raw.Timestamp)
	}
	content := ContentUnknown
	if raw.Upload || raw.Files > 0 {
		content = ContentUpload
	}
	return Message{Time: ts, Text: *raw.Text, Content: content}, nil
}

// ClassifyAll stops at the first malformed entry.
func ClassifyAll(raws []RawMessage) ([]Message, error) {
	out := make([]Message, 0, len(raws))
	for i, raw := range raws {
		m, err := Classify(raw)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// ParseTimestamp converts fractional epoch seconds ("1700000000.000100") to a time.
func ParseTimestamp(ts string) (time.Time, error) {
	s := strings.TrimSpace(ts)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: missing timestamp", ErrMalformedMessage)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("%w: timestamp %q is not numeric", ErrMalformedMessage, ts)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*int64(time.Microsecond)), nil
}
