// Package filter narrows a poll cycle's messages down to reminder candidates.
//
// Every filter keeps the relative order of its input and never mutates it.
package filter

import (
	"strings"
	"time"

	"lostfound-bot/internal/model"
)

const reminderMarker = "reminder"

// ByWindow keeps messages posted strictly between now-earliest and now-latest.
func ByWindow(msgs []model.Message, earliest, latest time.Duration, now time.Time) []model.Message {
	from := now.Add(-earliest)
	to := now.Add(-latest)
	return keep(msgs, func(m model.Message) bool {
		return from.Before(m.Time) && m.Time.Before(to)
	})
}

func ByContentType(msgs []model.Message, want model.ContentType) []model.Message {
	return keep(msgs, func(m model.Message) bool {
		return m.Content == want
	})
}

// ExcludingReminders drops messages whose text mentions "reminder" in any case.
// Substring match: "Reminders" and "unreminderable" are dropped too.
func ExcludingReminders(msgs []model.Message) []model.Message {
	return keep(msgs, func(m model.Message) bool {
		return !strings.Contains(strings.ToLower(m.Text), reminderMarker)
	})
}

// Pipeline runs window -> upload -> reminder exclusion for one interval.
// A nil Now reads the wall clock.
type Pipeline struct {
	Now func() time.Time
}

func (p Pipeline) Run(msgs []model.Message, iv model.Interval) []model.Message {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	out := ByWindow(msgs, iv.Earliest, iv.Latest, now())
	out = ByContentType(out, model.ContentUpload)
	return ExcludingReminders(out)
}

func keep(msgs []model.Message, pred func(model.Message) bool) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if pred(m) {
			out = append(out, m)
		}
	}
	return out
}
