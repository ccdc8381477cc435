package core

import (
	"context"
	"fmt"
	"time"

	"lostfound-bot/internal/filter"
	"lostfound-bot/internal/logging"
	"lostfound-bot/internal/model"
	"lostfound-bot/internal/push"
)

const reminderPrefix = "Reminder: "

type HistorySource interface {
	History(ctx context.Context, channelID string) ([]model.RawMessage, error)
}

type ChannelResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

type Report struct {
	Fetched int
	Posted  []model.Reminder
}

// Scheduler runs one poll cycle: fetch the channel history once, then post at
// most one reminder per interval.
type Scheduler struct {
	history  HistorySource
	resolver ChannelResolver
	poster   push.Poster
	pipeline filter.Pipeline
	logger   *logging.Logger
}

func NewScheduler(history HistorySource, resolver ChannelResolver, poster push.Poster, pipeline filter.Pipeline, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		history:  history,
		resolver: resolver,
		poster:   poster,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Run aborts on the first error; reminders posted before it stay posted.
func (s *Scheduler) Run(ctx context.Context, channel string, intervals []model.Interval) (Report, error) {
	var rep Report
	channelID, err := s.resolver.Resolve(ctx, channel)
	if err != nil {
		return rep, err
	}
	raws, err := s.history.History(ctx, channelID)
	if err != nil {
		return rep, err
	}
	msgs, err := model.ClassifyAll(raws)
	if err != nil {
		return rep, err
	}
	rep.Fetched = len(msgs)
	s.logger.Debug("history fetched", logging.Field{Key: "channel", Val: channel}, logging.Field{Key: "count", Val: len(msgs)})

	for _, iv := range intervals {
		candidates := s.pipeline.Run(msgs, iv)
		if len(candidates) == 0 {
			s.logger.Debug("nothing to remind", logging.Field{Key: "interval", Val: iv.Name})
			continue
		}
		r := model.Reminder{Interval: iv.Name, Source: candidates[0], Text: ComposeReminder(candidates[0], iv.Suffix)}
		if err := s.poster.PostTextMessage(ctx, channel, r.Text); err != nil {
			return rep, fmt.Errorf("interval %s: %w", iv.Name, err)
		}
		s.logger.Info("reminder posted",
			logging.Field{Key: "interval", Val: iv.Name},
			logging.Field{Key: "original_ts", Val: r.Source.Time.Format(time.RFC3339)},
			logging.Field{Key: "candidates", Val: len(candidates)},
		)
		rep.Posted = append(rep.Posted, r)
	}
	return rep, nil
}

func ComposeReminder(m model.Message, suffix string) string {
	return reminderPrefix + m.Text + "\n" + suffix
}
