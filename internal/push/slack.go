package push

import (
	"context"
	"time"
)

// Poster is anything that can put a text message into a named channel.
type Poster interface {
	PostTextMessage(ctx context.Context, channel, text string) error
}

type Sender interface {
	PostMessage(ctx context.Context, channelID, text string) error
	ScheduleMessage(ctx context.Context, channelID, text string, at time.Time) error
}

type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// ChannelPoster resolves the channel on every post and either posts now or,
// with a delay set, schedules the message that far ahead.
type ChannelPoster struct {
	Sender   Sender
	Resolver Resolver
	Throttle *Throttle
	Delay    time.Duration
	Now      func() time.Time
}

func (p *ChannelPoster) PostTextMessage(ctx context.Context, channel, text string) error {
	id, err := p.Resolver.Resolve(ctx, channel)
	if err != nil {
		return err
	}
	if err := p.Throttle.Wait(ctx); err != nil {
		return err
	}
	if p.Delay > 0 {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		return p.Sender.ScheduleMessage(ctx, id, text, now().Add(p.Delay))
	}
	return p.Sender.PostMessage(ctx, id, text)
}
