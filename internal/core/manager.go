package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"lostfound-bot/internal/config"
	"lostfound-bot/internal/filter"
	"lostfound-bot/internal/logging"
	"lostfound-bot/internal/model"
	"lostfound-bot/internal/push"
	"lostfound-bot/internal/resolver"
	"lostfound-bot/internal/slackapi"
)

// ChatClient is the subset of the chat API a poll cycle needs.
type ChatClient interface {
	resolver.Lookup
	HistorySource
	push.Sender
}

type Option func(*Manager)

func WithChatClient(c ChatClient) Option {
	return func(m *Manager) { m.chat = c }
}

func WithChannelCache(c resolver.Cache) Option {
	return func(m *Manager) { m.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns the process-wide pieces and runs poll cycles. The config file
// is reloaded at the start of every cycle.
type Manager struct {
	cfgPath string
	token   string
	logger  *logging.Logger
	now     func() time.Time

	chat     ChatClient
	cache    resolver.Cache
	redis    *resolver.RedisCache
	throttle *push.Throttle

	mu    sync.Mutex
	boot  config.Config
	loc   *time.Location
	cron  *cron.Cron
	stops []func()

	running atomic.Bool
	missed  atomic.Int64
}

func NewManager(cfgPath, token string, logger *logging.Logger, opts ...Option) *Manager {
	m := &Manager{cfgPath: cfgPath, token: token, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start loads the config, builds the chat client, channel cache and throttle,
// and starts the cron trigger when one is configured. It does not block.
func (m *Manager) Start(ctx context.Context) error {
	cfg, err := config.Load(m.cfgPath)
	if err != nil {
		return err
	}
	loc, err := location(cfg.Server.Timezone)
	if err != nil {
		return err
	}
	m.applyRuntime(cfg)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.boot = cfg
	m.loc = loc

	if m.chat == nil {
		if m.token == "" {
			return errors.New("slack token missing")
		}
		m.chat = slackapi.New(slackapi.Options{
			Token:        m.token,
			APIURL:       cfg.Slack.APIURL,
			HistoryLimit: cfg.Slack.HistoryLimit,
		})
	}
	if m.cache == nil && cfg.Redis.Addr != "" {
		rc := resolver.NewRedisCache(cfg.Redis)
		if err := rc.Ping(ctx); err != nil {
			m.logger.Warn("redis unavailable, channel cache disabled", logging.Field{Key: "addr", Val: cfg.Redis.Addr}, logging.Field{Key: "err", Val: err})
			_ = rc.Close()
		} else {
			m.redis = rc
			m.cache = rc
			m.logger.Info("channel cache enabled", logging.Field{Key: "addr", Val: cfg.Redis.Addr})
		}
	}
	m.throttle = push.NewThrottle(cfg.Push.MaxPostsPerMinute)

	if cfg.Schedule.Cron != "" {
		if err := m.startCron(ctx, cfg.Schedule.Cron); err != nil {
			return err
		}
	}
	m.handleSignals(ctx)
	m.logger.Info("manager started",
		logging.Field{Key: "channel", Val: cfg.Slack.ChannelName},
		logging.Field{Key: "intervals", Val: len(cfg.Windows())},
		logging.Field{Key: "cron", Val: cfg.Schedule.Cron},
	)
	return nil
}

// Config returns the configuration loaded by Start.
func (m *Manager) Config() config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boot
}

func (m *Manager) Stop() {
	m.mu.Lock()
	c := m.cron
	stops := m.stops
	m.cron = nil
	m.stops = nil
	m.mu.Unlock()

	if c != nil {
		done := c.Stop()
		select {
		case <-done.Done():
		case <-time.After(10 * time.Second):
			m.logger.Warn("cron stop timed out")
		}
	}
	for _, stop := range stops {
		stop()
	}
	if m.redis != nil {
		_ = m.redis.Close()
	}
}

// Poll runs one cycle. Any error or panic inside the cycle is returned as a
// failed cycle; nothing is retried.
func (m *Manager) Poll(ctx context.Context) (rep Report, err error) {
	start := m.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll cycle panicked: %v", r)
		}
		elapsed := m.now().Sub(start)
		if err != nil {
			m.logger.Error("poll failed", logging.Field{Key: "err", Val: err}, logging.Field{Key: "elapsed", Val: elapsed})
			return
		}
		m.logger.Info("poll done",
			logging.Field{Key: "fetched", Val: rep.Fetched},
			logging.Field{Key: "posted", Val: len(rep.Posted)},
			logging.Field{Key: "elapsed", Val: elapsed},
		)
	}()

	cfg, err := config.Load(m.cfgPath)
	if err != nil {
		return Report{}, err
	}
	if m.chat == nil {
		return Report{}, fmt.Errorf("%w: chat client not configured", model.ErrAPIFailure)
	}

	cycle := resolver.NewCycle(m.chat, m.cache, m.logger)
	poster := &push.ChannelPoster{
		Sender:   m.chat,
		Resolver: cycle,
		Throttle: m.throttle,
		Delay:    cfg.PostDelay(),
		Now:      m.now,
	}
	sched := NewScheduler(m.chat, cycle, poster, filter.Pipeline{Now: m.now}, m.logger)
	return sched.Run(ctx, cfg.Slack.ChannelName, cfg.Windows())
}

// startCron triggers a cycle on every tick of expr, skipping ticks that land
// while the previous cron cycle still runs. caller holds mu.
func (m *Manager) startCron(ctx context.Context, expr string) error {
	c := cron.New(cron.WithLocation(m.loc), cron.WithLogger(cron.PrintfLogger(m.logger)))
	if _, err := c.AddFunc(expr, func() { m.tick(ctx) }); err != nil {
		return fmt.Errorf("%w: schedule.cron: %v", model.ErrConfigInvalid, err)
	}
	c.Start()
	m.cron = c
	return nil
}

func (m *Manager) tick(ctx context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		m.missed.Add(1)
		m.logger.Warn("missed tick", logging.Field{Key: "missed", Val: m.missed.Load()})
		return
	}
	defer m.running.Store(false)
	_, _ = m.Poll(ctx)
}

// handleSignals re-applies runtime settings on SIGHUP. caller holds mu.
func (m *Manager) handleSignals(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	done := make(chan struct{})
	m.stops = append(m.stops, func() {
		signal.Stop(ch)
		close(done)
	})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ch:
				m.reload()
			}
		}
	}()
}

func (m *Manager) reload() {
	cfg, err := config.Load(m.cfgPath)
	if err != nil {
		m.logger.Error("reload failed", logging.Field{Key: "err", Val: err})
		return
	}
	m.applyRuntime(cfg)
	m.mu.Lock()
	boot := m.boot.Server.Timezone
	m.mu.Unlock()
	if cfg.Server.Timezone != boot {
		m.logger.Warn("server.timezone changes need a restart", logging.Field{Key: "timezone", Val: boot})
	}
	m.logger.Info("runtime settings reloaded")
}

// applyRuntime only touches the logger; it is safe while cycles run.
func (m *Manager) applyRuntime(cfg config.Config) {
	m.logger.SetJSON(cfg.Logging.JSON)
	m.logger.SetLevel(cfg.Logging.Level)
}

// location resolves server.timezone for the cron trigger. time.Local is never modified.
func location(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timezone: %v", model.ErrConfigInvalid, err)
	}
	return loc, nil
}
