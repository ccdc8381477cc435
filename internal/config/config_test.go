package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"lostfound-bot/internal/config"
	"lostfound-bot/internal/model"
)

const day = 24 * time.Hour

func writeFile(dir, name, body string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
	return path
}

func names(ivs []model.Interval) []string {
	out := make([]string, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, iv.Name)
	}
	return out
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
	})

	It("reads TOML and keeps interval groups in document order", func() {
		path := writeFile(dir, "config.toml", `
[slack]
channelName = "lost-and-found"

[[intervals.zeta]]
earliestDayBefore = 14
latestDayAfter = 13
message = "claim it"

[[intervals.alpha]]
earliestDayBefore = 28
latestDayAfter = 27
message = "last call"

[[intervals.alpha]]
earliestDayBefore = 40
latestDayAfter = 30
message = "really last"
`)
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Slack.ChannelName).To(Equal("lost-and-found"))
		Expect(cfg.Slack.HistoryLimit).To(Equal(config.DefaultHistoryLimit))
		Expect(cfg.Server.Addr).To(Equal(config.DefaultAddr))

		windows := cfg.Windows()
		Expect(names(windows)).To(Equal([]string{"zeta", "alpha.0", "alpha.1"}))
		Expect(windows[0].Earliest).To(Equal(14 * day))
		Expect(windows[0].Latest).To(Equal(13 * day))
		Expect(windows[0].Suffix).To(Equal("claim it"))
		Expect(windows[2].Suffix).To(Equal("really last"))
	})

	It("reads YAML and keeps interval groups in document order", func() {
		path := writeFile(dir, "config.yaml", `
slack:
  channelName: lost-and-found
  postDelaySeconds: 60
intervals:
  second:
    - earliestDayBefore: 7
      latestDayAfter: 6
      message: one week
  first:
    - earliestDayBefore: 14
      latestDayAfter: 13
      message: two weeks
push:
  maxPostsPerMinute: 10
`)
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(names(cfg.Windows())).To(Equal([]string{"second", "first"}))
		Expect(cfg.PostDelay()).To(Equal(time.Minute))
		Expect(cfg.Push.MaxPostsPerMinute).To(Equal(10))
	})

	It("expands environment references", func() {
		GinkgoT().Setenv("LF_CHANNEL", "found-items")
		path := writeFile(dir, "config.toml", `
[slack]
channelName = "${LF_CHANNEL}"

[[intervals.week]]
earliestDayBefore = 7
latestDayAfter = 0
message = ""
`)
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Slack.ChannelName).To(Equal("found-items"))
	})

	It("expands only braced references and keeps bare dollar signs", func() {
		GinkgoT().Setenv("LF_CHANNEL", "found-items")
		GinkgoT().Setenv("HOME_CHANNEL", "should-not-appear")
		path := writeFile(dir, "config.toml", `
[slack]
channelName = "${LF_CHANNEL}"

[[intervals.week]]
earliestDayBefore = 7
latestDayAfter = 0
message = "$20 reward if claimed, ask $HOME_CHANNEL"
`)
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Slack.ChannelName).To(Equal("found-items"))
		Expect(cfg.Windows()[0].Suffix).To(Equal("$20 reward if claimed, ask $HOME_CHANNEL"))
	})

	It("expands unset braced references to empty", func() {
		path := writeFile(dir, "config.yaml", `
slack:
  channelName: "lost${LF_UNSET_SUFFIX}"
intervals:
  week:
    - earliestDayBefore: 7
      latestDayAfter: 0
`)
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Slack.ChannelName).To(Equal("lost"))
	})

	DescribeTable("rejects invalid files",
		func(body string, msg string) {
			path := writeFile(dir, "config.toml", body)
			_, err := config.Load(path)
			Expect(errors.Is(err, model.ErrConfigInvalid)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(msg))
		},
		Entry("missing channel", `
[[intervals.a]]
earliestDayBefore = 7
latestDayAfter = 1
`, "slack.channelName required"),
		Entry("no intervals", `
[slack]
channelName = "x"
`, "no intervals configured"),
		Entry("inverted window", `
[slack]
channelName = "x"
[[intervals.a]]
earliestDayBefore = 1
latestDayAfter = 7
`, "earliest offset must be greater"),
		Entry("bad cron", `
[slack]
channelName = "x"
[[intervals.a]]
earliestDayBefore = 7
latestDayAfter = 1
[schedule]
cron = "every now and then"
`, "schedule.cron"),
		Entry("unparsable toml", `[slack`, "config.toml"),
	)

	It("wraps a missing file as invalid config", func() {
		_, err := config.Load(filepath.Join(dir, "nope.toml"))
		Expect(errors.Is(err, model.ErrConfigInvalid)).To(BeTrue())
	})
})

var _ = Describe("Windows", func() {
	It("orders groups built in code by name", func() {
		cfg := config.Config{Intervals: map[string][]config.IntervalConfig{
			"b": {{EarliestDayBefore: 2, LatestDayAfter: 1}},
			"a": {{EarliestDayBefore: 3, LatestDayAfter: 2}},
		}}
		Expect(names(cfg.Windows())).To(Equal([]string{"a", "b"}))
	})
})
