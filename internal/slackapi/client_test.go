package slackapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"lostfound-bot/internal/model"
	"lostfound-bot/internal/slackapi"
)

type fakeSlack struct {
	mu       sync.Mutex
	handlers map[string]func(form map[string]string) any
	calls    []string
	forms    []map[string]string
}

func (f *fakeSlack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	form := map[string]string{}
	for k := range r.Form {
		form[k] = r.Form.Get(k)
	}
	method := strings.TrimPrefix(r.URL.Path, "/")

	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.forms = append(f.forms, form)
	h := f.handlers[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if h == nil {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unknown_method"})
		return
	}
	_ = json.NewEncoder(w).Encode(h(form))
}

var _ = Describe("Client", func() {
	var (
		fake   *fakeSlack
		server *httptest.Server
		client *slackapi.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeSlack{handlers: map[string]func(map[string]string) any{}}
		server = httptest.NewServer(fake)
		DeferCleanup(server.Close)
		client = slackapi.New(slackapi.Options{Token: "xoxb-test", APIURL: server.URL, HistoryLimit: 50})
	})

	Describe("ChannelID", func() {
		It("pages through conversations until the name matches", func() {
			fake.handlers["conversations.list"] = func(form map[string]string) any {
				if form["cursor"] == "" {
					return map[string]any{
						"ok":                true,
						"channels":          []map[string]any{{"id": "C1", "name": "general"}},
						"response_metadata": map[string]any{"next_cursor": "page2"},
					}
				}
				return map[string]any{
					"ok":                true,
					"channels":          []map[string]any{{"id": "C2", "name": "lost-and-found"}},
					"response_metadata": map[string]any{"next_cursor": ""},
				}
			}

			id, err := client.ChannelID(ctx, "lost-and-found")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("C2"))
			Expect(fake.calls).To(Equal([]string{"conversations.list", "conversations.list"}))
			Expect(fake.forms[0]["exclude_archived"]).To(Equal("true"))
		})

		It("reports an unknown channel", func() {
			fake.handlers["conversations.list"] = func(map[string]string) any {
				return map[string]any{"ok": true, "channels": []map[string]any{{"id": "C1", "name": "general"}}}
			}
			_, err := client.ChannelID(ctx, "lost-and-found")
			Expect(errors.Is(err, model.ErrChannelNotFound)).To(BeTrue())
		})

		It("wraps API errors", func() {
			fake.handlers["conversations.list"] = func(map[string]string) any {
				return map[string]any{"ok": false, "error": "invalid_auth"}
			}
			_, err := client.ChannelID(ctx, "lost-and-found")
			Expect(errors.Is(err, model.ErrAPIFailure)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("invalid_auth"))
		})
	})

	Describe("History", func() {
		It("maps messages to raw records", func() {
			fake.handlers["conversations.history"] = func(map[string]string) any {
				return map[string]any{
					"ok": true,
					"messages": []map[string]any{
						{"type": "message", "ts": "1700000300.000200", "text": "lost wallet", "upload": true},
						{"type": "message", "ts": "1700000200.000100", "text": "keys", "files": []map[string]any{{"id": "F1"}}},
						{"type": "message", "ts": "1700000100.000000", "text": "hello"},
					},
				}
			}

			raws, err := client.History(ctx, "C2")
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.forms[0]["channel"]).To(Equal("C2"))
			Expect(fake.forms[0]["limit"]).To(Equal("50"))
			Expect(raws).To(HaveLen(3))
			Expect(raws[0].Timestamp).To(Equal("1700000300.000200"))
			Expect(*raws[0].Text).To(Equal("lost wallet"))
			Expect(raws[0].Upload).To(BeTrue())
			Expect(raws[1].Files).To(Equal(1))
			Expect(raws[2].Upload).To(BeFalse())
			Expect(raws[2].Files).To(BeZero())
		})

		It("leaves Text nil for an entry without a text key so the cycle rejects it", func() {
			fake.handlers["conversations.history"] = func(map[string]string) any {
				return map[string]any{
					"ok": true,
					"messages": []map[string]any{
						{"type": "message", "ts": "1700000000.000100", "upload": true},
					},
				}
			}

			raws, err := client.History(ctx, "C2")
			Expect(err).NotTo(HaveOccurred())
			Expect(raws).To(HaveLen(1))
			Expect(raws[0].Text).To(BeNil())

			_, err = model.ClassifyAll(raws)
			Expect(errors.Is(err, model.ErrMalformedMessage)).To(BeTrue())
		})

		It("keeps empty text distinct from missing text", func() {
			fake.handlers["conversations.history"] = func(map[string]string) any {
				return map[string]any{
					"ok":       true,
					"messages": []map[string]any{{"type": "message", "ts": "1700000000.000100", "text": "", "upload": true}},
				}
			}

			raws, err := client.History(ctx, "C2")
			Expect(err).NotTo(HaveOccurred())
			Expect(raws[0].Text).NotTo(BeNil())
			msgs, err := model.ClassifyAll(raws)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs[0].Content).To(Equal(model.ContentUpload))
		})

		It("wraps API errors", func() {
			fake.handlers["conversations.history"] = func(map[string]string) any {
				return map[string]any{"ok": false, "error": "channel_not_found"}
			}
			_, err := client.History(ctx, "C404")
			Expect(errors.Is(err, model.ErrAPIFailure)).To(BeTrue())
		})
	})

	Describe("posting", func() {
		It("posts text to the channel", func() {
			fake.handlers["chat.postMessage"] = func(form map[string]string) any {
				return map[string]any{"ok": true, "channel": form["channel"], "ts": "1700000400.000100"}
			}
			Expect(client.PostMessage(ctx, "C2", "Reminder: lost wallet\nclaim it")).To(Succeed())
			Expect(fake.forms[0]["channel"]).To(Equal("C2"))
			Expect(fake.forms[0]["text"]).To(Equal("Reminder: lost wallet\nclaim it"))
		})

		It("schedules text for later", func() {
			at := time.Unix(1700003600, 0)
			fake.handlers["chat.scheduleMessage"] = func(form map[string]string) any {
				return map[string]any{"ok": true, "channel": form["channel"], "scheduled_message_id": "Q1", "post_at": form["post_at"]}
			}
			Expect(client.ScheduleMessage(ctx, "C2", "Reminder: x\n", at)).To(Succeed())
			Expect(fake.forms[0]["post_at"]).To(Equal(strconv.FormatInt(at.Unix(), 10)))
		})

		It("wraps post failures", func() {
			fake.handlers["chat.postMessage"] = func(map[string]string) any {
				return map[string]any{"ok": false, "error": "not_in_channel"}
			}
			err := client.PostMessage(ctx, "C2", "x")
			Expect(errors.Is(err, model.ErrAPIFailure)).To(BeTrue())
		})
	})
})
