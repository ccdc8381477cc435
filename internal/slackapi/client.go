// Package slackapi is the chat client the bot runs against: channel lookup,
// channel history and posting, on top of the Slack Web API.
package slackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"lostfound-bot/internal/model"
)

const (
	listPageSize  = 200
	defaultAPIURL = "https://slack.com/api/"
)

type Options struct {
	Token        string
	APIURL       string
	HistoryLimit int
	HTTPClient   *http.Client
}

type Client struct {
	api          *slack.Client
	httpClient   *http.Client
	token        string
	apiURL       string
	historyLimit int
}

func New(opts Options) *Client {
	apiURL := defaultAPIURL
	if opts.APIURL != "" {
		apiURL = opts.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		api:          slack.New(opts.Token, slack.OptionAPIURL(apiURL), slack.OptionHTTPClient(httpClient)),
		httpClient:   httpClient,
		token:        opts.Token,
		apiURL:       apiURL,
		historyLimit: opts.HistoryLimit,
	}
}

// ChannelID pages through the non-archived conversations until one is named name.
func (c *Client) ChannelID(ctx context.Context, name string) (string, error) {
	params := &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           listPageSize,
	}
	for {
		channels, cursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return "", fmt.Errorf("%w: conversations.list: %v", model.ErrAPIFailure, err)
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if cursor == "" {
			return "", fmt.Errorf("%w: %q", model.ErrChannelNotFound, name)
		}
		params.Cursor = cursor
	}
}

// historyEntry keeps Text as a pointer so an entry without a text key stays
// distinguishable from one with empty text; slack.Message cannot tell them apart.
type historyEntry struct {
	Timestamp string            `json:"ts"`
	Text      *string           `json:"text"`
	Upload    bool              `json:"upload"`
	Files     []json.RawMessage `json:"files"`
}

type historyResponse struct {
	OK       bool           `json:"ok"`
	Error    string         `json:"error"`
	Messages []historyEntry `json:"messages"`
}

// History returns one page of the channel's history, newest first as Slack returns it.
func (c *Client) History(ctx context.Context, channelID string) ([]model.RawMessage, error) {
	form := url.Values{"channel": {channelID}}
	if c.historyLimit > 0 {
		form.Set("limit", strconv.Itoa(c.historyLimit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"conversations.history", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: conversations.history: %v", model.ErrAPIFailure, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: conversations.history: %v", model.ErrAPIFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: conversations.history: %s", model.ErrAPIFailure, resp.Status)
	}
	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: conversations.history: %v", model.ErrAPIFailure, err)
	}
	if !body.OK {
		return nil, fmt.Errorf("%w: conversations.history: %v", model.ErrAPIFailure, slack.SlackErrorResponse{Err: body.Error})
	}

	out := make([]model.RawMessage, 0, len(body.Messages))
	for _, m := range body.Messages {
		out = append(out, model.RawMessage{
			Timestamp: m.Timestamp,
			Text:      m.Text,
			Upload:    m.Upload,
			Files:     len(m.Files),
		})
	}
	return out, nil
}

func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	if _, _, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("%w: chat.postMessage: %v", model.ErrAPIFailure, err)
	}
	return nil
}

func (c *Client) ScheduleMessage(ctx context.Context, channelID, text string, at time.Time) error {
	postAt := strconv.FormatInt(at.Unix(), 10)
	if _, _, err := c.api.ScheduleMessageContext(ctx, channelID, postAt, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("%w: chat.scheduleMessage: %v", model.ErrAPIFailure, err)
	}
	return nil
}
