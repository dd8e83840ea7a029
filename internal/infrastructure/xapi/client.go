package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/remindmex/RemindMeBot/internal/domain"
)

const defaultBaseURL = "https://api.twitter.com"

// Config carries the X API credentials. Reads use the app bearer token,
// writes use the OAuth1 user context, same split the v2 API requires.
type Config struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string
	BaseURL           string // overridden in tests
}

// Client talks to the X API v2: the authenticated account, its mention
// timeline, and posting replies.
type Client struct {
	baseURL string
	bearer  string
	read    *http.Client
	write   *http.Client

	userID string // set by Me, required before FetchMentionsSince
}

func NewClient(cfg Config) *Client {
	oauthCfg := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	write := oauthCfg.Client(context.Background(), token)
	write.Timeout = 10 * time.Second

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		bearer:  cfg.BearerToken,
		read:    &http.Client{Timeout: 10 * time.Second},
		write:   write,
	}
}

type userResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

type mentionsResponse struct {
	Data []struct {
		ID               string    `json:"id"`
		Text             string    `json:"text"`
		AuthorID         string    `json:"author_id"`
		CreatedAt        time.Time `json:"created_at"`
		ReferencedTweets []struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		} `json:"referenced_tweets"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Me resolves the authenticated bot account and pins its id for mention
// polling.
func (c *Client) Me(ctx context.Context) (id, username string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/2/users/me", nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.read.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data userResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", "", err
	}
	if data.Data.ID == "" {
		return "", "", fmt.Errorf("could not authenticate with X API")
	}
	c.userID = data.Data.ID
	return data.Data.ID, data.Data.Username, nil
}

// FetchMentionsSince returns mentions newer than sinceID in oldest-first
// order. The API serves the timeline newest first; the slice is reversed so
// callers can advance their cursor monotonically.
func (c *Client) FetchMentionsSince(ctx context.Context, sinceID string) ([]*domain.Mention, error) {
	if c.userID == "" {
		return nil, fmt.Errorf("bot user id not resolved, call Me first")
	}

	params := url.Values{}
	params.Set("max_results", strconv.Itoa(100))
	params.Set("tweet.fields", "created_at,author_id,referenced_tweets")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username")
	if sinceID != "" {
		params.Set("since_id", sinceID)
	}
	endpoint := fmt.Sprintf("%s/2/users/%s/mentions?%s", c.baseURL, c.userID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.read.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data mentionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	usernames := make(map[string]string, len(data.Includes.Users))
	for _, u := range data.Includes.Users {
		usernames[u.ID] = u.Username
	}

	mentions := make([]*domain.Mention, 0, len(data.Data))
	for i := len(data.Data) - 1; i >= 0; i-- {
		tweet := data.Data[i]
		m := &domain.Mention{
			ID:           tweet.ID,
			Text:         tweet.Text,
			AuthorID:     tweet.AuthorID,
			AuthorHandle: usernames[tweet.AuthorID],
			CreatedAt:    tweet.CreatedAt,
		}
		for _, ref := range tweet.ReferencedTweets {
			if ref.Type == "replied_to" {
				m.ReplyTargetID = ref.ID
				break
			}
		}
		mentions = append(mentions, m)
	}
	return mentions, nil
}

// Reply posts a reply to targetEventID and returns the new post's id.
func (c *Client) Reply(ctx context.Context, targetEventID, text string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"text": text,
		"reply": map[string]string{
			"in_reply_to_tweet_id": targetEventID,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.write.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	return data.Data.ID, nil
}
