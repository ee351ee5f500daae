package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social_publisher/internal/domain"
)

// PostIDHeader carries the created post's identifier on a successful
// publish response.
const PostIDHeader = "X-RestLi-Id"

// Config holds LinkedIn client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthorURN    string
	Scopes       string
	AuthBaseURL  string
	APIBaseURL   string
	RedirectURI  string
	Timeout      time.Duration
}

// Client talks to the LinkedIn OAuth and REST endpoints. Every outbound
// call carries the configured timeout; a deadline hit surfaces as a
// transport error and follows the same path as a non-2xx response.
type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	authorURN    string
	scopes       string
	authBaseURL  string
	apiBaseURL   string
	redirectURI  string
	logger       *slog.Logger
}

// New creates a new LinkedIn client.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		authorURN:    cfg.AuthorURN,
		scopes:       cfg.Scopes,
		authBaseURL:  strings.TrimRight(cfg.AuthBaseURL, "/"),
		apiBaseURL:   strings.TrimRight(cfg.APIBaseURL, "/"),
		redirectURI:  cfg.RedirectURI,
		logger:       logger.With("platform", "linkedin"),
	}
}

// AuthorURN returns the configured author identity for published posts.
func (c *Client) AuthorURN() string {
	return c.authorURN
}

// AuthURL builds the browser-directed authorization URL for one attempt.
func (c *Client) AuthURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("scope", c.scopes)
	q.Set("state", state)
	return c.authBaseURL + "/authorization?" + q.Encode()
}

// Exchange swaps an authorization code for an access token. The returned
// credential's expiry is derived from the platform's expires_in seconds.
func (c *Client) Exchange(ctx context.Context, code string) (*domain.Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", c.redirectURI)

	endpoint := c.authBaseURL + "/accessToken"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var oerr oauthError
		if err := json.NewDecoder(resp.Body).Decode(&oerr); err == nil && oerr.ErrorDescription != "" {
			return nil, fmt.Errorf("token exchange: %s (status %d)", oerr.ErrorDescription, resp.StatusCode)
		}
		return nil, fmt.Errorf("token exchange: unexpected status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token exchange: empty access_token")
	}

	cred := &domain.Credential{
		AccessToken: tok.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}

	c.logger.Debug("exchanged authorization code", "expires_at", cred.ExpiresAt)

	return cred, nil
}

// Post publishes a text share and returns the external post identifier.
func (c *Client) Post(ctx context.Context, accessToken, content string) (string, error) {
	body := ugcPost{
		Author:         c.authorURN,
		LifecycleState: "PUBLISHED",
		SpecificContent: specificContent{
			ShareContent: shareContent{
				ShareCommentary:    commentary{Text: content},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: visibility{MemberNetworkVisibility: "PUBLIC"},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal post: %w", err)
	}

	endpoint := c.apiBaseURL + "/ugcPosts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.decodeAPIError(resp)
	}

	postID := resp.Header.Get(PostIDHeader)
	if postID == "" {
		return "", fmt.Errorf("publish succeeded but response carried no %s header", PostIDHeader)
	}

	c.logger.Debug("published post", "post_id", postID)

	return postID, nil
}

// SocialActions fetches aggregate like and comment counts for a post.
func (c *Client) SocialActions(ctx context.Context, accessToken, postID string) (*domain.SocialCounts, error) {
	endpoint := c.apiBaseURL + "/socialActions/" + url.PathEscape(postID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeAPIError(resp)
	}

	var actions socialActionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&actions); err != nil {
		return nil, fmt.Errorf("decode social actions: %w", err)
	}

	return &domain.SocialCounts{
		PostID:   postID,
		Likes:    actions.LikesSummary.TotalLikes,
		Comments: actions.CommentsSummary.AggregatedTotalComments,
	}, nil
}

func (c *Client) decodeAPIError(resp *http.Response) error {
	var aerr apiError
	if err := json.NewDecoder(resp.Body).Decode(&aerr); err == nil && aerr.Message != "" {
		return fmt.Errorf("linkedin api: %s (status %d, code %d)", aerr.Message, resp.StatusCode, aerr.ServiceErrorCode)
	}
	return fmt.Errorf("linkedin api: unexpected status %d", resp.StatusCode)
}
