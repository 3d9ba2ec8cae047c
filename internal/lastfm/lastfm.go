// package lastfm implements the submission client for the remote
// listening-history service, speaking the audioscrobbler 2.0 protocol.
//
// The client exposes best-effort now-playing notification and single/batch
// scrobble submission. Every remote failure, transport-level or an error
// body in the response, surfaces as shared.ErrNetwork; the caller decides
// whether to retry, abandon, or swallow it.
package lastfm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/djmattyg007/advanced-scrobbler/internal/models"
	"github.com/djmattyg007/advanced-scrobbler/internal/shared"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// MaxScrobblesPerBatch is the largest batch the remote service accepts in
// one scrobble call.
const MaxScrobblesPerBatch = 50

// Credentials holds the remote service account details. The password is
// only ever sent as an MD5 auth token, never in the clear.
type Credentials struct {
	APIKey    string
	APISecret string
	Username  string
	Password  string
}

// Client talks to one remote scrobble endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	creds      Credentials
	sessionKey string
}

// NewClient creates a scrobble client. An empty baseURL selects the public
// endpoint; a nil http client falls back to http.DefaultClient. rps bounds
// outbound requests per second as a courtesy to the rate-limited service.
func NewClient(creds Credentials, baseURL string, client *http.Client, rps float64, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if rps <= 0 {
		rps = 5.0
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
		creds:      creds,
	}
}

// sessionResponse is the body returned by auth.getMobileSession.
type sessionResponse struct {
	Session struct {
		Name string `json:"name"`
		Key  string `json:"key"`
	} `json:"session"`
}

// errorResponse is the protocol-level error body.
type errorResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// Authenticate obtains a session key for the configured account.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.creds.APIKey == "" || c.creds.APISecret == "" || c.creds.Username == "" || c.creds.Password == "" {
		return fmt.Errorf("%w: last.fm api_key, api_secret, username and password are all required", shared.ErrMissingCredentials)
	}

	c.logger.Info("connecting to last.fm", "username", c.creds.Username)

	params := url.Values{}
	params.Set("method", "auth.getMobileSession")
	params.Set("username", c.creds.Username)
	params.Set("authToken", authToken(c.creds.Username, c.creds.Password))

	body, err := c.call(ctx, params)
	if err != nil {
		return err
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return fmt.Errorf("%w: malformed session response: %v", shared.ErrNetwork, err)
	}
	if session.Session.Key == "" {
		return fmt.Errorf("%w: session response carried no key", shared.ErrNetwork)
	}

	c.sessionKey = session.Session.Key
	c.logger.Debug("connected to last.fm", "username", session.Session.Name)
	return nil
}

// SendNowPlayingNotification tells the remote service what is currently
// playing. Best-effort: the caller logs and discards failures, since a
// fresher event supersedes this one.
func (c *Client) SendNowPlayingNotification(ctx context.Context, play models.Play) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	c.logger.Info("sending now playing notification", "track_uri", play.TrackURI)

	params := nowPlayingParams(play)
	params.Set("method", "track.updateNowPlaying")

	_, err := c.call(ctx, params)
	return err
}

// SubmitScrobble submits a single recorded play.
func (c *Client) SubmitScrobble(ctx context.Context, play models.RecordedPlay) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	c.logger.Info("submitting scrobble", "play_id", play.PlayID, "track_uri", play.TrackURI)

	params := nowPlayingParams(play.Play)
	params.Set("method", "track.scrobble")
	params.Set("timestamp", strconv.FormatInt(play.PlayedAt, 10))

	_, err := c.call(ctx, params)
	return err
}

// SubmitScrobbles submits a batch of recorded plays in one request. The
// batch is all-or-nothing from the client's perspective: on success the
// caller may mark the whole batch submitted, on failure none of it.
func (c *Client) SubmitScrobbles(ctx context.Context, plays []models.RecordedPlay) error {
	if len(plays) == 0 {
		return nil
	}
	if len(plays) > MaxScrobblesPerBatch {
		return fmt.Errorf("%w: at most %d scrobbles per batch, got %d", shared.ErrClient, MaxScrobblesPerBatch, len(plays))
	}

	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	playIDs := make([]string, len(plays))
	params := url.Values{}
	params.Set("method", "track.scrobble")
	for i, play := range plays {
		playIDs[i] = strconv.FormatInt(play.PlayID, 10)
		setIndexed(params, i, play)
	}

	c.logger.Info("submitting scrobbles", "play_ids", strings.Join(playIDs, ", "))

	_, err := c.call(ctx, params)
	return err
}

// ensureSession lazily authenticates on the first submission.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.sessionKey != "" {
		return nil
	}
	return c.Authenticate(ctx)
}

// call signs and posts one API request, honoring the rate limiter, and
// returns the raw response body after checking it for a protocol error.
func (c *Client) call(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}

	params.Set("api_key", c.creds.APIKey)
	if c.sessionKey != "" {
		params.Set("sk", c.sessionKey)
	}
	params.Set("api_sig", signature(params, c.creds.APISecret))
	// The response format is excluded from the signature.
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}

	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		return nil, fmt.Errorf("%w: api error %d: %s", shared.ErrNetwork, apiErr.Error, apiErr.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", shared.ErrNetwork, resp.StatusCode)
	}

	return body, nil
}

// nowPlayingParams builds the submission fields shared by now-playing
// notifications and scrobbles. Optional fields are omitted rather than sent
// empty or zero.
func nowPlayingParams(play models.Play) url.Values {
	params := url.Values{}
	params.Set("artist", play.Artist)
	params.Set("track", play.Title)

	if play.Album != "" {
		params.Set("album", play.Album)
	}
	if play.Duration > 0 {
		params.Set("duration", strconv.Itoa(play.Duration))
	}
	if play.MusicbrainzID != "" {
		params.Set("mbid", play.MusicbrainzID)
	}

	return params
}

// setIndexed adds one play's fields to a batch request as artist[i],
// track[i], timestamp[i] and so on.
func setIndexed(params url.Values, i int, play models.RecordedPlay) {
	suffix := "[" + strconv.Itoa(i) + "]"
	params.Set("artist"+suffix, play.Artist)
	params.Set("track"+suffix, play.Title)
	params.Set("timestamp"+suffix, strconv.FormatInt(play.PlayedAt, 10))

	if play.Album != "" {
		params.Set("album"+suffix, play.Album)
	}
	if play.Duration > 0 {
		params.Set("duration"+suffix, strconv.Itoa(play.Duration))
	}
	if play.MusicbrainzID != "" {
		params.Set("mbid"+suffix, play.MusicbrainzID)
	}
}

// signature computes the api_sig for a request: the MD5 hex digest of every
// key=value pair concatenated in key order, followed by the shared secret.
func signature(params url.Values, secret string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		if key == "format" || key == "callback" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(params.Get(key))
	}
	b.WriteString(secret)

	return md5hex(b.String())
}

// authToken derives the mobile-session auth token from the account
// credentials.
func authToken(username, password string) string {
	return md5hex(username + md5hex(password))
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
