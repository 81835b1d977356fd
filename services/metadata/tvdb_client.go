package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

const tvdbBaseURL = "https://api4.thetvdb.com/v4"

// tvdbClient is a minimal TVDB v4 client used as an artwork fallback when
// TMDB has nothing.
type tvdbClient struct {
	apiKey string
	httpc  *http.Client

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

func newTVDBClient(apiKey string, httpc *http.Client) *tvdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tvdbClient{apiKey: strings.TrimSpace(apiKey), httpc: httpc}
}

func (c *tvdbClient) login(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, _ := json.Marshal(map[string]string{"apikey": c.apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tvdbBaseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tvdb login failed: %s", resp.Status)
	}

	var parsed struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	c.token = parsed.Data.Token
	c.tokenExpiry = time.Now().Add(24 * time.Hour)
	return c.token, nil
}

// MoviePosterURL returns the first poster artwork TVDB knows for the movie.
func (c *tvdbClient) MoviePosterURL(ctx context.Context, tvdbID int64) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("tvdb: no api key configured")
	}

	var posterURL string
	err := retry.Do(
		func() error {
			token, err := c.login(ctx)
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet,
				tvdbBaseURL+"/movies/"+strconv.FormatInt(tvdbID, 10)+"/extended", nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return fmt.Errorf("tvdb request failed: %s", resp.Status)
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("tvdb request failed: %s", resp.Status))
			}

			var parsed struct {
				Data struct {
					Image    string `json:"image"`
					Artworks []struct {
						Image string `json:"image"`
						Type  int    `json:"type"`
					} `json:"artworks"`
				} `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
				return retry.Unrecoverable(err)
			}

			posterURL = parsed.Data.Image
			if posterURL == "" && len(parsed.Data.Artworks) > 0 {
				posterURL = parsed.Data.Artworks[0].Image
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return posterURL, nil
}
