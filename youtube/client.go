// Package youtube fetches video and playlist metadata from the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SinglesGroup is the group used for videos that were not fetched through a playlist.
const SinglesGroup = "singles"

const playlistPageSize = "50"

// VideoRecord is the metadata for one unit of audio to acquire.
type VideoRecord struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationSeconds int    `json:"durationSeconds"`
	GroupName       string `json:"groupName"`
}

// APIError is returned for any non-2xx response from the Data API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("error fetching %s from YouTube API: %d %s", e.Endpoint, e.StatusCode, e.Status)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *zap.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		log:        log,
	}
}

type snippet struct {
	Title string `json:"title"`
}

type contentDetails struct {
	Duration string `json:"duration"`
	VideoID  string `json:"videoId"`
}

type listResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID             string         `json:"id"`
		Snippet        snippet        `json:"snippet"`
		ContentDetails contentDetails `json:"contentDetails"`
	} `json:"items"`
}

// FetchVideo resolves a single watch URL. A video the API does not know
// yields an empty result and a warning, so one dead link does not stop a batch.
func (c *Client) FetchVideo(ctx context.Context, rawURL string) ([]VideoRecord, error) {
	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}

	var data listResponse
	err = c.get(ctx, "videos", url.Values{
		"part": {"snippet,contentDetails"},
		"id":   {videoID},
	}, &data)
	if err != nil {
		return nil, err
	}

	if len(data.Items) == 0 {
		c.log.Warn("video details not found", zap.String("video_id", videoID))
		return []VideoRecord{}, nil
	}

	item := data.Items[0]
	seconds, err := ParseDuration(item.ContentDetails.Duration)
	if err != nil {
		return nil, fmt.Errorf("video %s: %w", videoID, err)
	}

	return []VideoRecord{{
		ID:              videoID,
		Name:            item.Snippet.Title,
		DurationSeconds: seconds,
		GroupName:       SinglesGroup,
	}}, nil
}

// FetchPlaylist resolves every member of a playlist. Members whose details
// cannot be resolved are skipped with a warning.
func (c *Client) FetchPlaylist(ctx context.Context, rawURL string) ([]VideoRecord, error) {
	playlistID, err := ExtractPlaylistID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}

	playlistName, err := c.fetchPlaylistName(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	log := c.log.With(zap.String("playlist_id", playlistID), zap.String("playlist", playlistName))
	result := []VideoRecord{}
	pageToken := ""

	for {
		var page listResponse
		err := c.get(ctx, "playlistItems", url.Values{
			"part":       {"snippet,contentDetails"},
			"maxResults": {playlistPageSize},
			"playlistId": {playlistID},
			"pageToken":  {pageToken},
		}, &page)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			videoID := item.ContentDetails.VideoID
			seconds, found, err := c.fetchDuration(ctx, videoID)
			if err != nil {
				return nil, err
			}
			if !found {
				log.Warn("video details not found", zap.String("video_id", videoID))
				continue
			}
			if seconds < 0 {
				log.Warn("skipping video with unparseable duration", zap.String("video_id", videoID))
				continue
			}
			result = append(result, VideoRecord{
				ID:              videoID,
				Name:            item.Snippet.Title,
				DurationSeconds: seconds,
				GroupName:       playlistName,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	log.Info("fetched playlist", zap.Int("videos", len(result)))
	return result, nil
}

func (c *Client) fetchPlaylistName(ctx context.Context, playlistID string) (string, error) {
	var data listResponse
	err := c.get(ctx, "playlists", url.Values{
		"part": {"snippet"},
		"id":   {playlistID},
	}, &data)
	if err != nil {
		return "", err
	}
	if len(data.Items) == 0 {
		return "", fmt.Errorf("playlist %s not found", playlistID)
	}
	return data.Items[0].Snippet.Title, nil
}

// fetchDuration reports -1 for a duration that exists but does not parse.
func (c *Client) fetchDuration(ctx context.Context, videoID string) (int, bool, error) {
	var data listResponse
	err := c.get(ctx, "videos", url.Values{
		"part": {"contentDetails"},
		"id":   {videoID},
	}, &data)
	if err != nil {
		return 0, false, err
	}
	if len(data.Items) == 0 {
		return 0, false, nil
	}
	seconds, err := ParseDuration(data.Items[0].ContentDetails.Duration)
	if err != nil {
		c.log.Debug("duration parse failed", zap.String("video_id", videoID), zap.Error(err))
		return -1, true, nil
	}
	return seconds, true, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}
