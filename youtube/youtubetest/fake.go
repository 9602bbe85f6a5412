// Package youtubetest provides an in-process fake of the YouTube Data API
// endpoints used by the youtube package.
package youtubetest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

type Video struct {
	ID       string
	Title    string
	Duration string
}

type Playlist struct {
	ID       string
	Title    string
	VideoIDs []string
}

type FakeAPI struct {
	Key      string
	PageSize int

	server    *httptest.Server
	mu        sync.Mutex
	videos    map[string]Video
	playlists map[string]Playlist
	failures  map[string]int
	calls     map[string]int
}

// New starts a fake API that accepts requests carrying key.
func New(key string) *FakeAPI {
	gin.SetMode(gin.TestMode)

	f := &FakeAPI{
		Key:       key,
		PageSize:  50,
		videos:    make(map[string]Video),
		playlists: make(map[string]Playlist),
		failures:  make(map[string]int),
		calls:     make(map[string]int),
	}

	r := gin.New()
	r.Use(f.countAndCheck)
	r.GET("/videos", f.handleVideos)
	r.GET("/playlists", f.handlePlaylists)
	r.GET("/playlistItems", f.handlePlaylistItems)

	f.server = httptest.NewServer(r)
	return f
}

func (f *FakeAPI) URL() string { return f.server.URL }

func (f *FakeAPI) Close() { f.server.Close() }

func (f *FakeAPI) AddVideo(v Video) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos[v.ID] = v
}

func (f *FakeAPI) AddPlaylist(p Playlist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists[p.ID] = p
}

// Fail makes every request to endpoint answer with status.
func (f *FakeAPI) Fail(endpoint string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[endpoint] = status
}

// Calls reports how many requests endpoint has received.
func (f *FakeAPI) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func (f *FakeAPI) countAndCheck(c *gin.Context) {
	endpoint := strings.TrimPrefix(c.Request.URL.Path, "/")

	f.mu.Lock()
	f.calls[endpoint]++
	status, failing := f.failures[endpoint]
	f.mu.Unlock()

	if f.Key != "" && c.Query("key") != f.Key {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"code": 403, "message": "API key not valid"}})
		return
	}
	if failing {
		c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": status}})
		return
	}
	c.Next()
}

func (f *FakeAPI) handleVideos(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := []gin.H{}
	for _, id := range strings.Split(c.Query("id"), ",") {
		v, ok := f.videos[id]
		if !ok {
			continue
		}
		items = append(items, gin.H{
			"id":             v.ID,
			"snippet":        gin.H{"title": v.Title},
			"contentDetails": gin.H{"duration": v.Duration},
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (f *FakeAPI) handlePlaylists(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := []gin.H{}
	if p, ok := f.playlists[c.Query("id")]; ok {
		items = append(items, gin.H{"id": p.ID, "snippet": gin.H{"title": p.Title}})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (f *FakeAPI) handlePlaylistItems(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[c.Query("playlistId")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": 404}})
		return
	}

	start, _ := strconv.Atoi(c.Query("pageToken"))
	end := start + f.PageSize
	if end > len(p.VideoIDs) {
		end = len(p.VideoIDs)
	}

	items := []gin.H{}
	for _, id := range p.VideoIDs[start:end] {
		title := "Deleted video"
		if v, ok := f.videos[id]; ok {
			title = v.Title
		}
		items = append(items, gin.H{
			"snippet":        gin.H{"title": title},
			"contentDetails": gin.H{"videoId": id},
		})
	}

	resp := gin.H{"items": items}
	if end < len(p.VideoIDs) {
		resp["nextPageToken"] = strconv.Itoa(end)
	}
	c.JSON(http.StatusOK, resp)
}
