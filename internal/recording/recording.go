// Package recording discovers the video recording of a session.
// Recordings live under videos/<sessionId>/ in a bucket or a local directory.
package recording

import (
	"context"
	"path"
	"strings"
	"time"
)

// Recording is a discovered video object.
type Recording struct {
	Key     string    `json:"key"`
	URL     string    `json:"url"`
	Updated time.Time `json:"updated"`
	Size    int64     `json:"size"`
}

type Locator interface {
	// Find returns ok=false when the session has no recording.
	Find(ctx context.Context, sessionID string) (Recording, bool, error)
}

// Prefix is the object prefix that holds one session's recordings.
func Prefix(sessionID string) string {
	return "videos/" + sessionID + "/"
}

func isVideo(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp4", ".webm":
		return true
	}
	return false
}

// latest picks the most recently updated video; ties go to the greater key.
func latest(objs []Recording) (Recording, bool) {
	var (
		best  Recording
		found bool
	)
	for _, o := range objs {
		if !isVideo(o.Key) {
			continue
		}
		if !found || o.Updated.After(best.Updated) || (o.Updated.Equal(best.Updated) && o.Key > best.Key) {
			best, found = o, true
		}
	}
	return best, found
}

// None is a Locator for deployments without recordings.
type None struct{}

func (None) Find(context.Context, string) (Recording, bool, error) {
	return Recording{}, false, nil
}
