package publishers

import (
	"time"

	"github.com/bloggle-hq/bloggle-ingest/internal/domain"
)

// Event represents the payload published downstream after a post is stored.
type Event struct {
	SourceSlug  string      `json:"source_slug"`
	SourceName  string      `json:"source_name"`
	Post        domain.Post `json:"post"`
	CollectedAt time.Time   `json:"collected_at"`
}

// NewEvent constructs an Event for the given source + post.
func NewEvent(sourceSlug, sourceName string, post domain.Post) Event {
	return Event{
		SourceSlug:  sourceSlug,
		SourceName:  sourceName,
		Post:        post,
		CollectedAt: time.Now().UTC(),
	}
}
