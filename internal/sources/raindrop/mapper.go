package raindrop

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

// createdLayouts are tried in order for the created field.
var createdLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Mapper converts an export into staging bookmarks
type Mapper struct {
	now func() time.Time
}

// NewMapper creates a new mapper
func NewMapper() *Mapper {
	return &Mapper{now: time.Now}
}

// MapBookmarks converts the export. The export's user_id wins over defaultUser.
// Items without an _id are skipped; empty tags are dropped.
func (m *Mapper) MapBookmarks(export *Export, defaultUser string) ([]*domain.StagingBookmark, error) {
	userID := strings.TrimSpace(export.UserID)
	if userID == "" {
		userID = strings.TrimSpace(defaultUser)
	}
	if userID == "" {
		return nil, fmt.Errorf("export has no user_id and no default user was given")
	}

	now := m.now().UTC()
	bookmarks := make([]*domain.StagingBookmark, 0, len(export.Raindrops))

	for _, item := range export.Raindrops {
		sourceID := strings.TrimSpace(string(item.ID))
		if sourceID == "" {
			continue
		}

		created := now
		if t, ok := parseCreated(item.Created); ok {
			created = t
		}

		bookmarks = append(bookmarks, &domain.StagingBookmark{
			UserID:    userID,
			SourceID:  sourceID,
			Title:     item.Title,
			Link:      item.Link,
			Tags:      cleanTags(item.Tags),
			CreatedAt: created,
		})
	}

	return bookmarks, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseCreated(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
