package intel

import "github.com/peripheralhq/peripheral-mcp/pkg/store"

// maxContentRunes caps article content in public responses.
const maxContentRunes = 500

// FormatArticle maps a news_item row to its public shape. Content
// defaults to "" before truncation; every other optional field keeps
// null as null.
func FormatArticle(r store.Record) Article {
	return Article{
		ID:        r.Str("id"),
		Title:     r.StrPtr("title"),
		Content:   truncateRunes(r.Str("content"), maxContentRunes),
		Published: r.StrPtr("published"),
		Author:    r.StrPtr("author"),
		Link:      r.StrPtr("link"),
		Sentiment: r.StrPtr("sentiment_category"),
		StoryID:   r.StrPtr("story_id"),
	}
}

// FormatSignal maps a signal row to its public shape.
func FormatSignal(r store.Record) Signal {
	return Signal{
		Type:        r.StrPtr("signal_type"),
		Weapon:      r.StrPtr("weapon_type"),
		Location:    r.StrPtr("target_location"),
		Region:      r.StrPtr("target_region"),
		Direction:   r.StrPtr("direction"),
		AlertType:   r.StrPtr("alert_type"),
		AlertStatus: r.StrPtr("alert_status"),
		Timestamp:   r.StrPtr("created_at"),
	}
}

// FormatStory maps a story row to its public shape.
func FormatStory(r store.Record) Story {
	return Story{
		ID:            r.Str("id"),
		Title:         r.StrPtr("title"),
		Summary:       r.StrPtr("summary"),
		Description:   r.StrPtr("description"),
		TopicKeywords: r["topic_keywords"],
		Created:       r.StrPtr("created"),
		Updated:       r.StrPtr("updated"),
		SourceCount:   r.IntPtr("source_count"),
	}
}

// truncateRunes cuts s to at most n runes. Content is frequently
// non-ASCII, so byte slicing would split characters.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
