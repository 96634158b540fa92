package models

// NewsItem is a single ticker entry taken from the RSS feed.
// Description is plain text with HTML markup removed.
type NewsItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	PubDate     string `json:"pubDate"`
	Description string `json:"description"`
}
