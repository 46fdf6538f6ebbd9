package models

// FeedSearchResponse is one page of the upstream blog search API.
type FeedSearchResponse struct {
	Items    []FeedEntry  `json:"items"`
	Metadata FeedMetadata `json:"metadata"`
}

type FeedMetadata struct {
	Count     int `json:"count"`
	TotalHits int `json:"totalHits"`
}

type FeedEntry struct {
	Item FeedItem  `json:"item"`
	Tags []FeedTag `json:"tags"`
}

type FeedItem struct {
	ID          string `json:"id"`
	Locale      string `json:"locale"`
	DateCreated string `json:"dateCreated"`
	DateUpdated string `json:"dateUpdated"`
	// Author is a JSON-encoded list of display names, e.g. `["Jane Doe"]`.
	Author           string         `json:"author"`
	AdditionalFields FeedItemFields `json:"additionalFields"`
}

type FeedItemFields struct {
	Link             string `json:"link"`
	Title            string `json:"title"`
	PostExcerpt      string `json:"postExcerpt"`
	FeaturedImageURL string `json:"featuredImageUrl"`
}

type FeedTag struct {
	TagNamespaceID string `json:"tagNamespaceId"`
	// Description is a JSON-encoded object carrying the tag's display name.
	Description string `json:"description"`
}
