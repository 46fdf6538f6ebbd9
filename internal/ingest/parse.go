package ingest

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/spacesedan/blogrelay/internal/models"
)

const categoryTagNamespace = "blog-posts#category"

// parseEntry normalizes one raw feed entry into a BlogPost. An entry missing
// any required field is rejected; the caller drops it and moves on.
func parseEntry(entry models.FeedEntry) (models.BlogPost, error) {
	fields := entry.Item.AdditionalFields

	if fields.Link == "" {
		return models.BlogPost{}, fmt.Errorf("missing link")
	}
	if fields.Title == "" {
		return models.BlogPost{}, fmt.Errorf("missing title for %s", fields.Link)
	}
	if entry.Item.DateCreated == "" || entry.Item.DateUpdated == "" {
		return models.BlogPost{}, fmt.Errorf("missing dates for %s", fields.Link)
	}

	authors, err := parseAuthors(entry.Item.Author)
	if err != nil {
		return models.BlogPost{}, fmt.Errorf("bad author list for %s: %w", fields.Link, err)
	}

	categories := parseTagCategories(entry.Tags)

	return models.BlogPost{
		BlogURL:          fields.Link,
		DateCreated:      entry.Item.DateCreated,
		DateUpdated:      entry.Item.DateUpdated,
		Title:            html.UnescapeString(fields.Title),
		MainCategory:     lookupCategory(fields.Link, categories),
		Categories:       categories,
		Authors:          authors,
		PostExcerpt:      html.UnescapeString(fields.PostExcerpt),
		FeaturedImageURL: fields.FeaturedImageURL,
	}, nil
}

// parseAuthors decodes the JSON-encoded author list and unescapes HTML
// entities in each name. At least one author is required.
func parseAuthors(raw string) ([]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty author field")
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, err
	}

	authors := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(html.UnescapeString(name))
		if name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) == 0 {
		return nil, fmt.Errorf("no usable author names")
	}
	return authors, nil
}

// parseTagCategories extracts category display names from the entry's tags.
// Names starting with "*" are internal markers and skipped.
func parseTagCategories(tags []models.FeedTag) []string {
	var categories []string
	for _, tag := range tags {
		if tag.TagNamespaceID != categoryTagNamespace {
			continue
		}
		var description struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(tag.Description), &description); err != nil {
			continue
		}
		if description.Name == "" || strings.HasPrefix(description.Name, "*") {
			continue
		}
		categories = append(categories, html.UnescapeString(description.Name))
	}
	return categories
}
