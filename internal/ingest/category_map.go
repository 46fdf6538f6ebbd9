package ingest

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed category_mapping.yaml
var categoryMappingYAML []byte

var categoryMapping = mustLoadCategoryMapping()

func mustLoadCategoryMapping() map[string]string {
	m := make(map[string]string)
	if err := yaml.Unmarshal(categoryMappingYAML, &m); err != nil {
		panic("ingest: invalid embedded category mapping: " + err.Error())
	}
	return m
}

// lookupCategory resolves the main category from the blog URL's directory
// segment, falling back to the first tag-derived category. An empty string
// means no category could be determined.
func lookupCategory(blogURL string, tagCategories []string) string {
	segments := strings.Split(blogURL, "/")
	// https://aws.amazon.com/blogs/<directory>/<slug>/
	if len(segments) > 4 {
		if category, ok := categoryMapping[segments[4]]; ok {
			return category
		}
	}
	if len(tagCategories) > 0 {
		return tagCategories[0]
	}
	return ""
}
