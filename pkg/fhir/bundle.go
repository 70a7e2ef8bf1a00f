package fhir

import (
	"encoding/json"
)

// Bundle is the paginated FHIR response envelope.
type Bundle struct {
	ResourceType string        `json:"resourceType,omitempty"`
	Type         string        `json:"type,omitempty"`
	Total        int           `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

// BundleLink is a pagination link in a bundle.
type BundleLink struct {
	Relation string `json:"relation,omitempty"`
	URL      string `json:"url,omitempty"`
}

// BundleEntry wraps one resource in a bundle page.
type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// NextLink returns the URL of the next page, or "" when this is the last one.
func (b *Bundle) NextLink() string {
	for _, link := range b.Link {
		if link.Relation == "next" {
			return link.URL
		}
	}
	return ""
}
