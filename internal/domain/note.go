// Package domain defines the note models and the contracts between the
// storage, repository and service layers.
package domain

import (
	"strings"

	"github.com/anchored-notes/anchored-sync-service/pkg/timex"
)

// ReservedKeys are storage keys that never hold note buckets and are
// skipped when scanning the store for domains.
var ReservedKeys = map[string]bool{
	"settings":    true,
	"editorState": true,
	"_index":      true,
	"_anchored":   true,
}

// IndexKey is the storage key of the domain index bucket.
const IndexKey = "_index"

// Note is one saved note. A storage bucket holds the notes of a single
// domain as a JSON array of these.
type Note struct {
	ID               string      `json:"id"`
	Domain           string      `json:"domain"`
	URL              string      `json:"url,omitempty"`
	Title            string      `json:"title,omitempty"`
	Content          string      `json:"content,omitempty"`
	TitleEncrypted   string      `json:"title_encrypted,omitempty"`
	ContentEncrypted string      `json:"content_encrypted,omitempty"`
	Tags             []string    `json:"tags"`
	CreatedAt        timex.Time  `json:"createdAt"`
	UpdatedAt        timex.Time  `json:"updatedAt"`
	IsDeleted        bool        `json:"is_deleted,omitempty"`
	DeletedAt        *timex.Time `json:"deleted_at,omitempty"`
	SyncPending      bool        `json:"sync_pending,omitempty"`
}

// IsEncrypted reports whether the note carries encrypted payload fields.
func (n *Note) IsEncrypted() bool {
	return n.TitleEncrypted != "" || n.ContentEncrypted != ""
}

// NewerThan reports whether n wins a last-write-wins comparison
// against other.
func (n *Note) NewerThan(other *Note) bool {
	return n.UpdatedAt.After(other.UpdatedAt)
}

// Clone returns a deep copy of the note.
func (n *Note) Clone() *Note {
	c := *n
	if n.Tags != nil {
		c.Tags = make([]string, len(n.Tags))
		copy(c.Tags, n.Tags)
	}
	if n.DeletedAt != nil {
		d := *n.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}

// ForExport returns a copy shaped for the export envelope: tags is
// always a non-nil slice, encrypted payloads, soft delete and sync
// bookkeeping fields are dropped.
func (n *Note) ForExport() *Note {
	c := n.Clone()
	if c.Tags == nil {
		c.Tags = []string{}
	}
	c.TitleEncrypted = ""
	c.ContentEncrypted = ""
	c.IsDeleted = false
	c.DeletedAt = nil
	c.SyncPending = false
	return c
}

// NormalizeDomain lowercases and trims a domain for use as a bucket key.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// NormalizeTags trims entries, drops empties and deduplicates while
// keeping first-occurrence order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
