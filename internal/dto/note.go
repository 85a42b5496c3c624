// Package dto defines request and response structures for the HTTP
// and WebSocket surfaces.
package dto

// NoteSaveRequest creates or updates a note. An empty id creates.
type NoteSaveRequest struct {
	ID               string   `json:"id" form:"id"`
	Domain           string   `json:"domain" form:"domain" binding:"required"`
	URL              string   `json:"url" form:"url"`
	Title            string   `json:"title" form:"title"`
	Content          string   `json:"content" form:"content"`
	TitleEncrypted   string   `json:"title_encrypted" form:"title_encrypted"`
	ContentEncrypted string   `json:"content_encrypted" form:"content_encrypted"`
	Tags             []string `json:"tags" form:"tags"`
}

// NoteGetRequest fetches one note by id.
type NoteGetRequest struct {
	ID string `json:"id" form:"id" binding:"required"`
}

// NoteDeleteRequest removes one note by id.
type NoteDeleteRequest struct {
	ID string `json:"id" form:"id" binding:"required"`
}

// NoteListRequest filters the note list.
type NoteListRequest struct {
	Domain string `json:"domain" form:"domain"`
	URL    string `json:"url" form:"url"`
}

// ExportRequest narrows an export to specific domains.
type ExportRequest struct {
	Domains []string `json:"domains" form:"domains"`
}
