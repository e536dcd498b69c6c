package simpleposts

import (
	"fmt"
	"io"
	"strings"
)

// Request DTOs

// ContentBlockRequest is one submitted content block. Text is read for
// text blocks and ResourceKeys for resources blocks.
type ContentBlockRequest struct {
	Type         ContentType `json:"type"`
	Text         string      `json:"text,omitempty"`
	ResourceKeys []string    `json:"resourceKeys,omitempty"`
}

// CreatePostRequest contains parameters for creating or updating a post.
// CreatedByID is only read on create.
type CreatePostRequest struct {
	Title            string                `json:"title"`
	ShortDescription string                `json:"shortDescription,omitempty"`
	CoverFileKey     string                `json:"coverFileKey,omitempty"`
	Content          []ContentBlockRequest `json:"content"`
	CreatedByID      string                `json:"createdById,omitempty"`
}

// Validate checks the request shape. It does not touch media.
func (r *CreatePostRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if len(r.Content) == 0 {
		return &ValidationError{Field: "content", Reason: "content must not be empty"}
	}
	for i, block := range r.Content {
		switch block.Type {
		case ContentTypeText:
			if strings.TrimSpace(block.Text) == "" {
				return &ValidationError{Field: fieldIndex("content", i, "text"), Reason: "text block requires text"}
			}
		case ContentTypeResources:
			if len(block.ResourceKeys) == 0 {
				return &ValidationError{Field: fieldIndex("content", i, "resourceKeys"), Reason: "resources block requires at least one key"}
			}
			for _, key := range block.ResourceKeys {
				if strings.TrimSpace(key) == "" {
					return &ValidationError{Field: fieldIndex("content", i, "resourceKeys"), Reason: "resource key must not be empty"}
				}
			}
		default:
			return &ValidationError{Field: fieldIndex("content", i, "type"), Reason: "unknown content type " + string(block.Type)}
		}
	}
	return nil
}

func (r *CreatePostRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.ShortDescription = strings.TrimSpace(r.ShortDescription)
	r.CoverFileKey = strings.TrimSpace(r.CoverFileKey)
	for i := range r.Content {
		if r.Content[i].Type == ContentTypeText {
			r.Content[i].Text = strings.TrimSpace(r.Content[i].Text)
		}
	}
}

// UploadMediaRequest contains parameters for uploading a media file
type UploadMediaRequest struct {
	Reader      io.Reader
	FileName    string
	MimeType    string
	Size        int64
	TypeID      string
	CreatedByID string
}

func fieldIndex(field string, i int, sub string) string {
	return fmt.Sprintf("%s[%d].%s", field, i, sub)
}
