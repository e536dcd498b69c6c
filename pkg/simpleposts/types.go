package simpleposts

import (
	"encoding/json"
	"fmt"
	"time"
)

// Media namespace used by posts.
const (
	MediaTypePosts = "posts"

	SubtypeCoverFiles = "cover-files"
	SubtypeResources  = "resources"
)

// ContentType is the tag of a post content block.
type ContentType string

// Content block types.
const (
	ContentTypeText      ContentType = "text"
	ContentTypeResources ContentType = "resources"
)

// IsValid reports whether the content type is known.
func (t ContentType) IsValid() bool {
	return t == ContentTypeText || t == ContentTypeResources
}

// MediaResource is an uploaded file record. Key is the storage locator and
// never changes once the record exists. TypeID is the id of the post that
// currently claims the file; nil means the file is unclaimed.
type MediaResource struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Subtype     string    `json:"subtype"`
	Key         string    `json:"key"`
	TypeID      *string   `json:"typeId,omitempty"`
	URL         string    `json:"url,omitempty"`
	FileName    string    `json:"fileName,omitempty"`
	MimeType    string    `json:"mimeType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	CreatedByID string    `json:"createdById,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ClaimedBy reports whether the media is claimed by ownerID.
func (m *MediaResource) ClaimedBy(ownerID string) bool {
	return m.TypeID != nil && *m.TypeID == ownerID
}

// ClaimedByOther reports whether the media is claimed by an owner other than ownerID.
func (m *MediaResource) ClaimedByOther(ownerID string) bool {
	return m.TypeID != nil && *m.TypeID != ownerID
}

// Post is a blog-style article. Resource is the embedded cover file and
// Content keeps the blocks in submission order.
type Post struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	ShortDescription string         `json:"shortDescription,omitempty"`
	Resource         *MediaResource `json:"resource,omitempty"`
	Content          []PostContent  `json:"content"`
	CreatedByID      string         `json:"createdById,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// ContentBody is the payload of a content block. It is implemented only by
// TextBody and ResourcesBody.
type ContentBody interface {
	contentType() ContentType
}

// TextBody is the payload of a text block.
type TextBody struct {
	Text string
}

func (TextBody) contentType() ContentType { return ContentTypeText }

// ResourcesBody is the payload of a resources block, ordered as submitted.
type ResourcesBody struct {
	Resources []MediaResource
}

func (ResourcesBody) contentType() ContentType { return ContentTypeResources }

// PostContent is one content block of a post.
type PostContent struct {
	ID   string
	Body ContentBody
}

// NewTextContent returns a text block.
func NewTextContent(id, text string) PostContent {
	return PostContent{ID: id, Body: TextBody{Text: text}}
}

// NewResourcesContent returns a resources block.
func NewResourcesContent(id string, resources []MediaResource) PostContent {
	return PostContent{ID: id, Body: ResourcesBody{Resources: resources}}
}

// Type returns the block tag, or an empty string when the block has no body.
func (c PostContent) Type() ContentType {
	if c.Body == nil {
		return ""
	}
	return c.Body.contentType()
}

// Text returns the text of a text block.
func (c PostContent) Text() (string, bool) {
	b, ok := c.Body.(TextBody)
	return b.Text, ok
}

// Resources returns the media of a resources block.
func (c PostContent) Resources() ([]MediaResource, bool) {
	b, ok := c.Body.(ResourcesBody)
	return b.Resources, ok
}

// ContentDocument is the flat wire and storage shape of a content block.
type ContentDocument struct {
	ID        string          `json:"id"`
	Type      ContentType     `json:"type"`
	Text      string          `json:"text,omitempty"`
	Resources []MediaResource `json:"resources,omitempty"`
}

// Document flattens the block.
func (c PostContent) Document() ContentDocument {
	doc := ContentDocument{ID: c.ID, Type: c.Type()}
	switch b := c.Body.(type) {
	case TextBody:
		doc.Text = b.Text
	case ResourcesBody:
		doc.Resources = b.Resources
	}
	return doc
}

// ContentFromDocument rebuilds a block from its flat shape.
func ContentFromDocument(doc ContentDocument) (PostContent, error) {
	switch doc.Type {
	case ContentTypeText:
		return NewTextContent(doc.ID, doc.Text), nil
	case ContentTypeResources:
		if len(doc.Resources) == 0 {
			return PostContent{}, fmt.Errorf("content %s: resources block without resources", doc.ID)
		}
		return NewResourcesContent(doc.ID, doc.Resources), nil
	default:
		return PostContent{}, fmt.Errorf("content %s: unknown content type %q", doc.ID, doc.Type)
	}
}

func (c PostContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Document())
}

func (c *PostContent) UnmarshalJSON(data []byte) error {
	var doc ContentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	content, err := ContentFromDocument(doc)
	if err != nil {
		return err
	}
	*c = content
	return nil
}

// PostQuery selects a page of posts. Search matches title or short
// description, case-insensitively. A zero Limit means no limit.
type PostQuery struct {
	Search string
	Limit  int64
	Skip   int64
}

// PostFilter is the filter part of a PostQuery handed to repositories.
type PostFilter struct {
	Search string
}

// PostList is a page of posts with the total number of matches.
type PostList struct {
	Count int64   `json:"count"`
	Posts []*Post `json:"posts"`
}

// Clone returns a deep copy of the media resource.
func (m *MediaResource) Clone() *MediaResource {
	if m == nil {
		return nil
	}
	c := *m
	if m.TypeID != nil {
		id := *m.TypeID
		c.TypeID = &id
	}
	return &c
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.Resource = p.Resource.Clone()
	if p.Content != nil {
		c.Content = make([]PostContent, len(p.Content))
		for i, block := range p.Content {
			c.Content[i] = block.clone()
		}
	}
	return &c
}

func (c PostContent) clone() PostContent {
	if b, ok := c.Body.(ResourcesBody); ok {
		resources := make([]MediaResource, len(b.Resources))
		for i := range b.Resources {
			resources[i] = *b.Resources[i].Clone()
		}
		return PostContent{ID: c.ID, Body: ResourcesBody{Resources: resources}}
	}
	return c
}
