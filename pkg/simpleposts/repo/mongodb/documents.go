package mongodb

import (
	"fmt"
	"time"

	"github.com/tendant/simple-posts/pkg/simpleposts"
)

// mediaDocument is the stored shape of a media resource.
type mediaDocument struct {
	ID          string    `bson:"_id"`
	Type        string    `bson:"type"`
	Subtype     string    `bson:"subtype"`
	Key         string    `bson:"key"`
	TypeID      *string   `bson:"typeId"`
	URL         string    `bson:"url,omitempty"`
	FileName    string    `bson:"fileName,omitempty"`
	MimeType    string    `bson:"mimeType,omitempty"`
	Size        int64     `bson:"size,omitempty"`
	CreatedByID string    `bson:"createdById,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// contentDocument is the stored shape of a content block.
type contentDocument struct {
	ID        string          `bson:"id"`
	Type      string          `bson:"type"`
	Text      string          `bson:"text,omitempty"`
	Resources []mediaDocument `bson:"resources,omitempty"`
}

// postDocument is the stored shape of a post.
type postDocument struct {
	ID               string            `bson:"_id"`
	Title            string            `bson:"title"`
	ShortDescription string            `bson:"shortDescription,omitempty"`
	Resource         *mediaDocument    `bson:"resource,omitempty"`
	Content          []contentDocument `bson:"content"`
	CreatedByID      string            `bson:"createdById,omitempty"`
	CreatedAt        time.Time         `bson:"createdAt"`
	UpdatedAt        time.Time         `bson:"updatedAt"`
}

func toMediaDocument(m *simpleposts.MediaResource) mediaDocument {
	c := m.Clone()
	return mediaDocument{
		ID:          c.ID,
		Type:        c.Type,
		Subtype:     c.Subtype,
		Key:         c.Key,
		TypeID:      c.TypeID,
		URL:         c.URL,
		FileName:    c.FileName,
		MimeType:    c.MimeType,
		Size:        c.Size,
		CreatedByID: c.CreatedByID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (d mediaDocument) toMedia() *simpleposts.MediaResource {
	return &simpleposts.MediaResource{
		ID:          d.ID,
		Type:        d.Type,
		Subtype:     d.Subtype,
		Key:         d.Key,
		TypeID:      d.TypeID,
		URL:         d.URL,
		FileName:    d.FileName,
		MimeType:    d.MimeType,
		Size:        d.Size,
		CreatedByID: d.CreatedByID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func toPostDocument(p *simpleposts.Post) postDocument {
	doc := postDocument{
		ID:               p.ID,
		Title:            p.Title,
		ShortDescription: p.ShortDescription,
		Content:          make([]contentDocument, 0, len(p.Content)),
		CreatedByID:      p.CreatedByID,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.Resource != nil {
		cover := toMediaDocument(p.Resource)
		doc.Resource = &cover
	}

	for _, block := range p.Content {
		cd := contentDocument{ID: block.ID, Type: string(block.Type())}
		if text, ok := block.Text(); ok {
			cd.Text = text
		}
		if resources, ok := block.Resources(); ok {
			cd.Resources = make([]mediaDocument, len(resources))
			for i := range resources {
				cd.Resources[i] = toMediaDocument(&resources[i])
			}
		}
		doc.Content = append(doc.Content, cd)
	}
	return doc
}

func (d postDocument) toPost() (*simpleposts.Post, error) {
	post := &simpleposts.Post{
		ID:               d.ID,
		Title:            d.Title,
		ShortDescription: d.ShortDescription,
		Content:          make([]simpleposts.PostContent, 0, len(d.Content)),
		CreatedByID:      d.CreatedByID,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if d.Resource != nil {
		post.Resource = d.Resource.toMedia()
	}

	for _, cd := range d.Content {
		doc := simpleposts.ContentDocument{
			ID:   cd.ID,
			Type: simpleposts.ContentType(cd.Type),
			Text: cd.Text,
		}
		for _, md := range cd.Resources {
			doc.Resources = append(doc.Resources, *md.toMedia())
		}
		block, err := simpleposts.ContentFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("post %s: %w", d.ID, err)
		}
		post.Content = append(post.Content, block)
	}
	return post, nil
}
