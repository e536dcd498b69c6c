package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tendant/simple-posts/pkg/simpleposts"
)

// Subjects published by NatsPublisher, relative to its prefix.
const (
	SubjectPostCreated   = "post.created"
	SubjectPostUpdated   = "post.updated"
	SubjectPostDeleted   = "post.deleted"
	SubjectMediaUploaded = "media.uploaded"
	SubjectMediaDeleted  = "media.deleted"
)

// Publisher is the part of *nats.Conn the event sink needs.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// PostEvent is the payload of the post subjects.
type PostEvent struct {
	ID            string    `json:"id"`
	Title         string    `json:"title,omitempty"`
	AuthorID      string    `json:"author_id,omitempty"`
	CoverKey      string    `json:"cover_key,omitempty"`
	ResourceCount int       `json:"resource_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MediaEvent is the payload of the media subjects.
type MediaEvent struct {
	Keys     []string `json:"keys"`
	Subtype  string   `json:"subtype,omitempty"`
	MimeType string   `json:"mime_type,omitempty"`
	Size     int64    `json:"size,omitempty"`
}

// NatsPublisher implements simpleposts.EventSink by publishing JSON messages.
type NatsPublisher struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

// NewNatsPublisher creates an event sink on pub. A non-empty prefix is
// prepended to every subject with a dot.
func NewNatsPublisher(pub Publisher, prefix string, logger *slog.Logger) *NatsPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NatsPublisher{pub: pub, prefix: prefix, logger: logger}
}

func (p *NatsPublisher) PostCreated(ctx context.Context, post *simpleposts.Post) error {
	return p.publish(ctx, SubjectPostCreated, newPostEvent(post))
}

func (p *NatsPublisher) PostUpdated(ctx context.Context, post *simpleposts.Post) error {
	return p.publish(ctx, SubjectPostUpdated, newPostEvent(post))
}

func (p *NatsPublisher) PostDeleted(ctx context.Context, postID string) error {
	return p.publish(ctx, SubjectPostDeleted, PostEvent{ID: postID, UpdatedAt: time.Now().UTC()})
}

func (p *NatsPublisher) MediaUploaded(ctx context.Context, media *simpleposts.MediaResource) error {
	return p.publish(ctx, SubjectMediaUploaded, MediaEvent{
		Keys:     []string{media.Key},
		Subtype:  media.Subtype,
		MimeType: media.MimeType,
		Size:     media.Size,
	})
}

func (p *NatsPublisher) MediaDeleted(ctx context.Context, keys []string) error {
	return p.publish(ctx, SubjectMediaDeleted, MediaEvent{Keys: keys})
}

func (p *NatsPublisher) subject(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

func (p *NatsPublisher) publish(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.subject(name),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Content-Type", "application/json")

	p.logger.DebugContext(ctx, "Publishing event", "subject", msg.Subject)
	if err := p.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Subject, err)
	}
	return nil
}

func newPostEvent(post *simpleposts.Post) PostEvent {
	event := PostEvent{
		ID:        post.ID,
		Title:     post.Title,
		AuthorID:  post.CreatedByID,
		UpdatedAt: post.UpdatedAt,
	}
	if post.Resource != nil {
		event.CoverKey = post.Resource.Key
	}
	for _, block := range post.Content {
		if resources, ok := block.Resources(); ok {
			event.ResourceCount += len(resources)
		}
	}
	return event
}
