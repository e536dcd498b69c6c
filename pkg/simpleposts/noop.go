package simpleposts

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful for production when you don't need event handling or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// PostCreated does nothing and returns nil
func (n *NoopEventSink) PostCreated(ctx context.Context, post *Post) error {
	return nil
}

// PostUpdated does nothing and returns nil
func (n *NoopEventSink) PostUpdated(ctx context.Context, post *Post) error {
	return nil
}

// PostDeleted does nothing and returns nil
func (n *NoopEventSink) PostDeleted(ctx context.Context, postID string) error {
	return nil
}

// MediaUploaded does nothing and returns nil
func (n *NoopEventSink) MediaUploaded(ctx context.Context, media *MediaResource) error {
	return nil
}

// MediaDeleted does nothing and returns nil
func (n *NoopEventSink) MediaDeleted(ctx context.Context, keys []string) error {
	return nil
}

// LoggingEventSink is an event sink that logs events but takes no other action
// Useful for development and debugging
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

// PostCreated logs the post creation event
func (l *LoggingEventSink) PostCreated(ctx context.Context, post *Post) error {
	l.logger.InfoContext(ctx, "Post created", "post_id", post.ID, "title", post.Title, "blocks", len(post.Content))
	return nil
}

// PostUpdated logs the post update event
func (l *LoggingEventSink) PostUpdated(ctx context.Context, post *Post) error {
	l.logger.InfoContext(ctx, "Post updated", "post_id", post.ID, "title", post.Title)
	return nil
}

// PostDeleted logs the post deletion event
func (l *LoggingEventSink) PostDeleted(ctx context.Context, postID string) error {
	l.logger.InfoContext(ctx, "Post deleted", "post_id", postID)
	return nil
}

// MediaUploaded logs the media upload event
func (l *LoggingEventSink) MediaUploaded(ctx context.Context, media *MediaResource) error {
	l.logger.InfoContext(ctx, "Media uploaded", "key", media.Key, "subtype", media.Subtype, "size", media.Size)
	return nil
}

// MediaDeleted logs the media deletion event
func (l *LoggingEventSink) MediaDeleted(ctx context.Context, keys []string) error {
	l.logger.InfoContext(ctx, "Media deleted", "keys", keys)
	return nil
}

// MultiEventSink fans events out to several sinks. Every sink is called; the
// first error is returned.
type MultiEventSink []EventSink

func (m MultiEventSink) each(call func(EventSink) error) error {
	var first error
	for _, sink := range m {
		if err := call(sink); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiEventSink) PostCreated(ctx context.Context, post *Post) error {
	return m.each(func(s EventSink) error { return s.PostCreated(ctx, post) })
}

func (m MultiEventSink) PostUpdated(ctx context.Context, post *Post) error {
	return m.each(func(s EventSink) error { return s.PostUpdated(ctx, post) })
}

func (m MultiEventSink) PostDeleted(ctx context.Context, postID string) error {
	return m.each(func(s EventSink) error { return s.PostDeleted(ctx, postID) })
}

func (m MultiEventSink) MediaUploaded(ctx context.Context, media *MediaResource) error {
	return m.each(func(s EventSink) error { return s.MediaUploaded(ctx, media) })
}

func (m MultiEventSink) MediaDeleted(ctx context.Context, keys []string) error {
	return m.each(func(s EventSink) error { return s.MediaDeleted(ctx, keys) })
}
