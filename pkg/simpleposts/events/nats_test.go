package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-posts/pkg/simpleposts"
	"github.com/tendant/simple-posts/pkg/simpleposts/events"
)

type recordingPublisher struct {
	msgs []*nats.Msg
	err  error
}

func (r *recordingPublisher) PublishMsg(msg *nats.Msg) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestNatsPublisher_PostCreated(t *testing.T) {
	pub := &recordingPublisher{}
	sink := events.NewNatsPublisher(pub, "cms", nil)

	post := &simpleposts.Post{
		ID:          "post-1",
		Title:       "Hello",
		CreatedByID: "user-1",
		Resource:    &simpleposts.MediaResource{Key: "posts/cover-files/a.png"},
		Content: []simpleposts.PostContent{
			simpleposts.NewTextContent("b1", "text"),
			simpleposts.NewResourcesContent("b2", []simpleposts.MediaResource{{Key: "k1"}, {Key: "k2"}}),
		},
	}
	require.NoError(t, sink.PostCreated(context.Background(), post))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "cms.post.created", pub.msgs[0].Subject)
	assert.Equal(t, "application/json", pub.msgs[0].Header.Get("Content-Type"))

	var event events.PostEvent
	require.NoError(t, json.Unmarshal(pub.msgs[0].Data, &event))
	assert.Equal(t, "post-1", event.ID)
	assert.Equal(t, "user-1", event.AuthorID)
	assert.Equal(t, "posts/cover-files/a.png", event.CoverKey)
	assert.Equal(t, 2, event.ResourceCount)
}

func TestNatsPublisher_MediaDeleted(t *testing.T) {
	pub := &recordingPublisher{}
	sink := events.NewNatsPublisher(pub, "", nil)

	require.NoError(t, sink.MediaDeleted(context.Background(), []string{"a", "b"}))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, events.SubjectMediaDeleted, pub.msgs[0].Subject)

	var event events.MediaEvent
	require.NoError(t, json.Unmarshal(pub.msgs[0].Data, &event))
	assert.Equal(t, []string{"a", "b"}, event.Keys)
}

func TestNatsPublisher_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("connection closed")}
	sink := events.NewNatsPublisher(pub, "", nil)

	err := sink.PostDeleted(context.Background(), "post-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), events.SubjectPostDeleted)
}
