package atproto

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "skycrawl/pkg/errors"
	"skycrawl/pkg/logger"
)

func TestSourceExpandFollowsCursorUpToPageLimit(t *testing.T) {
	m := newMockXRPCServer()
	defer m.Close()
	m.SetFollowers("alice", []string{"bob", "carol"}, []string{"dave"}, []string{"erin"})

	c := loggedInClient(t, m)

	one := NewSource(c, SourceOptions{FollowerPages: 1}, logger.NewNopLogger())
	handles, err := one.Expand(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, handles)

	two := NewSource(c, SourceOptions{FollowerPages: 2}, logger.NewNopLogger())
	handles, err = two.Expand(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol", "dave"}, handles)

	all := NewSource(c, SourceOptions{FollowerPages: 10}, logger.NewNopLogger())
	handles, err = all.Expand(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol", "dave", "erin"}, handles)
	assert.Equal(t, 1+2+3, m.Requests(MethodGetFollowers), "pagination must stop at the last cursor")
}

func TestSourceExpandFailure(t *testing.T) {
	m := newMockXRPCServer()
	defer m.Close()
	m.Fail("erin", http.StatusBadRequest, "ActorNotFound")

	src := NewSource(loggedInClient(t, m), SourceOptions{}, logger.NewNopLogger())
	handles, err := src.Expand(context.Background(), "erin")

	assert.Nil(t, handles)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestSourceFetchFeedKeysByURI(t *testing.T) {
	m := newMockXRPCServer()
	defer m.Close()
	m.SetFeed("bob", []string{"at://bob/post/1|hello", "at://bob/post/2|world"}, []string{"at://bob/post/3|later"})

	src := NewSource(loggedInClient(t, m), SourceOptions{FeedPages: 1, FeedPageSize: 50}, logger.NewNopLogger())
	posts, err := src.FetchFeed(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "at://bob/post/1", posts[0].URI)
	assert.Equal(t, "at://bob/post/2", posts[1].URI)

	var item struct {
		Post struct {
			URI    string `json:"uri"`
			Record struct {
				Text string `json:"text"`
			} `json:"record"`
		} `json:"post"`
	}
	require.NoError(t, json.Unmarshal(posts[0].Payload, &item))
	assert.Equal(t, "hello", item.Post.Record.Text, "payload must be the full feed item")
}

func TestSourceFetchFeedEmpty(t *testing.T) {
	m := newMockXRPCServer()
	defer m.Close()

	src := NewSource(loggedInClient(t, m), SourceOptions{FeedPages: 3}, logger.NewNopLogger())
	posts, err := src.FetchFeed(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, 1, m.Requests(MethodGetAuthorFeed))
}
