package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func recv(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func assertEmpty(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event %v", ev.Topic)
	default:
	}
}

func TestTopicFiltering(t *testing.T) {
	b := New(nil)
	defer b.Close()

	teams := b.Subscribe(TeamTopics...)
	all := b.Subscribe()

	assert.Equal(t, 1, b.Publish(TopicFriendRequestSent, "bob"))
	assertEmpty(t, teams)
	assert.Equal(t, TopicFriendRequestSent, recv(t, all).Topic)

	assert.Equal(t, 2, b.Publish(TopicTeamCreated, "Night Owls"))
	ev := recv(t, teams)
	assert.Equal(t, TopicTeamCreated, ev.Topic)
	assert.Equal(t, "Night Owls", ev.Payload)
	assert.Equal(t, TopicTeamCreated, recv(t, all).Topic)
}

func TestPublishCoalesces(t *testing.T) {
	b := New(nil)
	defer b.Close()

	s := b.Subscribe(TopicTeamCreated, TopicMemberInvited)
	for range 5 {
		b.Publish(TopicTeamCreated, nil)
	}
	b.Publish(TopicMemberInvited, "carol")

	ev := recv(t, s)
	assert.Equal(t, TopicMemberInvited, ev.Topic, "newest event wins")
	assertEmpty(t, s)
}

func TestUnsubscribe(t *testing.T) {
	b := New(nil)
	defer b.Close()

	s := b.Subscribe()
	s.Unsubscribe()
	s.Unsubscribe()

	_, ok := <-s.Events()
	assert.False(t, ok)
	assert.Zero(t, b.Publish(TopicTeamCreated, nil))
}

func TestClose(t *testing.T) {
	b := New(nil)
	s := b.Subscribe()
	b.Close()
	b.Close()

	_, ok := <-s.Events()
	assert.False(t, ok)
	assert.Zero(t, b.Publish(TopicTeamCreated, nil))

	late := b.Subscribe()
	_, ok = <-late.Events()
	assert.False(t, ok)
	late.Unsubscribe()
}

func TestConcurrentPublishers(t *testing.T) {
	b := New(nil)
	defer b.Close()

	s := b.Subscribe()
	done := make(chan struct{})
	var got int
	go func() {
		defer close(done)
		for range s.Events() {
			got++
		}
	}()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				b.Publish(TopicListingCreated, nil)
			}
		}()
	}
	wg.Wait()
	s.Unsubscribe()
	<-done

	assert.Positive(t, got)
	assert.LessOrEqual(t, got, 800)
}
