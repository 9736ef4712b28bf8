// Package bus is an in-process publish/subscribe hub for completed
// assistant actions. Events are invalidation signals: subscribers re-fetch
// whatever state they display instead of trusting the payload.
package bus

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topic names an action kind. Action topics use the tool name.
type Topic string

const (
	TopicFriendRequestSent     Topic = "send_friend_request"
	TopicFriendRequestAccepted Topic = "accept_friend_request"
	TopicTeamCreated           Topic = "create_team"
	TopicMemberInvited         Topic = "invite_member"
	TopicListingCreated        Topic = "create_listing"
)

// TeamTopics are the topics that change a user's team list.
var TeamTopics = []Topic{TopicTeamCreated, TopicMemberInvited}

// Event signals that an action of kind Topic completed.
type Event struct {
	Topic   Topic
	Payload any
	At      time.Time
}

// Bus fans events out to subscribers. The zero value is not usable; call New.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
	log    *zap.Logger
}

// New returns an open Bus.
func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{subs: make(map[uint64]*Subscription), log: log.Named("bus")}
}

// Subscription is a disposable handle on a set of topics.
type Subscription struct {
	bus    *Bus
	id     uint64
	topics map[Topic]struct{}
	ch     chan Event
}

// Subscribe registers interest in topics; no topics means every topic. On
// a closed bus the returned subscription's channel is already closed.
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	s := &Subscription{bus: b, ch: make(chan Event, 1)}
	if len(topics) > 0 {
		s.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	b.nextID++
	s.id = b.nextID
	b.subs[s.id] = s
	return s
}

// Events delivers at most one pending event at a time. The channel is closed
// on Unsubscribe or when the bus closes.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Unsubscribe is idempotent.
func (s *Subscription) Unsubscribe() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.ch)
}

func (s *Subscription) wants(t Topic) bool {
	if s.topics == nil {
		return true
	}
	_, ok := s.topics[t]
	return ok
}

// Publish never blocks. A subscriber that has not drained its previous event
// has it replaced by this one. Returns the number of subscribers signalled.
func (b *Bus) Publish(topic Topic, payload any) int {
	ev := Event{Topic: topic, Payload: payload, At: time.Now()}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}

	n := 0
	for _, s := range b.subs {
		if !s.wants(topic) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			select {
			case <-s.ch:
			default:
			}
			s.ch <- ev
			b.log.Debug("coalesced event", zap.String("topic", string(topic)), zap.Uint64("subscriber", s.id))
		}
		n++
	}
	return n
}

// Close closes every subscription. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}
