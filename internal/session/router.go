// Package session is the process-wide registry of connected clients, the
// identities they are logged in as, and the topics each is subscribed to.
// It generalizes the teacher's account-keyed ClientManager
// (internal/gameserver/clients.go) into the topic-keyed router spec.md §4.3
// describes: the registry key is now an opaque per-connection ClientID
// rather than an account name, and subscriptions are topic sets rather
// than a single player/account mapping.
package session

import (
	"log/slog"
	"sync"
)

// ClientID identifies one connected socket for the lifetime of its
// connection. The transport layer mints these; the router never interprets
// their contents.
type ClientID string

// Sender is how the router hands a message to a connection's own send
// queue without ever touching the socket itself -- the router must never
// block on I/O under its lock (spec.md §4.3, §5). Send returns false if
// the client's queue is full or already closed; the router logs that and
// moves on, trusting the connection's own reader/writer pumps to notice
// the dead socket (spec.md §4.3's "full/closed queue logs and is
// tolerated").
type Sender interface {
	Send(msg string) bool
}

// Router is the ClientMap of spec.md §4.3: one process-wide, mutex
// guarded registry of connections, their optional authenticated user, and
// their topic subscriptions.
type Router struct {
	mu   sync.Mutex
	subs map[ClientID]Sender
	// topics maps a topic to the set of subscribed client IDs.
	topics map[Topic]map[ClientID]struct{}
	// users maps a connected client to the user it is currently
	// authenticated as.
	users map[ClientID]int64
}

// New returns an empty router.
func New() *Router {
	return &Router{
		subs:   make(map[ClientID]Sender),
		topics: make(map[Topic]map[ClientID]struct{}),
		users:  make(map[ClientID]int64),
	}
}

// InsertClient registers a newly accepted connection's send handle.
func (r *Router) InsertClient(id ClientID, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[id] = sender
}

// AddToTopic subscribes id to topic. UserPrivate topics can only be joined
// via AddAsUser, never by explicit subscription -- this is what stops a
// client from eavesdropping on another user's private stream by guessing
// its user ID.
func (r *Router) AddToTopic(topic Topic, id ClientID) {
	if topic.Kind == UserPrivate {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addToTopicLocked(topic, id)
}

func (r *Router) addToTopicLocked(topic Topic, id ClientID) {
	set, ok := r.topics[topic]
	if !ok {
		set = make(map[ClientID]struct{})
		r.topics[topic] = set
	}
	set[id] = struct{}{}
}

// RemoveFromTopic unsubscribes id from topic.
func (r *Router) RemoveFromTopic(topic Topic, id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeFromTopicLocked(topic, id)
}

func (r *Router) removeFromTopicLocked(topic Topic, id ClientID) {
	if set, ok := r.topics[topic]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.topics, topic)
		}
	}
}

// AddAsUser atomically replaces any prior user mapping for id: it first
// removes id from the previous UserPrivate topic (if any), then subscribes
// it to UserPrivate(userID) and records the mapping.
func (r *Router) AddAsUser(userID int64, id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeAsUserLocked(id)
	r.addToTopicLocked(UserPrivateTopic(userID), id)
	r.users[id] = userID
}

// RemoveAsUser logs id out: removes it from its UserPrivate topic and
// clears the user mapping.
func (r *Router) RemoveAsUser(id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeAsUserLocked(id)
}

func (r *Router) removeAsUserLocked(id ClientID) {
	if uid, ok := r.users[id]; ok {
		r.removeFromTopicLocked(UserPrivateTopic(uid), id)
		delete(r.users, id)
	}
}

// IsUser reports whether id is currently authenticated, and as whom.
func (r *Router) IsUser(id ClientID) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid, ok := r.users[id]
	return uid, ok
}

// RemoveClient sweeps id out of every topic and the user map, and drops its
// send handle. Called once on disconnect.
func (r *Router) RemoveClient(id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
	r.removeAsUserLocked(id)
	for topic, set := range r.topics {
		delete(set, id)
		if len(set) == 0 {
			delete(r.topics, topic)
		}
	}
}

// Send pushes msg onto id's send queue. A missing client is reported back
// to the caller (NoSuchConnectedClient in the error taxonomy); a full or
// closed queue is logged and tolerated, matching spec.md §4.3.
func (r *Router) Send(id ClientID, msg string) (found bool) {
	r.mu.Lock()
	sender, ok := r.subs[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	if !sender.Send(msg) {
		slog.Warn("dropped message to slow or closed client", "client", string(id))
	}
	return true
}

// Publish fans msg out to every current subscriber of topic. It takes a
// snapshot of the subscriber set under the lock and then sends outside the
// lock, so the router never blocks on a slow consumer while holding its
// mutex.
func (r *Router) Publish(topic Topic, msg string) {
	r.mu.Lock()
	set, ok := r.topics[topic]
	var targets []Sender
	if ok {
		targets = make([]Sender, 0, len(set))
		for id := range set {
			targets = append(targets, r.subs[id])
		}
	}
	r.mu.Unlock()

	for _, sender := range targets {
		if sender == nil {
			continue
		}
		if !sender.Send(msg) {
			slog.Warn("dropped broadcast to slow or closed client", "topic", topic.String())
		}
	}
}

// VersionedSender is a Sender that also knows which wire protocol version
// its connection negotiated. Turn prompts differ by version (spec.md
// §4.4.3), so PublishVersioned formats the message separately per
// subscriber instead of broadcasting one shared string.
type VersionedSender interface {
	Sender
	Version() int
}

// PublishVersioned fans out to every subscriber of topic, calling fmtFn
// once per subscriber with that subscriber's protocol version (1 for a
// plain Sender that doesn't implement VersionedSender).
func (r *Router) PublishVersioned(topic Topic, fmtFn func(version int) string) {
	r.mu.Lock()
	set, ok := r.topics[topic]
	var targets []Sender
	if ok {
		targets = make([]Sender, 0, len(set))
		for id := range set {
			targets = append(targets, r.subs[id])
		}
	}
	r.mu.Unlock()

	for _, sender := range targets {
		if sender == nil {
			continue
		}
		version := 1
		if vs, ok := sender.(VersionedSender); ok {
			version = vs.Version()
		}
		if !sender.Send(fmtFn(version)) {
			slog.Warn("dropped versioned broadcast to slow or closed client", "topic", topic.String())
		}
	}
}
