package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	received []string
	closed   bool
}

func (f *fakeSender) Send(msg string) bool {
	if f.closed {
		return false
	}
	f.received = append(f.received, msg)
	return true
}

func TestTopicIsolation(t *testing.T) {
	r := New()
	a, b := &fakeSender{}, &fakeSender{}
	r.InsertClient("a", a)
	r.InsertClient("b", b)

	r.AddToTopic(GameTopic(1), "a")
	r.AddToTopic(GameTopic(2), "b")

	r.Publish(GameTopic(1), "for-game-1")

	require.Equal(t, []string{"for-game-1"}, a.received)
	require.Empty(t, b.received)
}

func TestUserPrivateTopicRefusesExplicitSubscribe(t *testing.T) {
	r := New()
	a := &fakeSender{}
	r.InsertClient("a", a)

	r.AddToTopic(UserPrivateTopic(1), "a")
	r.Publish(UserPrivateTopic(1), "private")

	require.Empty(t, a.received, "explicit subscribe to a UserPrivate topic must be refused")
}

func TestAddAsUserReplacesPriorMapping(t *testing.T) {
	r := New()
	a := &fakeSender{}
	r.InsertClient("a", a)

	r.AddAsUser(1, "a")
	r.AddAsUser(2, "a")

	r.Publish(UserPrivateTopic(1), "stale")
	r.Publish(UserPrivateTopic(2), "current")

	require.Equal(t, []string{"current"}, a.received)

	uid, ok := r.IsUser("a")
	require.True(t, ok)
	require.Equal(t, int64(2), uid)
}

func TestRemoveClientSweepsAllTopics(t *testing.T) {
	r := New()
	a := &fakeSender{}
	r.InsertClient("a", a)
	r.AddToTopic(GlobalTopic, "a")
	r.AddToTopic(GameTopic(5), "a")
	r.AddAsUser(1, "a")

	r.RemoveClient("a")

	r.Publish(GlobalTopic, "x")
	r.Publish(GameTopic(5), "y")
	r.Publish(UserPrivateTopic(1), "z")

	require.Empty(t, a.received)
	found := r.Send("a", "anything")
	require.False(t, found)
}
