package hub

import (
	"context"
	"testing"
	"time"

	"mindspark/realtime/internal/models"
	"mindspark/realtime/internal/presence"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRemoteLoginEvictsLocalSession(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	local := presence.NewTracker(rdb, time.Minute, zap.NewNop())
	remote := presence.NewTracker(rdb, time.Minute, zap.NewNop())

	env := newTestEnv(t)
	env.hub.SetPresence(local)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go local.Subscribe(ctx, env.hub.HandleRemotePresence)
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(ctx, presence.Channel).Result()
		return err == nil && n[presence.Channel] > 0
	}, time.Second, 10*time.Millisecond)

	alice, aliceRec := env.login(t, "alice")
	bob, bobRec := env.login(t, "bob")
	env.join(t, alice, aliceRec, "general")
	env.join(t, bob, bobRec, "general")

	owner, online, err := local.Lookup(ctx, "alice")
	require.NoError(t, err)
	require.True(t, online)
	require.Equal(t, local.InstanceID(), owner)

	require.NoError(t, remote.Online(ctx, "alice"))

	require.Eventually(t, func() bool {
		return !env.hub.IsOnline("alice") && len(bobRec.ofType(models.TypeUserLeftRoom)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, env.hub.RoomMembers("general"), "alice")
	assert.Equal(t, 1, env.hub.Stats().TotalConnections)
	assert.True(t, env.hub.IsOnline("bob"))

	// the local release must leave the remote instance's claim in place
	owner, online, err = local.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)
	assert.Equal(t, remote.InstanceID(), owner)

	env.send(alice, map[string]any{"type": "heartbeat"})
	assert.Empty(t, aliceRec.ofType(models.TypeHeartbeatAck), "evicted connection takes no more frames")
}

func TestRemotePresenceIgnoresStaleAndOfflineEvents(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.login(t, "alice")

	env.hub.HandleRemotePresence(presence.Event{UserID: "alice", Status: presence.StatusOffline, InstanceID: "other", At: time.Now().Add(time.Minute)})
	env.hub.HandleRemotePresence(presence.Event{UserID: "alice", Status: presence.StatusOnline, InstanceID: "other", At: time.Now().Add(-time.Minute)})
	env.hub.HandleRemotePresence(presence.Event{UserID: "dave", Status: presence.StatusOnline, InstanceID: "other", At: time.Now()})

	assert.True(t, env.hub.IsOnline("alice"))
	assert.NotNil(t, alice.Identity())
	assert.Equal(t, []string{"online:alice"}, env.presence.snapshot())
}

func TestRemotePresenceNewerLoginReleasesLocalClaim(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "alice")

	env.hub.HandleRemotePresence(presence.Event{UserID: "alice", Status: presence.StatusOnline, InstanceID: "other", At: time.Now().Add(time.Second)})

	assert.False(t, env.hub.IsOnline("alice"))
	assert.Equal(t, 0, env.hub.Stats().TotalConnections)
	assert.Equal(t, []string{"online:alice", "offline:alice"}, env.presence.snapshot())
}

func TestPresencePublishesFollowSessionOrder(t *testing.T) {
	env := newTestEnv(t)
	first, _ := env.login(t, "alice")

	entered, release := env.presence.holdNextOffline()
	closed := make(chan struct{})
	go func() {
		env.hub.disconnect(first)
		close(closed)
	}()
	<-entered

	second, rec := env.connect(t)
	authed := make(chan struct{})
	go func() {
		env.send(second, map[string]any{"type": "auth", "token": "token-alice"})
		close(authed)
	}()
	require.Eventually(t, func() bool { return env.hub.IsOnline("alice") }, time.Second, 5*time.Millisecond)

	close(release)
	<-closed
	<-authed

	assert.Equal(t, models.TypeAuthSuccess, rec.last()["type"])
	events := env.presence.snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, "online:alice", events[len(events)-1])
	assert.Equal(t, 1, countOf(events, "offline:alice"))
}
