package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"mindspark/realtime/internal/models"
	"mindspark/realtime/internal/repositories"

	"github.com/stretchr/testify/require"
)

type fakeVerifier struct{}

// Verify accepts tokens of the form "token-<userID>".
func (fakeVerifier) Verify(token string) (string, error) {
	const prefix = "token-"
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return "", errors.New("bad token")
	}
	return token[len(prefix):], nil
}

type fakeIdentities struct {
	mu       sync.Mutex
	users    map[string]*models.Identity
	getErr   error
	touchErr error
	touched  []string
}

func (f *fakeIdentities) GetByID(_ context.Context, id string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeIdentities) TouchLastActive(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	return f.touchErr
}

type fakeRooms struct {
	rooms  map[string]string
	err    error
	before func()
}

func (f *fakeRooms) GetActiveRoom(_ context.Context, id string) (*models.ChatRoom, error) {
	if f.before != nil {
		f.before()
	}
	if f.err != nil {
		return nil, f.err
	}
	name, ok := f.rooms[id]
	if !ok {
		return nil, repositories.ErrRoomNotFound
	}
	return &models.ChatRoom{ID: id, Name: name, IsActive: true}, nil
}

type fakeMemberships struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeMemberships) UpsertMembership(_ context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, roomID+"/"+userID)
	return f.err
}

type fakeMessages struct {
	mu      sync.Mutex
	stored  []models.MessageView
	err     error
	panicOn string
}

func (f *fakeMessages) InsertMessage(_ context.Context, roomID, userID, content string, replyTo *string) (*models.MessageView, error) {
	if f.panicOn != "" && content == f.panicOn {
		panic("message store exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	view := models.MessageView{
		ID:        "m-" + content[:min(len(content), 8)],
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		ReplyTo:   replyTo,
		CreatedAt: time.Now().UTC(),
		Username:  userID + "-name",
	}
	f.stored = append(f.stored, view)
	return &view, nil
}

func (f *fakeMessages) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

type fakeFriends struct {
	friends map[string][]string
	err     error
}

func (f *fakeFriends) FriendsOf(_ context.Context, id string) ([]string, error) {
	return f.friends[id], f.err
}

type fakeFocus struct {
	owners map[string]string
	err    error
}

func (f *fakeFocus) GetSessionForUser(_ context.Context, sessionID, userID string) (*models.FocusSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.owners[sessionID] != userID {
		return nil, repositories.ErrSessionNotFound
	}
	return &models.FocusSession{ID: sessionID, UserID: userID}, nil
}

type fakeGames struct {
	games map[string]string
	err   error
}

func (f *fakeGames) GetGame(_ context.Context, id string) (*models.Game, error) {
	if f.err != nil {
		return nil, f.err
	}
	name, ok := f.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	return &models.Game{ID: id, Name: name, IsActive: true}, nil
}

type fakePresence struct {
	mu     sync.Mutex
	events []string

	// when set, the next Offline signals entered and waits on release
	entered chan struct{}
	release chan struct{}
}

func (f *fakePresence) Online(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "online:"+id)
	return nil
}

func (f *fakePresence) Offline(_ context.Context, id string) error {
	f.mu.Lock()
	entered, release := f.entered, f.release
	f.entered, f.release = nil, nil
	f.mu.Unlock()
	if entered != nil {
		close(entered)
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "offline:"+id)
	return nil
}

func (f *fakePresence) holdNextOffline() (entered, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entered, f.release = make(chan struct{}), make(chan struct{})
	return f.entered, f.release
}

func (f *fakePresence) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// recorder captures outbound frames of one connection.
type recorder struct {
	mu     sync.Mutex
	frames []map[string]any
}

func (r *recorder) hook(frame []byte) {
	var m map[string]any
	if err := json.Unmarshal(frame, &m); err != nil {
		panic(err)
	}
	r.mu.Lock()
	r.frames = append(r.frames, m)
	r.mu.Unlock()
}

func (r *recorder) all() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.frames...)
}

func (r *recorder) ofType(kind string) []map[string]any {
	var out []map[string]any
	for _, f := range r.all() {
		if f["type"] == kind {
			out = append(out, f)
		}
	}
	return out
}

func (r *recorder) last() map[string]any {
	frames := r.all()
	if len(frames) == 0 {
		return nil
	}
	return frames[len(frames)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.frames = nil
	r.mu.Unlock()
}

func errorCode(frame map[string]any) string {
	if frame == nil || frame["type"] != models.TypeError {
		return ""
	}
	body, _ := frame["error"].(map[string]any)
	code, _ := body["code"].(string)
	return code
}

type testEnv struct {
	hub         *Hub
	identities  *fakeIdentities
	rooms       *fakeRooms
	memberships *fakeMemberships
	messages    *fakeMessages
	friends     *fakeFriends
	focus       *fakeFocus
	games       *fakeGames
	presence    *fakePresence
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		identities: &fakeIdentities{users: map[string]*models.Identity{
			"alice": {ID: "alice", Username: "Alice", AvatarURL: "a.png", Points: 40, Level: 2},
			"bob":   {ID: "bob", Username: "Bob"},
			"carol": {ID: "carol", Username: "Carol"},
		}},
		rooms:       &fakeRooms{rooms: map[string]string{"general": "General Chat", "study": "Study Group"}},
		memberships: &fakeMemberships{},
		messages:    &fakeMessages{},
		friends:     &fakeFriends{friends: map[string][]string{}},
		focus:       &fakeFocus{owners: map[string]string{}},
		games:       &fakeGames{games: map[string]string{"memory": "Memory Match"}},
		presence:    &fakePresence{},
	}

	opts := DefaultOptions()
	opts.RateLimitPerSecond = 0
	for _, m := range mutate {
		m(&opts)
	}

	env.hub = New(fakeVerifier{}, Stores{
		Identities:    env.identities,
		Rooms:         env.rooms,
		Memberships:   env.memberships,
		Messages:      env.messages,
		Friends:       env.friends,
		FocusSessions: env.focus,
		Games:         env.games,
	}, opts, nil)
	env.hub.SetPresence(env.presence)
	return env
}

func (e *testEnv) connect(t *testing.T) (*Connection, *recorder) {
	t.Helper()
	rec := &recorder{}
	c := e.hub.newConnection(nil, "pipe")
	c.SetSendHook(rec.hook)
	require.NoError(t, e.hub.attach(c, 0))
	return c, rec
}

func (e *testEnv) send(c *Connection, payload any) {
	var frame []byte
	switch p := payload.(type) {
	case string:
		frame = []byte(p)
	default:
		var err error
		frame, err = json.Marshal(p)
		if err != nil {
			panic(err)
		}
	}
	e.hub.OnMessage(c, frame)
}

func (e *testEnv) login(t *testing.T, userID string) (*Connection, *recorder) {
	t.Helper()
	c, rec := e.connect(t)
	e.send(c, map[string]any{"type": "auth", "token": "token-" + userID})
	require.Equal(t, models.TypeAuthSuccess, rec.last()["type"], "auth for %s: %v", userID, rec.last())
	rec.reset()
	return c, rec
}

func (e *testEnv) join(t *testing.T, c *Connection, rec *recorder, roomID string) {
	t.Helper()
	e.send(c, map[string]any{"type": "join_room", "room_id": roomID})
	require.NotEmpty(t, rec.ofType(models.TypeRoomJoined), "join %s: %v", roomID, rec.all())
	rec.reset()
}

// assertIndexConsistent checks identity ∈ rooms[r] ⇔ r ∈ sessions[identity].rooms.
func assertIndexConsistent(t *testing.T, h *Hub) {
	t.Helper()
	h.mu.RLock()
	defer h.mu.RUnlock()
	for roomID, members := range h.rooms {
		require.NotEmpty(t, members, "empty room %s left in index", roomID)
		for userID := range members {
			c, ok := h.sessions[userID]
			require.True(t, ok, "member %s of %s has no session", userID, roomID)
			_, joined := c.rooms[roomID]
			require.True(t, joined, "%s in %s but connection does not list it", userID, roomID)
		}
	}
	for userID, c := range h.sessions {
		require.Equal(t, stateAuthenticated, c.state)
		for roomID := range c.rooms {
			_, ok := h.rooms[roomID][userID]
			require.True(t, ok, "connection of %s lists %s but index does not", userID, roomID)
		}
	}
}
