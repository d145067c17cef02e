package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	Channel   = "realtime:presence"
	keyPrefix = "presence:user:"

	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Event is published on Channel whenever an identity comes online or goes offline.
type Event struct {
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	InstanceID string    `json:"instance_id"`
	At         time.Time `json:"at"`
}

// releaseScript deletes the key only while this instance still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript re-arms the TTL only while this instance still owns the key.
// A key that Offline has already deleted stays deleted.
const extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// Tracker mirrors local sessions into redis so other instances can see them.
type Tracker struct {
	rdb        *redis.Client
	ttl        time.Duration
	instanceID string
	logger     *zap.Logger
}

func NewTracker(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		rdb:        rdb,
		ttl:        ttl,
		instanceID: uuid.New().String(),
		logger:     logger.Named("presence"),
	}
}

func (t *Tracker) InstanceID() string { return t.instanceID }

func key(userID string) string { return keyPrefix + userID }

func (t *Tracker) Online(ctx context.Context, userID string) error {
	if err := t.rdb.Set(ctx, key(userID), t.instanceID, t.ttl).Err(); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return t.publish(ctx, userID, StatusOnline)
}

func (t *Tracker) Offline(ctx context.Context, userID string) error {
	if err := releaseScript.Run(ctx, t.rdb, []string{key(userID)}, t.instanceID).Err(); err != nil {
		return fmt.Errorf("release presence: %w", err)
	}
	return t.publish(ctx, userID, StatusOffline)
}

// Refresh re-arms the TTL of every given identity this instance still owns,
// in one round trip.
func (t *Tracker) Refresh(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	pipe := t.rdb.Pipeline()
	for _, id := range userIDs {
		pipe.Eval(ctx, extendScript, []string{key(id)}, t.instanceID, t.ttl.Milliseconds())
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Lookup reports whether userID is online on any instance and which one holds it.
func (t *Tracker) Lookup(ctx context.Context, userID string) (string, bool, error) {
	instance, err := t.rdb.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return instance, true, nil
}

func (t *Tracker) publish(ctx context.Context, userID, status string) error {
	data, err := json.Marshal(Event{UserID: userID, Status: status, InstanceID: t.instanceID, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	return t.rdb.Publish(ctx, Channel, data).Err()
}

// Subscribe delivers events published by other instances until ctx ends.
func (t *Tracker) Subscribe(ctx context.Context, handle func(Event)) {
	sub := t.rdb.Subscribe(ctx, Channel)
	defer sub.Close()
	ch := sub.Channel()

	t.logger.Info("subscribed to presence events", zap.String("instance", t.instanceID))

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				t.logger.Warn("bad presence event", zap.Error(err))
				continue
			}
			if event.InstanceID == t.instanceID {
				continue
			}
			handle(event)
		}
	}
}
