package redisrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Dashboard4-0/MS5-App-sub003/internal/metrics"
	"github.com/Dashboard4-0/MS5-App-sub003/internal/realtime"
)

const channelPrefix = "realtime:"

// relayMessage is the cross-instance wire format: the envelope plus enough
// routing metadata to rebuild the topic and filter out own publications.
type relayMessage struct {
	Instance string            `json:"instance"`
	Category realtime.Category `json:"category"`
	Target   string            `json:"target"`
	Envelope realtime.Envelope `json:"envelope"`
}

// LocalDeliverer re-delivers a foreign envelope to this instance's
// subscribers without re-publishing it. Implemented by realtime.Broadcaster.
type LocalDeliverer interface {
	DeliverLocal(topic realtime.Topic, env realtime.Envelope)
}

// Relay publishes local broadcasts to Redis and feeds foreign broadcasts
// back into the local dispatcher.
type Relay struct {
	rdb        *redis.Client
	instanceID string
	deliverer  LocalDeliverer
}

func NewRelay(rdb *redis.Client, deliverer LocalDeliverer) *Relay {
	return &Relay{
		rdb:        rdb,
		instanceID: uuid.NewString(),
		deliverer:  deliverer,
	}
}

// InstanceID returns this instance's relay identity.
func (r *Relay) InstanceID() string {
	return r.instanceID
}

func channelForTopic(topic realtime.Topic) string {
	return channelPrefix + string(topic.Category) + ":" + topic.Target
}

// Publish forwards one envelope to the topic's relay channel. Satisfies
// realtime.RelayPublisher.
func (r *Relay) Publish(ctx context.Context, topic realtime.Topic, env realtime.Envelope) error {
	msg := relayMessage{
		Instance: r.instanceID,
		Category: topic.Category,
		Target:   topic.Target,
		Envelope: env,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal relay message: %w", err)
	}
	return r.rdb.Publish(ctx, channelForTopic(topic), data).Err()
}

// Run subscribes to all relay channels and re-delivers foreign envelopes
// locally until the context is cancelled. Blocks; run in its own goroutine.
func (r *Relay) Run(ctx context.Context) {
	sub := r.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer func() { _ = sub.Close() }()

	msgCh := sub.Channel()
	slog.Info("Relay subscribed", "pattern", channelPrefix+"*", "instance_id", r.instanceID)

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			r.handlePayload(msg.Channel, []byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}

// handlePayload decodes one relay message and delivers it locally unless
// this instance published it. Malformed messages are logged and dropped.
func (r *Relay) handlePayload(channel string, payload []byte) {
	var msg relayMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		slog.Warn("Failed to unmarshal relay message", "channel", channel, "error", err)
		return
	}

	if msg.Instance == r.instanceID {
		return
	}
	if !strings.HasPrefix(channel, channelPrefix) {
		return
	}

	metrics.RelayReceivedTotal.Inc()
	topic := realtime.Topic{Category: msg.Category, Target: msg.Target}
	r.deliverer.DeliverLocal(topic, msg.Envelope)
}
