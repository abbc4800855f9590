package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/portlogistics/portplan/core/events"
	coremon "github.com/portlogistics/portplan/core/monitoring"
	"github.com/portlogistics/portplan/infra/logger"
	"github.com/portlogistics/portplan/internal/eventbus"
)

// PlanChange is the payload published for every committed plan edit.
type PlanChange struct {
	PlanID    string   `json:"planId"`
	Day       string   `json:"day"`
	Action    string   `json:"action"`
	VvnIDs    []string `json:"vvnIds"`
	Version   int64    `json:"version"`
	Author    string   `json:"author,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// Notifier publishes committed plan changes to <prefix>/plans/<day>.
type Notifier struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
	mon        coremon.Monitor
}

// NewNotifier connects to the broker described by cfg.
func NewNotifier(cfg Config, mon coremon.Monitor) (*Notifier, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_notifier")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Notifier{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
		mon:        coremon.OrNop(mon),
	}, nil
}

// Topic returns the topic a change for day is published on.
func (n *Notifier) Topic(day string) string {
	return fmt.Sprintf("%s/plans/%s", n.prefix, day)
}

// Notify publishes ev, retrying with exponential backoff.
func (n *Notifier) Notify(ev events.PlanCommitted) error {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	payload, err := json.Marshal(PlanChange{
		PlanID:    ev.PlanID,
		Day:       ev.Day,
		Action:    ev.Action,
		VvnIDs:    ev.VvnIDs,
		Version:   ev.Version,
		Author:    ev.Author,
		Timestamp: ts.UnixMilli(),
	})
	if err != nil {
		return err
	}
	topic := n.Topic(ev.Day)
	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(topic, n.qos, n.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			n.log.Debugf("published plan %s v%d to %s", ev.PlanID, ev.Version, topic)
			return nil
		}
		n.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < n.maxRetries {
			time.Sleep(n.backoff * time.Duration(1<<attempt))
		}
	}
	n.mon.CaptureException(publishErr, map[string]string{"module": "mqtt", "plan_id": ev.PlanID, "day": ev.Day})
	return publishErr
}

// Start forwards committed plan events from bus until ctx is canceled or the
// bus is closed. Rejections are not published.
func (n *Notifier) Start(ctx context.Context, bus *eventbus.Bus[events.PlanEvent]) {
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, ok := ev.(events.PlanCommitted); ok {
					_ = n.Notify(e)
				}
			}
		}
	}()
}

// Disconnect gracefully closes the MQTT connection.
func (n *Notifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
