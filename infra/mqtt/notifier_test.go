package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portlogistics/portplan/core/events"
	"github.com/portlogistics/portplan/internal/eventbus"
)

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// mockClient implements pahoClient for tests.
type mockClient struct {
	mu          sync.Mutex
	opts        *paho.ClientOptions
	published   []published
	publishErrs []error
	connectErr  error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(nil)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retain bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, _ := payload.([]byte)
	m.published = append(m.published, published{topic, qos, retain, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

func (m *mockClient) messages() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.published...)
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type recordMonitor struct {
	mu   sync.Mutex
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) CapturePanic(any, map[string]string) {}
func (r *recordMonitor) Flush(time.Duration)                 {}

func useMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func TestNotifier_PublishesPlanChange(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", TopicPrefix: "port/", QoS: 1, Retain: true}, nil)
	require.NoError(t, err)

	ev := events.PlanCommitted{PlanID: "p1", Day: "2025-01-10", Action: "update", VvnIDs: []string{"vvn-1"}, Version: 2, Time: time.UnixMilli(1000)}
	require.NoError(t, n.Notify(ev))

	msgs := mc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "port/plans/2025-01-10", msgs[0].topic)
	assert.Equal(t, byte(1), msgs[0].qos)
	assert.True(t, msgs[0].retain)

	var got PlanChange
	require.NoError(t, json.Unmarshal(msgs[0].payload, &got))
	assert.Equal(t, PlanChange{PlanID: "p1", Day: "2025-01-10", Action: "update", VvnIDs: []string{"vvn-1"}, Version: 2, Timestamp: 1000}, got)
}

func TestNotifier_RetriesThenSucceeds(t *testing.T) {
	mc := &mockClient{publishErrs: []error{errors.New("net fail"), nil}}
	useMock(t, mc)
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1}, nil)
	require.NoError(t, err)

	require.NoError(t, n.Notify(events.PlanCommitted{PlanID: "p1", Day: "2025-01-10"}))
	assert.Len(t, mc.messages(), 2)
}

func TestNotifier_ErrorCaptured(t *testing.T) {
	fail := errors.New("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail}}
	useMock(t, mc)
	mon := &recordMonitor{}
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1}, mon)
	require.NoError(t, err)

	err = n.Notify(events.PlanCommitted{PlanID: "p1", Day: "2025-01-10"})
	require.ErrorIs(t, err, fail)
	assert.Equal(t, fail, mon.err)
	assert.Equal(t, "mqtt", mon.tags["module"])
	assert.Equal(t, "p1", mon.tags["plan_id"])
}

func TestNotifier_ConnectError(t *testing.T) {
	mc := &mockClient{connectErr: errors.New("refused")}
	useMock(t, mc)
	_, err := NewNotifier(Config{Broker: "tcp://localhost:1883"}, nil)
	require.Error(t, err)
}

func TestNotifier_StartForwardsCommittedOnly(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883"}, nil)
	require.NoError(t, err)

	bus := eventbus.New[events.PlanEvent](4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx, bus)

	bus.Publish(events.PlanRejected{PlanID: "p1", Day: "2025-01-10"})
	bus.Publish(events.PlanCommitted{PlanID: "p1", Day: "2025-01-10", Version: 3})

	require.Eventually(t, func() bool { return len(mc.messages()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "portplan/plans/2025-01-10", mc.messages()[0].topic)
	n.Disconnect()
}
