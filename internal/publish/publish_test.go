package publish

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backyonatan-alt/fiftyone/internal/entity"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakeClient struct {
	mu       sync.Mutex
	messages []message
	failOn   string
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failOn != "" && strings.Contains(topic, c.failOn) {
		return &fakeToken{err: errors.New("broker said no")}
	}
	c.messages = append(c.messages, message{topic: topic, retained: retained, payload: string(payload.([]byte))})
	return &fakeToken{}
}

func TestPublish_WritesRetainedTopics(t *testing.T) {
	client := &fakeClient{}
	p := New(client, "home/fiftyone/", nil)

	err := p.Publish([]entity.State{{
		EntityID:   "e_stock_AAPL_price",
		Value:      150.0,
		Attributes: map[string]any{"symbol": "AAPL"},
		Available:  true,
	}})
	require.NoError(t, err)

	require.Len(t, client.messages, 3)
	assert.Equal(t, message{"home/fiftyone/e_stock_AAPL_price/state", true, "150"}, client.messages[0])
	assert.Equal(t, message{"home/fiftyone/e_stock_AAPL_price/attributes", true, `{"symbol":"AAPL"}`}, client.messages[1])
	assert.Equal(t, message{"home/fiftyone/e_stock_AAPL_price/availability", true, "online"}, client.messages[2])
}

func TestPublish_NilValueAndUnavailable(t *testing.T) {
	client := &fakeClient{}
	p := New(client, "", nil)

	require.NoError(t, p.Publish([]entity.State{{EntityID: "e_runway"}}))

	require.Len(t, client.messages, 3)
	assert.Equal(t, "fiftyone/e_runway/state", client.messages[0].topic)
	assert.Equal(t, "null", client.messages[0].payload)
	assert.Equal(t, "{}", client.messages[1].payload)
	assert.Equal(t, "offline", client.messages[2].payload)
}

func TestPublish_ContinuesAfterFailure(t *testing.T) {
	client := &fakeClient{failOn: "bad"}
	p := New(client, "x", nil)

	err := p.Publish([]entity.State{{EntityID: "bad"}, {EntityID: "good", Value: "Open"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish bad")
	assert.Contains(t, err.Error(), "broker said no")

	require.Len(t, client.messages, 3)
	assert.Equal(t, "x/good/state", client.messages[0].topic)
	assert.Equal(t, `"Open"`, client.messages[0].payload)
}

func TestClose_WithoutOwnedConnection(t *testing.T) {
	p := New(&fakeClient{}, "x", nil)
	assert.NotPanics(t, p.Close)
}
