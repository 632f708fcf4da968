package downlink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/pkg/metrics"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type mockMQTT struct {
	mock.Mock
}

func (m *mockMQTT) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(mqtt.Token)
}

func (m *mockMQTT) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testEvent() model.Event {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return model.NewEvent(ts, 150*time.Millisecond, 150000, model.Note{Frequency: 440, MIDI: 69, Name: "A4"})
}

func downlinkCount(name, transport string) float64 {
	var n float64
	mfs, _ := metrics.GetRegistry().Gather()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "transport" && l.GetValue() == transport {
					n += m.GetCounter().GetValue()
				}
			}
		}
	}
	return n
}

func TestEncode(t *testing.T) {
	e := testEvent()
	b, err := Encode(e)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, e.ID.String(), got["id"])
	assert.Equal(t, "2026-05-01T12:00:00Z", got["timestamp"])
	assert.InDelta(t, 0.15, got["duration_s"], 1e-12)
	assert.Equal(t, "A4", got["note"].(map[string]any)["name"])
}

func TestMQTTPublisher(t *testing.T) {
	const sent = "parakeet_detector_downlink_sent_total"
	const failed = "parakeet_detector_downlink_errors_total"

	t.Run("publishes the JSON payload at qos 0", func(t *testing.T) {
		e := testEvent()
		want, err := Encode(e)
		require.NoError(t, err)

		c := &mockMQTT{}
		c.On("Publish", "parakeet/events", byte(0), false, want).Return(completedToken(nil)).Once()
		before := downlinkCount(sent, "mqtt")

		p := NewMQTT(c, "parakeet/events")
		require.NoError(t, p.Publish(context.Background(), e))
		c.AssertExpectations(t)
		assert.Equal(t, before+1, downlinkCount(sent, "mqtt"))
	})

	t.Run("reports broker errors", func(t *testing.T) {
		c := &mockMQTT{}
		c.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(completedToken(errors.New("not connected")))
		before := downlinkCount(failed, "mqtt")

		err := NewMQTT(c, "t").Publish(context.Background(), testEvent())
		assert.ErrorContains(t, err, "not connected")
		assert.Equal(t, before+1, downlinkCount(failed, "mqtt"))
	})

	t.Run("times out on a stalled broker", func(t *testing.T) {
		c := &mockMQTT{}
		c.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&fakeToken{done: make(chan struct{})})

		err := NewMQTT(c, "t", WithPublishTimeout(10*time.Millisecond)).Publish(context.Background(), testEvent())
		assert.ErrorIs(t, err, ErrPublishTimeout)
	})

	t.Run("close disconnects", func(t *testing.T) {
		c := &mockMQTT{}
		c.On("Disconnect", uint(250)).Once()
		require.NoError(t, NewMQTT(c, "t").Close())
		c.AssertExpectations(t)
	})
}

func TestKafkaPublisher(t *testing.T) {
	t.Run("keys messages by event id and stamps the event time", func(t *testing.T) {
		w := &fakeWriter{}
		e := testEvent()
		before := downlinkCount("parakeet_detector_downlink_sent_total", "kafka")

		require.NoError(t, newKafka(w).Publish(context.Background(), e))
		require.Len(t, w.msgs, 1)
		assert.Equal(t, e.ID.String(), string(w.msgs[0].Key))
		assert.True(t, e.Timestamp.Equal(w.msgs[0].Time))
		assert.JSONEq(t, mustEncode(t, e), string(w.msgs[0].Value))
		assert.Equal(t, before+1, downlinkCount("parakeet_detector_downlink_sent_total", "kafka"))
	})

	t.Run("wraps writer errors", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("leader not available")}
		err := newKafka(w).Publish(context.Background(), testEvent())
		assert.ErrorContains(t, err, "leader not available")
	})

	t.Run("requires brokers", func(t *testing.T) {
		_, err := NewKafka(nil, "t")
		assert.ErrorIs(t, err, ErrNoBrokers)
	})

	t.Run("close closes the writer", func(t *testing.T) {
		w := &fakeWriter{}
		require.NoError(t, newKafka(w).Close())
		assert.True(t, w.closed)
	})
}

func mustEncode(t *testing.T, e model.Event) string {
	t.Helper()
	b, err := Encode(e)
	require.NoError(t, err)
	return string(b)
}
