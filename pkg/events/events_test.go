package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uke-Messaging/uke-pallet/pkg/metrics"
)

type failingSink struct{ closed bool }

func (f *failingSink) Name() string                           { return "failing" }
func (f *failingSink) Publish(context.Context, []Event) error { return errors.New("boom") }
func (f *failingSink) Close() error                           { f.closed = true; return nil }

func TestFanoutKeepsDeliveringAfterFailure(t *testing.T) {
	bad := &failingSink{}
	mem := &MemorySink{}
	f := NewFanout(bad, mem)

	evs := []Event{ConvoStarted("A", "B"), MessageSent("A")}
	err := f.Publish(context.Background(), evs)
	assert.Error(t, err)
	assert.Equal(t, evs, mem.Events())

	require.NoError(t, f.Close())
	assert.True(t, bad.closed)
}

func TestFanoutSkipsEmpty(t *testing.T) {
	bad := &failingSink{}
	assert.NoError(t, NewFanout(bad).Publish(context.Background(), nil))
}

func TestMetricsSinkCounts(t *testing.T) {
	before := testutil.ToFloat64(metrics.Events.WithLabelValues(string(KindRegisteredUsername)))
	require.NoError(t, MetricsSink{}.Publish(context.Background(), []Event{RegisteredUsername("A"), RegisteredUsername("B")}))
	after := testutil.ToFloat64(metrics.Events.WithLabelValues(string(KindRegisteredUsername)))
	assert.Equal(t, before+2, after)
}

func TestEventKey(t *testing.T) {
	assert.Equal(t, "A", MessageSent("A").Key())
	assert.Equal(t, "A", ConvoStarted("A", "B").Key())
	assert.Equal(t, "U", RegisteredUsername("U").Key())
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSinkPublish(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaSink{w: w, topic: "uke.events"}

	require.NoError(t, k.Publish(context.Background(), []Event{ConvoStarted("A", "B"), MessageSent("A")}))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "uke.events", w.msgs[0].Topic)
	assert.Equal(t, []byte("A"), w.msgs[0].Key)

	var e Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &e))
	assert.Equal(t, ConvoStarted("A", "B"), e)
}

type fakePublisher struct {
	channels []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, message.([]byte))
	return redis.NewIntResult(1, p.err)
}

func (p *fakePublisher) Close() error { return nil }

func TestRedisSinkPublish(t *testing.T) {
	p := &fakePublisher{}
	r := &RedisSink{client: p, channel: "uke:events"}

	require.NoError(t, r.Publish(context.Background(), []Event{RegisteredUsername("A")}))
	assert.Equal(t, []string{"uke:events"}, p.channels)
	assert.JSONEq(t, `{"kind":"RegisteredUsername","user":"A"}`, string(p.payloads[0]))

	p.err = errors.New("down")
	assert.Error(t, r.Publish(context.Background(), []Event{MessageSent("A")}))
}

func TestKafkaWriterFlushesPromptly(t *testing.T) {
	s := NewKafkaSink([]string{"127.0.0.1:9092"}, "uke")
	w, ok := s.w.(*kafka.Writer)
	require.True(t, ok)
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	require.NoError(t, s.Close())
}
