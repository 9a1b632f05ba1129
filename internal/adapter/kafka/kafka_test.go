package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher hands out queued messages, then blocks until the context ends.
type fakeFetcher struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	committed []int64
	err       error
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return kafkago.Message{}, f.err
	}
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeFetcher) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeFetcher) Close() error { return nil }

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("KTLX"),
		Value:     []byte(`{"sensor_id":"KTLX"}`),
		Topic:     "raw-radar-volumes",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: domain.HeaderContentEncoding, Value: []byte(domain.EncodingZstd)},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("KTLX"), raw.Key)
	assert.JSONEq(t, `{"sensor_id":"KTLX"}`, string(raw.Value))
	assert.Equal(t, "raw-radar-volumes", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, domain.EncodingZstd, raw.Headers[domain.HeaderContentEncoding])
}

func TestReader_ExtractBatch(t *testing.T) {
	t.Run("full batch", func(t *testing.T) {
		f := &fakeFetcher{queue: []kafkago.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}}}
		r := &Reader{reader: f, flushInterval: time.Second, logger: discardLogger()}

		batch, err := r.ExtractBatch(context.Background(), 2)
		require.NoError(t, err)
		require.Len(t, batch, 2)
		assert.Equal(t, int64(1), batch[0].Offset)

		require.NoError(t, batch[1].Commit(context.Background()))
		assert.Equal(t, []int64{2}, f.committed)
	})

	t.Run("partial batch on flush interval", func(t *testing.T) {
		f := &fakeFetcher{queue: []kafkago.Message{{Offset: 7}}}
		r := &Reader{reader: f, flushInterval: 20 * time.Millisecond, logger: discardLogger()}

		batch, err := r.ExtractBatch(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, batch, 1)
	})

	t.Run("fetch error", func(t *testing.T) {
		f := &fakeFetcher{err: errors.New("broker gone")}
		r := &Reader{reader: f, flushInterval: time.Second, logger: discardLogger()}

		_, err := r.ExtractBatch(context.Background(), 10)
		require.Error(t, err)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		r := &Reader{reader: &fakeFetcher{}, flushInterval: time.Second, logger: discardLogger()}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := r.ExtractBatch(ctx, 10)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func testProduct() domain.GridProduct {
	return domain.GridProduct{
		ID:          "2b1f0d51-5d0c-5c3e-9d3a-1f2f8e5a4c11",
		SensorID:    "KTLX",
		VolumeTime:  time.Date(2024, 5, 6, 22, 30, 0, 0, time.UTC),
		Grid:        domain.GridSpec{NX: 1, NY: 1, DXKm: 1, DYKm: 1, ZLevelsKm: []float64{1}},
		Fields:      []domain.GridField{{Name: "DBZ", Missing: domain.MissingValue, Data: []float64{42}}},
		ProcessedAt: time.Date(2024, 5, 6, 22, 35, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	p := testProduct()

	msg, err := serializeToMessage(p, domain.EncodingNone)
	require.NoError(t, err)

	assert.Equal(t, []byte(p.ID), msg.Key)
	assert.Contains(t, string(msg.Value), `"sensor_id":"KTLX"`)
	require.Len(t, msg.Headers, 4)
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "KTLX", headers[domain.HeaderSensorID])
	assert.Equal(t, "2024-05-06T22:30:00Z", headers[domain.HeaderVolumeTime])
	assert.Equal(t, "2024-05-06T22:35:00Z", headers[domain.HeaderProcessedAt])
	assert.Equal(t, domain.EncodingNone, headers[domain.HeaderContentEncoding])
}

func TestSerializeToMessage_Zstd(t *testing.T) {
	p := testProduct()

	msg, err := serializeToMessage(p, domain.EncodingZstd)
	require.NoError(t, err)

	plain, err := domain.DecodePayload(msg.Value, domain.EncodingZstd)
	require.NoError(t, err)
	var got domain.GridProduct
	require.NoError(t, json.Unmarshal(plain, &got))
	assert.Equal(t, p, got)
}

func TestWriter_LoadBatch(t *testing.T) {
	f := &fakeWriter{}
	w := &Writer{writer: f, encoding: domain.EncodingNone, logger: discardLogger()}

	require.NoError(t, w.LoadBatch(context.Background(), nil))
	assert.Empty(t, f.msgs)

	require.NoError(t, w.LoadBatch(context.Background(), []domain.GridProduct{testProduct(), testProduct()}))
	assert.Len(t, f.msgs, 2)

	f.err = errors.New("not enough replicas")
	err := w.LoadBatch(context.Background(), []domain.GridProduct{testProduct()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write grid products")
}
