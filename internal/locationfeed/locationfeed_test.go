package locationfeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/food_delivery/internal/models"
)

// chanReader hands out queued messages and then blocks until ctx is done.
type chanReader struct {
	msgs   chan kafka.Message
	err    error
	closed bool
}

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m, ok := <-r.msgs:
		if !ok {
			if r.err != nil {
				return kafka.Message{}, r.err
			}
			<-ctx.Done()
			return kafka.Message{}, ctx.Err()
		}
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) Close() error {
	r.closed = true
	return nil
}

type recorder struct {
	mu  sync.Mutex
	got map[uint]models.Location
	n   int
}

func (r *recorder) ApplyLocation(id uint, loc models.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.got == nil {
		r.got = map[uint]models.Location{}
	}
	r.got[id] = loc
	r.n++
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

func TestConsumer_AppliesAndSkips(t *testing.T) {
	t.Parallel()

	r := &chanReader{msgs: make(chan kafka.Message, 8)}
	r.msgs <- kafka.Message{Value: []byte(`{"shipper_id":2,"latitude":10.8,"longitude":106.7}`)}
	r.msgs <- kafka.Message{Value: []byte(`not json`)}
	r.msgs <- kafka.Message{Value: []byte(`{"latitude":1,"longitude":2}`)}
	r.msgs <- kafka.Message{Key: []byte("3"), Value: []byte(`{"latitude":21.0,"longitude":105.8}`)}
	r.msgs <- kafka.Message{Value: []byte(`{"shipperID":2,"latitude":10.9,"longitude":106.6}`)}
	close(r.msgs)

	rec := &recorder{}
	c := NewConsumer(r, rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.count() == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, models.Location{Latitude: 10.9, Longitude: 106.6}, rec.got[2])
	assert.Equal(t, models.Location{Latitude: 21.0, Longitude: 105.8}, rec.got[3])
	require.NoError(t, c.Close())
	assert.True(t, r.closed)
}

func TestConsumer_ReaderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker gone")
	r := &chanReader{msgs: make(chan kafka.Message), err: boom}
	close(r.msgs)

	err := NewConsumer(r, &recorder{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     kafka.Message
		want    Update
		wantErr bool
	}{
		{name: "snake", msg: kafka.Message{Value: []byte(`{"shipper_id":1,"latitude":0,"longitude":0}`)}, want: Update{ShipperID: 1}},
		{name: "key fallback", msg: kafka.Message{Key: []byte("7"), Value: []byte(`{"latitude":1,"longitude":2}`)}, want: Update{ShipperID: 7, Latitude: 1, Longitude: 2}},
		{name: "missing coordinates", msg: kafka.Message{Value: []byte(`{"shipper_id":1,"latitude":1}`)}, wantErr: true},
		{name: "out of range", msg: kafka.Message{Value: []byte(`{"shipper_id":1,"latitude":91,"longitude":0}`)}, wantErr: true},
		{name: "no id", msg: kafka.Message{Key: []byte("x"), Value: []byte(`{"latitude":1,"longitude":2}`)}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(tt.msg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadUpdate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher_RoundTrip(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := NewPublisher(w)
	in := Update{ShipperID: 4, Latitude: 10.1, Longitude: 106.2}

	require.NoError(t, p.Publish(context.Background(), in))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "4", string(w.msgs[0].Key))

	got, err := Decode(w.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, in, got)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
