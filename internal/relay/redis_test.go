package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"atkform/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	return redis.NewIntResult(1, p.err)
}

func TestRedisRelay_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	r := NewRedisRelay(pub, "atk:records", zap.NewNop())

	r.OnRecordsChanged([]model.Request{{ID: "1", Status: model.StatusPending}})

	if pub.channel != "atk:records" {
		t.Errorf("channel = %q", pub.channel)
	}
	var m Message
	if err := json.Unmarshal(pub.payload, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Origin != r.Origin() || m.Event != "records_changed" || len(m.Data) != 1 || m.Data[0].ID != "1" {
		t.Errorf("message = %+v", m)
	}
}

func TestRedisRelay_PublishErrorIsSwallowed(t *testing.T) {
	r := NewRedisRelay(&fakePublisher{err: errors.New("down")}, "c", zap.NewNop())
	r.OnRecordsChanged(nil)
}

func TestRedisRelay_HandleSkipsOwnMessages(t *testing.T) {
	r := NewRedisRelay(&fakePublisher{}, "c", zap.NewNop())
	var got [][]model.Request
	fn := func(records []model.Request) { got = append(got, records) }

	own, _ := json.Marshal(Message{Origin: r.Origin(), Data: []model.Request{{ID: "own"}}})
	other, _ := json.Marshal(Message{Origin: "peer", Data: []model.Request{{ID: "peer"}}})

	r.handle(string(own), fn)
	r.handle("not json", fn)
	r.handle(string(other), fn)

	if len(got) != 1 || got[0][0].ID != "peer" {
		t.Errorf("forwarded = %+v", got)
	}
}
