package repository

import (
	"reflect"
	"testing"

	"atkform/internal/model"
)

func TestChangeFeed_OrderAndCancel(t *testing.T) {
	var feed ChangeFeed
	var calls []string

	feed.Subscribe(func([]model.Request) { calls = append(calls, "a") })
	cancelB := feed.Subscribe(func([]model.Request) { calls = append(calls, "b") })
	feed.Subscribe(func([]model.Request) { calls = append(calls, "c") })

	feed.Publish(nil)
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}

	cancelB()
	cancelB()
	calls = nil
	feed.Publish(nil)
	if want := []string{"a", "c"}; !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	if feed.Len() != 2 {
		t.Errorf("len = %d, want 2", feed.Len())
	}
}

func TestChangeFeed_SubscribersGetOwnCopy(t *testing.T) {
	var feed ChangeFeed
	var second []model.Request

	feed.Subscribe(func(records []model.Request) {
		records[0].Status = "mutated"
		records[0].Items[0].Name = "mutated"
	})
	feed.Subscribe(func(records []model.Request) { second = records })

	src := []model.Request{{ID: "1", Status: model.StatusPending, Items: []model.Item{{Name: "Pulpen"}}}}
	feed.Publish(src)

	if second[0].Status != model.StatusPending || second[0].Items[0].Name != "Pulpen" {
		t.Errorf("second subscriber saw mutation: %+v", second[0])
	}
	if src[0].Items[0].Name != "Pulpen" {
		t.Error("publisher slice was mutated")
	}
}

func TestChangeFeed_NoSubscribers(t *testing.T) {
	var feed ChangeFeed
	feed.Publish([]model.Request{{ID: "1"}})
}
