package push

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/messaging"
)

type fakeMulticaster struct {
	calls   [][]string
	failing map[string]error
	err     error
}

func (f *fakeMulticaster) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, m.Tokens)
	resp := &messaging.BatchResponse{}
	for _, tok := range m.Tokens {
		if err, bad := f.failing[tok]; bad {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Error: err})
			continue
		}
		resp.SuccessCount++
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: "m-" + tok})
	}
	return resp, nil
}

func TestFirebaseSenderBatchesAndCounts(t *testing.T) {
	tokens := make([]string, 0, 501)
	for i := 0; i < 501; i++ {
		tokens = append(tokens, fmt.Sprintf("token-%03d", i))
	}
	fake := &fakeMulticaster{failing: map[string]error{"token-007": errors.New("quota exceeded")}}
	sender := &FirebaseSender{client: fake}

	res, err := sender.Send(context.Background(), tokens, Message{Title: "t", Body: "b"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(fake.calls) != 2 || len(fake.calls[0]) != 500 || len(fake.calls[1]) != 1 {
		t.Fatalf("unexpected batching: %d calls", len(fake.calls))
	}
	if res.Success != 500 || res.Failure != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if len(res.Unregistered) != 0 {
		t.Fatalf("generic failures are not unregistered tokens")
	}
}

func TestFirebaseSenderError(t *testing.T) {
	sender := &FirebaseSender{client: &fakeMulticaster{err: errors.New("down")}}
	if _, err := sender.Send(context.Background(), []string{"a"}, Message{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNoop(t *testing.T) {
	res, err := Noop{}.Send(context.Background(), []string{"a"}, Message{Title: "x"})
	if err != nil || res.Success != 0 {
		t.Fatalf("unexpected noop result: %+v %v", res, err)
	}
}
