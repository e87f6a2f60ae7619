package push

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Message is a single notification addressed to a set of device tokens.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Result summarises a multicast. Unregistered lists tokens the provider
// reported as dead; callers should forget them.
type Result struct {
	Success      int
	Failure      int
	Unregistered []string
}

type Sender interface {
	Send(ctx context.Context, tokens []string, msg Message) (Result, error)
}

// multicaster is the subset of *messaging.Client used here.
type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FirebaseSender struct {
	client multicaster
}

// NewFirebaseSender initialises Firebase Cloud Messaging from a service account file.
func NewFirebaseSender(ctx context.Context, credentialsPath string) (*FirebaseSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	slog.Info("firebase messaging initialised")
	return &FirebaseSender{client: client}, nil
}

// maxMulticastTokens is the FCM limit on tokens per multicast request.
const maxMulticastTokens = 500

func (s *FirebaseSender) Send(ctx context.Context, tokens []string, msg Message) (Result, error) {
	var res Result
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(tokens))
		batch := tokens[start:end]

		resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
			Data:         msg.Data,
			Tokens:       batch,
		})
		if err != nil {
			return res, fmt.Errorf("multicast: %w", err)
		}

		res.Success += resp.SuccessCount
		res.Failure += resp.FailureCount
		for i, r := range resp.Responses {
			if r.Success {
				continue
			}
			slog.Warn("push token failed", "token", batch[i][:min(10, len(batch[i]))], "error", r.Error)
			if messaging.IsUnregistered(r.Error) {
				res.Unregistered = append(res.Unregistered, batch[i])
			}
		}
	}
	return res, nil
}

// Noop drops every message. It is used when no Firebase credentials are configured.
type Noop struct{}

func (Noop) Send(_ context.Context, tokens []string, msg Message) (Result, error) {
	slog.Debug("push disabled, dropping message", "title", msg.Title, "tokens", len(tokens))
	return Result{}, nil
}
