package poster

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/h2non/gock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPoster() *Poster {
	client := &http.Client{}
	gock.InterceptClient(client)
	return New(client, testLogger())
}

func TestPost(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.twitter.com").
		Post("/2/tweets").
		Reply(201).
		JSON(map[string]any{"data": map[string]any{"id": "555", "text": "hello"}})

	p := newTestPoster()

	id, err := p.Post(context.Background(), "Testing the news curator bot! #AI https://example.com/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "555" {
		t.Errorf("tweet id = %q, want 555", id)
	}
}

func TestPostClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "rate limited", status: 429, wantErr: ErrRateLimited},
		{name: "forbidden", status: 403, wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()

			gock.New("https://api.twitter.com").
				Post("/2/tweets").
				Reply(tt.status)

			p := newTestPoster()

			_, err := p.Post(context.Background(), "some tweet text")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostOtherErrorStatus(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.twitter.com").
		Post("/2/tweets").
		Reply(500).
		BodyString("internal error")

	p := newTestPoster()

	_, err := p.Post(context.Background(), "some tweet text")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrForbidden) {
		t.Errorf("generic failure misclassified: %v", err)
	}
}

func TestPostRejectsOverlongTextWithoutCalling(t *testing.T) {
	defer gock.Off()
	// No mock registered: any HTTP call would fail the test.

	p := newTestPoster()

	_, err := p.Post(context.Background(), strings.Repeat("a", 281))
	if !errors.Is(err, ErrTweetTooLong) {
		t.Errorf("error = %v, want ErrTweetTooLong", err)
	}
}

func TestVerify(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.twitter.com").
		Get("/2/users/me").
		Reply(200).
		JSON(map[string]any{"data": map[string]any{"id": "1", "name": "Curator", "username": "newscurator"}})

	p := newTestPoster()

	username, err := p.Verify(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if username != "newscurator" {
		t.Errorf("username = %q, want newscurator", username)
	}
}
