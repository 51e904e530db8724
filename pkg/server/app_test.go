package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"FxChart/internal/service/ratelimit"
	"FxChart/pkg/config"
	xhttp "FxChart/pkg/http"
	applogger "FxChart/pkg/logger"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunContextShutsDownAndCloses(t *testing.T) {
	cfg, err := config.Parse([]byte("upstream:\n  base_url: http://localhost:1\n"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	app := New(cfg, applogger.Nop(), srv, nil, nil, ratelimit.New(1, 1))

	closed := make(chan struct{})
	app.OnClose(closerFunc(func() error {
		close(closed)
		return errors.New("ignored")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("app did not stop")
	}

	select {
	case <-closed:
	default:
		t.Fatalf("closer not called")
	}
}
