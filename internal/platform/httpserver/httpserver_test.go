package httpserver

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedlog/internal/platform/config"
)

func TestRunStopsWhenContextEnds(t *testing.T) {
	srv := New(config.HTTPConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		http.NotFoundHandler(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunReportsListenFailure(t *testing.T) {
	srv := New(config.HTTPConfig{Addr: "256.0.0.1:bad", ShutdownTimeout: time.Second},
		http.NotFoundHandler(), nil)

	err := srv.Run(context.Background())
	assert.Error(t, err)
}
