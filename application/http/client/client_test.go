package client

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgnet/application/http"
	"msgnet/application/util/uri"
)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestNewForURL(t *testing.T) {
	c, err := NewForURL("http://example.com:9001/some/path", discard(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "example.com:9001", c.addr)

	c, err = NewForURL("http://example.com/x", discard(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "example.com:80", c.addr)

	_, err = NewForURL("http://bad:port/x", discard(), Options{})
	assert.ErrorIs(t, err, uri.ErrMalformed)
}

func TestDoRejectsResponses(t *testing.T) {
	c := New("127.0.0.1:1", discard(), Options{})
	_, err := c.Do(http.NewResponse(200, "OK"))
	assert.Error(t, err)
}

func TestDialFailure(t *testing.T) {
	// Reserved port with nothing listening; dial must surface the error and
	// leave the client reusable.
	c := New("127.0.0.1:1", discard(), Options{})
	defer c.Close()

	_, err := c.Get("http://127.0.0.1:1/")
	assert.Error(t, err)
}
