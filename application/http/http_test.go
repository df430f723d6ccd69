package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	testcases := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{input: "HTTP/1.1", want: Version11},
		{input: "HTTP/1.0", want: Version10},
		{input: "HTTP/2.0", want: Version{2, 0}},
		{input: "HTP/1.1", wantErr: true},
		{input: "HTTP/11", wantErr: true},
		{input: "HTTP/a.b", wantErr: true},
	}
	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseVersion(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrProtocolViolation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.input, got.String())
		})
	}
}

func TestHeaderCasePreserving(t *testing.T) {
	h := NewHeader()
	h.Set("X-CuStOm-Key", "one")

	// Lookup is case-insensitive.
	v, ok := h.Get("x-custom-key")
	require.True(t, ok)
	assert.Equal(t, "one", v)

	// Serialization keeps the exact spelling of the last Set.
	fields := h.Fields()
	require.Len(t, fields, 1)
	assert.Equal(t, "X-CuStOm-Key", fields[0].Name)
}

func TestHeaderLastWriteWins(t *testing.T) {
	h := NewHeader()
	h.Set("Content-Type", "text/plain")
	h.Set("content-type", "application/json")

	assert.Equal(t, 1, h.Len())
	assert.Equal(t, "application/json", h.Value("Content-Type"))
	assert.Equal(t, "content-type", h.Fields()[0].Name)
}

func TestHeaderInsertionOrder(t *testing.T) {
	h := NewHeader()
	h.Set("B", "2")
	h.Set("A", "1")
	h.Set("C", "3")
	h.Set("B", "2b") // overwrite keeps position

	var names []string
	for _, f := range h.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"B", "A", "C"}, names)
	assert.Equal(t, "2b", h.Value("b"))
}

func TestKeepAlive(t *testing.T) {
	testcases := []struct {
		desc       string
		version    Version
		connection string
		want       bool
	}{
		{desc: "1.1 default", version: Version11, want: true},
		{desc: "1.1 close", version: Version11, connection: "close", want: false},
		{desc: "1.1 close mixed case", version: Version11, connection: "Close", want: false},
		{desc: "1.0 default", version: Version10, want: false},
		{desc: "1.0 keep-alive", version: Version10, connection: "keep-alive", want: true},
		{desc: "1.1 explicit keep-alive", version: Version11, connection: "keep-alive", want: true},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			m := NewRequest("GET", "/")
			m.Version = tc.version
			if tc.connection != "" {
				m.Header.Set("Connection", tc.connection)
			}
			assert.Equal(t, tc.want, m.KeepAlive())
		})
	}
}

func TestSetBody(t *testing.T) {
	m := NewResponse(200, "OK")
	m.SetBody("text/plain", []byte("Hello, World!"))

	assert.Equal(t, "13", m.Header.Value("Content-Length"))
	assert.Equal(t, "text/plain", m.Header.Value("Content-Type"))

	length, ok := m.ContentLength()
	require.True(t, ok)
	assert.Equal(t, 13, length)
}

func TestIsMethod(t *testing.T) {
	for _, m := range []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS", "PATCH"} {
		assert.True(t, IsMethod(m), m)
	}
	assert.False(t, IsMethod("HTTP/1.1"))
	assert.False(t, IsMethod("get"))
}
