package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControlTokens(t *testing.T) {
	tests := []struct {
		text  string
		start bool
		end   bool
	}{
		{text: "/start 1234", start: true},
		{text: "/start ", start: true},
		{text: "/start", start: false},
		{text: "/end", end: true},
		{text: "", end: true},
		{text: "/end now", end: false},
		{text: "hello", start: false, end: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.start, IsStart(tt.text))
			assert.Equal(t, tt.end, IsEnd(tt.text))
		})
	}
}

func TestStripStart(t *testing.T) {
	assert.Equal(t, "payload text", StripStart("/start payload text"))
	assert.Equal(t, "", StripStart("/start "))
	assert.Equal(t, "no token", StripStart("no token"))
}

func TestChatStatus(t *testing.T) {
	assert.Equal(t, "5: Active", ChatStatus{ID: 5}.String())
	assert.Equal(t, "6: Finished", ChatStatus{ID: 6, Finished: true}.String())
	assert.Equal(t, "-3", ChatID(-3).String())
}
