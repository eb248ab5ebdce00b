package boundary

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var _ Location = url.Values{}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Success("ok")
	r.Error("bad")
	r.Push("/status")
	assert.Equal(t, []Note{{OK: true, Msg: "ok"}, {Msg: "bad"}}, r.Notes())
	assert.Equal(t, []string{"/status"}, r.Paths())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := &LogNotifier{Logger: zerolog.New(&buf)}
	n.Success("saved")
	n.Error("failed")
	assert.Contains(t, buf.String(), `"level":"info","message":"saved"`)
	assert.Contains(t, buf.String(), `"level":"warn","message":"failed"`)
}
