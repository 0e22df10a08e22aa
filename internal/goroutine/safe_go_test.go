package goroutine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type captureLogger struct {
	messages chan string
}

func (l captureLogger) Errorf(format string, args ...interface{}) {
	l.messages <- fmt.Sprintf(format, args...)
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	logs := captureLogger{messages: make(chan string, 1)}
	SetLogger(logs)
	t.Cleanup(func() { SetLogger(stderrLogger{}) })

	SafeGo(func() { panic("boom") })

	select {
	case msg := <-logs.messages:
		assert.Contains(t, msg, "boom")
	case <-time.After(time.Second):
		t.Fatal("panic was not reported")
	}
}
