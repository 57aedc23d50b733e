package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMultiSink_FansOutInOrder(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	m := MultiSink{a, b}

	ev := Event{Type: EventPassStarted, RunID: "run-1", Op: OpStart, Timestamp: time.Now()}
	m.Publish(context.Background(), ev)

	assert.Equal(t, []EventType{EventPassStarted}, a.types())
	assert.Equal(t, []EventType{EventPassStarted}, b.types())
}

func TestNopSink_Discards(t *testing.T) {
	assert.NotPanics(t, func() {
		NopSink{}.Publish(context.Background(), Event{Type: EventPassFailed})
	})
}
