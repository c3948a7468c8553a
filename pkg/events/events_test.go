package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDeliversInSubscriptionOrder(t *testing.T) {
	emitter := NewEmitter()

	var order []int
	emitter.Subscribe("ev", func(interface{}) { order = append(order, 1) })
	emitter.Subscribe("ev", func(interface{}) { order = append(order, 2) })

	emitter.Emit("ev", nil)
	assert.Equal(t, []int{1, 2}, order)
}

func TestEmitPassesPayload(t *testing.T) {
	emitter := NewEmitter()

	var got interface{}
	emitter.Subscribe("mail", func(payload interface{}) { got = payload })

	emitter.Emit("mail", "payload-value")
	assert.Equal(t, "payload-value", got)
}

func TestEmitUnknownEventIsNoop(t *testing.T) {
	emitter := NewEmitter()
	emitter.Emit("nobody-listens", 42)
}

func TestClearDropsAllSubscriptions(t *testing.T) {
	emitter := NewEmitter()

	calls := 0
	emitter.Subscribe("a", func(interface{}) { calls++ })
	emitter.Subscribe("b", func(interface{}) { calls++ })

	emitter.Clear()
	emitter.Emit("a", nil)
	emitter.Emit("b", nil)

	assert.Zero(t, calls)
}

func TestNilHandlerIgnored(t *testing.T) {
	emitter := NewEmitter()
	emitter.Subscribe("ev", nil)
	emitter.Emit("ev", nil)
}

func TestConcurrentSubscribeEmit(t *testing.T) {
	emitter := NewEmitter()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			emitter.Subscribe("ev", func(interface{}) {})
		}()
		go func() {
			defer wg.Done()
			emitter.Emit("ev", nil)
		}()
	}
	wg.Wait()
}
