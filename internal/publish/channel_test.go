package publish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

func TestChannelPublisherFanoutDelivers(t *testing.T) {
	p := NewChannelPublisher(0)
	id, frames := p.SubscribeFrames()
	events := p.SubscribeEvents(id)
	defer p.Unsubscribe(id)

	f := evmtype.NewFrameU8(4, 4, 3)
	p.EmitFrame(f)
	p.EmitBreath(5)

	select {
	case data := <-frames:
		require.NotEmpty(t, data)
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}

	select {
	case data := <-events:
		require.Contains(t, string(data), "breath")
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestChannelPublisherDropsWhenSubscriberFull(t *testing.T) {
	p := NewChannelPublisher(0)
	id, frames := p.SubscribeFrames()
	defer p.Unsubscribe(id)

	f := evmtype.NewFrameU8(4, 4, 3)
	for i := 0; i < 10; i++ {
		p.EmitFrame(f)
	}
	require.LessOrEqual(t, len(frames), 2)
}
