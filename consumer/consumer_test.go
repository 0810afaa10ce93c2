package consumer

import (
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/stereodpl/dpl/frame"
)

func TestMarshalSummary(t *testing.T) {
	c := qt.New(t)
	rf := &frame.ResultFrame{
		Image: &frame.ImageFrame{FrameNumber: 42},
		Result: frame.ProcResult{
			ErrorCode: -2,
			TactTime:  5 * time.Millisecond,
		},
	}
	payload, err := marshalSummary(rf)
	c.Assert(err, qt.IsNil)

	var got resultSummary
	c.Assert(json.Unmarshal(payload, &got), qt.IsNil)
	c.Assert(got.FrameNumber, qt.Equals, uint64(42))
	c.Assert(got.ErrorCode, qt.Equals, -2)
	c.Assert(got.TactTimeMs, qt.Equals, 5.0)
}

func TestDisparityHub_FanOutToAllSubscribers(t *testing.T) {
	c := qt.New(t)
	h := newDisparityHub()
	a, b := h.subscribe(), h.subscribe()
	c.Assert(h.subscriberCount(), qt.Equals, 2)

	h.publish([]byte{1, 2, 3})

	c.Assert(<-a, qt.DeepEquals, []byte{1, 2, 3})
	c.Assert(<-b, qt.DeepEquals, []byte{1, 2, 3})
}

func TestDisparityHub_DropsSlowSubscriber(t *testing.T) {
	c := qt.New(t)
	h := newDisparityHub()
	slow := h.subscribe()

	for i := 0; i < subscriberBuf+1; i++ {
		h.publish([]byte{byte(i)})
	}

	c.Assert(h.subscriberCount(), qt.Equals, 0)
	_, ok := <-slow
	for ok {
		_, ok = <-slow
	}
}

func TestDisparityHub_Unsubscribe(t *testing.T) {
	c := qt.New(t)
	h := newDisparityHub()
	ch := h.subscribe()
	h.unsubscribe(ch)
	c.Assert(h.subscriberCount(), qt.Equals, 0)
}

func TestDisparityServer_PublishEncodesWidthHeight(t *testing.T) {
	c := qt.New(t)
	s := NewDisparityServer()
	ch := s.hub.subscribe()

	s.Publish(4, 2, []byte{9, 9, 9, 9, 9, 9, 9, 9})

	msg := <-ch
	c.Assert(binary.LittleEndian.Uint32(msg[0:4]), qt.Equals, uint32(4))
	c.Assert(binary.LittleEndian.Uint32(msg[4:8]), qt.Equals, uint32(2))
	c.Assert(len(msg), qt.Equals, 16)
}

func TestDisparityServer_PublishResult_SkipsEmptyPlane(t *testing.T) {
	c := qt.New(t)
	s := NewDisparityServer()
	ch := s.hub.subscribe()

	rf := &frame.ResultFrame{Image: &frame.ImageFrame{}}
	s.PublishResult(rf)

	select {
	case <-ch:
		c.Fatal("expected no publish for an empty disparity plane")
	default:
	}
}
