package consumer

import (
	"encoding/binary"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/stereodpl/dpl/frame"
)

// subscriberBuf is the per-viewer channel depth; a viewer slower than this
// many frames behind gets dropped rather than stalling the publisher.
const subscriberBuf = 4

// disparityHub fans out the most recent disparity display image to every
// connected viewer without ever blocking the publishing side. Grounded on
// the broadcaster/non-blocking-send fan-out shape in
// other_examples/vincent99-velocipi's DVR streaming server (subscribe,
// unsubscribe, drop-on-full-channel).
type disparityHub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func newDisparityHub() *disparityHub {
	return &disparityHub{subs: make(map[chan []byte]struct{})}
}

func (h *disparityHub) subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuf)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *disparityHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; !ok {
		return
	}
	delete(h.subs, ch)
}

func (h *disparityHub) publish(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *disparityHub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// DisparityServer streams the pipeline's 8-bit disparity display image to
// any number of WebSocket viewers (SPEC_FULL.md DOMAIN STACK: "WebSocket
// bridge streaming the 8-bit disparity display image to a browser-based
// viewer collaborator").
type DisparityServer struct {
	hub *disparityHub
}

// NewDisparityServer constructs a server with no connected viewers.
func NewDisparityServer() *DisparityServer {
	return &DisparityServer{hub: newDisparityHub()}
}

// Publish encodes width, height, and the display bytes into one binary
// message (two little-endian uint32s, then the pixel bytes) and fans it
// out to every connected viewer.
func (s *DisparityServer) Publish(width, height int, display []byte) {
	msg := make([]byte, 8+len(display))
	binary.LittleEndian.PutUint32(msg[0:4], uint32(width))
	binary.LittleEndian.PutUint32(msg[4:8], uint32(height))
	copy(msg[8:], display)
	s.hub.publish(msg)
}

// previewMaxWidth bounds the image streamed to WebSocket viewers; wider
// disparity displays are box-downscaled before publish (bandwidth-limited
// preview stream, see frame.ScaleBox).
const previewMaxWidth = 640

// PublishResult publishes a completed ResultFrame's disparity display
// plane (see pipeline.Controller.attachDisparity and DESIGN.md Open
// Question decision #3). A no-op if the frame carries no disparity.
func (s *DisparityServer) PublishResult(rf *frame.ResultFrame) {
	plane := rf.Image.Slot(frame.SlotMerged).Plane(frame.PlaneRaw)
	if plane.Empty() {
		return
	}
	if plane.Width <= previewMaxWidth {
		s.Publish(plane.Width, plane.Height, plane.Data)
		return
	}
	previewHeight := plane.Height * previewMaxWidth / plane.Width
	preview := frame.ScaleBox(plane, previewMaxWidth, previewHeight)
	s.Publish(preview.Width, preview.Height, preview.Data)
}

// Handler returns the golang.org/x/net/websocket handler for one viewer
// connection: subscribe, then forward every published frame until the
// connection closes or a write fails.
func (s *DisparityServer) Handler() websocket.Handler {
	return func(conn *websocket.Conn) {
		ch := s.hub.subscribe()
		defer s.hub.unsubscribe(ch)
		for msg := range ch {
			if _, err := conn.Write(msg); err != nil {
				return
			}
		}
	}
}
