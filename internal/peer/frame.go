package peer

import "github.com/vmihailenco/msgpack/v5"

// Frame types carried on the peer data channel.
const (
	FrameHello = "hello"
	FrameNudge = "nudge"
)

// Frame is the envelope of every data channel message
type Frame struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// Hello is sent by both sides as soon as the channel opens
type Hello struct {
	Name    string `msgpack:"name"`
	Version string `msgpack:"version"`
}

// Nudge is a short note pushed to every connected peer
type Nudge struct {
	Text string `msgpack:"text"`
}

// NewFrame creates a Frame with the given type and payload
func NewFrame(t string, payload any) (Frame, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Payload: b}, nil
}

// Encode returns the wire form of f
func (f Frame) Encode() ([]byte, error) {
	return msgpack.Marshal(f)
}

// DecodeFrame parses a data channel message
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	err := msgpack.Unmarshal(data, &f)
	return f, err
}

// DecodePayload decodes the frame payload into the provided struct
func (f Frame) DecodePayload(v any) error {
	return msgpack.Unmarshal(f.Payload, v)
}
