package peer

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManasDasri/PomStud/internal/protocol"
)

type sent struct {
	kind   string
	target string
	data   json.RawMessage
}

type recordingSignaler struct {
	mu   sync.Mutex
	out  []sent
	fail error
}

func (r *recordingSignaler) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *recordingSignaler) record(kind, target string, data json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.out = append(r.out, sent{kind: kind, target: target, data: data})
	return nil
}

func (r *recordingSignaler) SendOffer(target string, d json.RawMessage) error {
	return r.record(protocol.EventOffer, target, d)
}

func (r *recordingSignaler) SendAnswer(target string, d json.RawMessage) error {
	return r.record(protocol.EventAnswer, target, d)
}

func (r *recordingSignaler) SendCandidate(target string, d json.RawMessage) error {
	return r.record(protocol.EventICECandidate, target, d)
}

func (r *recordingSignaler) first(kind string) (sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.out {
		if s.kind == kind {
			return s, true
		}
	}
	return sent{}, false
}

func newTestMesh(t *testing.T) (*Mesh, *recordingSignaler) {
	t.Helper()
	sig := &recordingSignaler{}
	m := New(sig, Config{Name: "Alice", Version: "test"})
	t.Cleanup(m.Close)
	return m, sig
}

func TestMesh_ConnectSendsOffers(t *testing.T) {
	m, sig := newTestMesh(t)

	m.Connect([]protocol.Member{{ID: "b", Name: "Bob"}, {ID: "c", Name: "Carol"}})
	assert.Equal(t, 2, m.Len())

	offer, ok := sig.first(protocol.EventOffer)
	require.True(t, ok)
	assert.Equal(t, "b", offer.target)

	var desc webrtc.SessionDescription
	require.NoError(t, json.Unmarshal(offer.data, &desc))
	assert.Equal(t, webrtc.SDPTypeOffer, desc.Type)
	assert.Contains(t, desc.SDP, "m=application")

	// Offering twice to a known member is a no-op.
	m.Connect([]protocol.Member{{ID: "b", Name: "Bob"}})
	assert.Equal(t, 2, m.Len())
}

func TestMesh_AnswersOffer(t *testing.T) {
	alice, aliceSig := newTestMesh(t)
	bob, bobSig := newTestMesh(t)

	alice.Connect([]protocol.Member{{ID: "bob", Name: "Bob"}})
	offer, ok := aliceSig.first(protocol.EventOffer)
	require.True(t, ok)

	require.NoError(t, bob.HandleSignal(protocol.EventOffer, "alice", offer.data))
	answer, ok := bobSig.first(protocol.EventAnswer)
	require.True(t, ok)
	assert.Equal(t, "alice", answer.target)

	var desc webrtc.SessionDescription
	require.NoError(t, json.Unmarshal(answer.data, &desc))
	assert.Equal(t, webrtc.SDPTypeAnswer, desc.Type)

	require.NoError(t, alice.HandleSignal(protocol.EventAnswer, "bob", answer.data))
}

func TestMesh_SignalErrors(t *testing.T) {
	m, _ := newTestMesh(t)

	err := m.HandleSignal(protocol.EventAnswer, "ghost", json.RawMessage(`{"type":"answer","sdp":""}`))
	assert.ErrorIs(t, err, ErrUnknownPeer)

	err = m.HandleSignal(protocol.EventICECandidate, "ghost", json.RawMessage(`{"candidate":"candidate:1 1 udp 1 127.0.0.1 9 typ host"}`))
	assert.ErrorIs(t, err, ErrUnknownPeer)

	assert.NoError(t, m.HandleSignal(protocol.EventICECandidate, "ghost", json.RawMessage(`null`)), "end of candidates is ignored")

	err = m.HandleSignal("webrtc-bogus", "ghost", nil)
	assert.ErrorIs(t, err, ErrUnexpectedType)

	err = m.HandleSignal(protocol.EventOffer, "ghost", json.RawMessage(`"not an offer"`))
	assert.Error(t, err)
}

func TestMesh_FailedNegotiationDropsPeer(t *testing.T) {
	m, sig := newTestMesh(t)

	sig.setFail(errors.New("relay down"))
	m.Connect([]protocol.Member{{ID: "b", Name: "Bob"}})
	assert.Equal(t, 0, m.Len(), "failed offer leaves no peer behind")

	sig.setFail(nil)
	m.Connect([]protocol.Member{{ID: "b", Name: "Bob"}})
	assert.Equal(t, 1, m.Len())
	offer, ok := sig.first(protocol.EventOffer)
	require.True(t, ok, "retry sends a fresh offer")
	assert.Equal(t, "b", offer.target)

	err := m.HandleSignal(protocol.EventOffer, "c", json.RawMessage(`{"type":"offer","sdp":"garbage"}`))
	require.Error(t, err)
	assert.Nil(t, m.lookup("c"), "failed answer leaves no peer behind")
	assert.Equal(t, 1, m.Len())
}

func TestMesh_QueuesEarlyCandidates(t *testing.T) {
	m, _ := newTestMesh(t)
	m.Connect([]protocol.Member{{ID: "b"}})

	cand := json.RawMessage(`{"candidate":"candidate:1 1 udp 2130706431 192.0.2.1 50000 typ host","sdpMid":"0","sdpMLineIndex":0}`)
	require.NoError(t, m.HandleSignal(protocol.EventICECandidate, "b", cand))

	p := m.lookup("b")
	require.NotNil(t, p)
	m.mu.Lock()
	assert.Len(t, p.pending, 1)
	m.mu.Unlock()
}

func TestMesh_RemoveAndClose(t *testing.T) {
	m, _ := newTestMesh(t)
	m.Connect([]protocol.Member{{ID: "b"}, {ID: "c"}})

	m.Remove("b")
	m.Remove("b")
	assert.Equal(t, 1, m.Len())

	m.Close()
	assert.Equal(t, 0, m.Len())
	assert.Zero(t, m.Nudge("hi"))

	m.Connect([]protocol.Member{{ID: "d"}})
	assert.Equal(t, 0, m.Len(), "closed mesh accepts no peers")
}

func TestFrame_RoundTrip(t *testing.T) {
	f, err := NewFrame(FrameHello, Hello{Name: "Alice", Version: "dev"})
	require.NoError(t, err)
	b, err := f.Encode()
	require.NoError(t, err)

	got, err := DecodeFrame(b)
	require.NoError(t, err)
	assert.Equal(t, FrameHello, got.Type)

	var h Hello
	require.NoError(t, got.DecodePayload(&h))
	assert.Equal(t, Hello{Name: "Alice", Version: "dev"}, h)

	_, err = DecodeFrame([]byte{0xc1})
	assert.Error(t, err)
}
