// Package broadcaster fans out order book snapshots to websocket
// subscribers: each subscriber holds a single-slot "latest wins" mailbox,
// so a slow reader never falls behind a growing backlog, it just misses
// the snapshots it couldn't keep up with.
package broadcaster

import (
	"errors"

	"github.com/vmihailenco/msgpack/v5"

	"lobsim/internal/sampler"
)

var errBadLevelArity = errors.New("broadcaster: wire level must be a 2-element array")

// wireLevel is one (price, size) pair, encoded as a compact two-element
// array rather than a map, keeping the wire payload compact.
type wireLevel struct {
	Price float64
	Size  uint64
}

func (l wireLevel) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeFloat64(l.Price); err != nil {
		return err
	}
	return enc.EncodeUint64(l.Size)
}

func (l *wireLevel) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return errBadLevelArity
	}
	price, err := dec.DecodeFloat64()
	if err != nil {
		return err
	}
	size, err := dec.DecodeUint64()
	if err != nil {
		return err
	}
	l.Price, l.Size = price, size
	return nil
}

// frame is the wire-level payload for one broadcast snapshot: a capture
// timestamp, a monotonically increasing sequence number, and the bid/ask
// depth ladders, best-first.
type frame struct {
	Ts   uint64      `msgpack:"ts"`
	Seq  uint64      `msgpack:"seq"`
	Bids []wireLevel `msgpack:"bids"`
	Asks []wireLevel `msgpack:"asks"`
}

func toFrame(snap sampler.Snapshot, tickSize float64) frame {
	f := frame{
		Ts:   snap.Ts,
		Seq:  snap.Seq,
		Bids: make([]wireLevel, len(snap.Bids)),
		Asks: make([]wireLevel, len(snap.Asks)),
	}
	for i, lvl := range snap.Bids {
		f.Bids[i] = wireLevel{Price: lvl.PriceTick.ToPrice(tickSize), Size: lvl.Size}
	}
	for i, lvl := range snap.Asks {
		f.Asks[i] = wireLevel{Price: lvl.PriceTick.ToPrice(tickSize), Size: lvl.Size}
	}
	return f
}

// Encode serializes a snapshot to msgpack bytes for transmission over a
// websocket frame.
func Encode(snap sampler.Snapshot, tickSize float64) ([]byte, error) {
	return msgpack.Marshal(toFrame(snap, tickSize))
}

// Decode is the client-side counterpart, exported for tests and any
// downstream consumer written in Go.
func Decode(b []byte) (ts, seq uint64, bids, asks [][2]float64, err error) {
	var f frame
	if err := msgpack.Unmarshal(b, &f); err != nil {
		return 0, 0, nil, nil, err
	}
	bids = make([][2]float64, len(f.Bids))
	for i, l := range f.Bids {
		bids[i] = [2]float64{l.Price, float64(l.Size)}
	}
	asks = make([][2]float64, len(f.Asks))
	for i, l := range f.Asks {
		asks[i] = [2]float64{l.Price, float64(l.Size)}
	}
	return f.Ts, f.Seq, bids, asks, nil
}
