// Package wire implements the binary framing and message encode/decode for
// an external feed collaborator to speak to this engine over. It covers
// encoding and decoding only — no listener/dialer loop. Nothing in this
// module carries these frames over a connection; internal/feed sends JSON
// over WebSocket instead.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MessageType is the wire protocol's one-byte message discriminator.
type MessageType uint8

const (
	Tick             MessageType = 0x01
	OrderBookUpdate  MessageType = 0x02
	SnapshotRequest  MessageType = 0x10
	SnapshotResponse MessageType = 0x11
	Heartbeat        MessageType = 0xFF
)

func (t MessageType) String() string {
	switch t {
	case Tick:
		return "TICK"
	case OrderBookUpdate:
		return "ORDER_BOOK_UPDATE"
	case SnapshotRequest:
		return "SNAPSHOT_REQUEST"
	case SnapshotResponse:
		return "SNAPSHOT_RESPONSE"
	case Heartbeat:
		return "HEARTBEAT"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(t))
	}
}

// Frame is one decoded wire message: its type, sequence number, and raw
// payload (already stripped of the length/type/sequence header).
type Frame struct {
	Type     MessageType
	Sequence uint64
	Payload  []byte
}

// TickPayload is the payload of a Tick message.
type TickPayload struct {
	Timestamp uint64
	Symbol    [4]byte
	Price     float32
	Volume    int32
}

// OrderBookUpdatePayload is the payload of an OrderBookUpdate message. A
// Quantity of zero means "delete this price level."
type OrderBookUpdatePayload struct {
	Symbol   [4]byte
	Side     uint8
	Price    float32
	Quantity int64
}

// SnapshotRequestPayload is the payload of a SnapshotRequest message. A
// Symbol of "ALL\x00" requests a snapshot of every book.
type SnapshotRequestPayload struct {
	Symbol [4]byte
}

// PriceLevel is one bid or ask level in a SnapshotResponse.
type PriceLevel struct {
	Price    float32
	Quantity uint64
}

// SnapshotResponsePayload is the payload of a SnapshotResponse message.
type SnapshotResponsePayload struct {
	Symbol [4]byte
	Bids   []PriceLevel
	Asks   []PriceLevel
}

// HeartbeatPayload is the payload of a Heartbeat message.
type HeartbeatPayload struct {
	Timestamp uint64
}

// symbolBytes packs a symbol string into the wire's fixed 4-byte field,
// truncating or zero-padding as needed.
func symbolBytes(symbol string) [4]byte {
	var b [4]byte
	copy(b[:], symbol)
	return b
}

// SymbolString unpacks a fixed 4-byte wire symbol field, trimming trailing
// NUL padding.
func SymbolString(b [4]byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}

// EncodeTick frames a TickPayload as a complete wire message.
func EncodeTick(seq uint64, p TickPayload) ([]byte, error) {
	return encodeFrame(Tick, seq, p)
}

// EncodeOrderBookUpdate frames an OrderBookUpdatePayload as a complete wire message.
func EncodeOrderBookUpdate(seq uint64, p OrderBookUpdatePayload) ([]byte, error) {
	return encodeFrame(OrderBookUpdate, seq, p)
}

// EncodeSnapshotRequest frames a SnapshotRequestPayload as a complete wire message.
func EncodeSnapshotRequest(seq uint64, symbol string) ([]byte, error) {
	return encodeFrame(SnapshotRequest, seq, SnapshotRequestPayload{Symbol: symbolBytes(symbol)})
}

// EncodeSnapshotResponse frames a SnapshotResponsePayload as a complete
// wire message. Bids/Asks are each capped at 255 levels, the field width
// the wire format allots them.
func EncodeSnapshotResponse(seq uint64, symbol string, bids, asks []PriceLevel) ([]byte, error) {
	if len(bids) > 255 || len(asks) > 255 {
		return nil, fmt.Errorf("wire: snapshot response carries at most 255 levels per side, got %d bids / %d asks", len(bids), len(asks))
	}
	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.BigEndian, symbolBytes(symbol)); err != nil {
		return nil, err
	}
	if err := binary.Write(&payload, binary.BigEndian, uint8(len(bids))); err != nil {
		return nil, err
	}
	if err := binary.Write(&payload, binary.BigEndian, uint8(len(asks))); err != nil {
		return nil, err
	}
	for _, lvl := range bids {
		if err := binary.Write(&payload, binary.BigEndian, lvl); err != nil {
			return nil, err
		}
	}
	for _, lvl := range asks {
		if err := binary.Write(&payload, binary.BigEndian, lvl); err != nil {
			return nil, err
		}
	}
	return frame(SnapshotResponse, seq, payload.Bytes())
}

// EncodeHeartbeat frames a HeartbeatPayload as a complete wire message.
func EncodeHeartbeat(seq uint64, ts uint64) ([]byte, error) {
	return encodeFrame(Heartbeat, seq, HeartbeatPayload{Timestamp: ts})
}

// encodeFrame binary.Writes a fixed-layout payload struct and wraps it in
// the [length][type][sequence][payload] frame.
func encodeFrame(typ MessageType, seq uint64, payload any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, payload); err != nil {
		return nil, fmt.Errorf("wire: encode %s payload: %w", typ, err)
	}
	return frame(typ, seq, buf.Bytes())
}

// frame wraps a payload in the wire's [uint32 length][uint8 type][uint64
// sequence][payload] header, in network byte order. length counts the
// type+sequence+payload bytes that follow it.
func frame(typ MessageType, seq uint64, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	length := uint32(1 + 8 + len(payload))
	if err := binary.Write(&buf, binary.BigEndian, length); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint8(typ)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, seq); err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

// ReadFrame reads one complete wire message from r: the length-prefixed
// header plus exactly as many payload bytes as the header promises.
func ReadFrame(r io.Reader) (Frame, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return Frame{}, err
	}
	if length < 9 {
		return Frame{}, fmt.Errorf("wire: frame length %d too short for type+sequence header", length)
	}
	var typ uint8
	if err := binary.Read(r, binary.BigEndian, &typ); err != nil {
		return Frame{}, fmt.Errorf("wire: read type: %w", err)
	}
	var seq uint64
	if err := binary.Read(r, binary.BigEndian, &seq); err != nil {
		return Frame{}, fmt.Errorf("wire: read sequence: %w", err)
	}
	payloadLen := length - 9
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("wire: read payload: %w", err)
	}
	return Frame{Type: MessageType(typ), Sequence: seq, Payload: payload}, nil
}

// DecodeTick decodes a Frame's payload as a TickPayload. Caller must check
// Frame.Type == Tick first.
func DecodeTick(f Frame) (TickPayload, error) {
	var p TickPayload
	err := binary.Read(bytes.NewReader(f.Payload), binary.BigEndian, &p)
	return p, err
}

// DecodeOrderBookUpdate decodes a Frame's payload as an
// OrderBookUpdatePayload. Caller must check Frame.Type == OrderBookUpdate first.
func DecodeOrderBookUpdate(f Frame) (OrderBookUpdatePayload, error) {
	var p OrderBookUpdatePayload
	err := binary.Read(bytes.NewReader(f.Payload), binary.BigEndian, &p)
	return p, err
}

// DecodeSnapshotRequest decodes a Frame's payload as a SnapshotRequestPayload.
func DecodeSnapshotRequest(f Frame) (SnapshotRequestPayload, error) {
	var p SnapshotRequestPayload
	err := binary.Read(bytes.NewReader(f.Payload), binary.BigEndian, &p)
	return p, err
}

// DecodeSnapshotResponse decodes a Frame's payload as a SnapshotResponsePayload.
func DecodeSnapshotResponse(f Frame) (SnapshotResponsePayload, error) {
	r := bytes.NewReader(f.Payload)
	var symbol [4]byte
	if err := binary.Read(r, binary.BigEndian, &symbol); err != nil {
		return SnapshotResponsePayload{}, err
	}
	var numBids, numAsks uint8
	if err := binary.Read(r, binary.BigEndian, &numBids); err != nil {
		return SnapshotResponsePayload{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &numAsks); err != nil {
		return SnapshotResponsePayload{}, err
	}
	bids := make([]PriceLevel, numBids)
	for i := range bids {
		if err := binary.Read(r, binary.BigEndian, &bids[i]); err != nil {
			return SnapshotResponsePayload{}, fmt.Errorf("wire: decode bid level %d: %w", i, err)
		}
	}
	asks := make([]PriceLevel, numAsks)
	for i := range asks {
		if err := binary.Read(r, binary.BigEndian, &asks[i]); err != nil {
			return SnapshotResponsePayload{}, fmt.Errorf("wire: decode ask level %d: %w", i, err)
		}
	}
	return SnapshotResponsePayload{Symbol: symbol, Bids: bids, Asks: asks}, nil
}

// DecodeHeartbeat decodes a Frame's payload as a HeartbeatPayload.
func DecodeHeartbeat(f Frame) (HeartbeatPayload, error) {
	var p HeartbeatPayload
	err := binary.Read(bytes.NewReader(f.Payload), binary.BigEndian, &p)
	return p, err
}
