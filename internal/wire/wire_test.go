package wire

import (
	"bytes"
	"testing"
)

func TestTickRoundTrip(t *testing.T) {
	data, err := EncodeTick(7, TickPayload{Timestamp: 123456789, Symbol: symbolBytes("BTC"), Price: 42.5, Volume: 100})
	if err != nil {
		t.Fatalf("EncodeTick: %v", err)
	}

	f, err := ReadFrame(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Type != Tick {
		t.Errorf("Type = %v, want Tick", f.Type)
	}
	if f.Sequence != 7 {
		t.Errorf("Sequence = %d, want 7", f.Sequence)
	}

	p, err := DecodeTick(f)
	if err != nil {
		t.Fatalf("DecodeTick: %v", err)
	}
	if p.Timestamp != 123456789 || p.Price != 42.5 || p.Volume != 100 {
		t.Errorf("decoded payload = %+v, want ts=123456789 price=42.5 volume=100", p)
	}
	if SymbolString(p.Symbol) != "BTC" {
		t.Errorf("symbol = %q, want BTC", SymbolString(p.Symbol))
	}
}

func TestOrderBookUpdateZeroQuantityMeansDelete(t *testing.T) {
	data, err := EncodeOrderBookUpdate(1, OrderBookUpdatePayload{Symbol: symbolBytes("ETH"), Side: 0, Price: 1800.25, Quantity: 0})
	if err != nil {
		t.Fatalf("EncodeOrderBookUpdate: %v", err)
	}
	f, err := ReadFrame(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	p, err := DecodeOrderBookUpdate(f)
	if err != nil {
		t.Fatalf("DecodeOrderBookUpdate: %v", err)
	}
	if p.Quantity != 0 {
		t.Errorf("Quantity = %d, want 0 (delete)", p.Quantity)
	}
}

func TestSnapshotRequestAllSymbol(t *testing.T) {
	data, err := EncodeSnapshotRequest(2, "ALL\x00")
	if err != nil {
		t.Fatalf("EncodeSnapshotRequest: %v", err)
	}
	f, err := ReadFrame(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	p, err := DecodeSnapshotRequest(f)
	if err != nil {
		t.Fatalf("DecodeSnapshotRequest: %v", err)
	}
	if SymbolString(p.Symbol) != "ALL" {
		t.Errorf("symbol = %q, want ALL", SymbolString(p.Symbol))
	}
}

func TestSnapshotResponseRoundTripsLevels(t *testing.T) {
	bids := []PriceLevel{{Price: 99.5, Quantity: 10}, {Price: 99.0, Quantity: 20}}
	asks := []PriceLevel{{Price: 100.5, Quantity: 5}}

	data, err := EncodeSnapshotResponse(3, "BTC", bids, asks)
	if err != nil {
		t.Fatalf("EncodeSnapshotResponse: %v", err)
	}
	f, err := ReadFrame(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	p, err := DecodeSnapshotResponse(f)
	if err != nil {
		t.Fatalf("DecodeSnapshotResponse: %v", err)
	}
	if len(p.Bids) != 2 || len(p.Asks) != 1 {
		t.Fatalf("decoded %d bids / %d asks, want 2/1", len(p.Bids), len(p.Asks))
	}
	if p.Bids[1].Price != 99.0 || p.Bids[1].Quantity != 20 {
		t.Errorf("bids[1] = %+v, want {99.0 20}", p.Bids[1])
	}
}

func TestSnapshotResponseRejectsTooManyLevels(t *testing.T) {
	bids := make([]PriceLevel, 256)
	if _, err := EncodeSnapshotResponse(1, "BTC", bids, nil); err == nil {
		t.Error("expected error for 256 bid levels (field width is uint8)")
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	data, err := EncodeHeartbeat(9, 555)
	if err != nil {
		t.Fatalf("EncodeHeartbeat: %v", err)
	}
	f, err := ReadFrame(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Type != Heartbeat {
		t.Errorf("Type = %v, want Heartbeat", f.Type)
	}
	p, err := DecodeHeartbeat(f)
	if err != nil {
		t.Fatalf("DecodeHeartbeat: %v", err)
	}
	if p.Timestamp != 555 {
		t.Errorf("Timestamp = %d, want 555", p.Timestamp)
	}
}

func TestReadFrameRejectsTruncatedLength(t *testing.T) {
	// length field says 9 bytes follow (minimum valid), but we supply none.
	buf := []byte{0, 0, 0, 9}
	if _, err := ReadFrame(bytes.NewReader(buf)); err == nil {
		t.Error("expected error reading a frame with a truncated body")
	}
}
