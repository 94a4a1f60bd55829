package book

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"lobengine/internal/errs"
	"lobengine/pkg/types"
)

func unixNanoTime(ns int64) time.Time {
	return time.Unix(0, ns)
}

// StopEntry is the normalized 6-field form of a pending stop order, per the
// Open Question resolution in DESIGN.md: (id, side, stop_price,
// limit_price, qty, becomes). limit_price is 0 for a stop that becomes a
// market order.
type StopEntry struct {
	OrderID    int64
	Side       types.Side
	StopPrice  float64
	LimitPrice float64
	Qty        float64
	Becomes    types.OrderType
}

// Snapshot is the book's full persistable state: active orders, pending
// stops, and fill history, sufficient to restore the book exactly.
type Snapshot struct {
	LastTradePrice float64
	HasTraded      bool
	TotalOrders    int64
	Orders         []types.Order
	Stops          []StopEntry
	Fills          []types.Fill
}

// CreateSnapshot captures the book's current state. Orders are emitted in
// order_id order for deterministic output.
func (b *Book) CreateSnapshot() Snapshot {
	s := Snapshot{
		LastTradePrice: b.lastTradePrice,
		HasTraded:      b.hasTraded,
		TotalOrders:    b.totalOrders,
	}

	ids := make([]int64, 0, len(b.activeOrders))
	for id := range b.activeOrders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		s.Orders = append(s.Orders, b.activeOrders[id].Clone())
	}

	for _, o := range b.stopBuys {
		s.Stops = append(s.Stops, stopEntryFromOrder(o))
	}
	for _, o := range b.stopSells {
		s.Stops = append(s.Stops, stopEntryFromOrder(o))
	}
	sort.Slice(s.Stops, func(i, j int) bool { return s.Stops[i].OrderID < s.Stops[j].OrderID })

	for _, f := range b.router.AllFills() {
		s.Fills = append(s.Fills, f.Fill)
	}

	return s
}

func stopEntryFromOrder(o *types.Order) StopEntry {
	return StopEntry{
		OrderID:    o.OrderID,
		Side:       o.Side,
		StopPrice:  o.StopPrice,
		LimitPrice: o.LimitPrice,
		Qty:        o.RemainingQty,
		Becomes:    o.Becomes,
	}
}

// Validate checks the integrity conditions that trigger
// errs.ErrSnapshotIntegrity: duplicate order ids, negative remaining
// quantity, or remaining exceeding the original quantity.
func (s Snapshot) Validate() error {
	seen := make(map[int64]bool, len(s.Orders))
	for _, o := range s.Orders {
		if seen[o.OrderID] {
			return fmt.Errorf("%w: duplicate order_id %d", errs.ErrSnapshotIntegrity, o.OrderID)
		}
		seen[o.OrderID] = true
		if o.RemainingQty < 0 {
			return fmt.Errorf("%w: order_id %d has negative remaining_qty", errs.ErrSnapshotIntegrity, o.OrderID)
		}
		if o.RemainingQty > o.OriginalQty {
			return fmt.Errorf("%w: order_id %d remaining_qty exceeds original", errs.ErrSnapshotIntegrity, o.OrderID)
		}
	}
	return nil
}

// RestoreFromSnapshot clears all book state and rebuilds it from s,
// reconstructing priority structures only from orders with
// IsActive() && !IsStop.
func (b *Book) RestoreFromSnapshot(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	b.activeOrders = make(map[int64]*types.Order, len(s.Orders))
	b.stopBuys = make(map[int64]*types.Order)
	b.stopSells = make(map[int64]*types.Order)
	b.bids = nil
	b.asks = nil
	b.events = nil
	b.lastTradePrice = s.LastTradePrice
	b.hasTraded = s.HasTraded
	b.totalOrders = s.TotalOrders
	b.restoredFills = append([]types.Fill(nil), s.Fills...)

	for i := range s.Orders {
		o := s.Orders[i]
		ptr := &o
		b.activeOrders[ptr.OrderID] = ptr
		if ptr.IsActive() && !ptr.IsStop {
			b.rePush(bookEntry{ptr.OrderID, ptr.LimitPrice, ptr.ArrivalTime}, ptr.Side)
		}
	}

	for _, se := range s.Stops {
		o := &types.Order{
			OrderID:       se.OrderID,
			Side:          se.Side,
			IsStop:        true,
			StopPrice:     se.StopPrice,
			LimitPrice:    se.LimitPrice,
			RemainingQty:  se.Qty,
			OriginalQty:   se.Qty,
			Becomes:       se.Becomes,
			State:         types.Pending,
			StopTriggered: false,
		}
		if se.Side == types.Buy {
			b.stopBuys[o.OrderID] = o
		} else {
			b.stopSells[o.OrderID] = o
		}
	}

	return nil
}

// ————————————————————————————————————————————————————————————————————————
// Text format
// ————————————————————————————————————————————————————————————————————————

// WriteSnapshotText writes s in the book's key-value/section text format.
func WriteSnapshotText(w io.Writer, s Snapshot) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# lobengine order book snapshot\n")
	fmt.Fprintf(bw, "LAST_TRADE_PRICE,%s\n", fmtFloat(s.LastTradePrice))
	fmt.Fprintf(bw, "TOTAL_ORDERS,%d\n", s.TotalOrders)
	fmt.Fprintf(bw, "ACTIVE_ORDERS,%d\n", len(s.Orders))
	for _, o := range s.Orders {
		fmt.Fprintf(bw, "ORDER,%d,%s,%s,%s,%s,%s,%s,%s,%s,%d,%d,%s,%s,%s\n",
			o.OrderID, o.Side, o.Type, fmtFloat(o.LimitPrice), fmtFloat(o.OriginalQty),
			fmtFloat(o.RemainingQty), fmtFloat(o.DisplayQty), fmtFloat(o.HiddenQty), fmtFloat(o.PeakSize),
			int(o.State), o.ArrivalTime.UnixNano(), fmtBool01(o.IsStop), fmtFloat(o.StopPrice), fmtBool01(o.StopTriggered))
	}

	fmt.Fprintf(bw, "PENDING_STOPS,%d\n", len(s.Stops))
	for _, se := range s.Stops {
		fmt.Fprintf(bw, "STOP,%d,%s,%s,%s,%s,%s\n",
			se.OrderID, se.Side, fmtFloat(se.StopPrice), fmtFloat(se.LimitPrice), fmtFloat(se.Qty), se.Becomes)
	}

	fmt.Fprintf(bw, "FILLS,%d\n", len(s.Fills))
	for _, f := range s.Fills {
		fmt.Fprintf(bw, "FILL,%d,%d,%s,%s,%d\n",
			f.BuyOrderID, f.SellOrderID, fmtFloat(f.Price), fmtFloat(f.Quantity), f.Timestamp.UnixNano())
	}

	return bw.Flush()
}

// ReadSnapshotText parses the book's text snapshot format.
func ReadSnapshotText(r io.Reader) (Snapshot, error) {
	var s Snapshot
	sc := bufio.NewScanner(r)
	line := 0

	readLine := func() (string, bool) {
		for sc.Scan() {
			line++
			l := sc.Text()
			if strings.HasPrefix(l, "#") {
				continue
			}
			return l, true
		}
		return "", false
	}

	parseErr := func(err error) error { return &errs.ParseError{Source: "snapshot", Line: line, Err: err} }

	l, ok := readLine()
	if !ok {
		return s, parseErr(fmt.Errorf("missing LAST_TRADE_PRICE"))
	}
	if _, err := fmt.Sscanf(l, "LAST_TRADE_PRICE,%g", &s.LastTradePrice); err != nil {
		return s, parseErr(err)
	}
	s.HasTraded = s.LastTradePrice != 0

	l, ok = readLine()
	if !ok {
		return s, parseErr(fmt.Errorf("missing TOTAL_ORDERS"))
	}
	if _, err := fmt.Sscanf(l, "TOTAL_ORDERS,%d", &s.TotalOrders); err != nil {
		return s, parseErr(err)
	}

	l, ok = readLine()
	if !ok {
		return s, parseErr(fmt.Errorf("missing ACTIVE_ORDERS"))
	}
	var numOrders int
	if _, err := fmt.Sscanf(l, "ACTIVE_ORDERS,%d", &numOrders); err != nil {
		return s, parseErr(err)
	}
	for i := 0; i < numOrders; i++ {
		l, ok = readLine()
		if !ok {
			return s, parseErr(fmt.Errorf("truncated ORDER section"))
		}
		o, err := parseOrderLine(l)
		if err != nil {
			return s, parseErr(err)
		}
		s.Orders = append(s.Orders, o)
	}

	l, ok = readLine()
	if !ok {
		return s, parseErr(fmt.Errorf("missing PENDING_STOPS"))
	}
	var numStops int
	if _, err := fmt.Sscanf(l, "PENDING_STOPS,%d", &numStops); err != nil {
		return s, parseErr(err)
	}
	for i := 0; i < numStops; i++ {
		l, ok = readLine()
		if !ok {
			return s, parseErr(fmt.Errorf("truncated PENDING_STOPS section"))
		}
		se, err := parseStopLine(l)
		if err != nil {
			return s, parseErr(err)
		}
		s.Stops = append(s.Stops, se)
	}

	l, ok = readLine()
	if !ok {
		return s, parseErr(fmt.Errorf("missing FILLS"))
	}
	var numFills int
	if _, err := fmt.Sscanf(l, "FILLS,%d", &numFills); err != nil {
		return s, parseErr(err)
	}
	for i := 0; i < numFills; i++ {
		l, ok = readLine()
		if !ok {
			return s, parseErr(fmt.Errorf("truncated FILLS section"))
		}
		f, err := parseFillLine(l)
		if err != nil {
			return s, parseErr(err)
		}
		s.Fills = append(s.Fills, f)
	}

	return s, nil
}

func parseOrderLine(l string) (types.Order, error) {
	var o types.Order
	fields := strings.Split(l, ",")
	if len(fields) != 15 || fields[0] != "ORDER" {
		return o, fmt.Errorf("malformed ORDER row: %q", l)
	}
	var err error
	if o.OrderID, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
		return o, err
	}
	o.Side = sideFromString(fields[2])
	o.Type = orderTypeFromString(fields[3])
	if o.LimitPrice, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return o, err
	}
	if o.OriginalQty, err = strconv.ParseFloat(fields[5], 64); err != nil {
		return o, err
	}
	if o.RemainingQty, err = strconv.ParseFloat(fields[6], 64); err != nil {
		return o, err
	}
	if o.DisplayQty, err = strconv.ParseFloat(fields[7], 64); err != nil {
		return o, err
	}
	if o.HiddenQty, err = strconv.ParseFloat(fields[8], 64); err != nil {
		return o, err
	}
	if o.PeakSize, err = strconv.ParseFloat(fields[9], 64); err != nil {
		return o, err
	}
	stateInt, err := strconv.Atoi(fields[10])
	if err != nil {
		return o, err
	}
	o.State = types.OrderState(stateInt)
	tsNs, err := strconv.ParseInt(fields[11], 10, 64)
	if err != nil {
		return o, err
	}
	o.ArrivalTime = unixNanoTime(tsNs)
	if o.IsStop, err = parseBool01(fields[12]); err != nil {
		return o, err
	}
	if o.StopPrice, err = strconv.ParseFloat(fields[13], 64); err != nil {
		return o, err
	}
	if o.StopTriggered, err = parseBool01(fields[14]); err != nil {
		return o, err
	}
	return o, nil
}

func parseStopLine(l string) (StopEntry, error) {
	var se StopEntry
	fields := strings.Split(l, ",")
	if len(fields) != 7 || fields[0] != "STOP" {
		return se, fmt.Errorf("malformed STOP row: %q", l)
	}
	var err error
	if se.OrderID, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
		return se, err
	}
	se.Side = sideFromString(fields[2])
	if se.StopPrice, err = strconv.ParseFloat(fields[3], 64); err != nil {
		return se, err
	}
	if se.LimitPrice, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return se, err
	}
	if se.Qty, err = strconv.ParseFloat(fields[5], 64); err != nil {
		return se, err
	}
	se.Becomes = orderTypeFromString(fields[6])
	return se, nil
}

func parseFillLine(l string) (types.Fill, error) {
	var f types.Fill
	fields := strings.Split(l, ",")
	if len(fields) != 6 || fields[0] != "FILL" {
		return f, fmt.Errorf("malformed FILL row: %q", l)
	}
	var err error
	if f.BuyOrderID, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
		return f, err
	}
	if f.SellOrderID, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
		return f, err
	}
	if f.Price, err = strconv.ParseFloat(fields[3], 64); err != nil {
		return f, err
	}
	if f.Quantity, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return f, err
	}
	tsNs, err := strconv.ParseInt(fields[5], 10, 64)
	if err != nil {
		return f, err
	}
	f.Timestamp = unixNanoTime(tsNs)
	return f, nil
}

// ————————————————————————————————————————————————————————————————————————
// Binary format
// ————————————————————————————————————————————————————————————————————————

var binaryMagic = [4]byte{'O', 'B', 'K', 'S'}

// WriteSnapshotBinary writes s in the book's binary format: a 4-byte magic,
// then record counts and tightly packed fields in host byte order.
func WriteSnapshotBinary(w io.Writer, s Snapshot) error {
	bw := bufio.NewWriter(w)
	order := binary.NativeEndian

	if _, err := bw.Write(binaryMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, order, s.LastTradePrice); err != nil {
		return err
	}
	if err := binary.Write(bw, order, boolToByte(s.HasTraded)); err != nil {
		return err
	}
	if err := binary.Write(bw, order, s.TotalOrders); err != nil {
		return err
	}

	if err := binary.Write(bw, order, uint32(len(s.Orders))); err != nil {
		return err
	}
	for _, o := range s.Orders {
		if err := writeBinaryOrder(bw, order, o); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, order, uint32(len(s.Stops))); err != nil {
		return err
	}
	for _, se := range s.Stops {
		if err := writeBinaryStop(bw, order, se); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, order, uint32(len(s.Fills))); err != nil {
		return err
	}
	for _, f := range s.Fills {
		if err := writeBinaryFill(bw, order, f); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeBinaryOrder(w io.Writer, order binary.ByteOrder, o types.Order) error {
	fields := []any{
		o.OrderID, o.AccountID, byte(o.Side), byte(o.Type), byte(o.TIF),
		o.LimitPrice, o.OriginalQty, o.RemainingQty, o.DisplayQty, o.HiddenQty, o.PeakSize,
		byte(o.State), o.ArrivalTime.UnixNano(), boolToByte(o.IsStop), o.StopPrice,
		boolToByte(o.StopTriggered), byte(o.Becomes),
	}
	for _, f := range fields {
		if err := binary.Write(w, order, f); err != nil {
			return err
		}
	}
	return nil
}

func writeBinaryStop(w io.Writer, order binary.ByteOrder, se StopEntry) error {
	fields := []any{se.OrderID, byte(se.Side), se.StopPrice, se.LimitPrice, se.Qty, byte(se.Becomes)}
	for _, f := range fields {
		if err := binary.Write(w, order, f); err != nil {
			return err
		}
	}
	return nil
}

func writeBinaryFill(w io.Writer, order binary.ByteOrder, f types.Fill) error {
	fields := []any{f.BuyOrderID, f.SellOrderID, f.Price, f.Quantity, f.Timestamp.UnixNano()}
	for _, v := range fields {
		if err := binary.Write(w, order, v); err != nil {
			return err
		}
	}
	return nil
}

// ReadSnapshotBinary parses the book's binary format.
func ReadSnapshotBinary(r io.Reader) (Snapshot, error) {
	var s Snapshot
	order := binary.NativeEndian

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return s, &errs.ParseError{Source: "snapshot-binary", Line: 0, Err: err}
	}
	if magic != binaryMagic {
		return s, &errs.ParseError{Source: "snapshot-binary", Line: 0, Err: fmt.Errorf("bad magic %q", magic)}
	}

	var hasTraded byte
	if err := binary.Read(r, order, &s.LastTradePrice); err != nil {
		return s, err
	}
	if err := binary.Read(r, order, &hasTraded); err != nil {
		return s, err
	}
	s.HasTraded = hasTraded != 0
	if err := binary.Read(r, order, &s.TotalOrders); err != nil {
		return s, err
	}

	var numOrders uint32
	if err := binary.Read(r, order, &numOrders); err != nil {
		return s, err
	}
	for i := uint32(0); i < numOrders; i++ {
		o, err := readBinaryOrder(r, order)
		if err != nil {
			return s, err
		}
		s.Orders = append(s.Orders, o)
	}

	var numStops uint32
	if err := binary.Read(r, order, &numStops); err != nil {
		return s, err
	}
	for i := uint32(0); i < numStops; i++ {
		se, err := readBinaryStop(r, order)
		if err != nil {
			return s, err
		}
		s.Stops = append(s.Stops, se)
	}

	var numFills uint32
	if err := binary.Read(r, order, &numFills); err != nil {
		return s, err
	}
	for i := uint32(0); i < numFills; i++ {
		f, err := readBinaryFill(r, order)
		if err != nil {
			return s, err
		}
		s.Fills = append(s.Fills, f)
	}

	return s, nil
}

func readBinaryOrder(r io.Reader, order binary.ByteOrder) (types.Order, error) {
	var o types.Order
	var side, typ, tif, state, becomes byte
	var isStop, stopTriggered byte
	var arrivalNs int64

	fields := []any{
		&o.OrderID, &o.AccountID, &side, &typ, &tif,
		&o.LimitPrice, &o.OriginalQty, &o.RemainingQty, &o.DisplayQty, &o.HiddenQty, &o.PeakSize,
		&state, &arrivalNs, &isStop, &o.StopPrice, &stopTriggered, &becomes,
	}
	for _, f := range fields {
		if err := binary.Read(r, order, f); err != nil {
			return o, err
		}
	}

	o.Side = types.Side(side)
	o.Type = types.OrderType(typ)
	o.TIF = types.TimeInForce(tif)
	o.State = types.OrderState(state)
	o.ArrivalTime = unixNanoTime(arrivalNs)
	o.IsStop = isStop != 0
	o.StopTriggered = stopTriggered != 0
	o.Becomes = types.OrderType(becomes)
	return o, nil
}

func readBinaryStop(r io.Reader, order binary.ByteOrder) (StopEntry, error) {
	var se StopEntry
	var side, becomes byte
	fields := []any{&se.OrderID, &side, &se.StopPrice, &se.LimitPrice, &se.Qty, &becomes}
	for _, f := range fields {
		if err := binary.Read(r, order, f); err != nil {
			return se, err
		}
	}
	se.Side = types.Side(side)
	se.Becomes = types.OrderType(becomes)
	return se, nil
}

func readBinaryFill(r io.Reader, order binary.ByteOrder) (types.Fill, error) {
	var f types.Fill
	var ts int64
	fields := []any{&f.BuyOrderID, &f.SellOrderID, &f.Price, &f.Quantity, &ts}
	for _, field := range fields {
		if err := binary.Read(r, order, field); err != nil {
			return f, err
		}
	}
	f.Timestamp = unixNanoTime(ts)
	return f, nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
