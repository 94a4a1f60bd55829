package book

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"lobengine/internal/errs"
	"lobengine/pkg/types"
)

// Event kinds for the book's CSV event journal.
const (
	EventNew    = "NEW"
	EventCancel = "CANCEL"
	EventAmend  = "AMEND"
	EventFill   = "FILL"
)

var journalHeader = []string{
	"timestamp_ns", "type", "order_id", "side", "order_type", "tif",
	"price", "quantity", "peak_size", "account_id",
	"has_new_price", "has_new_qty", "new_price", "new_qty",
	"counterparty_id", "fill_qty",
}

// Event is one row of the book's CSV event journal. Unused fields for a
// given Type are left at their zero value and written out as
// "N/A"/"0"/"0.00" by WriteEvents.
type Event struct {
	TimestampNs int64
	Type        string
	OrderID     int64
	Side        string
	OrderType   string
	TIF         string
	Price       float64
	Quantity    float64
	PeakSize    float64
	AccountID   int64

	HasNewPrice bool
	HasNewQty   bool
	NewPrice    float64
	NewQty      float64

	CounterpartyID int64
	FillQty        float64
}

func newEvent(kind string, o *types.Order) Event {
	e := Event{
		TimestampNs: time.Now().UnixNano(),
		Type:        kind,
		OrderID:     o.OrderID,
		Side:        "N/A",
		OrderType:   "N/A",
		TIF:         "N/A",
	}
	if kind == EventNew {
		e.Side = o.Side.String()
		e.OrderType = o.Type.String()
		e.TIF = o.TIF.String()
		e.Price = o.LimitPrice
		e.Quantity = o.OriginalQty
		e.PeakSize = o.PeakSize
		e.AccountID = o.AccountID
	}
	return e
}

func newAmendEvent(o *types.Order, newPrice, newQty *float64) Event {
	e := Event{
		TimestampNs: time.Now().UnixNano(),
		Type:        EventAmend,
		OrderID:     o.OrderID,
		Side:        "N/A",
		OrderType:   "N/A",
		TIF:         "N/A",
	}
	if newPrice != nil {
		e.HasNewPrice = true
		e.NewPrice = *newPrice
	}
	if newQty != nil {
		e.HasNewQty = true
		e.NewQty = *newQty
	}
	return e
}

func newFillEvent(aggressorOrderID, passiveOrderID int64, price, qty float64) Event {
	return Event{
		TimestampNs:    time.Now().UnixNano(),
		Type:           EventFill,
		OrderID:        aggressorOrderID,
		Side:           "N/A",
		OrderType:      "N/A",
		TIF:            "N/A",
		CounterpartyID: passiveOrderID,
		Price:          price,
		FillQty:        qty,
	}
}

func (b *Book) logEvent(e Event) {
	if b.loggingEnabled {
		b.events = append(b.events, e)
	}
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
func fmtBool01(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// WriteEvents serializes events to w as the book's CSV event journal, header first.
func WriteEvents(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(journalHeader); err != nil {
		return err
	}
	num := func(f float64) string {
		if f == 0 {
			return "0.00"
		}
		return fmtFloat(f)
	}
	for _, e := range events {
		row := []string{
			strconv.FormatInt(e.TimestampNs, 10),
			e.Type,
			strconv.FormatInt(e.OrderID, 10),
			e.Side,
			e.OrderType,
			e.TIF,
			num(e.Price),
			num(e.Quantity),
			num(e.PeakSize),
			strconv.FormatInt(e.AccountID, 10),
			fmtBool01(e.HasNewPrice),
			fmtBool01(e.HasNewQty),
			num(e.NewPrice),
			num(e.NewQty),
			strconv.FormatInt(e.CounterpartyID, 10),
			num(e.FillQty),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadEvents parses the book's CSV event journal format from r, requiring the
// header line. Malformed rows return a *errs.ParseError with the offending
// line number.
func ReadEvents(r io.Reader) ([]Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(journalHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, &errs.ParseError{Source: "journal", Line: 1, Err: err}
	}
	if len(header) != len(journalHeader) || header[0] != "timestamp_ns" {
		return nil, &errs.ParseError{Source: "journal", Line: 1, Err: errInvalidHeader}
	}

	var events []Event
	line := 1
	for {
		line++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &errs.ParseError{Source: "journal", Line: line, Err: err}
		}
		e, err := parseEventRow(rec)
		if err != nil {
			return nil, &errs.ParseError{Source: "journal", Line: line, Err: err}
		}
		events = append(events, e)
	}
	return events, nil
}

func parseEventRow(rec []string) (Event, error) {
	var e Event
	var err error

	if e.TimestampNs, err = strconv.ParseInt(rec[0], 10, 64); err != nil {
		return e, err
	}
	e.Type = rec[1]
	if e.OrderID, err = strconv.ParseInt(rec[2], 10, 64); err != nil {
		return e, err
	}
	e.Side = rec[3]
	e.OrderType = rec[4]
	e.TIF = rec[5]
	if e.Price, err = strconv.ParseFloat(rec[6], 64); err != nil {
		return e, err
	}
	if e.Quantity, err = strconv.ParseFloat(rec[7], 64); err != nil {
		return e, err
	}
	if e.PeakSize, err = strconv.ParseFloat(rec[8], 64); err != nil {
		return e, err
	}
	if e.AccountID, err = strconv.ParseInt(rec[9], 10, 64); err != nil {
		return e, err
	}
	if e.HasNewPrice, err = parseBool01(rec[10]); err != nil {
		return e, err
	}
	if e.HasNewQty, err = parseBool01(rec[11]); err != nil {
		return e, err
	}
	if e.NewPrice, err = strconv.ParseFloat(rec[12], 64); err != nil {
		return e, err
	}
	if e.NewQty, err = strconv.ParseFloat(rec[13], 64); err != nil {
		return e, err
	}
	if e.CounterpartyID, err = strconv.ParseInt(rec[14], 10, 64); err != nil {
		return e, err
	}
	if e.FillQty, err = strconv.ParseFloat(rec[15], 64); err != nil {
		return e, err
	}
	return e, nil
}

func parseBool01(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, errInvalidBool
	}
}

// ReplayFrom re-runs NEW/CANCEL/AMEND events against the book in order.
// FILL events are skipped — they are regenerated by matching during the
// NEW events that produced them.
func (b *Book) ReplayFrom(events []Event) {
	wasLogging := b.loggingEnabled
	b.loggingEnabled = false
	defer func() { b.loggingEnabled = wasLogging }()

	for _, e := range events {
		switch e.Type {
		case EventNew:
			b.AddOrder(orderFromEvent(e))
		case EventCancel:
			b.CancelOrder(e.OrderID)
		case EventAmend:
			var newPrice, newQty *float64
			if e.HasNewPrice {
				p := e.NewPrice
				newPrice = &p
			}
			if e.HasNewQty {
				q := e.NewQty
				newQty = &q
			}
			b.AmendOrder(e.OrderID, newPrice, newQty)
		case EventFill:
			// regenerated during the corresponding NEW's matching pass.
		}
	}
}

// orderFromEvent reconstructs the order a NEW event described. The
// journal schema has no stop-order fields, so replayed orders are always
// plain limit/market orders — consistent with the schema's scope.
func orderFromEvent(e Event) *types.Order {
	o := &types.Order{
		OrderID:     e.OrderID,
		AccountID:   e.AccountID,
		Side:        sideFromString(e.Side),
		Type:        orderTypeFromString(e.OrderType),
		TIF:         tifFromString(e.TIF),
		LimitPrice:  e.Price,
		OriginalQty: e.Quantity,
	}
	o.RemainingQty = o.OriginalQty
	if e.PeakSize > 0 && e.PeakSize < o.OriginalQty {
		o.PeakSize = e.PeakSize
		o.DisplayQty = e.PeakSize
		o.HiddenQty = o.OriginalQty - e.PeakSize
	} else {
		o.DisplayQty = o.OriginalQty
	}
	return o
}

func sideFromString(s string) types.Side {
	if s == "SELL" {
		return types.Sell
	}
	return types.Buy
}

func orderTypeFromString(s string) types.OrderType {
	if s == "MARKET" {
		return types.Market
	}
	return types.Limit
}

func tifFromString(s string) types.TimeInForce {
	switch s {
	case "IOC":
		return types.IOC
	case "FOK":
		return types.FOK
	case "DAY":
		return types.DAY
	default:
		return types.GTC
	}
}

var (
	errInvalidHeader = journalError("invalid journal header")
	errInvalidBool   = journalError("invalid 0/1 field")
)

type journalError string

func (e journalError) Error() string { return string(e) }
