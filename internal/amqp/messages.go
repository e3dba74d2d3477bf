package amqp

import (
	"encoding/json"
	"fmt"

	"fxledger/internal/core"
)

// EncodeLedgerEvent converts the event to JSON bytes
func EncodeLedgerEvent(ev core.LedgerEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeLedgerEvent parses and sanity-checks a message body
func DecodeLedgerEvent(data []byte) (core.LedgerEvent, error) {
	var ev core.LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.LedgerEvent{}, err
	}
	switch ev.Type {
	case core.EventTransactionCreated, core.EventTransactionUpdated, core.EventTransactionDeleted:
	default:
		return core.LedgerEvent{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.TransactionID <= 0 || ev.OwnerID == "" {
		return core.LedgerEvent{}, fmt.Errorf("event %s missing transaction or owner", ev.Type)
	}
	return ev, nil
}
