package spool

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxReceiptSize caps a receipt frame (1 MiB). Receipts are small; anything
// larger is a corrupt sidecar.
const MaxReceiptSize = 1 << 20

// lengthPrefixSize is the size of the frame length prefix in bytes.
const lengthPrefixSize = 4

// Receipt is the msgpack sidecar written next to each spooled record.
// It carries everything the pickup process needs to replay the export
// without consulting the outcome database.
type Receipt struct {
	SessionID     string         `msgpack:"session_identifier"`
	InstrumentPID string         `msgpack:"instrument_pid"`
	Filename      string         `msgpack:"filename"`
	SHA256        string         `msgpack:"sha256"`
	TimeRange     [2]string      `msgpack:"time_range"`
	User          *string        `msgpack:"user,omitempty"`
	SpooledAt     string         `msgpack:"spooled_at"`
	PriorAttempts []PriorAttempt `msgpack:"prior_attempts,omitempty"`
}

// PriorAttempt records what one earlier destination did in the same run.
type PriorAttempt struct {
	Destination string `msgpack:"destination"`
	Success     bool   `msgpack:"success"`
}

// EncodeReceipt writes a length-prefixed msgpack frame:
// [4-byte big-endian length][msgpack payload].
func EncodeReceipt(w io.Writer, r *Receipt) error {
	payload, err := msgpack.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	if len(payload) > MaxReceiptSize-lengthPrefixSize {
		return fmt.Errorf("receipt exceeds %d bytes", MaxReceiptSize)
	}

	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write receipt length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write receipt payload: %w", err)
	}
	return nil
}

// DecodeReceipt reads one length-prefixed msgpack frame.
func DecodeReceipt(r io.Reader) (*Receipt, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read receipt length: %w", err)
	}
	length := binary.BigEndian.Uint32(prefix[:])
	if length == 0 || length > MaxReceiptSize-lengthPrefixSize {
		return nil, errors.New("receipt frame length out of range")
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read receipt payload: %w", err)
	}

	var receipt Receipt
	if err := msgpack.Unmarshal(payload, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &receipt, nil
}
