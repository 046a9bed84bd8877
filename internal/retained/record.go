package retained

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/oshokin/sleepwake/pkg/alarm"
)

// ErrNoRecord is returned when the retained region holds no valid record:
// never written, cleared, or corrupted. Resets other than a deep-sleep wake
// leave arbitrary bytes behind, so every validation failure maps here.
var ErrNoRecord = errors.New("no retained wake record")

// Layout constants for record version 1. All multi-byte fields are
// little-endian; the checksum is CRC32 (IEEE) over the bytes before it.
const (
	// Size is the encoded record length in bytes.
	Size = 28

	// MaxKinds bounds the armed-kind list, one entry per wake source.
	MaxKinds = 4
	// MaxPins bounds the pin payload; deep sleep holds at most two pin alarms.
	MaxPins = 2
	// MaxTouch bounds the touch payload; the record holds a single pad.
	MaxTouch = 1

	// Version is the current layout version.
	Version = 1

	magic0 = 'W'
	magic1 = 'K'

	offMagic     = 0
	offVersion   = 2
	offKindCount = 3
	offKinds     = 4
	offDeadline  = 8
	offPinCount  = 16
	offPins      = 17
	offTouchPad  = 21
	offThreshold = 22
	offChecksum  = 24

	flagPinHigh = 1 << 0
	flagPinEdge = 1 << 1
	flagPinPull = 1 << 2
)

// Record is the wake state that crosses the deep-sleep reset.
type Record struct {
	// Kinds lists the armed wake sources in declaration order.
	Kinds []alarm.Kind
	// TimerDeadline is the armed timer deadline; zero when no timer was armed.
	TimerDeadline time.Time
	// Pins holds the pin alarm payloads in declaration order.
	Pins []Pin
	// TouchPad is the armed touch pad number.
	TouchPad uint8
	// TouchThreshold is the armed touch threshold; zero when no pad was armed.
	TouchThreshold uint16
}

// Pin is one pin alarm's reconstruction payload.
type Pin struct {
	// Number is the board pin number.
	Number uint8
	// High marks a high trigger level.
	High bool
	// Edge marks transition triggering.
	Edge bool
	// Pull marks the internal pull resistor as enabled.
	Pull bool
}

// FromAlarms captures everything needed to rebuild the triggering descriptor
// after the reset: the armed kinds in declaration order plus each source's
// payload. The set must already satisfy the deep-sleep limits.
func FromAlarms(alarms []alarm.Descriptor) (*Record, error) {
	rec := new(Record)

	for _, descriptor := range alarms {
		kind := descriptor.Kind()
		if !containsKind(rec.Kinds, kind) {
			rec.Kinds = append(rec.Kinds, kind)
		}

		switch v := descriptor.(type) {
		case alarm.TimeAlarm:
			rec.TimerDeadline = v.WakeAt
		case alarm.PinAlarm:
			if len(rec.Pins) == MaxPins {
				return nil, fmt.Errorf("more than %d pin alarms", MaxPins)
			}

			rec.Pins = append(rec.Pins, Pin{
				Number: v.Pin,
				High:   v.Value == alarm.High,
				Edge:   v.Edge,
				Pull:   v.Pull,
			})
		case alarm.TouchAlarm:
			if rec.TouchThreshold != 0 {
				return nil, fmt.Errorf("more than %d touch alarm", MaxTouch)
			}

			rec.TouchPad = v.Pin
			rec.TouchThreshold = v.Threshold
		case alarm.CoprocAlarm:
			// Presence in Kinds is the entire payload.
		default:
			return nil, fmt.Errorf("cannot persist %T", descriptor)
		}
	}

	if len(rec.Kinds) == 0 {
		return nil, errors.New("no alarms to persist")
	}

	return rec, nil
}

// TimeDescriptor rebuilds the timer alarm from the recorded deadline.
func (r *Record) TimeDescriptor() alarm.TimeAlarm {
	return alarm.TimeAlarm{WakeAt: r.TimerDeadline}
}

// TouchDescriptor rebuilds the touch alarm from the recorded pad and threshold.
func (r *Record) TouchDescriptor() alarm.TouchAlarm {
	return alarm.TouchAlarm{Pin: r.TouchPad, Threshold: r.TouchThreshold}
}

// Descriptor rebuilds the pin alarm from one pin entry.
func (p Pin) Descriptor() alarm.PinAlarm {
	value := alarm.Low
	if p.High {
		value = alarm.High
	}

	return alarm.PinAlarm{Pin: p.Number, Value: value, Edge: p.Edge, Pull: p.Pull}
}

// Encode serializes the record into its fixed layout.
func (r *Record) Encode() ([]byte, error) {
	if len(r.Kinds) == 0 || len(r.Kinds) > MaxKinds {
		return nil, fmt.Errorf("armed kind count %d out of range [1,%d]", len(r.Kinds), MaxKinds)
	}

	if len(r.Pins) > MaxPins {
		return nil, fmt.Errorf("pin entry count %d exceeds %d", len(r.Pins), MaxPins)
	}

	for i, kind := range r.Kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("cannot persist kind %s", kind)
		}

		if containsKind(r.Kinds[:i], kind) {
			return nil, fmt.Errorf("kind %s listed twice", kind)
		}
	}

	buf := make([]byte, Size)
	buf[offMagic] = magic0
	buf[offMagic+1] = magic1
	buf[offVersion] = Version

	buf[offKindCount] = byte(len(r.Kinds))
	for i, kind := range r.Kinds {
		buf[offKinds+i] = byte(kind)
	}

	// The zero time encodes as literal zero, not its huge negative UnixNano.
	var nanos int64
	if !r.TimerDeadline.IsZero() {
		nanos = r.TimerDeadline.UnixNano()
	}

	binary.LittleEndian.PutUint64(buf[offDeadline:], uint64(nanos))

	buf[offPinCount] = byte(len(r.Pins))
	for i, pin := range r.Pins {
		base := offPins + i*2
		buf[base] = pin.Number

		var flags byte
		if pin.High {
			flags |= flagPinHigh
		}

		if pin.Edge {
			flags |= flagPinEdge
		}

		if pin.Pull {
			flags |= flagPinPull
		}

		buf[base+1] = flags
	}

	buf[offTouchPad] = r.TouchPad
	binary.LittleEndian.PutUint16(buf[offThreshold:], r.TouchThreshold)
	binary.LittleEndian.PutUint32(buf[offChecksum:], crc32.ChecksumIEEE(buf[:offChecksum]))

	return buf, nil
}

// Decode parses a record from the start of data. Any validation failure,
// including bytes that were never a record, returns ErrNoRecord.
func Decode(data []byte) (*Record, error) {
	if len(data) < Size {
		return nil, fmt.Errorf("region holds %d bytes, record needs %d: %w", len(data), Size, ErrNoRecord)
	}

	if data[offMagic] != magic0 || data[offMagic+1] != magic1 {
		return nil, fmt.Errorf("magic mismatch: %w", ErrNoRecord)
	}

	if data[offVersion] != Version {
		return nil, fmt.Errorf("layout version %d: %w", data[offVersion], ErrNoRecord)
	}

	sum := binary.LittleEndian.Uint32(data[offChecksum:])
	if sum != crc32.ChecksumIEEE(data[:offChecksum]) {
		return nil, fmt.Errorf("checksum mismatch: %w", ErrNoRecord)
	}

	kindCount := int(data[offKindCount])
	if kindCount == 0 || kindCount > MaxKinds {
		return nil, fmt.Errorf("armed kind count %d: %w", kindCount, ErrNoRecord)
	}

	rec := &Record{Kinds: make([]alarm.Kind, 0, kindCount)}

	for i := 0; i < kindCount; i++ {
		kind := alarm.Kind(data[offKinds+i])
		if !kind.Valid() {
			return nil, fmt.Errorf("kind byte %d: %w", data[offKinds+i], ErrNoRecord)
		}

		rec.Kinds = append(rec.Kinds, kind)
	}

	if nanos := int64(binary.LittleEndian.Uint64(data[offDeadline:])); nanos != 0 {
		rec.TimerDeadline = time.Unix(0, nanos)
	}

	pinCount := int(data[offPinCount])
	if pinCount > MaxPins {
		return nil, fmt.Errorf("pin entry count %d: %w", pinCount, ErrNoRecord)
	}

	for i := 0; i < pinCount; i++ {
		base := offPins + i*2
		flags := data[base+1]

		rec.Pins = append(rec.Pins, Pin{
			Number: data[base],
			High:   flags&flagPinHigh != 0,
			Edge:   flags&flagPinEdge != 0,
			Pull:   flags&flagPinPull != 0,
		})
	}

	rec.TouchPad = data[offTouchPad]
	rec.TouchThreshold = binary.LittleEndian.Uint16(data[offThreshold:])

	return rec, nil
}

func containsKind(kinds []alarm.Kind, kind alarm.Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}

	return false
}
