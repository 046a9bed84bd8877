package retained

import (
	"fmt"

	"github.com/oshokin/sleepwake/pkg/hal"
)

// Store reads and writes the wake record at the start of a retained region.
type Store struct {
	mem hal.RetainedMemory
}

// NewStore wraps the region, checking it can hold one record.
func NewStore(mem hal.RetainedMemory) (*Store, error) {
	if size := mem.RetainedSize(); size < Size {
		return nil, fmt.Errorf("retained region holds %d bytes, record needs %d", size, Size)
	}

	return &Store{mem: mem}, nil
}

// Save encodes rec and writes it at offset zero.
func (s *Store) Save(rec *Record) error {
	data, err := rec.Encode()
	if err != nil {
		return fmt.Errorf("encode wake record: %w", err)
	}

	if err = s.mem.WriteRetained(0, data); err != nil {
		return fmt.Errorf("write retained region: %w", err)
	}

	return nil
}

// Load decodes the record at offset zero. It returns ErrNoRecord when the
// region holds no valid record.
func (s *Store) Load() (*Record, error) {
	data := make([]byte, Size)
	if err := s.mem.ReadRetained(0, data); err != nil {
		return nil, fmt.Errorf("read retained region: %w", err)
	}

	return Decode(data)
}

// Clear zeroes the record area.
func (s *Store) Clear() error {
	if err := s.mem.WriteRetained(0, make([]byte, Size)); err != nil {
		return fmt.Errorf("clear retained region: %w", err)
	}

	return nil
}
