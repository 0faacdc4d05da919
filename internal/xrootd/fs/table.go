package fs

import (
	"fmt"
	"os"
	"sync"
)

// ErrFileNotOpen is returned by Get/Close for a freed or never-allocated
// descriptor.
var ErrFileNotOpen = fmt.Errorf("fs: file not open")

// Table is a per-connection slab of small integer file descriptors mapped
// to owned *os.File handles (spec §4.3). It is a free-list, not a hash map:
// a vacated slot is the next candidate handed out by Add, keeping
// descriptors compact and suitable for embedding in a 32-bit xrootd file
// handle.
type Table struct {
	mu    sync.Mutex
	slots []*os.File
}

// NewTable returns an empty open-file table.
func NewTable() *Table {
	return &Table{}
}

// Add places file in the first nil slot, or appends if none is free, and
// returns the assigned descriptor. No descriptor is ever handed out twice
// without an intervening Close.
func (t *Table) Add(file *os.File) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, slot := range t.slots {
		if slot == nil {
			t.slots[i] = file
			return i
		}
	}
	t.slots = append(t.slots, file)
	return len(t.slots) - 1
}

// Get returns the file registered under fd, or ErrFileNotOpen.
func (t *Table) Get(fd int) (*os.File, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if fd < 0 || fd >= len(t.slots) || t.slots[fd] == nil {
		return nil, ErrFileNotOpen
	}
	return t.slots[fd], nil
}

// Close releases the file at fd and nils its slot, making it the next slot
// Add will reuse. Returns ErrFileNotOpen if fd was not open.
func (t *Table) Close(fd int) error {
	t.mu.Lock()
	file, err := func() (*os.File, error) {
		if fd < 0 || fd >= len(t.slots) || t.slots[fd] == nil {
			return nil, ErrFileNotOpen
		}
		f := t.slots[fd]
		t.slots[fd] = nil
		return f, nil
	}()
	t.mu.Unlock()

	if err != nil {
		return err
	}
	return file.Close()
}

// CloseAll releases every still-open file in the table. Used when a
// connection terminates (spec §5 cancellation: "open files owned by that
// connection are closed").
func (t *Table) CloseAll() {
	t.mu.Lock()
	slots := t.slots
	t.slots = nil
	t.mu.Unlock()

	for _, f := range slots {
		if f != nil {
			_ = f.Close()
		}
	}
}

// Len reports the capacity of the table (number of slots ever allocated,
// including freed ones). Returned fds always satisfy 0 <= fd < Len().
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
