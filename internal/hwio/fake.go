package hwio

import (
	"fmt"
	"sync"
)

// FakeLineDriver is an in-memory LineDriver for tests and safe mode. It keeps
// levels and directions in maps and records every write in order.
type FakeLineDriver struct {
	mu         sync.Mutex
	levels     map[int]bool
	directions map[int]Direction
	writes     []FakeWrite

	// WriteErr and ReadErr, when set, are returned by the next matching call.
	WriteErr error
	ReadErr  error
}

type FakeWrite struct {
	Line  int
	Level bool
}

func NewFakeLineDriver() *FakeLineDriver {
	return &FakeLineDriver{
		levels:     make(map[int]bool),
		directions: make(map[int]Direction),
	}
}

func (f *FakeLineDriver) SetDirection(line int, dir Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directions[line] = dir
	return nil
}

func (f *FakeLineDriver) WriteLine(line int, level bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		err := f.WriteErr
		f.WriteErr = nil
		return err
	}
	f.levels[line] = level
	f.writes = append(f.writes, FakeWrite{Line: line, Level: level})
	return nil
}

// Writes returns a copy of the ordered (line, level) write log. Safe to call
// while a worker goroutine is still writing.
func (f *FakeLineDriver) Writes() []FakeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeWrite(nil), f.writes...)
}

func (f *FakeLineDriver) ReadLine(line int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		err := f.ReadErr
		f.ReadErr = nil
		return false, err
	}
	return f.levels[line], nil
}

func (f *FakeLineDriver) Close() error { return nil }

// SetLevel forces a line level, e.g. to script an input pin.
func (f *FakeLineDriver) SetLevel(line int, level bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels[line] = level
}

// Level reports the current level of a line.
func (f *FakeLineDriver) Level(line int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[line]
}

// Direction reports the configured direction of a line.
func (f *FakeLineDriver) Direction(line int) (Direction, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir, ok := f.directions[line]
	return dir, ok
}

// FakeADC returns scripted raw counts. When samples run out the last one
// repeats, matching a steady transducer.
type FakeADC struct {
	mu      sync.Mutex
	Samples []int
	index   int

	// ReadErr, when set, is returned by every ReadChannel call.
	ReadErr error
}

func NewFakeADC(samples ...int) *FakeADC {
	return &FakeADC{Samples: samples}
}

func (f *FakeADC) ReadChannel() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return 0, f.ReadErr
	}
	if len(f.Samples) == 0 {
		return 0, fmt.Errorf("fake adc: no samples configured")
	}
	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

func (f *FakeADC) Close() error { return nil }
