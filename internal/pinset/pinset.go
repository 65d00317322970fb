// Package pinset maps the named logical lines of the control panel onto the
// GPIO expander. All pin access goes through a PinSet by name; unknown names
// and direction misuse fail immediately rather than defaulting.
package pinset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vst-systems/gm-controller/internal/hwio"
)

// Pin is one logical line: a name bound to a physical line index and a fixed
// direction. Output pins carry the last level driven onto them.
type Pin struct {
	Name      string
	Line      int
	Direction hwio.Direction

	level bool
}

type PinSet struct {
	mu     sync.Mutex
	driver hwio.LineDriver
	pins   map[string]*Pin
}

// New builds a PinSet over driver. Pin names must be unique.
func New(driver hwio.LineDriver, pins []Pin) (*PinSet, error) {
	set := &PinSet{
		driver: driver,
		pins:   make(map[string]*Pin, len(pins)),
	}
	for i := range pins {
		p := pins[i]
		if _, exists := set.pins[p.Name]; exists {
			return nil, fmt.Errorf("duplicate pin name %q", p.Name)
		}
		set.pins[p.Name] = &p
	}
	return set, nil
}

// SetupDirections configures every pin's direction on the hardware.
func (s *PinSet) SetupDirections() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.sortedNames() {
		p := s.pins[name]
		if err := s.driver.SetDirection(p.Line, p.Direction); err != nil {
			return fmt.Errorf("configure pin %q: %w", p.Name, err)
		}
	}
	return nil
}

// Write drives level onto a named output pin and records it as the pin's live
// level. Writing an input pin or an unknown name is a programming error.
func (s *PinSet) Write(name string, level bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.lookup(name)
	if err != nil {
		return err
	}
	if p.Direction != hwio.Output {
		return fmt.Errorf("pin %q is not an output", name)
	}
	if err := s.driver.WriteLine(p.Line, level); err != nil {
		return fmt.Errorf("write pin %q: %w", name, err)
	}
	p.level = level
	return nil
}

// Read returns the state of a named pin. Inputs are read from the hardware;
// outputs report the cached live level from the last Write.
func (s *PinSet) Read(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.lookup(name)
	if err != nil {
		return false, err
	}
	if p.Direction == hwio.Output {
		return p.level, nil
	}
	level, err := s.driver.ReadLine(p.Line)
	if err != nil {
		return false, fmt.Errorf("read pin %q: %w", name, err)
	}
	return level, nil
}

// Outputs returns the names of all output pins in a stable order.
func (s *PinSet) Outputs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, name := range s.sortedNames() {
		if s.pins[name].Direction == hwio.Output {
			names = append(names, name)
		}
	}
	return names
}

func (s *PinSet) lookup(name string) (*Pin, error) {
	p, ok := s.pins[name]
	if !ok {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	return p, nil
}

func (s *PinSet) sortedNames() []string {
	names := make([]string, 0, len(s.pins))
	for name := range s.pins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
