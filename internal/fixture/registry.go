package fixture

import (
	"fmt"
	"sort"
	"sync"
)

// MaxFixtures is bounded by the 255 byte payload of the supply frame.
const MaxFixtures = 255 / ChannelsPerFixture

// Registry is the live set of fixtures. Each fixture owns the address range
// [Address, Address+2]; ranges never overlap.
type Registry struct {
	channels int

	mu       sync.RWMutex
	fixtures map[int]*Fixture
}

func NewRegistry(maxFixtures int) (*Registry, error) {
	if maxFixtures <= 0 || maxFixtures > MaxFixtures {
		return nil, fmt.Errorf("%w: max fixtures must be in [1,%d], got %d", ErrInvalidCapacity, MaxFixtures, maxFixtures)
	}
	return &Registry{
		channels: maxFixtures * ChannelsPerFixture,
		fixtures: make(map[int]*Fixture),
	}, nil
}

// Channels is the length of the channel buffer the registry addresses.
func (r *Registry) Channels() int {
	return r.channels
}

func (r *Registry) Add(f *Fixture) error {
	return r.AddAll(f)
}

// AddAll registers every fixture or none of them: the first out of range or
// conflicting entry fails the call and the registry is left unchanged.
func (r *Registry) AddAll(fixtures ...*Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make(map[int]*Fixture, len(fixtures))
	for _, f := range fixtures {
		if err := r.checkLocked(f, pending); err != nil {
			return err
		}
		pending[f.Address()] = f
	}
	for addr, f := range pending {
		r.fixtures[addr] = f
	}
	return nil
}

func (r *Registry) checkLocked(f *Fixture, pending map[int]*Fixture) error {
	if f == nil {
		return fmt.Errorf("%w: nil fixture", ErrInvalidAddress)
	}
	if f.Address()+ChannelsPerFixture > r.channels {
		return fmt.Errorf("%w: address %d does not fit in %d channels", ErrInvalidAddress, f.Address(), r.channels)
	}
	for _, owners := range []map[int]*Fixture{r.fixtures, pending} {
		if existing, ok := owners[f.Address()]; ok && existing != f {
			return fmt.Errorf("%w: %d", ErrAddressConflict, f.Address())
		}
	}
	return nil
}

func (r *Registry) Remove(f *Fixture) error {
	if f == nil {
		return fmt.Errorf("%w: nil fixture", ErrNotRegistered)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.fixtures[f.Address()]; !ok || existing != f {
		return fmt.Errorf("%w: %s", ErrNotRegistered, f)
	}
	delete(r.fixtures, f.Address())
	return nil
}

// Lookup returns the fixture owning address, if any.
func (r *Registry) Lookup(address int) (*Fixture, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base := address - address%ChannelsPerFixture
	f, ok := r.fixtures[base]
	return f, ok
}

// All returns a snapshot ordered by address. Later Add or Remove calls do not
// affect a snapshot already taken.
func (r *Registry) All() []*Fixture {
	r.mu.RLock()
	all := make([]*Fixture, 0, len(r.fixtures))
	for _, f := range r.fixtures {
		all = append(all, f)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Address() < all[j].Address() })
	return all
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fixtures)
}
