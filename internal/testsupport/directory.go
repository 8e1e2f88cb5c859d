package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"singleapp/internal/singleton"
)

// MemoryDirectory is an in-process singleton.Directory that records how it
// was used.
type MemoryDirectory struct {
	mu             sync.Mutex
	endpoints      map[string]singleton.Endpoint
	lookups        map[string]int
	registers      map[string]int
	unregisters    map[string]int
	bringToFront   map[string]int
	remoteCloses   map[string]int
	lookupErr      error
	failBringFront bool
}

var _ singleton.Directory = (*MemoryDirectory)(nil)

// NewMemoryDirectory returns an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		endpoints:    make(map[string]singleton.Endpoint),
		lookups:      make(map[string]int),
		registers:    make(map[string]int),
		unregisters:  make(map[string]int),
		bringToFront: make(map[string]int),
		remoteCloses: make(map[string]int),
	}
}

// FailLookups makes every Lookup return err.
func (d *MemoryDirectory) FailLookups(err error) {
	d.mu.Lock()
	d.lookupErr = err
	d.mu.Unlock()
}

// FailBringToFront makes remote BringToFront calls fail.
func (d *MemoryDirectory) FailBringToFront() {
	d.mu.Lock()
	d.failBringFront = true
	d.mu.Unlock()
}

func (d *MemoryDirectory) Lookup(_ context.Context, serviceName string) (singleton.Remote, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups[serviceName]++
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	ep, ok := d.endpoints[serviceName]
	if !ok {
		return nil, nil
	}
	return &memoryRemote{Endpoint: ep, dir: d, name: serviceName}, nil
}

func (d *MemoryDirectory) Register(_ context.Context, serviceName string, ep singleton.Endpoint) (singleton.Registration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.endpoints[serviceName]; exists {
		return nil, fmt.Errorf("service %q already registered", serviceName)
	}
	d.endpoints[serviceName] = ep
	d.registers[serviceName]++
	return &memoryRegistration{dir: d, name: serviceName, ep: ep}, nil
}

// Registered reports whether serviceName currently has an endpoint.
func (d *MemoryDirectory) Registered(serviceName string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.endpoints[serviceName]
	return ok
}

// Lookups counts Lookup calls for serviceName.
func (d *MemoryDirectory) Lookups(serviceName string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups[serviceName]
}

// Registers counts Register calls for serviceName.
func (d *MemoryDirectory) Registers(serviceName string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registers[serviceName]
}

// Unregisters counts effective registration closes for serviceName.
func (d *MemoryDirectory) Unregisters(serviceName string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unregisters[serviceName]
}

// BringToFrontCalls counts BringToFront calls made through looked-up remotes.
func (d *MemoryDirectory) BringToFrontCalls(serviceName string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bringToFront[serviceName]
}

// RemoteCloses counts Close calls on looked-up remotes.
func (d *MemoryDirectory) RemoteCloses(serviceName string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remoteCloses[serviceName]
}

type memoryRegistration struct {
	dir  *MemoryDirectory
	name string
	ep   singleton.Endpoint
	once sync.Once
}

func (r *memoryRegistration) Close() error {
	r.once.Do(func() {
		r.dir.mu.Lock()
		defer r.dir.mu.Unlock()
		if r.dir.endpoints[r.name] == r.ep {
			delete(r.dir.endpoints, r.name)
		}
		r.dir.unregisters[r.name]++
	})
	return nil
}

type memoryRemote struct {
	singleton.Endpoint
	dir  *MemoryDirectory
	name string
}

var errBringToFront = errors.New("bring to front refused")

func (r *memoryRemote) BringToFront(ctx context.Context) error {
	r.dir.mu.Lock()
	r.dir.bringToFront[r.name]++
	fail := r.dir.failBringFront
	r.dir.mu.Unlock()
	if fail {
		return errBringToFront
	}
	return r.Endpoint.BringToFront(ctx)
}

func (r *memoryRemote) Close() error {
	r.dir.mu.Lock()
	r.dir.remoteCloses[r.name]++
	r.dir.mu.Unlock()
	return nil
}
