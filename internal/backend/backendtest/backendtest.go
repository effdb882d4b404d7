// Package backendtest provides in-memory backends for exercising the sync
// engine without a real secret store.
package backendtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/PolarWolf314/dotvault/internal/backend"
	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
)

// Op names a backend operation for failure injection and call counting.
type Op string

const (
	OpExists Op = "exists"
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpList   Op = "list"
	OpDelete Op = "delete"
)

// Memory is a map-backed Backend. The zero value is not usable; call NewMemory.
type Memory struct {
	mu       sync.Mutex
	items    map[string][]byte
	failures map[string]error
	calls    map[Op]int

	// BeforeWrite runs just before a write lands, outside the lock. Tests
	// use it to mutate the store between planning and execution.
	BeforeWrite func(name string)
}

var _ backend.Backend = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		items:    make(map[string][]byte),
		failures: make(map[string]error),
		calls:    make(map[Op]int),
	}
}

func key(name string, loc backend.Location) string {
	return string(loc) + "\x00" + name
}

func failKey(op Op, name string) string {
	return string(op) + "\x00" + name
}

func (m *Memory) Name() string { return "memory" }

// Put seeds content without counting as a call.
func (m *Memory) Put(name string, loc backend.Location, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key(name, loc)] = append([]byte(nil), content...)
}

// Get returns stored content without counting as a call.
func (m *Memory) Get(name string, loc backend.Location) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[key(name, loc)]
	return append([]byte(nil), c...), ok
}

// Fail makes op on name return err until cleared with a nil err. An empty
// name matches every item.
func (m *Memory) Fail(op Op, name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, failKey(op, name))
		return
	}
	m.failures[failKey(op, name)] = err
}

// Calls reports how many times op was invoked.
func (m *Memory) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) enter(ctx context.Context, op Op, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := m.failures[failKey(op, name)]; ok {
		return err
	}
	if err, ok := m.failures[failKey(op, "")]; ok {
		return err
	}
	return nil
}

func (m *Memory) Exists(ctx context.Context, name string, loc backend.Location) (bool, error) {
	if err := m.enter(ctx, OpExists, name); err != nil {
		return false, err
	}
	_, ok := m.Get(name, loc)
	return ok, nil
}

func (m *Memory) Read(ctx context.Context, name string, loc backend.Location) ([]byte, error) {
	if err := m.enter(ctx, OpRead, name); err != nil {
		return nil, err
	}
	c, ok := m.Get(name, loc)
	if !ok {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrNotFound, name)
	}
	return c, nil
}

func (m *Memory) Write(ctx context.Context, name string, loc backend.Location, content []byte) error {
	if err := m.enter(ctx, OpWrite, name); err != nil {
		return err
	}
	if m.BeforeWrite != nil {
		m.BeforeWrite(name)
	}
	m.Put(name, loc, content)
	return nil
}

func (m *Memory) List(ctx context.Context, loc backend.Location) ([]string, error) {
	if err := m.enter(ctx, OpList, ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := string(loc) + "\x00"
	names := []string{}
	for k := range m.items {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			names = append(names, k[len(prefix):])
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Delete(ctx context.Context, name string, loc backend.Location) error {
	if err := m.enter(ctx, OpDelete, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(name, loc)
	if _, ok := m.items[k]; !ok {
		return fmt.Errorf("%w: %s", kerrors.ErrNotFound, name)
	}
	delete(m.items, k)
	return nil
}

// Unreachable fails the test on any call. It proves a code path never
// touches the remote store.
type Unreachable struct {
	T interface {
		Helper()
		Errorf(format string, args ...any)
	}
}

var _ backend.Backend = Unreachable{}

func (u Unreachable) fail(op Op) error {
	u.T.Helper()
	u.T.Errorf("unexpected backend call: %s", op)
	return fmt.Errorf("%w: unexpected %s", kerrors.ErrBackendUnavailable, op)
}

func (u Unreachable) Name() string { return "unreachable" }

func (u Unreachable) Exists(context.Context, string, backend.Location) (bool, error) {
	return false, u.fail(OpExists)
}

func (u Unreachable) Read(context.Context, string, backend.Location) ([]byte, error) {
	return nil, u.fail(OpRead)
}

func (u Unreachable) Write(context.Context, string, backend.Location, []byte) error {
	return u.fail(OpWrite)
}

func (u Unreachable) List(context.Context, backend.Location) ([]string, error) {
	return nil, u.fail(OpList)
}

func (u Unreachable) Delete(context.Context, string, backend.Location) error {
	return u.fail(OpDelete)
}
