// Package memhost is an in-memory reference implementation of the host
// contracts in package host: a test double good enough to exercise every
// code path in the engine, with none of a real database runtime's
// durability or concurrency machinery.
package memhost

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/rpcpool/lset/host"
	"github.com/rpcpool/lset/ldt"
)

func newDigest() ldt.Digest {
	id := uuid.NewString()
	sum := xxhash.Sum64String(id)
	return ldt.Digest(fmt.Sprintf("%016x", sum))
}

// Record is the storage behind a TopRecord: a bag of named bins plus a
// hidden flag and an LDT flag per bin (user bin, hidden LSetBin_* bins).
type Record struct {
	mu     sync.RWMutex
	exists bool
	bins   map[string]any
	hidden map[string]bool
	ldt    map[string]bool
}

func newRecord() *Record {
	return &Record{
		bins:   make(map[string]any),
		hidden: make(map[string]bool),
		ldt:    make(map[string]bool),
	}
}

// TopRecord is a memhost.Record addressed as a host.TopRecord.
type TopRecord struct {
	rec    *Record
	digest ldt.Digest
}

// NewTopRecord returns a fresh, not-yet-existing top record. The record
// comes into existence on the first Update call, the same way a real
// database record is only durable after commit.
func NewTopRecord() *TopRecord {
	return &TopRecord{rec: newRecord(), digest: newDigest()}
}

func (t *TopRecord) Exists(ctx context.Context) (bool, error) {
	t.rec.mu.RLock()
	defer t.rec.mu.RUnlock()
	return t.rec.exists, nil
}

func (t *TopRecord) GetBin(ctx context.Context, name string) (any, bool, error) {
	t.rec.mu.RLock()
	defer t.rec.mu.RUnlock()
	if !t.rec.exists {
		return nil, false, nil
	}
	v, ok := t.rec.bins[name]
	return v, ok, nil
}

func (t *TopRecord) PutBin(ctx context.Context, name string, value any, hidden bool) error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.bins[name] = value
	t.rec.hidden[name] = hidden
	return nil
}

func (t *TopRecord) DeleteBin(ctx context.Context, name string) error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	delete(t.rec.bins, name)
	delete(t.rec.hidden, name)
	delete(t.rec.ldt, name)
	return nil
}

func (t *TopRecord) Update(ctx context.Context) error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.exists = true
	return nil
}

func (t *TopRecord) Remove(ctx context.Context) error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.exists = false
	t.rec.bins = make(map[string]any)
	t.rec.hidden = make(map[string]bool)
	t.rec.ldt = make(map[string]bool)
	return nil
}

func (t *TopRecord) Digest(ctx context.Context) (ldt.Digest, error) {
	return t.digest, nil
}

func (t *TopRecord) SetLDTFlag(ctx context.Context, name string) error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.ldt[name] = true
	return nil
}

// IsHidden reports whether bin name currently carries the hidden flag;
// exposed for tests verifying that hidden bins re-assert the hidden flag
// on every write.
func (t *TopRecord) IsHidden(name string) bool {
	t.rec.mu.RLock()
	defer t.rec.mu.RUnlock()
	return t.rec.hidden[name]
}

// IsLDTBin reports whether name was flagged as an LDT bin.
func (t *TopRecord) IsLDTBin(name string) bool {
	t.rec.mu.RLock()
	defer t.rec.mu.RUnlock()
	return t.rec.ldt[name]
}

// SubRecord is an in-memory host.SubRecord, holding its own digest, a
// property map and the LdrListBin segment.
type SubRecord struct {
	mu       sync.RWMutex
	digest   ldt.Digest
	property ldt.PropertyMap
	list     []ldt.Value
}

func (s *SubRecord) Digest(ctx context.Context) (ldt.Digest, error) {
	return s.digest, nil
}

func (s *SubRecord) GetList(ctx context.Context) ([]ldt.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ldt.Value, len(s.list))
	copy(out, s.list)
	return out, nil
}

func (s *SubRecord) PutList(ctx context.Context, list []ldt.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = list
	return nil
}

func (s *SubRecord) PropertyMap(ctx context.Context) (ldt.PropertyMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.property, nil
}

func (s *SubRecord) SetPropertyMap(ctx context.Context, p ldt.PropertyMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.property = p
	return nil
}

// Host is an in-memory host.SubRecordHost: every sub-record and ESR lives
// in a plain map keyed by digest, with no file, no network, and no
// independent lifetime beyond this process: no resource crosses call
// boundaries except through the returned descriptor.
type Host struct {
	mu      sync.Mutex
	subrecs map[ldt.Digest]*SubRecord
	esrs    map[ldt.Digest][]ldt.Digest // esr digest -> member sub-record digests
}

// NewHost returns an empty Host.
func NewHost() *Host {
	return &Host{
		subrecs: make(map[ldt.Digest]*SubRecord),
		esrs:    make(map[ldt.Digest][]ldt.Digest),
	}
}

func (h *Host) CreateSubRec(ctx context.Context, parent host.TopRecord) (host.SubRecord, ldt.Digest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d := newDigest()
	sr := &SubRecord{digest: d}
	h.subrecs[d] = sr
	return sr, d, nil
}

func (h *Host) OpenSubRec(ctx context.Context, parent host.TopRecord, digest ldt.Digest) (host.SubRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sr, ok := h.subrecs[digest]
	if !ok {
		return nil, fmt.Errorf("%w: no such sub-record", ldt.ErrSubRecOpen)
	}
	return sr, nil
}

func (h *Host) UpdateSubRec(ctx context.Context, rec host.SubRecord) error {
	// The in-memory record is already live; nothing to flush.
	return nil
}

func (h *Host) CloseSubRec(ctx context.Context, rec host.SubRecord) error {
	return nil
}

func (h *Host) RemoveSubRec(ctx context.Context, rec host.SubRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, err := rec.Digest(ctx)
	if err != nil {
		return err
	}
	delete(h.subrecs, d)
	return nil
}

func (h *Host) CreateESR(ctx context.Context, parent host.TopRecord) (ldt.Digest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d := newDigest()
	h.esrs[d] = nil
	return d, nil
}

func (h *Host) RemoveESR(ctx context.Context, parent host.TopRecord, esr ldt.Digest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.esrs[esr]
	for _, d := range members {
		delete(h.subrecs, d)
	}
	delete(h.esrs, esr)
	return nil
}

func (h *Host) AttachToESR(ctx context.Context, esr, digest ldt.Digest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.esrs[esr] = append(h.esrs[esr], digest)
	return nil
}

var _ host.SubRecordHost = (*Host)(nil)
var _ host.TopRecord = (*TopRecord)(nil)

// Now returns the current time; memhost's Clock implementation.
func Now() time.Time { return time.Now() }
