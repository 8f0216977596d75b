// Package host declares the contracts the LSET engine consumes from its
// surrounding database runtime. The engine never touches a disk, a
// socket, or a lock directly; every durable effect goes through one of
// these two interfaces, the same separation a higher-level index keeps
// from the on-disk format of the value store sitting behind it.
package host

import (
	"context"
	"time"

	"github.com/rpcpool/lset/ldt"
)

// TopRecord is the user's primary database record that holds the LSET bin
// plus any hidden bins the TopRecord layout needs.
type TopRecord interface {
	// Exists reports whether the record is present at all.
	Exists(ctx context.Context) (bool, error)

	// GetBin returns the raw descriptor stored in name, and whether it was
	// present. The returned value is exactly what was last put with
	// PutBin — this package does no encoding of its own.
	GetBin(ctx context.Context, name string) (any, bool, error)

	// PutBin writes the descriptor (or a hidden bucket list) into bin name.
	// hidden mirrors the RESTRICTED|HIDDEN|CONTROL bin flags: true for
	// every LSetBin_* bucket and the LDT control bin, false for the user's
	// named LDT bin itself.
	PutBin(ctx context.Context, name string, value any, hidden bool) error

	// DeleteBin removes a bin entirely (used by destroy and by TopRecord
	// layout bucket teardown).
	DeleteBin(ctx context.Context, name string) error

	// Update commits all bin writes made during the call as one atomic
	// write set: the engine performs all sub-record opens before the
	// final commit so the host observes one atomic write set.
	Update(ctx context.Context) error

	// Remove deletes the entire top record (used by destroy cascades in
	// hosts that require it; this engine only calls it indirectly through
	// RemoveESR today but the contract is part of the host interface).
	Remove(ctx context.Context) error

	// Digest returns the host-generated content identifier of this record.
	Digest(ctx context.Context) (ldt.Digest, error)

	// SetLDTFlag marks the named bin as belonging to an LDT; the bin
	// must be marked as an LDT bin on every mutation.
	SetLDTFlag(ctx context.Context, name string) error
}

// SubRecordHost creates, opens, and destroys the child records a SubRecord
// layout LSET overflows into, plus the Existence Sub-Record (ESR) that ties
// their lifetime to the parent.
type SubRecordHost interface {
	// CreateSubRec allocates a new child record, attaches it to parent, and
	// returns a handle plus the digest the host assigned it.
	CreateSubRec(ctx context.Context, parent TopRecord) (SubRecord, ldt.Digest, error)

	// OpenSubRec opens an existing child record by digest.
	OpenSubRec(ctx context.Context, parent TopRecord, digest ldt.Digest) (SubRecord, error)

	// UpdateSubRec persists changes made to an open sub-record.
	UpdateSubRec(ctx context.Context, rec SubRecord) error

	// CloseSubRec releases a handle without necessarily persisting it; the
	// caller is expected to have called UpdateSubRec first for any record
	// it intends to keep.
	CloseSubRec(ctx context.Context, rec SubRecord) error

	// RemoveSubRec destroys a child record outright.
	RemoveSubRec(ctx context.Context, rec SubRecord) error

	// CreateESR lazily creates the Existence Sub-Record on first use
	// and returns its digest.
	CreateESR(ctx context.Context, parent TopRecord) (ldt.Digest, error)

	// AttachToESR records that a sub-record's lifetime is tied to esr, so
	// that RemoveESR cascades to it: destroying the ESR cascades removal
	// of every sub-record attached to it.
	AttachToESR(ctx context.Context, esr, digest ldt.Digest) error

	// RemoveESR removes the ESR; the host cascades removal of every
	// sub-record attached to it.
	RemoveESR(ctx context.Context, parent TopRecord, esr ldt.Digest) error
}

// SubRecord is a child record carrying one overflow segment of the set plus
// its own property map.
type SubRecord interface {
	// Digest returns this sub-record's own content identifier.
	Digest(ctx context.Context) (ldt.Digest, error)

	// GetList returns the current LdrListBin contents.
	GetList(ctx context.Context) ([]ldt.Value, error)

	// PutList replaces LdrListBin and marks the record dirty for the next
	// UpdateSubRec call.
	PutList(ctx context.Context, list []ldt.Value) error

	// PropertyMap returns this sub-record's property map (ParentDigest,
	// EsrDigest, RecType=SubRec, etc.).
	PropertyMap(ctx context.Context) (ldt.PropertyMap, error)

	// SetPropertyMap overwrites the sub-record's property map, used once at
	// creation time to populate it.
	SetPropertyMap(ctx context.Context, p ldt.PropertyMap) error
}

// Clock returns the current time. A
// field rather than a free function so tests can hold it fixed.
type Clock func() time.Time

// SystemClock is the production Clock, backed by time.Now.
func SystemClock() time.Time { return time.Now() }
