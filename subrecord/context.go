// Package subrecord implements the SubRecord persistence layout: the
// hash-cell state machine, sub-record lifecycle, and the compact-list phase
// shared with it. It is a Go-idiomatic rendering of a content-addressed
// bucket/overflow design, adapted to values that live inside a
// host-managed record instead of a byte-offset file.
package subrecord

import (
	"context"

	"github.com/rpcpool/lset/host"
	"github.com/rpcpool/lset/ldt"
)

// Context is the scoped sub-record resource tracker: it owns a
// digest-to-open-handle map, batches open/dirty-mark/close, and guarantees
// every handle it opened is released exactly once, even on an error path.
// A caller creates one per top-level API call and never lets it outlive
// that call; nothing here is cached across top-level calls.
type Context struct {
	host   host.SubRecordHost
	parent host.TopRecord

	open  map[ldt.Digest]host.SubRecord
	dirty map[ldt.Digest]bool
}

// NewContext creates an empty Context bound to one parent record. Routines
// that may touch sub-records accept an optional *Context; a nil one is
// lazily created per call.
func NewContext(h host.SubRecordHost, parent host.TopRecord) *Context {
	return &Context{
		host:   h,
		parent: parent,
		open:   make(map[ldt.Digest]host.SubRecord),
		dirty:  make(map[ldt.Digest]bool),
	}
}

// Open returns the handle for digest, opening it through the host on first
// use and caching it for the remainder of this call.
func (c *Context) Open(ctx context.Context, digest ldt.Digest) (host.SubRecord, error) {
	if sr, ok := c.open[digest]; ok {
		return sr, nil
	}
	sr, err := c.host.OpenSubRec(ctx, c.parent, digest)
	if err != nil {
		return nil, err
	}
	c.open[digest] = sr
	return sr, nil
}

// Track registers a handle the caller already obtained (e.g. from
// CreateSubRec) so Release knows about it too.
func (c *Context) Track(digest ldt.Digest, sr host.SubRecord) {
	c.open[digest] = sr
}

// MarkDirty flags digest's handle as needing UpdateSubRec on Release.
func (c *Context) MarkDirty(digest ldt.Digest) {
	c.dirty[digest] = true
}

// Release flushes every dirty handle and closes all open handles. It is
// safe to call more than once; the second call is a no-op. Callers should
// `defer sctx.Release(ctx)` immediately after creating a Context so that
// every exit path, including an early return on error, releases what was
// opened.
func (c *Context) Release(ctx context.Context) error {
	var firstErr error
	for digest, sr := range c.open {
		if c.dirty[digest] {
			if err := c.host.UpdateSubRec(ctx, sr); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := c.host.CloseSubRec(ctx, sr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.open = make(map[ldt.Digest]host.SubRecord)
	c.dirty = make(map[ldt.Digest]bool)
	return firstErr
}
