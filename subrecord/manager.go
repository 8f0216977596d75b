package subrecord

import (
	"context"
	"fmt"

	"github.com/rpcpool/lset/host"
	"github.com/rpcpool/lset/ldt"
)

// Manager owns sub-record creation, ESR lifecycle, and destruction for one
// top record.
type Manager struct {
	Host   host.SubRecordHost
	Parent host.TopRecord
}

// EnsureESR lazily creates the Existence Sub-Record on first use and
// records its digest on prop.
func (m *Manager) EnsureESR(ctx context.Context, prop *ldt.PropertyMap) error {
	if prop.EsrDigest != "" {
		return nil
	}
	d, err := m.Host.CreateESR(ctx, m.Parent)
	if err != nil {
		return fmt.Errorf("%w: %v", ldt.ErrSubRecOpen, err)
	}
	prop.EsrDigest = d
	return nil
}

// CreateChild creates a new sub-record holding list, attaches it to the
// ESR, and populates its property map: Magic, RecType=SubRec, ParentDigest,
// SelfDigest, the shared EsrDigest, and a zeroed CreateTime. It
// increments prop.SubRecCount and returns the new digest.
func (m *Manager) CreateChild(ctx context.Context, sctx *Context, prop *ldt.PropertyMap, list []ldt.Value) (ldt.Digest, error) {
	if err := m.EnsureESR(ctx, prop); err != nil {
		return "", err
	}
	parentDigest, err := m.Parent.Digest(ctx)
	if err != nil {
		return "", err
	}
	sr, digest, err := m.Host.CreateSubRec(ctx, m.Parent)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ldt.ErrSubRecOpen, err)
	}
	childProp := ldt.PropertyMap{
		Magic:        ldt.Magic,
		LdtType:      ldt.LdtType,
		Version:      ldt.Version,
		RecType:      ldt.RecTypeSubRec,
		BinName:      prop.BinName,
		ParentDigest: parentDigest,
		SelfDigest:   digest,
		EsrDigest:    prop.EsrDigest,
		// CreateTime intentionally left zero.
	}
	if err := sr.SetPropertyMap(ctx, childProp); err != nil {
		return "", err
	}
	if err := sr.PutList(ctx, list); err != nil {
		return "", err
	}
	if err := m.Host.AttachToESR(ctx, prop.EsrDigest, digest); err != nil {
		return "", fmt.Errorf("%w: %v", ldt.ErrSubRecOpen, err)
	}
	sctx.Track(digest, sr)
	sctx.MarkDirty(digest)
	prop.SubRecCount++
	return digest, nil
}

// Open returns the list currently stored in the sub-record at digest.
func (m *Manager) Open(ctx context.Context, sctx *Context, digest ldt.Digest) (host.SubRecord, []ldt.Value, error) {
	sr, err := sctx.Open(ctx, digest)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ldt.ErrSubRecOpen, err)
	}
	list, err := sr.GetList(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sr, list, nil
}

// Save writes list back to the sub-record at digest and marks it dirty for
// the context's eventual Release.
func (m *Manager) Save(ctx context.Context, sctx *Context, digest ldt.Digest, list []ldt.Value) error {
	sr, err := sctx.Open(ctx, digest)
	if err != nil {
		return fmt.Errorf("%w: %v", ldt.ErrSubRecOpen, err)
	}
	if err := sr.PutList(ctx, list); err != nil {
		return err
	}
	sctx.MarkDirty(digest)
	return nil
}

// Destroy removes the ESR, cascading removal of every sub-record attached
// to it. It is a no-op if no ESR was ever created.
func (m *Manager) Destroy(ctx context.Context, prop *ldt.PropertyMap) error {
	if prop.EsrDigest == "" {
		return nil
	}
	if err := m.Host.RemoveESR(ctx, m.Parent, prop.EsrDigest); err != nil {
		return fmt.Errorf("%w: %v", ldt.ErrSubRecDelete, err)
	}
	prop.EsrDigest = ""
	prop.SubRecCount = 0
	return nil
}
