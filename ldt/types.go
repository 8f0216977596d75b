// Package ldt holds the data model shared by every LSET layout driver: the
// property/LDT map control descriptor, the key/value vocabulary, and the
// validation rules that guard it. It has no dependency on how a top record
// or sub-record is actually stored — that lives in package host.
package ldt

import "time"

// Magic is the sentinel stored in every live PropertyMap. A descriptor whose
// Magic doesn't match this value is considered damaged.
const Magic = uint32(0x4C534554) // "LSET" in ASCII, packed big-endian

// Version is the on-disk schema version this engine writes and the newest
// it will read; a descriptor stored with a higher version is rejected.
const Version = 2

// LdtType identifies the LDT kind. LSET is the only kind this engine knows.
const LdtType = "LSET"

// MaxBinNameLen is the host's bin-name length limit.
const MaxBinNameLen = 14

// RecType discriminates the role a physical record plays.
type RecType int

const (
	RecTypeTop RecType = iota
	RecTypeSubRec
	RecTypeESR
)

func (t RecType) String() string {
	switch t {
	case RecTypeTop:
		return "Top"
	case RecTypeSubRec:
		return "SubRec"
	case RecTypeESR:
		return "ESR"
	default:
		return "Unknown"
	}
}

// SetTypeStore chooses the regular-mode persistence layout.
type SetTypeStore int

const (
	// STRecord is the TopRecord layout: buckets are additional bins of the
	// top record.
	STRecord SetTypeStore = iota
	// STSubRecord is the SubRecord layout: a hash directory in the top
	// record overflowing into digest-addressed child records.
	STSubRecord
)

// StoreState is the compact/regular phase of a layout.
type StoreState int

const (
	SSCompact StoreState = iota
	SSRegular
)

// StoreMode selects how member values are packed. SMBinary is declared but
// unimplemented; create rejects it.
type StoreMode int

const (
	SMList StoreMode = iota
	SMBinary
)

// KeyType records whether members are compared by identity (atomic scalars)
// or through key extraction (complex/structured values).
type KeyType int

const (
	KeyTypeAtomic KeyType = iota
	KeyTypeComplex
)

// Digest identifies a sub-record by content. It is opaque to this package —
// the host generates it, but it must be comparable and usable as a map
// key, so it is modeled as a string.
type Digest string

// Value is a member of the set. It may be a scalar (string, any numeric
// type) or a structured value of any shape; key extraction decides
// how it participates in uniqueness.
type Value any

// Key is the comparable projection of a Value used for uniqueness and
// lookup. Two keys are equal only if they have the same dynamic type and
// compare equal: cross-type comparisons never match.
type Key any

// PropertyMap holds the fields common to every LDT kind.
type PropertyMap struct {
	ItemCount    int
	SubRecCount  int
	Version      int
	LdtType      string
	Magic        uint32
	BinName      string
	RecType      RecType
	EsrDigest    Digest
	ParentDigest Digest
	SelfDigest   Digest
	CreateTime   time.Time
}

// LsetMap holds LSET-specific configuration and state.
type LsetMap struct {
	SetTypeStore SetTypeStore
	StoreState   StoreState
	StoreMode    StoreMode
	KeyType      KeyType

	Modulo          int
	Threshold       int
	HashCellMaxList int

	// CompactList holds every member while StoreState == SSCompact and
	// SetTypeStore == STSubRecord. Unused (nil) for STRecord, which keeps
	// its single compact bucket in the host's bin 0 instead.
	CompactList []Value

	// HashDirectory holds exactly Modulo CellAnchors once StoreState ==
	// SSRegular and SetTypeStore == STSubRecord. Nil otherwise.
	HashDirectory []CellAnchor

	UserModule  string
	KeyFunction string
	Transform   string
	UnTransform string

	TotalCount int
	StoreLimit int

	LdrEntryCountMax int
	LdrByteEntrySize int
	LdrByteCountMax  int
	BinaryStoreSize  int
}

// Descriptor is the two-map LDT control header stored in the user bin.
type Descriptor struct {
	Property PropertyMap
	Lset     LsetMap
}

// DefaultLsetMap returns a fresh LsetMap with the engine's default configuration.
func DefaultLsetMap() LsetMap {
	return LsetMap{
		SetTypeStore:    STSubRecord,
		StoreState:      SSCompact,
		StoreMode:       SMList,
		KeyType:         KeyTypeAtomic,
		Modulo:          128,
		Threshold:       101,
		HashCellMaxList: 4,
	}
}

// CellState is the discriminant of a CellAnchor.
type CellState int

const (
	CellEmpty CellState = iota
	CellList
	CellDigest
	CellTree
)

func (s CellState) String() string {
	switch s {
	case CellEmpty:
		return "Empty"
	case CellList:
		return "List"
	case CellDigest:
		return "Digest"
	case CellTree:
		return "Tree"
	default:
		return "Unknown"
	}
}

// CellAnchor is the per-bucket control structure of the SubRecord layout's
// hash directory. Exactly one of List/SubDigest/Tree is
// meaningful, selected by State; the others are left at their zero value.
//
// The Tree variant is reserved: the state machine never transitions
// into it, but the field exists so a future secondary-hash fan-out doesn't
// require a storage-format change.
type CellAnchor struct {
	State CellState

	List []Value

	SubDigest Digest

	Tree []Digest

	ItemCount   int
	SubRecCount int
}

// NewHashDirectory allocates a directory of n empty cells.
func NewHashDirectory(n int) []CellAnchor {
	dir := make([]CellAnchor, n)
	for i := range dir {
		dir[i] = CellAnchor{State: CellEmpty}
	}
	return dir
}
