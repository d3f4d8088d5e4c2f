package metadata

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/typeforge/typeforge/errors"
)

// Snapshot is an in-memory Adapter over records decoded ahead of time.
//
// It backs two consumers: the bundled snapshot file format (a JSON dump
// produced by an external binary reader, loaded with LoadSnapshot) and the
// test suites, which assemble snapshots programmatically.
type Snapshot struct {
	Version      string                       `json:"format_version"`
	AssemblyList []AssemblyRecord             `json:"assemblies"`
	TypeDefs     []TypeDefRecord              `json:"type_definitions"`
	Fields       []FieldRecord                `json:"fields,omitempty"`
	Methods      []MethodRecord               `json:"methods,omitempty"`
	Generics     []GenericParamRecord         `json:"generic_parameters,omitempty"`
	Vtables      map[Token][]VtableSlotRecord `json:"vtables,omitempty"`

	// indexMu guards the lazy per-owner lookups: the graph builder calls the
	// member accessors from parallel per-assembly goroutines.
	indexMu         sync.Mutex
	fieldsByOwner   map[Token][]FieldRecord
	methodsByOwner  map[Token][]MethodRecord
	genericsByOwner map[Token][]GenericParamRecord
}

var _ Adapter = (*Snapshot)(nil)

// NewSnapshot creates an empty snapshot for the given format version.
func NewSnapshot(version string) *Snapshot {
	return &Snapshot{Version: version, Vtables: map[Token][]VtableSlotRecord{}}
}

// LoadSnapshot reads a JSON snapshot file written by an external metadata
// reader. A missing or malformed file is a source-availability failure.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapSourceUnavailable(err, path)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(
			errors.Wrapf(errors.ErrSourceUnavailable, "undecodable snapshot %s", path),
			err.Error())
	}
	return &snap, nil
}

// AddAssembly appends an assembly record.
func (s *Snapshot) AddAssembly(rec AssemblyRecord) *Snapshot {
	s.AssemblyList = append(s.AssemblyList, rec)
	s.invalidate()
	return s
}

// AddType appends a type definition record.
func (s *Snapshot) AddType(rec TypeDefRecord) *Snapshot {
	s.TypeDefs = append(s.TypeDefs, rec)
	s.invalidate()
	return s
}

// AddField appends a field record.
func (s *Snapshot) AddField(rec FieldRecord) *Snapshot {
	s.Fields = append(s.Fields, rec)
	s.invalidate()
	return s
}

// AddMethod appends a method record.
func (s *Snapshot) AddMethod(rec MethodRecord) *Snapshot {
	s.Methods = append(s.Methods, rec)
	s.invalidate()
	return s
}

// AddGenericParam appends a generic parameter record.
func (s *Snapshot) AddGenericParam(rec GenericParamRecord) *Snapshot {
	s.Generics = append(s.Generics, rec)
	s.invalidate()
	return s
}

// SetVtable records the vtable of a type.
func (s *Snapshot) SetVtable(owner Token, slots []VtableSlotRecord) *Snapshot {
	if s.Vtables == nil {
		s.Vtables = map[Token][]VtableSlotRecord{}
	}
	s.Vtables[owner] = slots
	return s
}

// FormatVersion implements Adapter.
func (s *Snapshot) FormatVersion() string { return s.Version }

// Assemblies implements Adapter.
func (s *Snapshot) Assemblies() ([]AssemblyRecord, error) { return s.AssemblyList, nil }

// TypeDefinitions implements Adapter.
func (s *Snapshot) TypeDefinitions() ([]TypeDefRecord, error) { return s.TypeDefs, nil }

// FieldsOf implements Adapter.
func (s *Snapshot) FieldsOf(t Token) ([]FieldRecord, error) {
	s.index()
	return s.fieldsByOwner[t], nil
}

// MethodsOf implements Adapter.
func (s *Snapshot) MethodsOf(t Token) ([]MethodRecord, error) {
	s.index()
	return s.methodsByOwner[t], nil
}

// GenericParametersOf implements Adapter.
func (s *Snapshot) GenericParametersOf(t Token) ([]GenericParamRecord, error) {
	s.index()
	return s.genericsByOwner[t], nil
}

// VtableOf implements Adapter.
func (s *Snapshot) VtableOf(t Token) ([]VtableSlotRecord, error) {
	return s.Vtables[t], nil
}

func (s *Snapshot) invalidate() {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	s.fieldsByOwner = nil
	s.methodsByOwner = nil
	s.genericsByOwner = nil
}

// index builds per-owner member lookups on first access. Member order within
// an owner follows record order, which mirrors declaration order. The maps
// are never mutated after the build, so readers may use them lock-free once
// index returns.
func (s *Snapshot) index() {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if s.fieldsByOwner != nil {
		return
	}
	s.fieldsByOwner = map[Token][]FieldRecord{}
	for _, f := range s.Fields {
		s.fieldsByOwner[f.Owner] = append(s.fieldsByOwner[f.Owner], f)
	}
	s.methodsByOwner = map[Token][]MethodRecord{}
	for _, m := range s.Methods {
		s.methodsByOwner[m.Owner] = append(s.methodsByOwner[m.Owner], m)
	}
	s.genericsByOwner = map[Token][]GenericParamRecord{}
	for _, g := range s.Generics {
		s.genericsByOwner[g.Owner] = append(s.genericsByOwner[g.Owner], g)
	}
}

// SnapshotVersions is the constraint of format revisions the bundled JSON
// snapshot adapter understands.
const SnapshotVersions = ">=24.0.0 <32.0.0"

func init() {
	// The snapshot adapter ignores the native image beyond availability
	// checking: offsets in a snapshot were already resolved by the reader
	// that produced it.
	_ = Register("json-snapshot", SnapshotVersions, func(src Source) (Adapter, error) {
		return LoadSnapshot(src.MetadataPath)
	})
}
