package metadata

import (
	"os"

	"github.com/typeforge/typeforge/errors"
)

// Adapter is the versioned record-yielding capability the pipeline consumes.
// Implementations decode one binary-format revision of the metadata store;
// the pipeline never sees raw bytes.
//
// All methods yield records already addressed by stable tokens. Per-type
// accessors return empty slices (not errors) for types without members; an
// error from any accessor indicates the store itself is undecodable.
type Adapter interface {
	// FormatVersion reports the binary-format revision this adapter decoded,
	// as a semantic version string.
	FormatVersion() string

	Assemblies() ([]AssemblyRecord, error)
	TypeDefinitions() ([]TypeDefRecord, error)
	FieldsOf(t Token) ([]FieldRecord, error)
	MethodsOf(t Token) ([]MethodRecord, error)
	GenericParametersOf(t Token) ([]GenericParamRecord, error)
	VtableOf(t Token) ([]VtableSlotRecord, error)
}

// Source names the two input artifacts a run consumes.
type Source struct {
	// MetadataPath locates the raw metadata blob.
	MetadataPath string
	// ImagePath locates the native-code image the metadata refers into.
	ImagePath string
}

// Validate fails fast with a source-unavailable error if either input is
// missing or unreadable. Runs before any graph construction begins.
func (s Source) Validate() error {
	for _, path := range []string{s.MetadataPath, s.ImagePath} {
		if path == "" {
			return errors.Wrap(errors.ErrSourceUnavailable, "empty source path")
		}
		info, err := os.Stat(path)
		if err != nil {
			return errors.WrapSourceUnavailable(err, path)
		}
		if info.IsDir() {
			return errors.Wrapf(errors.ErrSourceUnavailable, "%s is a directory", path)
		}
	}
	return nil
}
