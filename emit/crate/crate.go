// Package crate renders the source-crate target: a Rust crate with one
// module per assembly, nested modules mirroring namespaces, #[repr(C)]
// struct declarations, traits for interfaces, and a Cargo.toml manifest.
package crate

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/typeforge/typeforge/emit"
	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/logger"
	"github.com/typeforge/typeforge/metadata"
	"github.com/typeforge/typeforge/naming"
	"github.com/typeforge/typeforge/order"
)

// Manifest is the generated Cargo.toml.
type Manifest struct {
	Package ManifestPackage `toml:"package"`
}

// ManifestPackage describes the generated crate.
type ManifestPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Edition string `toml:"edition"`
}

// Emitter writes the Rust crate.
type Emitter struct {
	crateName string
	log       *zap.SugaredLogger
}

// New creates the source-crate emitter. crateName becomes the Cargo package
// name; empty selects "generated-types".
func New(crateName string) *Emitter {
	if crateName == "" {
		crateName = "generated-types"
	}
	return &Emitter{crateName: crateName, log: logger.Named("emit.crate")}
}

// Target returns the emitter's target identifier.
func (e *Emitter) Target() string { return emit.TargetCrate }

// Emit writes Cargo.toml, src/lib.rs, and one src/<assembly>.rs per
// assembly. Rust resolves items in any declaration order, so modules group
// by assembly and namespace; within a group, types keep their emission
// order positions for stable output.
func (e *Emitter) Emit(g *graph.Graph, ord *order.EmissionOrder, names *naming.Table, outDir string) error {
	rules, err := naming.LoadRules(emit.TargetCrate)
	if err != nil {
		return err
	}
	r := &renderer{
		g:       g,
		names:   names,
		modules: moduleNames(g, naming.NewSanitizer(rules)),
		log:     e.log,
	}

	return emit.Publish(e.Target(), outDir, func(dir string) error {
		manifest, err := toml.Marshal(Manifest{Package: ManifestPackage{
			Name:    e.crateName,
			Version: "0.1.0",
			Edition: "2021",
		}})
		if err != nil {
			return errors.WrapOutputWriteFailure(err, e.Target())
		}
		if err := emit.WriteFile(e.Target(), filepath.Join(dir, "Cargo.toml"), manifest); err != nil {
			return err
		}

		modules := r.sortedModules()
		var lib bytes.Buffer
		lib.WriteString(libPrelude)
		for _, mod := range modules {
			lib.WriteString("pub mod " + mod + ";\n")
		}
		if err := emit.WriteFile(e.Target(), filepath.Join(dir, "src", "lib.rs"), lib.Bytes()); err != nil {
			return err
		}

		for _, mod := range modules {
			src := r.renderModule(mod, ord)
			if err := emit.WriteFile(e.Target(), filepath.Join(dir, "src", mod+".rs"), src); err != nil {
				return err
			}
		}

		e.log.Infow("crate written",
			logger.FieldTarget, e.Target(),
			logger.FieldCount, g.Len())
		return nil
	})
}

// moduleNames maps each assembly to a legal, unique Rust module name.
func moduleNames(g *graph.Graph, san *naming.Sanitizer) map[string]string {
	assemblies := map[string]bool{}
	for _, n := range g.Nodes() {
		assemblies[n.Assembly] = true
	}
	sorted := make([]string, 0, len(assemblies))
	for a := range assemblies {
		sorted = append(sorted, a)
	}
	sort.Strings(sorted)

	out := make(map[string]string, len(sorted))
	for i, a := range sorted {
		base := strings.TrimSuffix(a, ".dll")
		if base == "" {
			base = "synthetic"
		}
		out[a] = san.Sanitize(base, "crate-modules", naming.KindNamespace, metadata.Token(i+1))
	}
	return out
}

const libPrelude = `#![allow(non_camel_case_types, non_snake_case, dead_code)]

use ::core::marker::PhantomData;

#[repr(C)]
pub struct TfString {
    _opaque: [u8; 0],
}

#[repr(C)]
pub struct TfObject {
    _opaque: [u8; 0],
}

#[repr(C)]
pub struct TfArray<T> {
    _opaque: [u8; 0],
    _elem: PhantomData<T>,
}

`
