package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/typeforge/emit"
	"github.com/typeforge/typeforge/emit/interchange"
	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/metadata"
)

// writeFixtureSource dumps a small snapshot plus a stand-in native image
// and returns the source paths.
func writeFixtureSource(t *testing.T) metadata.Source {
	t.Helper()
	snap := metadata.NewSnapshot("29.1.0")
	snap.AddAssembly(metadata.AssemblyRecord{Token: 100, Name: "Core.dll"})
	snap.AddType(metadata.TypeDefRecord{
		Token: 1, Name: "Vec", Namespace: "App", Assembly: "Core.dll",
		Kind: metadata.KindStruct, Size: 8, Alignment: metadata.SizeUnknown,
	})
	snap.AddType(metadata.TypeDefRecord{
		Token: 2, Name: "Player", Namespace: "App", Assembly: "Core.dll",
		Kind: metadata.KindClass, Size: metadata.SizeUnknown, Alignment: metadata.SizeUnknown,
	})
	snap.AddField(metadata.FieldRecord{
		Token: 10, Owner: 1, Name: "x",
		Type: metadata.Primitive(metadata.PrimR4), Offset: 0,
	})
	snap.AddField(metadata.FieldRecord{
		Token: 11, Owner: 2, Name: "pos",
		Type: metadata.Direct(1), Offset: 0x10,
	})
	snap.AddMethod(metadata.MethodRecord{
		Token: 20, Owner: 2, Name: "Update",
		Params: []metadata.ParamRecord{{Name: "dt", Type: metadata.Primitive(metadata.PrimR4)}},
		Return: metadata.Primitive(metadata.PrimVoid),
		Slot:   -1,
	})

	dir := t.TempDir()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	metaPath := filepath.Join(dir, "metadata.json")
	require.NoError(t, os.WriteFile(metaPath, data, 0o644))
	imagePath := filepath.Join(dir, "image.so")
	require.NoError(t, os.WriteFile(imagePath, []byte{0x7f}, 0o644))
	return metadata.Source{MetadataPath: metaPath, ImagePath: imagePath}
}

func fixtureOptions(t *testing.T, targets ...string) Options {
	return Options{
		Source:        writeFixtureSource(t),
		FormatVersion: "29.1.0",
		Targets:       targets,
		OutDir:        filepath.Join(t.TempDir(), "out"),
		CrateName:     "fixture-types",
	}
}

func TestRunAllTargets(t *testing.T) {
	opts := fixtureOptions(t, emit.TargetHeader, emit.TargetCrate, emit.TargetInterchange)

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Types)

	for _, target := range opts.Targets {
		info, err := os.Stat(TargetDir(opts.OutDir, target))
		require.NoError(t, err, target)
		assert.True(t, info.IsDir())
	}

	doc, err := interchange.Load(filepath.Join(TargetDir(opts.OutDir, emit.TargetInterchange), interchange.DocumentFile))
	require.NoError(t, err)
	assert.Len(t, doc.Types, 2)
}

func TestRunIsDeterministic(t *testing.T) {
	first := fixtureOptions(t, emit.TargetInterchange)
	_, err := Run(context.Background(), first)
	require.NoError(t, err)

	second := fixtureOptions(t, emit.TargetInterchange)
	_, err = Run(context.Background(), second)
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(TargetDir(first.OutDir, emit.TargetInterchange), interchange.DocumentFile))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(TargetDir(second.OutDir, emit.TargetInterchange), interchange.DocumentFile))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRunMissingSourceFailsBeforeBuild(t *testing.T) {
	opts := fixtureOptions(t, emit.TargetHeader)
	opts.Source.MetadataPath = filepath.Join(t.TempDir(), "absent.json")

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageValidate, stageErr.Stage)

	// Nothing was written.
	_, statErr := os.Stat(opts.OutDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunUnsupportedFormatVersion(t *testing.T) {
	opts := fixtureOptions(t, emit.TargetHeader)
	opts.FormatVersion = "99.0.0"

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageAdapt, stageErr.Stage)
}

func TestRunUnknownTarget(t *testing.T) {
	opts := fixtureOptions(t, "wasm-module")

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wasm-module")
}

func TestRunNoTargets(t *testing.T) {
	opts := fixtureOptions(t)

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
}

func TestRunDanglingTokenAborts(t *testing.T) {
	opts := fixtureOptions(t, emit.TargetHeader)

	// Rewrite the snapshot with a field referencing a token that has no
	// backing definition.
	var snap metadata.Snapshot
	data, err := os.ReadFile(opts.Source.MetadataPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &snap))
	snap.Fields = append(snap.Fields, metadata.FieldRecord{
		Token: 99, Owner: 2, Name: "ghost",
		Type: metadata.Direct(9999), Offset: metadata.SizeUnknown,
	})
	data, err = json.Marshal(&snap)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(opts.Source.MetadataPath, data, 0o644))

	_, err = Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.IsMetadataInconsistency(err))
	assert.Contains(t, err.Error(), "0x0000270f")

	_, statErr := os.Stat(opts.OutDir)
	assert.True(t, os.IsNotExist(statErr))
}
