package emit

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/logger"
)

// Publish runs build against a staging directory beside outDir, then swaps
// the finished tree into place in one rename. A failed build never leaves a
// partial artifact set: the staging directory is removed and outDir keeps
// whatever it held before.
func Publish(target, outDir string, build func(dir string) error) error {
	parent := filepath.Dir(outDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return errors.WrapOutputWriteFailure(err, target)
	}

	staging := filepath.Join(parent, "."+filepath.Base(outDir)+".staging-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return errors.WrapOutputWriteFailure(err, target)
	}

	if err := build(staging); err != nil {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			logger.Warnw("failed to remove staging directory",
				logger.FieldTarget, target,
				logger.FieldDir, staging,
				logger.FieldError, rmErr)
		}
		return err
	}

	if err := os.RemoveAll(outDir); err != nil {
		return errors.WrapOutputWriteFailure(err, target)
	}
	if err := os.Rename(staging, outDir); err != nil {
		return errors.WrapOutputWriteFailure(err, target)
	}
	return nil
}

// WriteFile writes one artifact inside the staging tree, creating parent
// directories as needed.
func WriteFile(target, path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapOutputWriteFailure(err, target)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapOutputWriteFailure(err, target)
	}
	return nil
}
