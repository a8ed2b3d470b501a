package site

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitepress/internal/logfields"
)

// promote moves the staging directory into place. Tests replace it.
var promote = os.Rename

// staging writes a complete output tree next to the live one and swaps it in.
type staging struct {
	output string
	dir    string
}

// beginStaging creates a fresh sibling staging directory <output>_stage.
// Leftovers from an interrupted pass are removed first.
func (bs *buildState) beginStaging() error {
	output := filepath.Clean(bs.g.cfg.Paths.Output)
	dir := output + "_stage"
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove stale staging dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	bs.stage = &staging{output: output, dir: dir}
	bs.g.logger.Debug("Initialized staging directory", "staging", dir, "final", output)
	return nil
}

// writeFile writes one output below the staging directory.
func (s *staging) writeFile(rel string, data []byte) error {
	path := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- published site files
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// finalizeStaging promotes the staging directory to the output location:
//  1. Move the existing output (if any) to <output>.prev.
//  2. Rename staging to output.
//  3. Remove the backup.
func (bs *buildState) finalizeStaging() error {
	s := bs.stage
	if s == nil {
		return fmt.Errorf("no staging directory initialized")
	}
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("staging directory missing: %w", err)
	}

	prev := s.output + ".prev"
	if err := os.RemoveAll(prev); err != nil {
		return fmt.Errorf("remove previous backup: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.output), 0o750); err != nil {
		return fmt.Errorf("create output parent: %w", err)
	}
	if _, err := os.Stat(s.output); err == nil {
		if err := os.Rename(s.output, prev); err != nil {
			return fmt.Errorf("backup existing output: %w", err)
		}
	}
	if err := promote(s.dir, s.output); err != nil {
		// Put the previous tree back so the output is left untouched.
		if _, statErr := os.Stat(prev); statErr == nil {
			_ = os.Rename(prev, s.output)
		}
		return fmt.Errorf("promote staging: %w", err)
	}
	bs.stage = nil
	if err := os.RemoveAll(prev); err != nil {
		bs.g.logger.Warn("Failed to remove previous backup", logfields.Path(prev), logfields.Error(err))
	}
	bs.g.logger.Debug("Promoted staging directory", "output", s.output)
	return nil
}

// abortStaging removes the staging directory after a failed pass.
func (bs *buildState) abortStaging() {
	if bs.stage == nil {
		return
	}
	dir := bs.stage.dir
	bs.stage = nil
	if err := os.RemoveAll(dir); err != nil {
		bs.g.logger.Warn("Failed to remove staging directory", logfields.Path(dir), logfields.Error(err))
		return
	}
	bs.g.logger.Debug("Removed staging directory after failure", logfields.Path(dir))
}
