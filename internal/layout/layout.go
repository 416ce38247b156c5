// Package layout maps a dataset and a segment to their on-disk artifacts.
//
// Each segment produces three files: the raw download and the reformatted
// audio are keyed by source id (shared by every clip of the same source),
// the trimmed clip is keyed by the full segment key.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/audioset/internal/segment"
)

// Directory suffixes appended to the dataset name.
const (
	SuffixDownloaded = "_downloaded"
	SuffixFormatted  = "_formatted"
	SuffixSegmented  = "_segmented"
)

// AudioExt is the container extension of every artifact.
const AudioExt = ".wav"

// dirPerm is the permission mode for dataset directories.
const dirPerm = 0750

// Dataset names a corpus split. Its directories live under Root (or the
// working directory when Root is empty).
type Dataset struct {
	Name string
	Root string
}

// Paths holds the resolved locations for one segment.
type Paths struct {
	DownloadDir  string
	FormattedDir string
	SegmentedDir string

	DownloadPath  string
	FormattedPath string
	SegmentedPath string
}

// DownloadDir returns the directory of raw downloads.
func (d Dataset) DownloadDir() string { return d.dir(SuffixDownloaded) }

// FormattedDir returns the directory of reformatted audio.
func (d Dataset) FormattedDir() string { return d.dir(SuffixFormatted) }

// SegmentedDir returns the directory of trimmed clips.
func (d Dataset) SegmentedDir() string { return d.dir(SuffixSegmented) }

func (d Dataset) dir(suffix string) string {
	name := d.Name + suffix
	if d.Root == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(d.Root, name)
}

// LockPath returns the run lock file guarding the dataset directories.
func (d Dataset) LockPath() string { return d.dir(".lock") }

// Dirs returns the three dataset directories in pipeline order.
func (d Dataset) Dirs() []string {
	return []string{d.DownloadDir(), d.FormattedDir(), d.SegmentedDir()}
}

// EnsureDirs creates the dataset directories if they don't exist.
// This is the setup step that must run before the first Resolve result is used.
func (d Dataset) EnsureDirs() error {
	if d.Name == "" {
		return fmt.Errorf("dataset name cannot be empty")
	}
	for _, dir := range d.Dirs() {
		if err := os.MkdirAll(dir, dirPerm); err != nil { // #nosec G301 -- dataset output dir
			return fmt.Errorf("cannot create dataset directory: %w", err)
		}
	}
	return nil
}

// Clips returns the finished clips in the segmented directory, sorted by name.
// Hidden files are skipped: sox writes to a dot-prefixed temp file before the
// rename, and one left by a killed run is not a clip.
func (d Dataset) Clips() ([]string, error) {
	dir := d.SegmentedDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", dir, err)
	}

	var clips []string
	for _, e := range entries {
		if !IsClip(e.Name()) || e.IsDir() {
			continue
		}
		clips = append(clips, filepath.Join(dir, e.Name()))
	}
	return clips, nil
}

// IsClip reports whether name is a finished clip file name.
func IsClip(name string) bool {
	return filepath.Ext(name) == AudioExt && !strings.HasPrefix(name, ".")
}

// Resolve computes the six locations for seg within d. It performs no I/O.
func Resolve(d Dataset, seg segment.Segment) Paths {
	p := Paths{
		DownloadDir:  d.DownloadDir(),
		FormattedDir: d.FormattedDir(),
		SegmentedDir: d.SegmentedDir(),
	}
	p.DownloadPath = filepath.Join(p.DownloadDir, seg.SourceID+AudioExt)
	p.FormattedPath = filepath.Join(p.FormattedDir, seg.SourceID+AudioExt)
	p.SegmentedPath = filepath.Join(p.SegmentedDir, seg.Key()+AudioExt)
	return p
}
