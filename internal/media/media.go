package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

type Kind int

const (
	KindUnsupported Kind = iota
	KindAudio
	KindVideo
)

var audioExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".m4a": {}, ".aac": {}, ".ogg": {}, ".flac": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mkv": {}, ".mov": {}, ".wmv": {}, ".flv": {},
}

type Asset struct {
	Path string
	Kind Kind
}

func Classify(path string) Asset {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case isAudioExt(ext):
		return Asset{Path: path, Kind: KindAudio}
	case isVideoExt(ext):
		return Asset{Path: path, Kind: KindVideo}
	default:
		return Asset{Path: path, Kind: KindUnsupported}
	}
}

func isAudioExt(ext string) bool {
	_, ok := audioExtensions[ext]
	return ok
}

func isVideoExt(ext string) bool {
	_, ok := videoExtensions[ext]
	return ok
}

func AudioExtensions() []string { return sortedKeys(audioExtensions) }

func VideoExtensions() []string { return sortedKeys(videoExtensions) }

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stem returns the file name without directory or extension; segment and
// derived-audio file names are built from it.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Segment is a contiguous time-bounded slice of a parent audio asset.
// Segments of one parent, ordered by Index ascending, cover the full
// timeline with no gaps or overlaps beyond encoding-frame rounding.
type Segment struct {
	SourcePath string
	Index      int // 1-based, timeline order
	Path       string
}

var ErrNoAudioTrack = errors.New("video has no audio track")

type ConversionError struct {
	Path   string
	Causes []error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting %s to audio: all strategies failed: %v", e.Path, errors.Join(e.Causes...))
}

func (e *ConversionError) Unwrap() []error { return e.Causes }

type UnreadableError struct {
	Path   string
	Causes []error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("probing duration of %s: all strategies failed: %v", e.Path, errors.Join(e.Causes...))
}

func (e *UnreadableError) Unwrap() []error { return e.Causes }

type SegmentationError struct {
	Path string
	Err  error
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segmenting %s: %v", e.Path, e.Err)
}

func (e *SegmentationError) Unwrap() error { return e.Err }
