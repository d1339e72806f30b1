package timeline

import (
	"errors"
	"fmt"
	"log/slog"
)

// Sentinel validation errors.
var (
	ErrMissingTimeline = errors.New("edit has no timeline")
	ErrNoValidTracks   = errors.New("no valid tracks")
)

// Source identifies which input mode produced an edit, so validation
// failures can carry a remediation hint matching what the caller supplied.
type Source string

const (
	SourceMedia    Source = "videoUrls"
	SourceTemplate Source = "template"
	SourceEdit     Source = "edit"
)

// InvalidClipError reports a structurally broken clip by position.
type InvalidClipError struct {
	Track  int
	Clip   int
	Reason string
}

func (e *InvalidClipError) Error() string {
	return fmt.Sprintf("track %d clip %d: %s", e.Track, e.Clip, e.Reason)
}

// Validate checks an edit's structure and filters it in place: tracks with
// no clips are silently dropped (logged in aggregate at debug level), then
// every surviving clip must carry a known asset type, a start >= 0, and a
// length > 0. Runs between construction and submission for all input
// modes; caller-supplied custom edits are not trusted to skip it.
// Validation is idempotent: re-validating a validated edit changes nothing.
func Validate(edit *Edit, source Source) error {
	if edit == nil || edit.Timeline == nil {
		return ErrMissingTimeline
	}

	kept := edit.Timeline.Tracks[:0]
	dropped := 0
	for _, track := range edit.Timeline.Tracks {
		if len(track.Clips) == 0 {
			dropped++
			continue
		}
		kept = append(kept, track)
	}
	edit.Timeline.Tracks = kept
	if dropped > 0 {
		slog.Debug("filtered empty tracks", "dropped", dropped, "remaining", len(kept))
	}

	if len(edit.Timeline.Tracks) == 0 {
		return fmt.Errorf("%w: %s", ErrNoValidTracks, noTracksHint(source))
	}

	for ti, track := range edit.Timeline.Tracks {
		for ci, clip := range track.Clips {
			if clip.Asset == nil {
				return &InvalidClipError{Track: ti, Clip: ci, Reason: "missing asset"}
			}
			if !KnownAssetType(clip.Asset.AssetType()) {
				return &InvalidClipError{Track: ti, Clip: ci,
					Reason: fmt.Sprintf("unknown asset type %q", clip.Asset.AssetType())}
			}
			if !(clip.Start >= 0) {
				return &InvalidClipError{Track: ti, Clip: ci,
					Reason: fmt.Sprintf("start must be >= 0, got %v", clip.Start)}
			}
			if !(clip.Length > 0) {
				return &InvalidClipError{Track: ti, Clip: ci,
					Reason: fmt.Sprintf("length must be > 0, got %v", clip.Length)}
			}
		}
	}

	return nil
}

func noTracksHint(source Source) string {
	switch source {
	case SourceMedia:
		return "none of the supplied videoUrls produced a playable clip; check that the URLs are reachable video files"
	case SourceTemplate:
		return "the template produced no renderable clips; supply imageUrls, a title, or a subtitle"
	default:
		return "the supplied edit contains no tracks with clips; add at least one clip to a track"
	}
}
