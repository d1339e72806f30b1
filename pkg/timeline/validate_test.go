package timeline

import (
	"errors"
	"testing"
)

func validEdit(tracks ...Track) *Edit {
	return &Edit{
		Timeline: &Timeline{Tracks: tracks},
		Output:   &OutputSpec{Format: "mp4", Resolution: "hd"},
	}
}

func videoClip(start, length float64) Clip {
	return Clip{Asset: VideoAsset{Src: "http://a/v.mp4"}, Start: start, Length: length}
}

func TestValidate_MissingTimeline(t *testing.T) {
	if err := Validate(nil, SourceEdit); !errors.Is(err, ErrMissingTimeline) {
		t.Errorf("nil edit: expected ErrMissingTimeline, got %v", err)
	}
	if err := Validate(&Edit{}, SourceEdit); !errors.Is(err, ErrMissingTimeline) {
		t.Errorf("nil timeline: expected ErrMissingTimeline, got %v", err)
	}
}

func TestValidate_DropsEmptyTracks(t *testing.T) {
	edit := validEdit(
		Track{},                             // no clips
		Track{Clips: []Clip{}},              // empty clips
		Track{Clips: []Clip{videoClip(0, 5)}}, // valid
		Track{},                             // no clips
	)

	err := Validate(edit, SourceEdit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edit.Timeline.Tracks) != 1 {
		t.Fatalf("expected exactly 1 surviving track, got %d", len(edit.Timeline.Tracks))
	}
	if len(edit.Timeline.Tracks[0].Clips) != 1 {
		t.Errorf("surviving track should keep its clip")
	}
}

func TestValidate_TrackCountMatchesNonEmptyInput(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []Track
		expected int
	}{
		{"all valid", []Track{{Clips: []Clip{videoClip(0, 1)}}, {Clips: []Clip{videoClip(0, 2)}}}, 2},
		{"mixed", []Track{{}, {Clips: []Clip{videoClip(0, 1)}}, {}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edit := validEdit(tt.tracks...)
			if err := Validate(edit, SourceEdit); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(edit.Timeline.Tracks) != tt.expected {
				t.Errorf("expected %d tracks, got %d", tt.expected, len(edit.Timeline.Tracks))
			}
		})
	}
}

func TestValidate_NoValidTracks(t *testing.T) {
	for _, source := range []Source{SourceMedia, SourceTemplate, SourceEdit} {
		t.Run(string(source), func(t *testing.T) {
			edit := validEdit(Track{}, Track{Clips: []Clip{}})
			err := Validate(edit, source)
			if !errors.Is(err, ErrNoValidTracks) {
				t.Fatalf("expected ErrNoValidTracks, got %v", err)
			}
		})
	}

	// The remediation hint differs by input mode.
	mediaErr := Validate(validEdit(Track{}), SourceMedia)
	templateErr := Validate(validEdit(Track{}), SourceTemplate)
	if mediaErr.Error() == templateErr.Error() {
		t.Error("media and template modes should produce distinct hints")
	}
}

func TestValidate_InvalidClips(t *testing.T) {
	tests := []struct {
		name string
		clip Clip
	}{
		{"missing asset", Clip{Start: 0, Length: 5}},
		{"unknown asset type", Clip{Asset: unknownAsset{tag: "sticker"}, Start: 0, Length: 5}},
		{"negative start", Clip{Asset: VideoAsset{Src: "x"}, Start: -1, Length: 5}},
		{"zero length", Clip{Asset: VideoAsset{Src: "x"}, Start: 0, Length: 0}},
		{"negative length", Clip{Asset: VideoAsset{Src: "x"}, Start: 0, Length: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edit := validEdit(
				Track{Clips: []Clip{videoClip(0, 5)}},
				Track{Clips: []Clip{videoClip(0, 2), tt.clip}},
			)
			err := Validate(edit, SourceEdit)

			var clipErr *InvalidClipError
			if !errors.As(err, &clipErr) {
				t.Fatalf("expected InvalidClipError, got %v", err)
			}
			if clipErr.Track != 1 || clipErr.Clip != 1 {
				t.Errorf("expected error at track 1 clip 1, got track %d clip %d", clipErr.Track, clipErr.Clip)
			}
		})
	}
}

func TestValidate_AllAssetKindsAccepted(t *testing.T) {
	assets := []Asset{
		VideoAsset{Src: "http://a/v.mp4"},
		ImageAsset{Src: "http://a/i.jpg"},
		TitleAsset{Text: "hello"},
		HTMLAsset{HTML: "<b>hi</b>"},
		AudioAsset{Src: "http://a/a.mp3"},
		LumaAsset{Src: "http://a/m.mp4"},
	}

	clips := make([]Clip, len(assets))
	for i, a := range assets {
		clips[i] = Clip{Asset: a, Start: float64(i), Length: 1}
	}

	if err := Validate(validEdit(Track{Clips: clips}), SourceEdit); err != nil {
		t.Errorf("all known asset kinds should validate, got %v", err)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	edit := validEdit(
		Track{},
		Track{Clips: []Clip{videoClip(0, 5), videoClip(5, 3)}},
		Track{Clips: []Clip{}},
		Track{Clips: []Clip{videoClip(0, 2)}},
	)

	if err := Validate(edit, SourceEdit); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	firstTracks := len(edit.Timeline.Tracks)
	firstClips := 0
	for _, tr := range edit.Timeline.Tracks {
		firstClips += len(tr.Clips)
	}

	if err := Validate(edit, SourceEdit); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	secondClips := 0
	for _, tr := range edit.Timeline.Tracks {
		secondClips += len(tr.Clips)
	}

	if len(edit.Timeline.Tracks) != firstTracks || secondClips != firstClips {
		t.Errorf("validation is not idempotent: %d/%d tracks, %d/%d clips",
			firstTracks, len(edit.Timeline.Tracks), firstClips, secondClips)
	}
}

func TestValidate_BuilderOutputAlwaysValid(t *testing.T) {
	edit, _ := BuildFromTemplate(TemplateOptions{
		ImageURLs: []string{"http://a/1.jpg"},
		Title:     "t",
	})
	if err := Validate(edit, SourceTemplate); err != nil {
		t.Errorf("template builder output should validate, got %v", err)
	}

	// Even the placeholder fallback survives validation.
	edit, _ = BuildFromTemplate(TemplateOptions{})
	if err := Validate(edit, SourceTemplate); err != nil {
		t.Errorf("placeholder output should validate, got %v", err)
	}
}
