package timeline

import (
	"context"
)

// Builder defaults.
const (
	TitleLength       = 2.0 // seconds for a leading title clip
	MinSubtitleLength = 5.0
	DefaultImageLen   = 3.0
	DefaultTransition = "fade"
	DefaultAspect     = "16:9"
	DefaultBackground = "#000000"
)

// DurationSource resolves playable durations for media URLs. Implementations
// must return one duration per URL, substituting a fallback for URLs that
// cannot be probed, and must never fail the whole batch.
type DurationSource interface {
	Durations(ctx context.Context, urls []string) []float64
}

// MediaInput is the raw-media build mode: one clip per source video, laid
// end to end on a single track.
type MediaInput struct {
	VideoURLs        []string
	OutputFormat     string
	OutputResolution string
	Title            string
	Transition       string
	SoundtrackURL    string
}

// TemplateOptions customize a template build.
type TemplateOptions struct {
	ImageURLs       []string
	Title           string
	Subtitle        string
	Music           string
	AspectRatio     string
	Platform        string
	TextStyle       string
	TextColor       string
	BackgroundColor string
	ImageDuration   float64
	Transition      string
}

// HasContent reports whether the options carry anything renderable.
func (o TemplateOptions) HasContent() bool {
	return len(o.ImageURLs) > 0 || o.Title != "" || o.Subtitle != ""
}

// BuildFromMedia assembles an edit from a list of source videos. Durations
// come from the DurationSource; probe failures surface there as fallback
// values, never as errors here. Returns the edit and the estimated total
// duration in seconds (display metadata only).
func BuildFromMedia(ctx context.Context, durations DurationSource, in MediaInput) (*Edit, float64) {
	transition := in.Transition
	if transition == "" {
		transition = DefaultTransition
	}

	var clips []Clip
	offset := 0.0

	if in.Title != "" {
		clips = append(clips, Clip{
			Asset:  TitleAsset{Text: in.Title, Style: "minimal", Position: "center"},
			Start:  offset,
			Length: TitleLength,
		})
		offset += TitleLength
	}

	lengths := durations.Durations(ctx, in.VideoURLs)
	for i, src := range in.VideoURLs {
		clip := Clip{
			Asset:  VideoAsset{Src: src},
			Start:  offset,
			Length: lengths[i],
			Fit:    FitCover,
		}
		if len(clips) > 0 {
			clip.Transition = &Transition{In: transition, Out: transition}
		}
		clips = append(clips, clip)
		offset += lengths[i]
	}

	edit := &Edit{
		Timeline: &Timeline{
			Background: DefaultBackground,
			Soundtrack: soundtrack(in.SoundtrackURL),
			Tracks:     []Track{{Clips: clips}},
		},
		Output: outputSpec(in.OutputFormat, in.OutputResolution, ""),
	}
	return edit, offset
}

// BuildFromTemplate assembles an edit from template options: an optional
// title, an optional subtitle, then one image clip per URL, all contiguous
// on a single track. When the options carry no content at all, a single
// placeholder text clip is emitted so the result is still a well-formed
// timeline; callers are expected to reject empty templates before ever
// reaching this fallback.
func BuildFromTemplate(opts TemplateOptions) (*Edit, float64) {
	imgDur := opts.ImageDuration
	if imgDur <= 0 {
		imgDur = DefaultImageLen
	}
	transition := opts.Transition
	if transition == "" {
		transition = DefaultTransition
	}
	aspect := opts.AspectRatio
	if aspect == "" {
		aspect = DefaultAspect
	}
	background := opts.BackgroundColor
	if background == "" {
		background = DefaultBackground
	}

	var clips []Clip
	offset := 0.0

	addClip := func(asset Asset, length float64, fit string) {
		clip := Clip{Asset: asset, Start: offset, Length: length, Fit: fit}
		if len(clips) > 0 {
			clip.Transition = &Transition{In: transition, Out: transition}
		}
		clips = append(clips, clip)
		offset += length
	}

	if opts.Title != "" {
		addClip(TitleAsset{
			Text:     opts.Title,
			Style:    opts.TextStyle,
			Color:    opts.TextColor,
			Position: "center",
		}, TitleLength, "")
	}
	if opts.Subtitle != "" {
		subLen := float64(len(opts.ImageURLs)) * imgDur
		if subLen < MinSubtitleLength {
			subLen = MinSubtitleLength
		}
		addClip(TitleAsset{
			Text:     opts.Subtitle,
			Style:    opts.TextStyle,
			Color:    opts.TextColor,
			Size:     "small",
			Position: "bottom",
		}, subLen, "")
	}
	for _, src := range opts.ImageURLs {
		addClip(ImageAsset{Src: src}, imgDur, FitCover)
	}

	if len(clips) == 0 {
		// Defensive fallback; see HasContent.
		addClip(TitleAsset{Text: "Placeholder", Style: "minimal", Position: "center"}, MinSubtitleLength, "")
	}

	edit := &Edit{
		Timeline: &Timeline{
			Background: background,
			Soundtrack: soundtrack(opts.Music),
			Tracks:     []Track{{Clips: clips}},
		},
		Output: outputSpec("mp4", "hd", aspect),
	}
	return edit, offset
}

// EstimateDuration sums all clip lengths across an edit's tracks. Used for
// the metadata shown while a custom edit renders; not authoritative.
func EstimateDuration(edit *Edit) float64 {
	if edit == nil || edit.Timeline == nil {
		return 0
	}
	total := 0.0
	for _, track := range edit.Timeline.Tracks {
		for _, clip := range track.Clips {
			total += clip.Length
		}
	}
	return total
}

// NormalizeResolution maps caller-facing resolution names onto the render
// vendor's tokens. The vendor has no "full-hd" token; its "hd" identifier
// is the 1080p output, so full-hd must collapse to hd exactly.
func NormalizeResolution(name string) string {
	switch name {
	case "":
		return "hd"
	case "full-hd":
		return "hd"
	default:
		return name
	}
}

func outputSpec(format, resolution, aspect string) *OutputSpec {
	if format == "" {
		format = "mp4"
	}
	if aspect == "" {
		aspect = DefaultAspect
	}
	if format == "gif" {
		aspect = "1:1"
	}
	return &OutputSpec{
		Format:      format,
		Resolution:  NormalizeResolution(resolution),
		AspectRatio: aspect,
	}
}

func soundtrack(src string) *Soundtrack {
	if src == "" {
		return nil
	}
	return &Soundtrack{Src: src, Effect: "fadeInFadeOut", Volume: 0.4}
}
