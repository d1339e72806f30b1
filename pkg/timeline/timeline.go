// Package timeline models the declarative edit structure accepted by the
// Shotstack render API: an Edit wraps a Timeline of layered Tracks, each
// holding Clips that reference a typed Asset. Construction and validation
// of these structures are pure functions with no side effects.
package timeline

import (
	"encoding/json"
	"fmt"
)

// Edit is the top-level render request sent to the render engine.
type Edit struct {
	Timeline *Timeline   `json:"timeline"`
	Output   *OutputSpec `json:"output"`
}

// Timeline holds the ordered tracks of an edit. Later tracks composite on
// top of earlier ones.
type Timeline struct {
	Background string      `json:"background,omitempty"`
	Soundtrack *Soundtrack `json:"soundtrack,omitempty"`
	Tracks     []Track     `json:"tracks"`
}

// Soundtrack is an optional audio bed played under the whole timeline.
type Soundtrack struct {
	Src    string  `json:"src"`
	Effect string  `json:"effect,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

// Track is an ordered sequence of clips. Clip order is a layering hint
// only; actual timing comes from each clip's Start.
type Track struct {
	Clips []Clip `json:"clips"`
}

// Transition names the in/out transition effects of a clip.
type Transition struct {
	In  string `json:"in,omitempty"`
	Out string `json:"out,omitempty"`
}

// Clip places one asset on a track at Start for Length seconds.
type Clip struct {
	Asset      Asset       `json:"asset"`
	Start      float64     `json:"start"`
	Length     float64     `json:"length"`
	Fit        string      `json:"fit,omitempty"`
	Transition *Transition `json:"transition,omitempty"`
}

// OutputSpec describes the rendered file.
type OutputSpec struct {
	Format      string `json:"format"`
	Resolution  string `json:"resolution,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// Fit modes accepted by the render engine.
const (
	FitCover   = "cover"
	FitContain = "contain"
	FitFill    = "fill"
	FitNone    = "none"
)

// Asset is the discriminated union of clip content kinds. The concrete
// variant is determined entirely by the wire-level "type" field.
type Asset interface {
	AssetType() string
}

// VideoAsset plays a source video, optionally trimmed and speed-adjusted.
type VideoAsset struct {
	Src    string     `json:"src"`
	Trim   float64    `json:"trim,omitempty"`
	Volume float64    `json:"volume,omitempty"`
	Speed  float64    `json:"speed,omitempty"`
	Crop   *CropSpec  `json:"crop,omitempty"`
}

// ImageAsset shows a still image.
type ImageAsset struct {
	Src  string    `json:"src"`
	Crop *CropSpec `json:"crop,omitempty"`
}

// TitleAsset renders styled text.
type TitleAsset struct {
	Text     string `json:"text"`
	Style    string `json:"style,omitempty"`
	Color    string `json:"color,omitempty"`
	Size     string `json:"size,omitempty"`
	Position string `json:"position,omitempty"`
}

// HTMLAsset renders an HTML/CSS fragment.
type HTMLAsset struct {
	HTML   string `json:"html"`
	CSS    string `json:"css,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// AudioAsset plays a source audio file.
type AudioAsset struct {
	Src    string  `json:"src"`
	Trim   float64 `json:"trim,omitempty"`
	Volume float64 `json:"volume,omitempty"`
	Effect string  `json:"effect,omitempty"`
}

// LumaAsset is a luma-matte mask applied to the track below.
type LumaAsset struct {
	Src string `json:"src"`
}

// CropSpec trims the edges of a video or image asset. Values are fractions
// of the source dimension (0..1).
type CropSpec struct {
	Top    float64 `json:"top,omitempty"`
	Bottom float64 `json:"bottom,omitempty"`
	Left   float64 `json:"left,omitempty"`
	Right  float64 `json:"right,omitempty"`
}

// Asset type tags as they appear on the wire.
const (
	AssetTypeVideo = "video"
	AssetTypeImage = "image"
	AssetTypeTitle = "title"
	AssetTypeHTML  = "html"
	AssetTypeAudio = "audio"
	AssetTypeLuma  = "luma"
)

func (VideoAsset) AssetType() string { return AssetTypeVideo }
func (ImageAsset) AssetType() string { return AssetTypeImage }
func (TitleAsset) AssetType() string { return AssetTypeTitle }
func (HTMLAsset) AssetType() string  { return AssetTypeHTML }
func (AudioAsset) AssetType() string { return AssetTypeAudio }
func (LumaAsset) AssetType() string  { return AssetTypeLuma }

// KnownAssetType reports whether tag names one of the asset variants.
func KnownAssetType(tag string) bool {
	switch tag {
	case AssetTypeVideo, AssetTypeImage, AssetTypeTitle, AssetTypeHTML, AssetTypeAudio, AssetTypeLuma:
		return true
	}
	return false
}

// MarshalJSON emits the clip with the asset's type tag inlined.
func (c Clip) MarshalJSON() ([]byte, error) {
	type alias Clip // avoid recursion
	return json.Marshal(struct {
		alias
		Asset json.RawMessage `json:"asset"`
	}{
		alias: alias(c),
		Asset: marshalAsset(c.Asset),
	})
}

func marshalAsset(a Asset) json.RawMessage {
	if a == nil {
		return json.RawMessage("null")
	}
	body, err := json.Marshal(a)
	if err != nil {
		return json.RawMessage("null")
	}
	// Splice the discriminator into the variant's own fields.
	tag, _ := json.Marshal(struct {
		Type string `json:"type"`
	}{a.AssetType()})
	if len(body) <= 2 { // "{}"
		return tag
	}
	merged := append([]byte(`{"type":`), []byte(fmt.Sprintf("%q,", a.AssetType()))...)
	merged = append(merged, body[1:]...)
	return merged
}

// UnmarshalJSON decodes the clip, dispatching the asset on its type tag.
// An unknown or missing tag is not an error here; the validator reports it
// with track/clip position context instead.
func (c *Clip) UnmarshalJSON(data []byte) error {
	type alias Clip
	aux := struct {
		*alias
		Asset json.RawMessage `json:"asset"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Asset) == 0 || string(aux.Asset) == "null" {
		c.Asset = nil
		return nil
	}
	asset, err := UnmarshalAsset(aux.Asset)
	if err != nil {
		return err
	}
	c.Asset = asset
	return nil
}

// UnmarshalAsset decodes a single tagged asset value.
func UnmarshalAsset(data []byte) (Asset, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding asset type tag: %w", err)
	}

	var (
		asset Asset
		err   error
	)
	switch probe.Type {
	case AssetTypeVideo:
		var v VideoAsset
		err = json.Unmarshal(data, &v)
		asset = v
	case AssetTypeImage:
		var v ImageAsset
		err = json.Unmarshal(data, &v)
		asset = v
	case AssetTypeTitle:
		var v TitleAsset
		err = json.Unmarshal(data, &v)
		asset = v
	case AssetTypeHTML:
		var v HTMLAsset
		err = json.Unmarshal(data, &v)
		asset = v
	case AssetTypeAudio:
		var v AudioAsset
		err = json.Unmarshal(data, &v)
		asset = v
	case AssetTypeLuma:
		var v LumaAsset
		err = json.Unmarshal(data, &v)
		asset = v
	default:
		// Preserved so the validator can name the offending clip.
		return unknownAsset{tag: probe.Type}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s asset: %w", probe.Type, err)
	}
	return asset, nil
}

// unknownAsset carries an unrecognized type tag through to validation.
type unknownAsset struct {
	tag string
}

func (u unknownAsset) AssetType() string { return u.tag }
