package types

import "image"

// Box is a face bounding box in frame pixels: origin plus width and height.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Rect converts the box into an image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Scale multiplies every coordinate by f, truncating toward zero.
func (b Box) Scale(f float64) Box {
	return Box{
		X: int(float64(b.X) * f),
		Y: int(float64(b.Y) * f),
		W: int(float64(b.W) * f),
		H: int(float64(b.H) * f),
	}
}

// Clip shrinks the box so it lies inside bounds. An empty result has W or H of zero.
func (b Box) Clip(bounds image.Rectangle) Box {
	r := b.Rect().Intersect(bounds)
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Face is one entry of a detection result
type Face struct {
	Box      Box                `json:"box"`
	Emotions map[string]float64 `json:"emotions"` // label -> confidence in [0,1]
}
