package types

import "image"

// ClassID identifies an object class. It is kept as the raw token from the
// annotation file so ids like "07" survive unchanged.
type ClassID string

// NormalizedBox is a YOLO-style box with geometry relative to image size.
type NormalizedBox struct {
	ClassID ClassID `json:"class_id"`
	XCenter float64 `json:"x_center"`
	YCenter float64 `json:"y_center"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// PixelBox is an axis-aligned box in image space.
type PixelBox struct {
	X1, Y1, X2, Y2 int
}

// Width returns X2-X1
func (b PixelBox) Width() int { return b.X2 - b.X1 }

// Height returns Y2-Y1
func (b PixelBox) Height() int { return b.Y2 - b.Y1 }

// Rect converts the box to an image.Rectangle with X2/Y2 as the exclusive max.
func (b PixelBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Overlaps reports whether two boxes intersect. Boxes only count as disjoint
// when one lies strictly left, right, above or below the other, so boxes
// sharing an edge overlap.
func (b PixelBox) Overlaps(o PixelBox) bool {
	return !(b.X2 < o.X1 || b.X1 > o.X2 || b.Y2 < o.Y1 || b.Y1 > o.Y2)
}

// ObjectCrop is an extracted object image together with its class.
type ObjectCrop struct {
	Image   image.Image
	ClassID ClassID
	// Name is the on-disk file name the crop was loaded from or written to.
	Name string
}

// Candidate is an object after the transform stage, ready for placement.
type Candidate struct {
	Image   image.Image
	ClassID ClassID
	// SourceSize is the size of the crop before rotation. The scale factor
	// is derived from it; zero means use the transformed image size.
	SourceSize image.Point
}

// Placement is an accepted object: the resized image, its box on the canvas
// and the label line describing it.
type Placement struct {
	Image image.Image
	Box   PixelBox
	Label string
}

// Sample is one synthesized image and its labels, in acceptance order.
type Sample struct {
	Canvas *image.NRGBA
	Boxes  []PixelBox
	Labels []string
	// Background is the file name of the background the sample was built on.
	Background string
}
