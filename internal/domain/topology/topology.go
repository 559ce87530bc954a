// Package topology maps facial regions onto landmark indices of the 468-point
// face mesh. Sections only reference indices; they never hold coordinates.
package topology

// ModelPoints is the number of landmarks the face mesh exposes.
const ModelPoints = 468

// Kind separates the decorative mesh from the feature outlines.
type Kind int

// Section kinds.
const (
	Mesh Kind = iota
	Feature
)

func (k Kind) String() string {
	if k == Feature {
		return "feature"
	}
	return "mesh"
}

// Section names.
const (
	Contour      = "contour"
	Forehead     = "forehead"
	Cheeks       = "cheeks"
	Chin         = "chin"
	Temples      = "temples"
	Jawline      = "jawline"
	Neck         = "neck"
	LeftEyebrow  = "left_eyebrow"
	RightEyebrow = "right_eyebrow"
	LeftEye      = "left_eye"
	RightEye     = "right_eye"
	LipsOuter    = "lips_outer"
	LipsInner    = "lips_inner"
	NoseBridge   = "nose_bridge"
)

// Section is a named polyline through landmark indices.
type Section struct {
	Name    string
	Indices []int
	// Closed sections connect the last index back to the first.
	Closed bool
	Kind   Kind
}

// faceOval walks the silhouette clockwise from the top of the forehead.
var faceOval = []int{
	10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288,
	397, 365, 379, 378, 400, 377, 152, 148, 176, 149, 150, 136,
	172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
}

// rotate returns the oval starting at index value start.
func rotate(ring []int, start int) []int {
	for i, v := range ring {
		if v == start {
			out := make([]int, 0, len(ring))
			out = append(out, ring[i:]...)
			return append(out, ring[:i]...)
		}
	}
	return append([]int(nil), ring...)
}

// table is in draw order: mesh first, feature outlines on top.
var table = []Section{
	{Name: Contour, Indices: faceOval, Closed: true, Kind: Mesh},
	{Name: Forehead, Indices: faceOval, Kind: Mesh},
	{Name: Cheeks, Indices: []int{123, 50, 36, 137, 0, 11, 12, 13, 14, 15, 16, 17, 18, 200, 199, 175}, Kind: Mesh},
	{Name: Chin, Indices: []int{17, 84, 18, 313, 405, 320, 307, 375, 321, 308, 324, 318}, Kind: Mesh},
	{Name: Temples, Indices: rotate(faceOval, 103), Kind: Mesh},
	{Name: Jawline, Indices: rotate(faceOval, 132), Kind: Mesh},
	{Name: Neck, Indices: rotate(faceOval, 132), Kind: Mesh},
	{Name: LeftEyebrow, Indices: []int{276, 283, 282, 295, 285, 300, 293, 334, 296, 336}, Kind: Mesh},
	{Name: RightEyebrow, Indices: []int{46, 53, 52, 65, 55, 70, 63, 105, 66, 107}, Kind: Mesh},

	{Name: LeftEye, Indices: []int{362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398}, Closed: true, Kind: Feature},
	{Name: RightEye, Indices: []int{33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246}, Closed: true, Kind: Feature},
	{Name: LipsOuter, Indices: []int{61, 146, 91, 181, 84, 17, 314, 405, 321, 375, 291, 409, 270, 269, 267, 0, 37, 39, 40, 185}, Closed: true, Kind: Feature},
	{Name: LipsInner, Indices: []int{78, 95, 88, 178, 87, 14, 317, 402, 318, 324, 308, 415, 310, 311, 312, 13, 82, 81, 80, 191}, Closed: true, Kind: Feature},
	{Name: NoseBridge, Indices: []int{168, 6, 197, 195, 5, 4, 1}, Kind: Feature},
}

// Anchor landmarks used for bounds and sparse markers.
const (
	NoseTip          = 1
	RightEyeOuter    = 33
	RightEyeInner    = 133
	LeftEyeInner     = 362
	LeftEyeOuter     = 263
	MouthRightCorner = 61
	MouthLeftCorner  = 291
	ChinBottom       = 152
	ForeheadTop      = 10
)

var performanceKeyPoints = []int{
	ForeheadTop, ChinBottom, 234, 454,
	RightEyeOuter, LeftEyeOuter, NoseTip,
	MouthRightCorner, MouthLeftCorner, 13,
}

const accuracyKeyPointCount = 101

// Sections returns every section in draw order. The result is a copy.
func Sections() []Section {
	out := make([]Section, len(table))
	for i, s := range table {
		out[i] = s
		out[i].Indices = append([]int(nil), s.Indices...)
	}
	return out
}

// Lookup returns a copy of the named section.
func Lookup(name string) (Section, bool) {
	for _, s := range table {
		if s.Name == name {
			s.Indices = append([]int(nil), s.Indices...)
			return s, true
		}
	}
	return Section{}, false
}

// Mouth returns the indices of both lip outlines.
func Mouth() []int {
	out := make([]int, 0, 40)
	for _, name := range []string{LipsOuter, LipsInner} {
		s, _ := Lookup(name)
		out = append(out, s.Indices...)
	}
	return out
}

// BoundsIndices is the key-point subset the face box is computed from:
// the silhouette plus eye corners, nose tip and mouth corners.
func BoundsIndices() []int {
	out := append([]int(nil), faceOval...)
	return append(out,
		RightEyeOuter, RightEyeInner, LeftEyeInner, LeftEyeOuter,
		NoseTip, MouthRightCorner, MouthLeftCorner,
	)
}

// PerformanceKeyPoints is the sparse marker set.
func PerformanceKeyPoints() []int {
	return append([]int(nil), performanceKeyPoints...)
}

// AccuracyKeyPoints is the dense marker set, indices 0 through 100.
func AccuracyKeyPoints() []int {
	out := make([]int, accuracyKeyPointCount)
	for i := range out {
		out[i] = i
	}
	return out
}
