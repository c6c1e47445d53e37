package distance

// Variant is the estimation branch chosen for a class.
type Variant int

const (
	// VariantGeneric estimates from the class's reference dimension.
	VariantGeneric Variant = iota
	// VariantPerson estimates from height, compensating for bodies
	// cropped by the frame edge. Body width is too pose-dependent to use.
	VariantPerson
)

// PersonClass is the class name that selects VariantPerson.
const PersonClass = "person"

// edgeTolerancePx is how close a box may get to the frame border and
// still count as touching it.
const edgeTolerancePx = 10.0

// Visible fractions of a person's full height, by edge contact.
const (
	visibleLegsCropped = 0.75 // touches bottom only: head visible, legs cut
	visiblePartial     = 0.6  // touches neither edge
	visibleFull        = 1.0
)

func variantFor(class string) Variant {
	if class == PersonClass {
		return VariantPerson
	}
	return VariantGeneric
}

// VisibleFraction estimates how much of a person's height a box covers
// given where it sits in the frame:
//
//   - touches the bottom edge but not the top: 0.75
//   - touches neither edge: 0.6
//   - anything else (touches the top, or both): 1.0
func VisibleFraction(topY, height, frameHeight float64) float64 {
	bottom := topY + height
	clearOfTop := topY > edgeTolerancePx
	touchesBottom := bottom >= frameHeight-edgeTolerancePx

	switch {
	case touchesBottom && clearOfTop:
		return visibleLegsCropped
	case clearOfTop && !touchesBottom:
		return visiblePartial
	default:
		return visibleFull
	}
}
