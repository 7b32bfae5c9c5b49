// Package intent classifies the latest customer message of a ticket into
// exactly one Intent, and the ticket itself into an Origin.
package intent

import (
	"fmt"
	"strings"
)

// Kind identifies which Intent variant was selected.
type Kind int

const (
	KindPureThanks Kind = iota
	KindReviewAlreadyLeft
	KindReviewPromised
	KindChainLength
	KindChainColor
	KindChainGeneric
	KindPreSaleMaterial
	KindPreSaleCustomSize
	KindShadeMatch
	KindExplicitReplacement
	KindReturnPolicy
	KindNeedMoreInfo
)

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPureThanks:
		return "pure_thanks"
	case KindReviewAlreadyLeft:
		return "review_already_left"
	case KindReviewPromised:
		return "review_promised"
	case KindChainLength:
		return "chain_length"
	case KindChainColor:
		return "chain_color"
	case KindChainGeneric:
		return "chain_generic"
	case KindPreSaleMaterial:
		return "pre_sale_material"
	case KindPreSaleCustomSize:
		return "pre_sale_custom_size"
	case KindShadeMatch:
		return "shade_match"
	case KindExplicitReplacement:
		return "explicit_replacement"
	case KindReturnPolicy:
		return "return_policy"
	case KindNeedMoreInfo:
		return "need_more_info"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Chain length sub-cases.
const (
	Longer  = "longer"
	Shorter = "shorter"
)

// Missing lists what an info request still has to ask for.
type Missing struct {
	Order     bool
	ModelLink bool
}

// Intent is a tagged variant. Only the fields belonging to Kind are set.
type Intent struct {
	Kind Kind

	// Length is Longer or Shorter for KindChainLength.
	Length string
	// Color is "gold" or "silver" for KindChainColor.
	Color string

	// Keywords are the concrete mentions echoed back for
	// KindExplicitReplacement, at most MaxKeywords, in encounter order.
	Keywords []string
	// AsksAboutReturn is set on KindExplicitReplacement when the message also
	// asks whether the old unit must be sent back.
	AsksAboutReturn bool

	// Missing is set for KindNeedMoreInfo.
	Missing Missing
	// PhotoReceived is set for KindNeedMoreInfo when the last message carried a photo.
	PhotoReceived bool
}

// MaxKeywords caps how many keywords an explicit request collects.
const MaxKeywords = 3

// String renders the kind and its payload, e.g. "chain_length(shorter)".
func (i Intent) String() string {
	switch i.Kind {
	case KindChainLength:
		return fmt.Sprintf("%s(%s)", i.Kind, i.Length)
	case KindChainColor:
		return fmt.Sprintf("%s(%s)", i.Kind, i.Color)
	case KindExplicitReplacement:
		return fmt.Sprintf("%s(%s)", i.Kind, strings.Join(i.Keywords, ","))
	case KindNeedMoreInfo:
		var parts []string
		if i.Missing.Order {
			parts = append(parts, "order")
		}
		if i.Missing.ModelLink {
			parts = append(parts, "model_link")
		}
		return fmt.Sprintf("%s(%s)", i.Kind, strings.Join(parts, ","))
	default:
		return i.Kind.String()
	}
}

// ArrangesReplacement reports whether a reply to this intent promises a
// replacement, which is when the no-return reassurance belongs in it.
func (i Intent) ArrangesReplacement() bool {
	switch i.Kind {
	case KindChainLength, KindChainColor, KindChainGeneric, KindExplicitReplacement, KindReturnPolicy:
		return true
	default:
		return false
	}
}
