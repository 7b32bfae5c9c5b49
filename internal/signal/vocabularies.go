package signal

// Vocabulary names used as keys in Set.Hits.
const (
	VocabColor      = "color"
	VocabChain      = "chain"
	VocabShort      = "short"
	VocabLong       = "long"
	VocabSize       = "size"
	VocabShade      = "shade"
	VocabMaterial   = "material"
	VocabCustomSize = "custom_size"
	VocabThanks     = "thanks"
	VocabRequest    = "request"
	VocabComplaint  = "complaint"
)

// Short tokens collide easily with other words, so everything a customer
// names concretely is matched whole-word. Only multi-word inquiry phrases
// and the thanks vocabulary ("thank" must also cover "thanks", "thankful")
// use substring containment.
var (
	Color = NewVocabulary(VocabColor, WholeWord, concat(
		Words("dark brown", "brown", "black", "white", "beige", "sienna", "red", "blue", "navy",
			"tan", "camel", "cream", "ivory", "pink", "green", "grey", "gray", "chocolate"),
		Labelled("gold", "gold", "golden", "oro"),
		Labelled("silver", "silver", "argento", "argent"),
	)...)

	Chain = NewVocabulary(VocabChain, WholeWord,
		Labelled("chain", "chain", "chains", "strap", "straps", "shoulder strap", "tracolla", "catena", "belt")...)

	Short = NewVocabulary(VocabShort, WholeWord,
		Labelled("shorter", "short", "shorter", "too short", "più corta", "più corto")...)

	Long = NewVocabulary(VocabLong, WholeWord,
		Labelled("longer", "long", "longer", "too long", "più lunga", "più lungo")...)

	Size = NewVocabulary(VocabSize, WholeWord,
		Words("mini", "small", "medium", "large", "xl", "vanity", "pm", "mm", "gm", "bb", "nano", "micro")...)

	Shade = NewVocabulary(VocabShade, WholeWord,
		Words("shade", "shades", "tone", "match the color", "match the colour", "matching color",
			"matching colour", "color match", "colour match", "same color", "same colour",
			"which color", "which colour", "what color", "what colour", "closest color", "closest colour")...)

	Material = NewVocabulary(VocabMaterial, WholeWord,
		Words("material", "materials", "leather", "felt", "fabric", "made of", "made from",
			"vegan", "suede", "canvas", "what is it made")...)

	CustomSize = NewVocabulary(VocabCustomSize, Substring,
		Words("custom size", "custom-size", "custom sizing", "custom made", "custom-made", "bespoke",
			"made to measure", "made-to-measure", "custom dimension", "specific size",
			"different size", "my measurements", "personalized size")...)

	Thanks = NewVocabulary(VocabThanks, Substring,
		Words("thank", "thx", "grazie", "merci", "appreciate", "love it", "loving it", "fits perfectly",
			"fit perfectly", "perfect fit", "fits great", "works perfectly", "works great", "all good",
			"great job", "so happy", "very happy", "happy with", "wonderful", "amazing")...)

	Request = NewVocabulary(VocabRequest, WholeWord,
		Words("i want", "please send", "replace", "i would rather have", "instead", "can you send",
			"could you send", "please ship", "send me", "i would like", "i'd like", "i need",
			"can i get", "could i get", "exchange")...)

	Complaint = NewVocabulary(VocabComplaint, WholeWord,
		Words("wrong", "broken", "damaged", "defective", "doesn't fit", "does not fit", "didn't fit",
			"not fit", "too small", "too big", "too large", "disappointed", "unhappy", "not happy",
			"problem", "issue", "missing", "refund", "complaint", "torn", "ripped", "stained")...)
)

// classified lists every vocabulary whose hits are recorded for the last message.
var classified = []*Vocabulary{Color, Chain, Short, Long, Size, Shade, Material, CustomSize, Thanks, Request, Complaint}

// keywordVocabs are the concrete size/colour/chain mentions echoed back in replies.
var keywordVocabs = []*Vocabulary{Size, Color, Chain, Short, Long}

func concat(groups ...[]Term) []Term {
	var out []Term
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
