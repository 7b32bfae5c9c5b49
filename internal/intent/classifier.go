package intent

import "github.com/divitize/divitize-zendesk-bot/internal/signal"

// Input is what the classifier reads.
type Input struct {
	// Message is the latest customer message, raw.
	Message string
	Origin  Origin
	Signals signal.Set

	message string
}

// Classify returns exactly one Intent for the input. It is total: when no
// specific rule applies the result is NeedMoreInfo.
func Classify(in Input) Intent {
	intent, _ := Explain(in)
	return intent
}

// Explain is Classify that also names the rule that fired, for logging.
func Explain(in Input) (Intent, string) {
	in.message = signal.Normalize(in.Message)
	for _, r := range cascade {
		if intent, ok := r.match(&in); ok {
			return intent, r.name
		}
	}
	return needMoreInfo(&in), "need_more_info"
}
