package compose

import (
	"fmt"
	"strings"

	"github.com/divitize/divitize-zendesk-bot/internal/intent"
)

// NoReturnSentence reassures the customer that the old unit stays with them.
const NoReturnSentence = "Please don't worry about the current insert, you don't need to return it. " +
	"We'll take care of everything so you can simply enjoy your upgraded organizer."

// MaxEchoedKeywords caps the keywords repeated back in an explicit-request reply.
const MaxEchoedKeywords = 2

const (
	askModelLink = "the exact model name of your bag or a direct link to the one you own"
	askOrder     = "your order number"
)

// body returns the paragraph between greeting and sign-off.
func (c *Composer) body(in intent.Intent) string {
	switch in.Kind {
	case intent.KindPureThanks:
		return "Thank you so much for your kind words, we're really glad everything worked out! " +
			"If you have a moment, a short review would mean a lot to our small team and helps other customers find the right fit."
	case intent.KindReviewAlreadyLeft:
		return "Thank you so much for taking the time to leave a review, it really helps us and other customers. " +
			"We're always here if you need anything else."
	case intent.KindReviewPromised:
		return "That's very kind of you, thank you! Your review will help other customers find the right fit. " +
			"We're always here if you need anything else."
	case intent.KindChainLength:
		return fmt.Sprintf("Thanks for letting us know! We'll send a %s chain right away so you can get the perfect length. %s",
			in.Length, NoReturnSentence)
	case intent.KindChainColor:
		return fmt.Sprintf("Thanks for flagging the color. We'll send a %s chain as a replacement right away. %s",
			in.Color, NoReturnSentence)
	case intent.KindChainGeneric:
		return "Thanks for letting us know about the chain. We'll send you a replacement chain right away. " + NoReturnSentence
	case intent.KindPreSaleMaterial:
		return fmt.Sprintf("Thanks for your interest in %s! We'd be happy to tell you more about the materials. "+
			"Could you let us know which bag model you'd like the organizer for? We'll suggest the options that suit it best.", c.cfg.Brand)
	case intent.KindPreSaleCustomSize:
		return "Thanks for reaching out! We can look into a custom size for you. " +
			"Could you share the exact model of your bag, or its inner measurements (width x height x depth)? " +
			"We'll get back to you with the options."
	case intent.KindShadeMatch:
		return "Thanks for your message! To help you pick the best matching shade, could you send us a photo of your bag in natural light? " +
			"We'll suggest the closest color."
	case intent.KindExplicitReplacement:
		var b strings.Builder
		b.WriteString("Thanks for the details, we'll arrange a replacement right away")
		if kw := EchoKeywords(in.Keywords); kw != "" {
			fmt.Fprintf(&b, " (%s)", kw)
		}
		b.WriteString(". ")
		if in.AsksAboutReturn {
			b.WriteString("To answer your question: ")
		}
		b.WriteString(NoReturnSentence)
		b.WriteString("\nWe'll share the tracking as soon as it's available.")
		return b.String()
	case intent.KindReturnPolicy:
		return "Thanks for asking! " + NoReturnSentence + " If anything else needs adjusting, just let us know."
	default:
		return needInfo(in)
	}
}

func needInfo(in intent.Intent) string {
	opener := "Thanks for your message!"
	if in.PhotoReceived {
		opener = "Thank you for the photo!"
	}
	var asks []string
	if in.Missing.ModelLink {
		asks = append(asks, askModelLink)
	}
	if in.Missing.Order {
		asks = append(asks, askOrder)
	}
	if len(asks) == 0 {
		return opener + " We're checking everything and will get back to you shortly with the next steps."
	}
	return opener + " To make sure the fit is perfect, could you please share " + strings.Join(asks, " and ") + "?"
}

// EchoKeywords joins at most MaxEchoedKeywords keywords for display.
func EchoKeywords(keywords []string) string {
	if len(keywords) > MaxEchoedKeywords {
		keywords = keywords[:MaxEchoedKeywords]
	}
	return strings.Join(keywords, ", ")
}

// TrackingAnnouncement is the public message for a newly available tracking number.
func (c *Composer) TrackingAnnouncement(tracking string) string {
	return fmt.Sprintf("Hi again!\n\n"+
		"Here is the tracking number for your replacement: %s\n"+
		"You can follow the updates of your package by clicking on the link below:\n%s\n\n"+
		"Feel free to reach out if you have any questions or concerns along the way. "+
		"Wishing you a smooth delivery experience!\n\n"+
		"Warm regards,\n%s", tracking, c.CarrierLink(tracking), c.cfg.Persona)
}

// TrackingCorrection is the public message that supersedes an earlier tracking number.
func (c *Composer) TrackingCorrection(tracking string) string {
	return fmt.Sprintf("Hi again!\n\n"+
		"Please disregard the tracking number we sent earlier. "+
		"Here is the correct tracking number for your replacement: %s\n"+
		"You can follow the updates of your package by clicking on the link below:\n%s\n\n"+
		"Sorry for the confusion, and feel free to reach out if you have any questions.\n\n"+
		"Warm regards,\n%s", tracking, c.CarrierLink(tracking), c.cfg.Persona)
}

// CarrierLink fills the carrier link template with the tracking value.
func (c *Composer) CarrierLink(tracking string) string {
	tmpl := c.cfg.CarrierLinkTemplate
	if !strings.Contains(tmpl, "%s") {
		return tmpl + tracking
	}
	return strings.ReplaceAll(tmpl, "%s", tracking)
}
