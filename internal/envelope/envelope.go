// Package envelope classifies raw Telegram messages into kind-tagged
// envelopes carrying only the fields needed to re-send the payload.
package envelope

import (
	telebot "gopkg.in/telebot.v3"
)

// Kind identifies the primary content of a message.
type Kind string

const (
	KindText      Kind = "text"
	KindPhoto     Kind = "photo"
	KindDocument  Kind = "document"
	KindVoice     Kind = "voice"
	KindVideo     Kind = "video"
	KindVideoNote Kind = "video_note"
	KindSticker   Kind = "sticker"
	KindLocation  Kind = "location"
	KindContact   Kind = "contact"

	// KindForward marks payloads with no dedicated send operation; the router
	// forwards the original message verbatim instead of re-composing it.
	KindForward Kind = "forward"
)

// Envelope is the classified representation of a message payload.
type Envelope struct {
	Kind    Kind
	Text    string
	FileID  string
	Caption string

	Latitude  float32
	Longitude float32

	Phone     string
	FirstName string
	LastName  string

	// Original is kept for forward-style sends.
	Original *telebot.Message
}

// Classify inspects the populated fields of msg in a fixed priority order and
// returns the envelope for the first match. The order mirrors the source
// protocol, where a message carries exactly one primary content kind, and
// must stay stable for behavioral compatibility.
func Classify(msg *telebot.Message) Envelope {
	switch {
	case msg.Text != "":
		return Envelope{Kind: KindText, Text: msg.Text, Original: msg}
	case msg.Photo != nil:
		return Envelope{Kind: KindPhoto, FileID: msg.Photo.FileID, Caption: msg.Caption, Original: msg}
	case msg.Document != nil:
		return Envelope{Kind: KindDocument, FileID: msg.Document.FileID, Caption: msg.Caption, Original: msg}
	case msg.Voice != nil:
		return Envelope{Kind: KindVoice, FileID: msg.Voice.FileID, Original: msg}
	case msg.Video != nil:
		return Envelope{Kind: KindVideo, FileID: msg.Video.FileID, Caption: msg.Caption, Original: msg}
	case msg.VideoNote != nil:
		return Envelope{Kind: KindVideoNote, FileID: msg.VideoNote.FileID, Original: msg}
	case msg.Sticker != nil:
		return Envelope{Kind: KindSticker, FileID: msg.Sticker.FileID, Original: msg}
	case msg.Location != nil:
		return Envelope{Kind: KindLocation, Latitude: msg.Location.Lat, Longitude: msg.Location.Lng, Original: msg}
	case msg.Contact != nil:
		return Envelope{
			Kind:      KindContact,
			Phone:     msg.Contact.PhoneNumber,
			FirstName: msg.Contact.FirstName,
			LastName:  msg.Contact.LastName,
			Original:  msg,
		}
	default:
		return Envelope{Kind: KindForward, Original: msg}
	}
}
