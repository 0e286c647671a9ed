package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	telebot "gopkg.in/telebot.v3"
)

func TestClassify_Kinds(t *testing.T) {
	tests := []struct {
		name string
		msg  *telebot.Message
		want Envelope
	}{
		{
			name: "text",
			msg:  &telebot.Message{Text: "hello"},
			want: Envelope{Kind: KindText, Text: "hello"},
		},
		{
			name: "photo with caption",
			msg: &telebot.Message{
				Photo:   &telebot.Photo{File: telebot.File{FileID: "ph1"}},
				Caption: "look",
			},
			want: Envelope{Kind: KindPhoto, FileID: "ph1", Caption: "look"},
		},
		{
			name: "document",
			msg: &telebot.Message{
				Document: &telebot.Document{File: telebot.File{FileID: "doc1"}},
				Caption:  "invoice",
			},
			want: Envelope{Kind: KindDocument, FileID: "doc1", Caption: "invoice"},
		},
		{
			name: "voice",
			msg:  &telebot.Message{Voice: &telebot.Voice{File: telebot.File{FileID: "v1"}}},
			want: Envelope{Kind: KindVoice, FileID: "v1"},
		},
		{
			name: "video",
			msg:  &telebot.Message{Video: &telebot.Video{File: telebot.File{FileID: "vid1"}}},
			want: Envelope{Kind: KindVideo, FileID: "vid1"},
		},
		{
			name: "video note",
			msg:  &telebot.Message{VideoNote: &telebot.VideoNote{File: telebot.File{FileID: "vn1"}}},
			want: Envelope{Kind: KindVideoNote, FileID: "vn1"},
		},
		{
			name: "sticker",
			msg:  &telebot.Message{Sticker: &telebot.Sticker{File: telebot.File{FileID: "st1"}}},
			want: Envelope{Kind: KindSticker, FileID: "st1"},
		},
		{
			name: "location",
			msg:  &telebot.Message{Location: &telebot.Location{Lat: 55.75, Lng: 37.61}},
			want: Envelope{Kind: KindLocation, Latitude: 55.75, Longitude: 37.61},
		},
		{
			name: "contact",
			msg: &telebot.Message{Contact: &telebot.Contact{
				PhoneNumber: "+100200300",
				FirstName:   "Ann",
				LastName:    "Lee",
			}},
			want: Envelope{Kind: KindContact, Phone: "+100200300", FirstName: "Ann", LastName: "Lee"},
		},
		{
			name: "unknown content falls back to forward",
			msg:  &telebot.Message{Dice: &telebot.Dice{Type: "🎲"}},
			want: Envelope{Kind: KindForward},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.msg)

			assert.Same(t, tt.msg, got.Original)

			got.Original = nil
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// A message carrying several populated fields resolves to the highest
	// priority one; text wins over everything, photo over the rest.
	msg := &telebot.Message{
		Text:  "hi",
		Photo: &telebot.Photo{File: telebot.File{FileID: "ph1"}},
	}
	assert.Equal(t, KindText, Classify(msg).Kind)

	msg = &telebot.Message{
		Photo:    &telebot.Photo{File: telebot.File{FileID: "ph1"}},
		Document: &telebot.Document{File: telebot.File{FileID: "doc1"}},
	}
	assert.Equal(t, KindPhoto, Classify(msg).Kind)
}

func TestClassify_PhotoCaptionIsNotText(t *testing.T) {
	msg := &telebot.Message{
		Photo:   &telebot.Photo{File: telebot.File{FileID: "ph1"}},
		Caption: "caption text",
	}

	env := Classify(msg)
	assert.Equal(t, KindPhoto, env.Kind)
	assert.Equal(t, "caption text", env.Caption)
	assert.Empty(t, env.Text)
}
