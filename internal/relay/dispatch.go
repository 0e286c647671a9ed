package relay

import (
	"context"
	"fmt"

	"github.com/relaydesk/support-bot/internal/envelope"
	"github.com/relaydesk/support-bot/internal/provider"
)

type sendOp func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error

// sendOps maps every envelope kind to its provider send operation. The
// forward kind relays the original message verbatim instead of re-composing.
var sendOps = map[envelope.Kind]sendOp{
	envelope.KindText: func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
		return p.SendText(ctx, dest, env.Text)
	},
	envelope.KindPhoto: func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
		return p.SendPhoto(ctx, dest, env.FileID, env.Caption)
	},
	envelope.KindDocument: func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
		return p.SendDocument(ctx, dest, env.FileID, env.Caption)
	},
	envelope.KindVoice: func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
		return p.SendVoice(ctx, dest, env.FileID)
	},
	envelope.KindVideo: func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
		return p.SendVideo(ctx, dest, env.FileID, env.Caption)
	},
	envelope.KindVideoNote: func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
		return p.SendVideoNote(ctx, dest, env.FileID)
	},
	envelope.KindSticker: func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
		return p.SendSticker(ctx, dest, env.FileID)
	},
	envelope.KindLocation: func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
		return p.SendLocation(ctx, dest, env.Latitude, env.Longitude)
	},
	envelope.KindContact: func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
		return p.SendContact(ctx, dest, env.Phone, env.FirstName, env.LastName)
	},
	envelope.KindForward: func(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
		return p.Forward(ctx, dest, env.Original)
	},
}

func dispatch(ctx context.Context, p provider.Provider, dest provider.Destination, env envelope.Envelope) error {
	op, ok := sendOps[env.Kind]
	if !ok {
		return fmt.Errorf("no send operation for payload kind %q", env.Kind)
	}

	return op(ctx, p, dest, env)
}
