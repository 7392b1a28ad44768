package telegram

import (
	"fmt"
	"time"

	"github.com/gotd/td/tg"

	"github.com/telegate/telegate/internal/domain"
)

// Normalize maps a raw upstream message to the stable output schema. It is a
// pure function: no I/O, and the same raw record always yields the same
// shape. Media carries metadata only; fetch references are filled in by the
// media resolver.
func Normalize(msg *tg.Message, users map[int64]*tg.User, textFormat string) domain.Message {
	out := domain.Message{
		ID:                  msg.ID,
		Text:                msg.Message,
		Date:                time.Unix(int64(msg.Date), 0).UTC(),
		Author:              normalizeAuthor(msg, users),
		Media:               normalizeMedia(msg),
		Reactions:           normalizeReactions(msg),
		HasProtectedContent: msg.Noforwards,
	}

	if textFormat == domain.TextMarkdown {
		out.Text = RenderMarkdown(msg.Message, msg.Entities)
	}
	if views, ok := msg.GetViews(); ok {
		out.Views = views
	}
	if forwards, ok := msg.GetForwards(); ok {
		out.Forwards = forwards
	}
	if edit, ok := msg.GetEditDate(); ok {
		t := time.Unix(int64(edit), 0).UTC()
		out.EditDate = &t
	}
	if reply, ok := msg.GetReplyTo(); ok {
		if hdr, ok := reply.(*tg.MessageReplyHeader); ok {
			out.ReplyToMessageID = hdr.ReplyToMsgID
		}
	}
	return out
}

// normalizeAuthor resolves the posting user, or nil for anonymous channel
// posts and users missing from the response's entity list.
func normalizeAuthor(msg *tg.Message, users map[int64]*tg.User) *domain.Author {
	from, ok := msg.GetFromID()
	if !ok {
		return nil
	}
	peer, ok := from.(*tg.PeerUser)
	if !ok {
		return nil
	}
	u, ok := users[peer.UserID]
	if !ok {
		return nil
	}
	return &domain.Author{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// normalizeReactions deduplicates reactions by emoji and orders them by
// descending count, ties broken by first-seen position. Custom emoji
// reactions carry no renderable symbol and are dropped.
func normalizeReactions(msg *tg.Message) []domain.Reaction {
	reactions, ok := msg.GetReactions()
	if !ok || len(reactions.Results) == 0 {
		return nil
	}

	var out []domain.Reaction
	index := make(map[string]int)
	for _, rc := range reactions.Results {
		emoji, ok := rc.Reaction.(*tg.ReactionEmoji)
		if !ok {
			continue
		}
		if i, seen := index[emoji.Emoticon]; seen {
			out[i].Count += rc.Count
			continue
		}
		index[emoji.Emoticon] = len(out)
		out = append(out, domain.Reaction{Emoji: emoji.Emoticon, Count: rc.Count})
	}
	if len(out) == 0 {
		return nil
	}

	// Stable insertion sort keeps first-seen order on equal counts.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Count > out[j-1].Count; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// normalizeMedia derives the media descriptor's metadata from the raw
// attachment, or nil when the message carries nothing fetchable.
func normalizeMedia(msg *tg.Message) *domain.Media {
	media, ok := msg.GetMedia()
	if !ok {
		return nil
	}

	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photoClass, ok := m.GetPhoto()
		if !ok {
			return nil
		}
		photo, ok := photoClass.(*tg.Photo)
		if !ok {
			return nil
		}
		_, w, h, size := largestPhotoSize(photo)
		return &domain.Media{
			Type:     domain.MediaPhoto,
			MimeType: "image/jpeg",
			FileName: fmt.Sprintf("%d.jpg", msg.ID),
			FileSize: int64(size),
			Width:    w,
			Height:   h,
		}

	case *tg.MessageMediaDocument:
		docClass, ok := m.GetDocument()
		if !ok {
			return nil
		}
		doc, ok := docClass.(*tg.Document)
		if !ok {
			return nil
		}
		return documentMedia(msg.ID, doc)

	default:
		return nil
	}
}

func documentMedia(msgID int, doc *tg.Document) *domain.Media {
	out := &domain.Media{
		Type:     domain.MediaDocument,
		FileSize: doc.Size,
		MimeType: doc.MimeType,
	}

	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeVideo:
			out.Type = domain.MediaVideo
			out.Width = a.W
			out.Height = a.H
			out.Duration = int(a.Duration)
		case *tg.DocumentAttributeAudio:
			if a.Voice {
				out.Type = domain.MediaVoice
			} else {
				out.Type = domain.MediaAudio
			}
			out.Duration = a.Duration
		case *tg.DocumentAttributeAnimated:
			out.Type = domain.MediaAnimation
		case *tg.DocumentAttributeSticker:
			out.Type = domain.MediaSticker
		case *tg.DocumentAttributeImageSize:
			out.Width = a.W
			out.Height = a.H
		case *tg.DocumentAttributeFilename:
			out.FileName = a.FileName
		}
	}

	if out.FileName == "" {
		out.FileName = fmt.Sprintf("%d%s", msgID, extensionFor(out.Type))
	}
	return out
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case domain.MediaVideo, domain.MediaAnimation:
		return ".mp4"
	case domain.MediaAudio:
		return ".mp3"
	case domain.MediaVoice:
		return ".ogg"
	case domain.MediaSticker:
		return ".webp"
	default:
		return ".bin"
	}
}

// largestPhotoSize picks the biggest available size variant of a photo.
func largestPhotoSize(photo *tg.Photo) (typ string, w, h, size int) {
	for _, s := range photo.Sizes {
		switch ps := s.(type) {
		case *tg.PhotoSize:
			if ps.W*ps.H >= w*h {
				typ, w, h, size = ps.Type, ps.W, ps.H, ps.Size
			}
		case *tg.PhotoSizeProgressive:
			if ps.W*ps.H >= w*h {
				typ, w, h = ps.Type, ps.W, ps.H
				if n := len(ps.Sizes); n > 0 {
					size = ps.Sizes[n-1]
				}
			}
		}
	}
	return typ, w, h, size
}
