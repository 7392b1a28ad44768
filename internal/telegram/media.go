package telegram

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"github.com/telegate/telegate/internal/domain"
)

// messagesAPI is the raw call used to re-fetch a single message when its
// media bytes are requested lazily.
type messagesAPI interface {
	ChannelsGetMessages(ctx context.Context, request *tg.ChannelsGetMessagesRequest) (tg.MessagesMessagesClass, error)
}

// MediaResolver fills the fetch reference of a media descriptor. With
// format=url it only builds a lazily-dereferenced download path; with
// format=inline it pulls the bytes through the governor and embeds them
// base64-encoded. Inline failures degrade the one message's media to null
// instead of failing the page.
type MediaResolver struct {
	api       messagesAPI
	governor  *Governor
	logger    *zap.Logger
	urlPrefix string

	// download streams one file location to w; injectable for tests.
	download func(ctx context.Context, loc tg.InputFileLocationClass, w io.Writer) error
}

func NewMediaResolver(api *tg.Client, governor *Governor, urlPrefix string, logger *zap.Logger) *MediaResolver {
	r := &MediaResolver{
		api:       api,
		governor:  governor,
		logger:    logger,
		urlPrefix: urlPrefix,
	}
	r.download = func(ctx context.Context, loc tg.InputFileLocationClass, w io.Writer) error {
		_, err := downloader.NewDownloader().Download(api, loc).Stream(ctx, w)
		return err
	}
	return r
}

// Resolve completes the media descriptor of one normalized message. meta is
// the metadata-only descriptor produced by Normalize; the raw message
// supplies the file location for inline fetches.
func (r *MediaResolver) Resolve(ctx context.Context, raw *tg.Message, meta *domain.Media, includeMedia bool, format string) *domain.Media {
	if !includeMedia || meta == nil {
		return nil
	}

	out := *meta
	if format != domain.MediaFormatInline {
		out.URL = fmt.Sprintf("%s/%d/%s", r.urlPrefix, raw.ID, meta.FileName)
		return &out
	}

	var buf bytes.Buffer
	if err := r.Download(ctx, raw, &buf); err != nil {
		r.logger.Warn("inline media fetch failed, degrading to null",
			zap.Int("message_id", raw.ID), zap.Error(err))
		return nil
	}
	out.InlineData = base64.StdEncoding.EncodeToString(buf.Bytes())
	return &out
}

// Download streams the message's media bytes to w through the governor.
func (r *MediaResolver) Download(ctx context.Context, raw *tg.Message, w io.Writer) error {
	loc, ok := inputLocation(raw)
	if !ok {
		return domain.ErrMediaUnavailable
	}
	return r.governor.Do(ctx, "upload.getFile", func(ctx context.Context) error {
		return r.download(ctx, loc, w)
	})
}

// FetchMessage retrieves one channel message by id, for lazy media
// dereferencing.
func (r *MediaResolver) FetchMessage(ctx context.Context, peer *tg.InputPeerChannel, msgID int) (*tg.Message, error) {
	var found *tg.Message
	err := r.governor.Do(ctx, "channels.getMessages", func(ctx context.Context) error {
		result, err := r.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: peer.ChannelID, AccessHash: peer.AccessHash},
			ID:      []tg.InputMessageClass{&tg.InputMessageID{ID: msgID}},
		})
		if err != nil {
			return err
		}
		msgs, _, err := splitHistoryResult(result)
		if err != nil {
			return err
		}
		for _, raw := range msgs {
			if m, ok := raw.(*tg.Message); ok && m.ID == msgID {
				found = m
				return nil
			}
		}
		return fmt.Errorf("%w: id %d", domain.ErrMessageNotFound, msgID)
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// inputLocation derives the downloadable file location from a raw message.
func inputLocation(msg *tg.Message) (tg.InputFileLocationClass, bool) {
	media, ok := msg.GetMedia()
	if !ok {
		return nil, false
	}

	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photoClass, ok := m.GetPhoto()
		if !ok {
			return nil, false
		}
		photo, ok := photoClass.(*tg.Photo)
		if !ok {
			return nil, false
		}
		thumb, _, _, _ := largestPhotoSize(photo)
		if thumb == "" {
			return nil, false
		}
		return &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     thumb,
		}, true

	case *tg.MessageMediaDocument:
		docClass, ok := m.GetDocument()
		if !ok {
			return nil, false
		}
		doc, ok := docClass.(*tg.Document)
		if !ok {
			return nil, false
		}
		return &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		}, true

	default:
		return nil, false
	}
}
