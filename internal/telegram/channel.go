package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/telegate/telegate/internal/domain"
)

// botAPIChannelPrefix is the -100 marker Bot-API-style channel ids carry.
const botAPIChannelPrefix = "-100"

// dialogScanLimit bounds the dialog window searched when the channel is
// configured by numeric id. Access hashes are only obtainable from peers the
// account has seen, so a channel outside the most recent dialogs is treated
// as inaccessible.
const dialogScanLimit = 100

// resolveAPI is the slice of the raw API channel resolution needs.
type resolveAPI interface {
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	ChannelsGetFullChannel(ctx context.Context, channel tg.InputChannelClass) (*tg.MessagesChatFull, error)
}

// Resolver turns the configured channel reference (public handle or numeric
// id) into a canonical input peer, exactly once per process. The resolved
// peer and title are read-only afterwards; Invalidate forces a re-resolve.
type Resolver struct {
	api      resolveAPI
	governor *Governor
	ref      string
	logger   *zap.Logger

	mu    sync.RWMutex
	peer  *tg.InputPeerChannel
	title string
	uname string
}

func NewResolver(api resolveAPI, governor *Governor, channelRef string, logger *zap.Logger) *Resolver {
	return &Resolver{
		api:      api,
		governor: governor,
		ref:      channelRef,
		logger:   logger,
	}
}

// Resolve returns the canonical channel peer and title, resolving and caching
// on first use.
func (r *Resolver) Resolve(ctx context.Context) (*tg.InputPeerChannel, string, error) {
	r.mu.RLock()
	if r.peer != nil {
		peer, title := r.peer, r.title
		r.mu.RUnlock()
		return peer, title, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.peer != nil {
		return r.peer, r.title, nil
	}

	var ch *tg.Channel
	var err error
	if id, numeric := parseChannelID(r.ref); numeric {
		ch, err = r.findByID(ctx, id)
	} else {
		ch, err = r.resolveUsername(ctx, strings.TrimPrefix(r.ref, "@"))
	}
	if err != nil {
		return nil, "", err
	}

	r.peer = &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
	r.title = ch.Title
	r.uname = ch.Username
	r.logger.Info("resolved target channel",
		zap.String("ref", r.ref), zap.Int64("id", ch.ID), zap.String("title", ch.Title))
	return r.peer, r.title, nil
}

// Invalidate drops the cached peer so the next call re-resolves.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peer = nil
	r.title = ""
	r.uname = ""
}

// Info fetches full channel details for the configured channel.
func (r *Resolver) Info(ctx context.Context) (domain.ChannelInfo, error) {
	peer, title, err := r.Resolve(ctx)
	if err != nil {
		return domain.ChannelInfo{}, err
	}

	info := domain.ChannelInfo{ID: peer.ChannelID, Title: title}
	r.mu.RLock()
	info.Username = r.uname
	r.mu.RUnlock()

	err = r.governor.Do(ctx, "channels.getFullChannel", func(ctx context.Context) error {
		full, err := r.api.ChannelsGetFullChannel(ctx, &tg.InputChannel{
			ChannelID:  peer.ChannelID,
			AccessHash: peer.AccessHash,
		})
		if err != nil {
			return err
		}
		if cf, ok := full.FullChat.(*tg.ChannelFull); ok {
			info.Description = cf.About
			info.ParticipantsCount = cf.ParticipantsCount
		}
		return nil
	})
	if err != nil {
		return domain.ChannelInfo{}, channelError(err)
	}
	return info, nil
}

func (r *Resolver) resolveUsername(ctx context.Context, username string) (*tg.Channel, error) {
	var ch *tg.Channel
	err := r.governor.Do(ctx, "contacts.resolveUsername", func(ctx context.Context) error {
		resolved, err := r.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
			Username: username,
		})
		if err != nil {
			return err
		}
		for _, chat := range resolved.Chats {
			if c, ok := chat.(*tg.Channel); ok {
				ch = c
				return nil
			}
		}
		return fmt.Errorf("%w: %q is not a channel", domain.ErrChannelNotAccessible, username)
	})
	if err != nil {
		return nil, channelError(err)
	}
	return ch, nil
}

// findByID scans the account's dialogs for a channel with the given id. This
// is the only way to recover an access hash for a numeric reference.
func (r *Resolver) findByID(ctx context.Context, id int64) (*tg.Channel, error) {
	var ch *tg.Channel
	err := r.governor.Do(ctx, "messages.getDialogs", func(ctx context.Context) error {
		res, err := r.api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetPeer: &tg.InputPeerEmpty{},
			Limit:      dialogScanLimit,
		})
		if err != nil {
			return err
		}

		var chats []tg.ChatClass
		switch d := res.(type) {
		case *tg.MessagesDialogs:
			chats = d.Chats
		case *tg.MessagesDialogsSlice:
			chats = d.Chats
		default:
			return fmt.Errorf("unexpected dialogs type: %T", res)
		}
		for _, chat := range chats {
			if c, ok := chat.(*tg.Channel); ok && c.ID == id {
				ch = c
				return nil
			}
		}
		return fmt.Errorf("%w: channel %d not in account dialogs", domain.ErrChannelNotAccessible, id)
	})
	if err != nil {
		return nil, channelError(err)
	}
	return ch, nil
}

// parseChannelID accepts bare numeric ids and the Bot-API -100-prefixed form.
func parseChannelID(ref string) (int64, bool) {
	s := ref
	if strings.HasPrefix(s, botAPIChannelPrefix) && len(s) > len(botAPIChannelPrefix) {
		s = s[len(botAPIChannelPrefix):]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// channelError maps upstream resolution failures onto the stable taxonomy.
func channelError(err error) error {
	if tgerr.Is(err, "CHANNEL_PRIVATE", "CHANNEL_INVALID", "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID") {
		return fmt.Errorf("%w: %v", domain.ErrChannelNotAccessible, err)
	}
	return err
}
