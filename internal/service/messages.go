// Package service coordinates the session, pagination, normalization and
// media components into the operations the transport layer calls.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/telegate/telegate/internal/domain"
	"github.com/telegate/telegate/internal/telegram"
)

// Messages is the retrieval facade: the single data-plane entry point. A
// failed fetch leaves session state and the channel cache untouched.
type Messages struct {
	session  *telegram.SessionManager
	resolver *telegram.Resolver
	pager    *telegram.Pager
	media    *telegram.MediaResolver
	logger   *zap.Logger
}

func NewMessages(session *telegram.SessionManager, resolver *telegram.Resolver, pager *telegram.Pager, media *telegram.MediaResolver, logger *zap.Logger) *Messages {
	return &Messages{
		session:  session,
		resolver: resolver,
		pager:    pager,
		media:    media,
		logger:   logger,
	}
}

// GetMessages serves one page of channel history. Order of operations:
// session check, request validation, channel resolution, history fetch,
// normalization, media resolution.
func (s *Messages) GetMessages(ctx context.Context, req domain.PageRequest) (*domain.Page, error) {
	if err := s.session.EnsureAuthorized(); err != nil {
		return nil, err
	}
	if err := s.pager.Validate(req); err != nil {
		return nil, err
	}

	peer, title, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := s.pager.FetchPage(ctx, peer, req)
	if err != nil {
		return nil, err
	}

	msgs := make([]domain.Message, 0, len(raw.Messages))
	for _, rawMsg := range raw.Messages {
		msg := telegram.Normalize(rawMsg, raw.Users, req.TextFormat)
		msg.Media = s.media.Resolve(ctx, rawMsg, msg.Media, req.IncludeMedia, req.MediaFormat)
		msgs = append(msgs, msg)
	}

	s.logger.Debug("page assembled",
		zap.Int("requested", req.Limit),
		zap.Int("returned", len(msgs)),
		zap.Bool("has_more", raw.HasMore))

	return &domain.Page{
		ChannelID:    peer.ChannelID,
		ChannelTitle: title,
		Messages:     msgs,
		Pagination: domain.Pagination{
			TotalFetched: len(msgs),
			NextOffsetID: raw.NextOffsetID,
			HasMore:      raw.HasMore,
		},
	}, nil
}

// ChannelInfo returns details of the configured channel.
func (s *Messages) ChannelInfo(ctx context.Context) (domain.ChannelInfo, error) {
	if err := s.session.EnsureAuthorized(); err != nil {
		return domain.ChannelInfo{}, err
	}
	return s.resolver.Info(ctx)
}

// Health reports connection and authorization state without side effects.
func (s *Messages) Health() domain.Health {
	h := domain.Health{
		Connected:  s.session.Connected(),
		Authorized: s.session.IsAuthorized(),
	}
	h.Status = "healthy"
	if !h.Connected {
		h.Status = "degraded"
	}
	return h
}
