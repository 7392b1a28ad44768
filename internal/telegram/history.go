package telegram

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gotd/td/tg"

	"github.com/telegate/telegate/internal/domain"
)

// historyAPI is the single raw call the pagination engine issues.
type historyAPI interface {
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
}

// RawPage is one assembled page of upstream records, newest first. It never
// leaves this package's callers (the service layer normalizes it).
type RawPage struct {
	Messages     []*tg.Message
	Users        map[int64]*tg.User
	NextOffsetID int
	HasMore      bool
}

// Pager translates a PageRequest into one or more history queries. Date
// filters are applied over fetched batches: out-of-range records still
// advance the cursor, and the engine pages forward until the limit is met,
// the history ends, or maxScanBatches is reached.
type Pager struct {
	api            historyAPI
	governor       *Governor
	maxLimit       int
	maxScanBatches int
	logger         *zap.Logger
}

func NewPager(api historyAPI, governor *Governor, maxLimit, maxScanBatches int, logger *zap.Logger) *Pager {
	return &Pager{
		api:            api,
		governor:       governor,
		maxLimit:       maxLimit,
		maxScanBatches: maxScanBatches,
		logger:         logger,
	}
}

// Validate checks request bounds. It runs before any upstream call.
func (p *Pager) Validate(req domain.PageRequest) error {
	if req.Limit < 1 || req.Limit > p.maxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidRequest, p.maxLimit)
	}
	if req.OffsetID < 0 {
		return fmt.Errorf("%w: offset_id must be >= 0", domain.ErrInvalidRequest)
	}
	if !req.DateFrom.IsZero() && !req.DateTo.IsZero() && req.DateFrom.After(req.DateTo) {
		return fmt.Errorf("%w: date_from is after date_to", domain.ErrInvalidRequest)
	}
	return nil
}

// FetchPage fetches up to req.Limit in-range messages older than
// req.OffsetID (0 means newest).
func (p *Pager) FetchPage(ctx context.Context, peer tg.InputPeerClass, req domain.PageRequest) (*RawPage, error) {
	if err := p.Validate(req); err != nil {
		return nil, err
	}

	page := &RawPage{Users: make(map[int64]*tg.User)}
	cursor := req.OffsetID
	reachedDateFloor := false

	for batch := 0; batch < p.maxScanBatches; batch++ {
		var result tg.MessagesMessagesClass
		err := p.governor.Do(ctx, "messages.getHistory", func(ctx context.Context) error {
			var err error
			result, err = p.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
				Peer:     peer,
				OffsetID: cursor,
				Limit:    req.Limit,
			})
			return err
		})
		if err != nil {
			return nil, err
		}

		msgs, users, err := splitHistoryResult(result)
		if err != nil {
			return nil, err
		}
		for id, u := range users {
			page.Users[id] = u
		}
		if len(msgs) == 0 {
			page.HasMore = false
			break
		}

		// Records arrive newest first; every consumed record advances the
		// cursor even when the date filter drops it.
		for _, raw := range msgs {
			cursor = raw.GetID()
			msg, ok := raw.(*tg.Message)
			if !ok {
				continue
			}
			date := time.Unix(int64(msg.Date), 0).UTC()
			if !req.DateFrom.IsZero() && date.Before(req.DateFrom) {
				// Descending order: everything older is below the floor too.
				reachedDateFloor = true
				break
			}
			if !req.DateTo.IsZero() && date.After(req.DateTo) {
				continue
			}
			page.Messages = append(page.Messages, msg)
			if len(page.Messages) == req.Limit {
				break
			}
		}

		batchFull := len(msgs) == req.Limit
		page.HasMore = batchFull && !reachedDateFloor
		if len(page.Messages) == req.Limit || reachedDateFloor || !batchFull {
			break
		}
		if batch == p.maxScanBatches-1 {
			p.logger.Debug("internal scan cap reached",
				zap.Int("batches", p.maxScanBatches), zap.Int("collected", len(page.Messages)))
		}
	}

	if n := len(page.Messages); n > 0 {
		page.NextOffsetID = page.Messages[n-1].ID
	} else {
		// A capped scan that collected nothing must still hand the caller a
		// cursor past the consumed records, or resuming would re-scan them.
		page.NextOffsetID = cursor
	}
	return page, nil
}

// splitHistoryResult unpacks the variants of a history response into message
// records and a user lookup map.
func splitHistoryResult(result tg.MessagesMessagesClass) ([]tg.MessageClass, map[int64]*tg.User, error) {
	var messages []tg.MessageClass
	var users []tg.UserClass

	switch r := result.(type) {
	case *tg.MessagesMessages:
		messages = r.Messages
		users = r.Users
	case *tg.MessagesMessagesSlice:
		messages = r.Messages
		users = r.Users
	case *tg.MessagesChannelMessages:
		messages = r.Messages
		users = r.Users
	default:
		return nil, nil, fmt.Errorf("unexpected messages type: %T", result)
	}

	return messages, usersToMap(users), nil
}

// usersToMap converts a UserClass slice to a map of User by ID.
func usersToMap(users []tg.UserClass) map[int64]*tg.User {
	m := make(map[int64]*tg.User, len(users))
	for _, u := range users {
		user, ok := u.(*tg.User)
		if !ok {
			continue
		}
		m[user.ID] = user
	}
	return m
}
