package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/telegate/telegate/internal/domain"
)

// getMessages serves one page of channel history.
//
// Query parameters: limit, offset_id, date_from, date_to (RFC 3339),
// include_media, media_format (url|inline), text_format (plain|markdown).
func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodePageRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.messages.GetMessages(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) decodePageRequest(r *http.Request) (domain.PageRequest, error) {
	q := r.URL.Query()
	req := domain.PageRequest{
		Limit:        s.defaultLimit,
		IncludeMedia: true,
		MediaFormat:  domain.MediaFormatURL,
		TextFormat:   domain.TextPlain,
	}

	var err error
	if req.Limit, err = intParam(q.Get("limit"), req.Limit); err != nil {
		return req, fmt.Errorf("%w: limit: %v", domain.ErrInvalidRequest, err)
	}
	if req.OffsetID, err = intParam(q.Get("offset_id"), 0); err != nil {
		return req, fmt.Errorf("%w: offset_id: %v", domain.ErrInvalidRequest, err)
	}
	if req.DateFrom, err = timeParam(q.Get("date_from")); err != nil {
		return req, fmt.Errorf("%w: date_from: %v", domain.ErrInvalidRequest, err)
	}
	if req.DateTo, err = timeParam(q.Get("date_to")); err != nil {
		return req, fmt.Errorf("%w: date_to: %v", domain.ErrInvalidRequest, err)
	}
	if v := q.Get("include_media"); v != "" {
		if req.IncludeMedia, err = strconv.ParseBool(v); err != nil {
			return req, fmt.Errorf("%w: include_media: %v", domain.ErrInvalidRequest, err)
		}
	}
	if v := q.Get("media_format"); v != "" {
		if v != domain.MediaFormatURL && v != domain.MediaFormatInline {
			return req, fmt.Errorf("%w: media_format must be url or inline", domain.ErrInvalidRequest)
		}
		req.MediaFormat = v
	}
	if v := q.Get("text_format"); v != "" {
		if v != domain.TextPlain && v != domain.TextMarkdown {
			return req, fmt.Errorf("%w: text_format must be plain or markdown", domain.ErrInvalidRequest)
		}
		req.TextFormat = v
	}
	return req, nil
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func timeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

// getChannel serves details of the configured channel.
func (s *Server) getChannel(w http.ResponseWriter, r *http.Request) {
	info, err := s.messages.ChannelInfo(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// downloadMedia streams one cached media file, fetching it on a cache miss.
func (s *Server) downloadMedia(w http.ResponseWriter, r *http.Request) {
	msgID, err := strconv.Atoi(chi.URLParam(r, "message_id"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: message_id: %v", domain.ErrInvalidRequest, err))
		return
	}
	fileName := chi.URLParam(r, "file_name")

	path, err := s.media.Get(r.Context(), msgID, fileName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.ServeFile(w, r, path)
}

// health reports liveness plus connection and session state.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.messages.Health())
}
