package domain

import "time"

// Reaction is a single reaction emoji with its count.
type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// Author identifies the user that posted a message. Channel posts without a
// visible author are represented as a nil *Author.
type Author struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Media describes an attachment on a message. URL is set for media_format=url,
// InlineData (base64 bytes) for media_format=inline.
type Media struct {
	Type       string `json:"type"`
	URL        string `json:"url,omitempty"`
	InlineData string `json:"inline_data,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	Duration   int    `json:"duration,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	FileName   string `json:"file_name,omitempty"`
}

// Media types.
const (
	MediaPhoto     = "photo"
	MediaVideo     = "video"
	MediaAudio     = "audio"
	MediaVoice     = "voice"
	MediaDocument  = "document"
	MediaAnimation = "animation"
	MediaSticker   = "sticker"
)

// Message is the stable representation of a channel message returned to API
// callers. Author and Media are pointers so their absence is an explicit JSON
// null rather than a zero value.
type Message struct {
	ID                  int        `json:"id"`
	Text                string     `json:"text"`
	Date                time.Time  `json:"date"`
	Views               int        `json:"views"`
	Forwards            int        `json:"forwards"`
	Reactions           []Reaction `json:"reactions"`
	Author              *Author    `json:"author"`
	Media               *Media     `json:"media"`
	ReplyToMessageID    int        `json:"reply_to_message_id,omitempty"`
	EditDate            *time.Time `json:"edit_date,omitempty"`
	HasProtectedContent bool       `json:"has_protected_content"`
}

// Text render modes for message bodies.
const (
	TextPlain    = "plain"
	TextMarkdown = "markdown"
)

// Media fetch formats.
const (
	MediaFormatURL    = "url"
	MediaFormatInline = "inline"
)

// PageRequest describes one history query against the configured channel.
type PageRequest struct {
	Limit        int
	OffsetID     int
	DateFrom     time.Time // zero means unbounded
	DateTo       time.Time // zero means unbounded
	IncludeMedia bool
	MediaFormat  string
	TextFormat   string
}

// Pagination carries the cursor state of a Page. NextOffsetID is the id of
// the oldest message in the page; pass it as the next request's offset_id.
type Pagination struct {
	TotalFetched int  `json:"total_fetched"`
	NextOffsetID int  `json:"next_offset_id,omitempty"`
	HasMore      bool `json:"has_more"`
}

// Page is one page of channel history, newest first.
type Page struct {
	ChannelID    int64      `json:"channel_id"`
	ChannelTitle string     `json:"channel_title"`
	Messages     []Message  `json:"messages"`
	Pagination   Pagination `json:"pagination"`
}

// ChannelInfo describes the configured target channel.
type ChannelInfo struct {
	ID                int64  `json:"id"`
	Username          string `json:"username,omitempty"`
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	ParticipantsCount int    `json:"participants_count,omitempty"`
}

// AuthState enumerates the session authorization state machine.
type AuthState int

const (
	AuthNone AuthState = iota
	AuthCodeRequested
	AuthTwoFactorRequired
	AuthAuthorized
)

func (s AuthState) String() string {
	switch s {
	case AuthCodeRequested:
		return "code_requested"
	case AuthTwoFactorRequired:
		return "2fa_required"
	case AuthAuthorized:
		return "authorized"
	default:
		return "unauthenticated"
	}
}

// AuthStatus is the control-plane view of the session.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	State         string `json:"state"`
	UserID        int64  `json:"user_id,omitempty"`
	Username      string `json:"username,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// Health reports connection and authorization state with no side effects.
type Health struct {
	Status     string `json:"status"`
	Connected  bool   `json:"telegram_connected"`
	Authorized bool   `json:"telegram_authorized"`
}
