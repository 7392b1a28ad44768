package telegram

import (
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/gotd/td/tg"
)

// span is a markdown wrapper applied over a UTF-16 code unit range.
type span struct {
	offset int
	length int
	open   string
	close  string
}

// RenderMarkdown converts a message body and its entity list into markdown.
// Telegram entities address UTF-16 code units, so the text is walked in
// UTF-16 space and converted back to UTF-8 at the end.
func RenderMarkdown(text string, entities []tg.MessageEntityClass) string {
	if len(entities) == 0 {
		return text
	}

	spans := make([]span, 0, len(entities))
	for _, e := range entities {
		s, ok := entitySpan(text, e)
		if !ok {
			continue
		}
		spans = append(spans, s)
	}
	if len(spans) == 0 {
		return text
	}

	// Earlier offsets first; on equal offsets longer spans first so nesting
	// closes inner wrappers before outer ones.
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].offset != spans[j].offset {
			return spans[i].offset < spans[j].offset
		}
		return spans[i].length > spans[j].length
	})

	units := utf16.Encode([]rune(text))

	type marker struct {
		pos    int
		text   string
		isOpen bool
		index  int
	}
	var markers []marker
	for i, s := range spans {
		end := s.offset + s.length
		if end > len(units) {
			end = len(units)
		}
		markers = append(markers, marker{pos: s.offset, text: s.open, isOpen: true, index: i})
		markers = append(markers, marker{pos: end, text: s.close, index: i})
	}

	// At the same position closings run before openings, and closings unwind
	// in reverse span order (last opened closes first).
	sort.SliceStable(markers, func(i, j int) bool {
		if markers[i].pos != markers[j].pos {
			return markers[i].pos < markers[j].pos
		}
		if markers[i].isOpen != markers[j].isOpen {
			return !markers[i].isOpen
		}
		if !markers[i].isOpen {
			return markers[i].index > markers[j].index
		}
		return markers[i].index < markers[j].index
	})

	var b strings.Builder
	next := 0
	for i := 0; i <= len(units); i++ {
		for next < len(markers) && markers[next].pos == i {
			b.WriteString(markers[next].text)
			next++
		}
		if i >= len(units) {
			break
		}
		if utf16.IsSurrogate(rune(units[i])) && i+1 < len(units) {
			b.WriteRune(utf16.DecodeRune(rune(units[i]), rune(units[i+1])))
			i++
			continue
		}
		b.WriteRune(rune(units[i]))
	}
	return b.String()
}

// entitySpan maps one Telegram entity to its markdown wrapper. Unknown
// entity kinds pass through unwrapped.
func entitySpan(text string, entity tg.MessageEntityClass) (span, bool) {
	offset := entity.GetOffset()
	length := entity.GetLength()

	switch e := entity.(type) {
	case *tg.MessageEntityBold:
		return span{offset, length, "**", "**"}, true
	case *tg.MessageEntityItalic:
		return span{offset, length, "*", "*"}, true
	case *tg.MessageEntityUnderline:
		// No markdown underline; fall back to emphasis.
		return span{offset, length, "*", "*"}, true
	case *tg.MessageEntityStrike:
		return span{offset, length, "~~", "~~"}, true
	case *tg.MessageEntityCode:
		return span{offset, length, "`", "`"}, true
	case *tg.MessageEntityPre:
		return span{offset, length, "```" + e.Language + "\n", "\n```"}, true
	case *tg.MessageEntityTextURL:
		return span{offset, length, "[", "](" + e.URL + ")"}, true
	case *tg.MessageEntityURL:
		url := utf16Slice(text, offset, length)
		return span{offset, length, "[", "](" + url + ")"}, true
	case *tg.MessageEntityEmail:
		addr := utf16Slice(text, offset, length)
		return span{offset, length, "[", "](mailto:" + addr + ")"}, true
	case *tg.MessageEntityBlockquote:
		return span{offset, length, "> ", ""}, true
	case *tg.MessageEntitySpoiler:
		return span{offset, length, "||", "||"}, true
	case *tg.MessageEntityMention, *tg.MessageEntityMentionName, *tg.MessageEntityHashtag:
		return span{offset, length, "**", "**"}, true
	case *tg.MessageEntityBotCommand:
		return span{offset, length, "`", "`"}, true
	default:
		return span{}, false
	}
}

// utf16Slice extracts a substring addressed by UTF-16 offset and length.
func utf16Slice(text string, offset, length int) string {
	units := utf16.Encode([]rune(text))
	if offset >= len(units) {
		return ""
	}
	end := offset + length
	if end > len(units) {
		end = len(units)
	}
	return string(utf16.Decode(units[offset:end]))
}
