package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
)

func TestRenderMarkdown_NoEntities(t *testing.T) {
	text := "Hello world"
	result := RenderMarkdown(text, nil)
	if result != text {
		t.Errorf("expected %q, got %q", text, result)
	}
}

func TestRenderMarkdown_Bold(t *testing.T) {
	// "Hello world" with "world" bold (offset=6, length=5)
	text := "Hello world"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityBold{Offset: 6, Length: 5},
	}
	result := RenderMarkdown(text, entities)
	expected := "Hello **world**"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_Italic(t *testing.T) {
	text := "Hello world"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityItalic{Offset: 6, Length: 5},
	}
	result := RenderMarkdown(text, entities)
	expected := "Hello *world*"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_Code(t *testing.T) {
	text := "Use fmt.Println here"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityCode{Offset: 4, Length: 11},
	}
	result := RenderMarkdown(text, entities)
	expected := "Use `fmt.Println` here"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_Pre(t *testing.T) {
	text := "func main() {}"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityPre{Offset: 0, Length: 14, Language: "go"},
	}
	result := RenderMarkdown(text, entities)
	expected := "```go\nfunc main() {}\n```"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_Strike(t *testing.T) {
	text := "old price"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityStrike{Offset: 0, Length: 3},
	}
	result := RenderMarkdown(text, entities)
	expected := "~~old~~ price"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_Spoiler(t *testing.T) {
	text := "the ending"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntitySpoiler{Offset: 4, Length: 6},
	}
	result := RenderMarkdown(text, entities)
	expected := "the ||ending||"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_TextURL(t *testing.T) {
	text := "click here"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityTextURL{Offset: 6, Length: 4, URL: "https://example.com"},
	}
	result := RenderMarkdown(text, entities)
	expected := "click [here](https://example.com)"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_URL(t *testing.T) {
	text := "see https://example.com now"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityURL{Offset: 4, Length: 19},
	}
	result := RenderMarkdown(text, entities)
	expected := "see [https://example.com](https://example.com) now"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_Blockquote(t *testing.T) {
	text := "wise words"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityBlockquote{Offset: 0, Length: 10},
	}
	result := RenderMarkdown(text, entities)
	expected := "> wise words"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_UTF16Offsets(t *testing.T) {
	// The emoji occupies two UTF-16 code units, so "hi" starts at offset 3.
	text := "😀 hi"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityBold{Offset: 3, Length: 2},
	}
	result := RenderMarkdown(text, entities)
	expected := "😀 **hi**"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_NestedSameRange(t *testing.T) {
	text := "hello"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityBold{Offset: 0, Length: 5},
		&tg.MessageEntityItalic{Offset: 0, Length: 5},
	}
	result := RenderMarkdown(text, entities)
	expected := "***hello***"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_EntityAtEnd(t *testing.T) {
	text := "ends bold"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityBold{Offset: 5, Length: 4},
	}
	result := RenderMarkdown(text, entities)
	expected := "ends **bold**"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRenderMarkdown_LengthPastEnd(t *testing.T) {
	// A malformed entity extending past the text must not panic.
	text := "short"
	entities := []tg.MessageEntityClass{
		&tg.MessageEntityBold{Offset: 0, Length: 50},
	}
	result := RenderMarkdown(text, entities)
	expected := "**short**"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}
