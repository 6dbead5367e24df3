package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/nao1215/swiftguard/internal/prompt"
)

// Translator translates short texts with the language model.
type Translator struct {
	sessions SessionCreator
}

// NewTranslator creates a Translator on top of sessions.
func NewTranslator(sessions SessionCreator) *Translator {
	return &Translator{sessions: sessions}
}

// Translate translates text from source into target. Both are BCP 47 tags.
// Empty text is returned unchanged, as is text whose languages already match.
func (t *Translator) Translate(ctx context.Context, source, target, text string) (string, error) {
	src, err := language.Parse(source)
	if err != nil {
		return "", fmt.Errorf("%w: source language %q: %v", ErrTranslatorUnavailable, source, err)
	}
	dst, err := language.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: target language %q: %v", ErrTranslatorUnavailable, target, err)
	}
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if baseOf(src) == baseOf(dst) {
		return text, nil
	}

	name := display.English.Tags().Name(dst)
	if name == "" {
		name = dst.String()
	}
	out, err := Run(ctx, t.sessions, SessionOptions{Temperature: 0, TopK: 1}, Prompt{Text: prompt.Translate(name, text)})
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrModelBusy) {
			return "", fmt.Errorf("%w: %v", ErrTranslatorUnavailable, err)
		}
		return "", fmt.Errorf("failed to translate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func baseOf(t language.Tag) language.Base {
	b, _ := t.Base()
	return b
}
