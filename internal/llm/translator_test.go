package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/swiftguard/internal/model"
)

func TestTranslator(t *testing.T) {
	t.Parallel()

	available := []model.Availability{model.AvailabilityAvailable}

	t.Run("prompts with the english language name", func(t *testing.T) {
		t.Parallel()

		rt := &scriptedRuntime{script: available, answer: "  Esta página es una estafa.  "}
		tr := NewTranslator(NewManager(rt))

		got, err := tr.Translate(context.Background(), "en", "es", "This page is a scam.")
		if err != nil {
			t.Fatal(err)
		}
		if got != "Esta página es una estafa." {
			t.Errorf("Translate() = %q", got)
		}
		if len(rt.prompts) != 1 || !strings.Contains(rt.prompts[0].Text, "into Spanish.") {
			t.Errorf("prompt = %+v", rt.prompts)
		}
		if rt.lastOpts.TopK != 1 || rt.lastOpts.Temperature != 0 {
			t.Errorf("options = %+v", rt.lastOpts)
		}
	})

	t.Run("same language is returned unchanged", func(t *testing.T) {
		t.Parallel()

		rt := &scriptedRuntime{script: available}
		got, err := NewTranslator(NewManager(rt)).Translate(context.Background(), "en", "en-GB", "hello")
		if err != nil || got != "hello" {
			t.Errorf("Translate() = %q, %v", got, err)
		}
		if rt.creates != 0 {
			t.Error("model should not be used")
		}
	})

	t.Run("invalid target", func(t *testing.T) {
		t.Parallel()

		_, err := NewTranslator(NewManager(nil)).Translate(context.Background(), "en", "not a tag!", "hello")
		if !errors.Is(err, ErrTranslatorUnavailable) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("unavailable model", func(t *testing.T) {
		t.Parallel()

		_, err := NewTranslator(NewManager(nil)).Translate(context.Background(), "en", "ja", "hello")
		if !errors.Is(err, ErrTranslatorUnavailable) {
			t.Errorf("err = %v", err)
		}
	})
}
