package notify

import (
	"encoding/json"
	"testing"

	"github.com/nao1215/swiftguard/internal/model"
)

func TestHub(t *testing.T) {
	t.Parallel()

	t.Run("fans out to every subscriber", func(t *testing.T) {
		t.Parallel()

		h := NewHub()
		a, b := h.Subscribe(), h.Subscribe()
		defer a.Close()
		defer b.Close()

		h.Publish(Message{Action: ActionAnalyzing, Pipeline: model.PipelinePrepass})

		for _, s := range []*Subscription{a, b} {
			got := <-s.C()
			if got.Action != ActionAnalyzing || got.Pipeline != model.PipelinePrepass {
				t.Errorf("got %+v", got)
			}
		}
	})

	t.Run("publishing without subscribers is a no-op", func(t *testing.T) {
		t.Parallel()

		NewHub().Publish(Message{Action: ActionScamVerdict})
	})

	t.Run("full subscribers drop instead of blocking", func(t *testing.T) {
		t.Parallel()

		dropped := 0
		h := NewHub(WithBuffer(1), WithDropHook(func(Message) { dropped++ }))
		s := h.Subscribe()
		defer s.Close()

		h.Publish(Message{Action: ActionAnalyzing})
		h.Publish(Message{Action: ActionScamVerdict})

		if dropped != 1 {
			t.Errorf("dropped = %d, want 1", dropped)
		}
		if got := <-s.C(); got.Action != ActionAnalyzing {
			t.Errorf("kept %q, want the first message", got.Action)
		}
	})

	t.Run("close detaches and closes the channel", func(t *testing.T) {
		t.Parallel()

		h := NewHub()
		s := h.Subscribe()
		s.Close()
		s.Close()

		if h.Len() != 0 {
			t.Errorf("Len() = %d", h.Len())
		}
		if _, ok := <-s.C(); ok {
			t.Error("channel still open")
		}
		h.Publish(Message{Action: ActionAnalyzing})
	})
}

func TestMessageJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Message{Action: ActionChatbotIdle, ChatbotType: "chatgpt", MonitoringMode: model.MonitoringPromptGuard})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"action":"chatbot-idle","chatbotType":"chatgpt","monitoringMode":"promptguard"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestIsHostCommand(t *testing.T) {
	t.Parallel()

	if !(Message{Action: ActionOpenPopup}).IsHostCommand() {
		t.Error("open-popup is a host command")
	}
	if (Message{Action: ActionScamVerdict}).IsHostCommand() {
		t.Error("scam-verdict is not a host command")
	}
}
