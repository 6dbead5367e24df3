package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestPipelineChatbot tests the chatbot pipeline helpers.
func TestPipelineChatbot(t *testing.T) {
	t.Parallel()

	t.Run("builds and splits chatbot pipelines", func(t *testing.T) {
		t.Parallel()
		p := ChatbotPipeline(ChatbotChatGPT)
		if p != "chatbots-chatgpt" {
			t.Errorf("got %q", p)
		}
		if !p.IsChatbot() {
			t.Error("expected chatbot pipeline")
		}
		if p.ChatbotType() != "chatgpt" {
			t.Errorf("got vendor %q", p.ChatbotType())
		}
	})

	t.Run("non chatbot pipeline has no vendor", func(t *testing.T) {
		t.Parallel()
		if PipelineScam.IsChatbot() {
			t.Error("scam is not a chatbot pipeline")
		}
		if PipelineScam.ChatbotType() != "" {
			t.Error("expected empty vendor")
		}
	})

	t.Run("social pipelines", func(t *testing.T) {
		t.Parallel()
		if !PipelineSocial.IsSocial() || !PipelineSocialInstagramPost.IsSocial() {
			t.Error("expected both social pipelines to be social")
		}
		if PipelineNews.IsSocial() {
			t.Error("news is not social")
		}
	})
}

// TestPageRecordClone tests that Clone does not share mutable state.
func TestPageRecordClone(t *testing.T) {
	t.Parallel()

	orig := &PageRecord{
		Status: StatusComplete,
		Meta:   map[string]string{"og:title": "a"},
		News:   &NewsResult{Phrases: []string{"x"}},
	}
	c := orig.Clone()
	c.Meta["og:title"] = "b"
	c.News.Phrases[0] = "y"

	if orig.Meta["og:title"] != "a" {
		t.Error("meta was shared")
	}
	if orig.News.Phrases[0] != "x" {
		t.Error("phrases were shared")
	}
	if (*PageRecord)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

// TestNewsVerdictJSON tests that the empty news verdict encodes as null.
func TestNewsVerdictJSON(t *testing.T) {
	t.Parallel()

	t.Run("none encodes as null", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(NewsResult{})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"verdict":null`) {
			t.Errorf("expected null verdict in %s", data)
		}
	})

	t.Run("null decodes as none", func(t *testing.T) {
		t.Parallel()
		var r NewsResult
		if err := json.Unmarshal([]byte(`{"verdict":null}`), &r); err != nil {
			t.Fatal(err)
		}
		if r.Verdict != NewsVerdictNone {
			t.Errorf("got %q", r.Verdict)
		}
	})

	t.Run("only questionable surfaces", func(t *testing.T) {
		t.Parallel()
		for _, v := range []NewsVerdict{NewsVerdictNone, NewsVerdictTrue, NewsVerdictUnrelated} {
			if v.Surfaces() {
				t.Errorf("%q should not surface", v)
			}
		}
		if !NewsVerdictQuestionable.Surfaces() {
			t.Error("questionable should surface")
		}
	})
}

// TestParseModes tests monitoring and inference mode parsing.
func TestParseModes(t *testing.T) {
	t.Parallel()

	t.Run("monitoring mode defaults to promptguard", func(t *testing.T) {
		t.Parallel()
		m, err := ParseMonitoringMode("")
		if err != nil || m != MonitoringPromptGuard {
			t.Errorf("got %q, %v", m, err)
		}
		if _, err := ParseMonitoringMode("loud"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("inference mode defaults to on-device", func(t *testing.T) {
		t.Parallel()
		m, err := ParseInferenceMode("")
		if err != nil || m != InferenceOnDevice {
			t.Errorf("got %q, %v", m, err)
		}
		if _, err := ParseInferenceMode("edge"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("enrollment requires both ids", func(t *testing.T) {
		t.Parallel()
		if (Enrollment{FamilyID: "f"}).Enrolled() {
			t.Error("expected not enrolled")
		}
		if !(Enrollment{FamilyID: "f", FamilyUserID: "u"}).Enrolled() {
			t.Error("expected enrolled")
		}
	})
}
