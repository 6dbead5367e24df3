package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a PageRecord.
type Status string

const (
	// StatusProcessing marks a record whose episode is still running.
	StatusProcessing Status = "processing"
	// StatusComplete marks a record with a terminal verdict.
	StatusComplete Status = "complete"
)

// Pipeline names the handler that produced or owns a record.
type Pipeline string

// Pipelines known to the router. Chatbot pipelines are built with ChatbotPipeline.
const (
	PipelineExclude             Pipeline = "exclude"
	PipelineNews                Pipeline = "news"
	PipelineEcommerce           Pipeline = "ecommerce"
	PipelineScam                Pipeline = "scam"
	PipelineSocial              Pipeline = "social"
	PipelineSocialInstagramPost Pipeline = "social-instagram-post"
	PipelinePrepass             Pipeline = "prepass"
	PipelineRescan              Pipeline = "rescan"

	// chatbotPrefix is shared by every chatbots-<vendor> pipeline.
	chatbotPrefix = "chatbots-"
)

// Chatbot vendors recognized by the rule classifier.
const (
	ChatbotGoogle  = "google"
	ChatbotChatGPT = "chatgpt"
	ChatbotClaude  = "claude"
)

// ChatbotPipeline returns the chatbots-<vendor> pipeline for vendor.
func ChatbotPipeline(vendor string) Pipeline {
	return Pipeline(chatbotPrefix + vendor)
}

// IsChatbot reports whether p is a chatbots-<vendor> pipeline.
func (p Pipeline) IsChatbot() bool {
	return strings.HasPrefix(string(p), chatbotPrefix)
}

// ChatbotType returns the vendor part of a chatbot pipeline, or "" otherwise.
func (p Pipeline) ChatbotType() string {
	if !p.IsChatbot() {
		return ""
	}
	return strings.TrimPrefix(string(p), chatbotPrefix)
}

// IsSocial reports whether p is one of the social pipelines.
func (p Pipeline) IsSocial() bool {
	return p == PipelineSocial || p == PipelineSocialInstagramPost
}

// Verdict is the pipeline-specific outcome stored on a record.
type Verdict string

// Scam pipeline verdicts.
const (
	VerdictScam      Verdict = "Scam"
	VerdictMarketing Verdict = "Marketing"
	VerdictUncertain Verdict = "Uncertain"
	VerdictBenign    Verdict = "Benign"
	VerdictError     Verdict = "Error"
)

// Ecommerce pipeline verdicts.
const (
	VerdictSafe           Verdict = "Safe"
	VerdictWarning        Verdict = "Warning"
	VerdictHighRiskScam   Verdict = "HighRiskScam"
	VerdictFlashDriveScam Verdict = "FlashDriveScam"
	VerdictRescan         Verdict = "Rescan"
)

// Verdicts for chatbot and social pages.
const (
	VerdictChatbot     Verdict = "Chatbot"
	VerdictSocialMedia Verdict = "SocialMedia"
)

// KeySource records which input the PageKey was derived from.
type KeySource string

const (
	// KeySourceOGURL means the key is the page's og:url.
	KeySourceOGURL KeySource = "og:url"
	// KeySourceURL means the key is the navigation URL without query and fragment.
	KeySourceURL KeySource = "url"
)

// PageRecord is the persisted classification state of one PageKey.
//
// The JSON field names are read by the extension popup, so they are part of
// the wire format.
type PageRecord struct {
	Status         Status            `json:"status,omitempty"`
	Pipeline       Pipeline          `json:"pipeline,omitempty"`
	Verdict        Verdict           `json:"verdict,omitempty"`
	Reasoning      string            `json:"reasoning,omitempty"`
	Count          int               `json:"count,omitempty"`
	Timestamp      time.Time         `json:"timestamp,omitzero"`
	MonitoringMode MonitoringMode    `json:"monitoringMode,omitempty"`
	KeySource      KeySource         `json:"keySource,omitempty"`
	Meta           map[string]string `json:"meta,omitempty"`
	News           *NewsResult       `json:"news,omitempty"`
	SocialScan     *SocialScan       `json:"socialScan,omitempty"`
}

// IsComplete reports whether the record holds a terminal verdict.
func (r *PageRecord) IsComplete() bool {
	return r != nil && r.Status == StatusComplete
}

// IsProcessing reports whether an episode is running for the record.
func (r *PageRecord) IsProcessing() bool {
	return r != nil && r.Status == StatusProcessing
}

// Clone returns a deep copy of r.
func (r *PageRecord) Clone() *PageRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Meta != nil {
		c.Meta = make(map[string]string, len(r.Meta))
		for k, v := range r.Meta {
			c.Meta[k] = v
		}
	}
	if r.News != nil {
		n := *r.News
		n.Phrases = append([]string(nil), r.News.Phrases...)
		n.Reviews = append([]Review(nil), r.News.Reviews...)
		c.News = &n
	}
	if r.SocialScan != nil {
		s := *r.SocialScan
		c.SocialScan = &s
	}
	return &c
}

// SocialScan is the payload written by the photo-post scan.
type SocialScan struct {
	Flagged bool   `json:"flagged"`
	Summary string `json:"summary"`
}
