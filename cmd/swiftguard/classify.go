package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/swiftguard/internal/config"
	"github.com/nao1215/swiftguard/internal/engine"
	"github.com/nao1215/swiftguard/internal/fetch"
	"github.com/nao1215/swiftguard/internal/host"
	"github.com/nao1215/swiftguard/internal/model"
	"github.com/nao1215/swiftguard/internal/pagekey"
	"github.com/nao1215/swiftguard/internal/pipeline"
	"github.com/nao1215/swiftguard/internal/report"
	"github.com/nao1215/swiftguard/internal/rules"
)

// Reasoning shown for pages classified without the model.
const (
	reasonRuleMatch   = "Matched by URL rules"
	reasonNeedsModel  = "Needs the model prepass (run with --snapshot)"
	reasonExcluded    = "Excluded domain"
	reasonRescheduled = "Page was not ready; retry later"
)

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <url>...",
		Short: "Classify pages once from the command line",
		Long: `Classify downloads each page, extracts its preview metadata, derives the
page key and runs the URL rule classifier.

With --snapshot and a reachable model, pages also go through the model
prepass and their content pipeline, using the PNG as the screenshot of
every page. Results are stored like pages seen by the extension, so they
show up in "swiftguard history".

Examples:
  swiftguard classify https://example.com/
  swiftguard classify --json https://a.example/ https://b.example/
  swiftguard classify --snapshot shot.png --batch 2 https://shop.example/item`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().String("snapshot", "", "PNG screenshot used for model classification")
	cmd.Flags().IntP("batch", "b", engine.DefaultConcurrency, "Number of pages processed concurrently")
	cmd.Flags().Bool("json", false, "Output JSON instead of Markdown")
	cmd.Flags().Duration("timeout", fetch.DefaultTimeout, "Download timeout per page")
	addDBDirFlag(cmd)
	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	snapshotPath, _ := cmd.Flags().GetString("snapshot")
	batch, _ := cmd.Flags().GetInt("batch")
	asJSON, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if batch <= 0 {
		return fmt.Errorf("invalid batch size %d: must be positive", batch)
	}

	var snapshot []byte
	if snapshotPath != "" {
		snapshot, err = os.ReadFile(snapshotPath) //nolint:gosec // User-provided path is intentional
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
	}

	ctx := cmd.Context()
	fetcher := fetch.New(fetch.WithTimeout(timeout))
	pages, err := fetcher.FetchAll(ctx, args, batch)
	if err != nil {
		return err
	}

	var records []report.Record
	if snapshot != nil {
		records, err = classifyWithModel(ctx, cfg, logger, pages, snapshot, batch)
		if err != nil {
			return err
		}
	} else {
		records = classifyWithRules(pages)
	}

	return writeHistory(cmd.OutOrStdout(), &report.History{
		GeneratedAt: time.Now(),
		Records:     records,
	}, asJSON)
}

// classifyWithRules reports the rule classifier's decision for each page.
func classifyWithRules(pages []fetch.Page) []report.Record {
	records := make([]report.Record, len(pages))
	for i, p := range pages {
		records[i] = ruleRecord(p)
	}
	return records
}

func ruleRecord(p fetch.Page) report.Record {
	if p.Err != nil {
		return report.Record{Key: p.URL, PageRecord: model.PageRecord{
			Status:    model.StatusComplete,
			Verdict:   model.VerdictError,
			Reasoning: p.Err.Error(),
		}}
	}

	key, source := pagekey.Derive(p.FinalURL, p.Preview)
	rec := model.PageRecord{
		Status:    model.StatusComplete,
		KeySource: source,
		Meta:      p.Preview.Clone(),
		Pipeline:  model.PipelinePrepass,
		Reasoning: reasonNeedsModel,
	}
	if pl, ok := rules.Classify(p.FinalURL, p.Preview); ok {
		rec.Pipeline = pl
		rec.Reasoning = reasonRuleMatch
		switch {
		case pl == model.PipelineExclude:
			rec.Verdict = model.VerdictBenign
			rec.Reasoning = reasonExcluded
		case pl.IsChatbot():
			rec.Verdict = model.VerdictChatbot
		}
	}
	return report.Record{Key: key, PageRecord: rec}
}

// classifyWithModel runs the full engine over the fetched pages against a
// static host that serves snapshot for every tab.
func classifyWithModel(ctx context.Context, cfg *config.Config, logger *slog.Logger, pages []fetch.Page, snapshot []byte, batch int) ([]report.Record, error) {
	kv, store, err := openStore(cfg, logger, true)
	if err != nil {
		return nil, err
	}
	defer kv.Close()

	manager, router := models(cfg, store, logger)
	if av := manager.CheckAvailability(ctx); av != model.AvailabilityAvailable {
		logger.Warn("model not available, falling back to URL rules", "model", cfg.Model, "availability", av.String())
		return classifyWithRules(pages), nil
	}

	records := make([]report.Record, len(pages))
	var tabs []engine.Tab
	tabIndex := make(map[int]int)
	for i, p := range pages {
		if p.Err != nil {
			records[i] = ruleRecord(p)
			continue
		}
		tab := engine.Tab{ID: i + 1, URL: p.FinalURL, Active: len(tabs) == 0, Preview: p.Preview}
		tabs = append(tabs, tab)
		tabIndex[tab.ID] = i
	}
	if len(tabs) == 0 {
		return records, nil
	}

	static := host.NewStatic(logger, tabs...)
	reqs := make([]engine.Request, len(tabs))
	for i, tab := range tabs {
		static.SetSnapshot(tab.ID, snapshot)
		reqs[i] = engine.NewRequest(tab)
	}

	runner := pipeline.New(pipeline.Deps{
		Store:     store,
		Sessions:  manager,
		Generator: router,
		Surface:   static,
		FactCheck: factChecker(cfg),
	}, pipeline.WithLogger(logger))
	eng := engine.New(store, runner, static,
		engine.WithLogger(logger),
		engine.WithRescanDelay(cfg.RescanDelay),
	)
	defer eng.Close()

	results, err := eng.ProcessBatch(ctx, reqs, batch)
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		records[tabIndex[res.Request.TabID]] = modelRecord(res)
	}
	return records, nil
}

func modelRecord(res engine.Result) report.Record {
	r := report.Record{Key: res.Request.Key}
	switch {
	case res.Err != nil:
		r.PageRecord = model.PageRecord{Status: model.StatusComplete, Verdict: model.VerdictError, Reasoning: res.Err.Error()}
	case res.Record == nil:
		r.PageRecord = model.PageRecord{Verdict: model.VerdictRescan, Reasoning: reasonRescheduled}
	default:
		r.PageRecord = *res.Record
	}
	return r
}

// writeHistory renders h as Markdown or JSON.
func writeHistory(w io.Writer, h *report.History, asJSON bool) error {
	var rw report.Writer = report.NewMarkdownWriter(w)
	if asJSON {
		rw = report.NewJSONWriter(w, report.WithPrettyPrint())
	}
	_, err := rw.Write(h)
	return err
}
