// Package report renders periodic freshness reports: a Markdown summary of
// the collection's lifecycle state plus an HTML rendering for dashboards.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/larder/internal/calendar"
	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/freshness"
	"git.home.luguber.info/inful/larder/internal/ingredient"
	"git.home.luguber.info/inful/larder/internal/stats"
)

// Report is a rendered freshness report.
type Report struct {
	GeneratedAt time.Time
	Timeframe   calendar.Timeframe
	Summary     stats.Summary
	Trend       []stats.TrendPoint
	Markdown    []byte
	HTML        []byte
}

// Generator builds reports from the current collection.
type Generator struct {
	agg   *stats.Aggregator
	now   func() time.Time
	title cases.Caser
	md    goldmark.Markdown
}

func NewGenerator(profile freshness.CategoryProfile, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		agg:   stats.New(profile),
		now:   now,
		title: cases.Title(language.English),
		// GFM for table support.
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Build aggregates the collection for the timeframe and renders both the
// Markdown source and its HTML form.
func (g *Generator) Build(items []*ingredient.Ingredient, tf calendar.Timeframe) (Report, error) {
	if !tf.Valid() {
		return Report{}, ferrors.ValidationError("unknown timeframe").
			WithContext("timeframe", string(tf)).Build()
	}

	now := g.now()
	rep := Report{
		GeneratedAt: now,
		Timeframe:   tf,
		Summary:     g.agg.Aggregate(items, tf, now),
		Trend:       g.agg.Trend(items, tf, now),
	}
	rep.Markdown = g.renderMarkdown(rep, items)

	var buf bytes.Buffer
	if err := g.md.Convert(rep.Markdown, &buf); err != nil {
		return Report{}, ferrors.WrapError(err, ferrors.CategoryReport, "render report html").Build()
	}
	rep.HTML = buf.Bytes()
	return rep, nil
}

func (g *Generator) renderMarkdown(rep Report, items []*ingredient.Ingredient) []byte {
	var b strings.Builder
	s := rep.Summary

	fmt.Fprintf(&b, "# Larder Freshness Report\n\n")
	fmt.Fprintf(&b, "Generated %s for timeframe **%s** (%s to %s).\n\n",
		rep.GeneratedAt.Format("2006-01-02 15:04"),
		rep.Timeframe,
		s.Window.Start.Format(ingredient.DateLayout),
		s.Window.End.Format(ingredient.DateLayout))

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total items | %d |\n", s.Total)
	fmt.Fprintf(&b, "| Fresh | %d |\n", s.Fresh)
	fmt.Fprintf(&b, "| Near expiry | %d |\n", s.NearExpiry)
	fmt.Fprintf(&b, "| Expired | %d |\n", s.Expired)
	fmt.Fprintf(&b, "| Used | %d |\n", s.Used)
	fmt.Fprintf(&b, "| Freshness score | %.2f |\n", s.FreshnessScore)
	fmt.Fprintf(&b, "| Waste percentage | %.1f%% |\n\n", s.WastePercentage)

	g.renderBreakdown(&b, "By Category", s.ByCategory)
	g.renderBreakdown(&b, "By Location", s.ByLocation)

	if len(rep.Trend) > 0 {
		fmt.Fprintf(&b, "## Trend\n\n")
		fmt.Fprintf(&b, "| Window | Items | Score |\n|---|---|---|\n")
		for _, p := range rep.Trend {
			fmt.Fprintf(&b, "| %s | %d | %.2f |\n",
				p.Window.Start.Format(ingredient.DateLayout), p.Items, p.Score)
		}
		b.WriteString("\n")
	}

	g.renderAttention(&b, items, rep.GeneratedAt)

	return []byte(b.String())
}

func (g *Generator) renderBreakdown(b *strings.Builder, heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Fprintf(b, "## %s\n\n", heading)
	fmt.Fprintf(b, "| %s | Items |\n|---|---|\n", strings.TrimPrefix(heading, "By "))
	for _, label := range labels {
		fmt.Fprintf(b, "| %s | %d |\n", g.title.String(label), counts[label])
	}
	b.WriteString("\n")
}

// renderAttention lists items that need action: expired and near-expiry,
// soonest expiration first.
func (g *Generator) renderAttention(b *strings.Builder, items []*ingredient.Ingredient, now time.Time) {
	var urgent []*ingredient.Ingredient
	for _, item := range items {
		if item == nil {
			continue
		}
		if item.Status == ingredient.StatusExpired || item.Status == ingredient.StatusNearExpiry {
			urgent = append(urgent, item)
		}
	}
	if len(urgent) == 0 {
		return
	}
	sort.Slice(urgent, func(i, j int) bool {
		return urgent[i].ExpirationDate.Before(urgent[j].ExpirationDate)
	})

	fmt.Fprintf(b, "## Needs Attention\n\n")
	fmt.Fprintf(b, "| Item | Status | Expires | Location |\n|---|---|---|---|\n")
	for _, item := range urgent {
		expires := "unknown"
		if !item.ExpirationDate.IsZero() {
			expires = item.ExpirationDate.Format(ingredient.DateLayout)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			g.title.String(item.Name),
			strings.ReplaceAll(item.Status.String(), "_", " "),
			expires,
			g.title.String(item.Location))
	}
	b.WriteString("\n")
}

// WriteFiles persists the report pair under dir, named by generation date.
// Returns the Markdown and HTML paths.
func (g *Generator) WriteFiles(rep Report, dir string) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", ferrors.WrapError(err, ferrors.CategoryReport, "create report directory").
			WithContext("dir", dir).Build()
	}

	base := fmt.Sprintf("freshness-%s-%s", rep.Timeframe, rep.GeneratedAt.Format(ingredient.DateLayout))
	mdPath := filepath.Join(dir, base+".md")
	htmlPath := filepath.Join(dir, base+".html")

	if err := os.WriteFile(mdPath, rep.Markdown, 0o644); err != nil {
		return "", "", ferrors.WrapError(err, ferrors.CategoryReport, "write markdown report").
			WithContext("path", mdPath).Build()
	}
	if err := os.WriteFile(htmlPath, rep.HTML, 0o644); err != nil {
		return "", "", ferrors.WrapError(err, ferrors.CategoryReport, "write html report").
			WithContext("path", htmlPath).Build()
	}
	return mdPath, htmlPath, nil
}
