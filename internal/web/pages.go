package web

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/anomaly"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/fraud"
)

type indexPage struct {
	SessionID string
	Fraud     string
	Marketing string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.render(w, http.StatusOK, "index", "EDA Dashboard", indexPage{
		SessionID: sess.ID,
		Fraud:     sess.FraudStatus(),
		Marketing: sess.MarketingStatus(),
	})
}

type classRow struct {
	Stat   string
	Normal string
	Fraud  string
}

type fraudPage struct {
	Status      string
	Unavailable string
	Query       url.Values
	Form        map[string]string
	Bounds      fraud.Bounds
	Empty       bool
	Summary     []analysis.KeyValue
	Fences      anomaly.Fences
	LabelRate   float64
	Classes     []classRow
	Hourly      []fraud.HourStat
	Heatmap     *fraud.Heatmap
	HeatMax     int
	HasTime     bool
}

func (s *Server) handleFraud(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	q := r.URL.Query()
	st, err := s.fraudFor(sess, q)
	if err != nil {
		if unavailable(err) {
			s.render(w, http.StatusOK, "fraud", "Fraud analysis", fraudPage{Unavailable: err.Error()})
			return
		}
		s.renderError(w, statusFor(err), err)
		return
	}
	a := st.Analysis
	page := fraudPage{
		Status:  st.Prepared.Status(),
		Query:   q,
		Form:    formValues(q, "amount_min", "amount_max", "hours_min", "hours_max", "sample"),
		Bounds:  st.Prepared.Bounds(),
		Empty:   a.Empty,
		Summary: a.Summary(),
		Hourly:  a.Hourly,
		Heatmap: a.Heatmap,
		HasTime: st.Prepared.HasTime(),
		Classes: classRows(a),
	}
	if a.Outliers != nil {
		page.Fences = a.Outliers.Fences
		page.LabelRate = a.Outliers.LabelRate
	}
	if a.Heatmap != nil {
		for _, row := range a.Heatmap.Counts {
			for _, c := range row {
				page.HeatMax = max(page.HeatMax, c)
			}
		}
	}
	s.render(w, http.StatusOK, "fraud", "Fraud analysis", page)
}

func classRows(a *fraud.Analysis) []classRow {
	if len(a.ByClass) < 2 {
		return nil
	}
	normal := a.ByClass[0].Desc.Rounded(2).Values()
	fr := a.ByClass[1].Desc.Rounded(2).Values()
	rows := make([]classRow, len(analysis.DescribeLabels))
	for i, label := range analysis.DescribeLabels {
		rows[i] = classRow{Stat: label, Normal: cell(normal[i]), Fraud: cell(fr[i])}
	}
	return rows
}

func cell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formValues(q url.Values, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = q.Get(k)
	}
	return out
}

type segmentRow struct {
	ID   int
	Name string
	Size int
}

type scoreRow struct {
	K     int
	Score string
	Best  bool
}

type heatCell struct {
	Value string
	Color string
}

type heatRow struct {
	Label string
	Cells []heatCell
}

// profileHeat shades every feature mean relative to the other clusters.
func profileHeat(p *analysis.Profile, name func(int) string) []heatRow {
	if p.Empty() {
		return nil
	}
	lo := map[string]float64{}
	hi := map[string]float64{}
	for _, f := range p.Features {
		lo[f], hi[f] = math.Inf(1), math.Inf(-1)
		for _, g := range p.Groups {
			m := g.Stats[f].Mean
			if !math.IsNaN(m) {
				lo[f], hi[f] = math.Min(lo[f], m), math.Max(hi[f], m)
			}
		}
	}
	rows := make([]heatRow, 0, len(p.Groups))
	for _, g := range p.Groups {
		row := heatRow{Label: name(int(g.ID))}
		for _, f := range p.Features {
			m := g.Stats[f].Mean
			frac := 0.0
			if hi[f] > lo[f] {
				frac = (m - lo[f]) / (hi[f] - lo[f])
			}
			row.Cells = append(row.Cells, heatCell{Value: cell(m), Color: shade(frac)})
		}
		rows = append(rows, row)
	}
	return rows
}

type marketingPage struct {
	Status        string
	Unavailable   string
	Query         url.Values
	K             int
	Auto          bool
	Features      []string
	Fallback      bool
	Segments      []segmentRow
	ProfileHeader []string
	ProfileRows   [][]string
	ProfileHeat   []heatRow
	Silhouette    string
	Scores        []scoreRow
	Explained     []string
}

func (s *Server) handleMarketing(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	res, opts, err := s.marketingFor(r, sess)
	if err != nil {
		if unavailable(err) {
			s.render(w, http.StatusOK, "marketing", "Customer segmentation", marketingPage{Unavailable: err.Error()})
			return
		}
		s.renderError(w, statusFor(err), err)
		return
	}
	page := marketingPage{
		Status: sess.MarketingStatus(),
		Query:  r.URL.Query(),
		K:      opts.Cluster.K,
		Auto:   opts.Auto,
	}
	if !res.Available {
		page.Unavailable = res.Reason
		s.render(w, http.StatusOK, "marketing", "Customer segmentation", page)
		return
	}
	seg := res.Segmentation
	page.K = seg.K
	page.Features = seg.Features
	page.Fallback = res.Derived.Fallback
	for id, n := range res.Sizes() {
		page.Segments = append(page.Segments, segmentRow{ID: id, Name: res.SegmentLabel(id), Size: n})
	}
	page.ProfileHeader = res.Profile.Header()
	page.ProfileRows = res.Profile.Records()
	page.ProfileHeat = profileHeat(res.Profile, res.SegmentLabel)
	page.Silhouette = "n/a"
	if seg.SilhouetteOK {
		page.Silhouette = fmt.Sprintf("%.3f", seg.Silhouette)
	}
	for _, k := range seg.ScoreKeys() {
		page.Scores = append(page.Scores, scoreRow{K: k, Score: fmt.Sprintf("%.3f", seg.Scores[k]), Best: k == seg.K})
	}
	for _, e := range res.Projection.Explained {
		page.Explained = append(page.Explained, fmt.Sprintf("%.1f%%", e*100))
	}
	s.render(w, http.StatusOK, "marketing", "Customer segmentation", page)
}

type overviewPage struct {
	Dataset string
	HTML    template.HTML
}

var errUnknownDataset = errors.New("unknown dataset")

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	name := chi.URLParam(r, "dataset")
	var t *dataset.Table
	switch name {
	case "fraud":
		p, err := sess.Fraud()
		if err != nil {
			s.renderError(w, statusFor(err), err)
			return
		}
		t = p.Table
	case "marketing":
		m, err := sess.Marketing()
		if err != nil {
			s.renderError(w, statusFor(err), err)
			return
		}
		t = m
	default:
		s.renderError(w, http.StatusNotFound, fmt.Errorf("%w: %s", errUnknownDataset, name))
		return
	}
	md := analysis.Overview(t, analysis.DefaultOptions()).Markdown()
	s.render(w, http.StatusOK, "overview", "Overview: "+name, overviewPage{Dataset: name, HTML: markdownHTML(md)})
}

// markdownHTML renders GitHub-style Markdown, tables included. Raw HTML in
// the source is dropped.
func markdownHTML(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML})
	return template.HTML(markdown.ToHTML([]byte(md), p, renderer))
}
