package web

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/edadash/internal/anomaly"
	"github.com/KaramelBytes/edadash/internal/export"
	"github.com/KaramelBytes/edadash/internal/utils"
)

const (
	csvType  = "text/csv; charset=utf-8"
	xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// handleFraudExport serves filtered, outliers, summary (CSV) or xlsx.
func (s *Server) handleFraudExport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	switch kind {
	case "filtered", "outliers", "summary", "xlsx":
	default:
		http.NotFound(w, r)
		return
	}
	st, err := s.fraudFor(sessionFrom(r), r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if err := anomaly.Flag(st.View, st.Analysis.Outliers); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	filtered := export.TableSheet("filtered", st.View)
	outliers := export.TableSheet("outliers", anomaly.Subset(st.View, st.Analysis.Outliers))
	summary := export.MetricsSheet("summary", st.Analysis.Summary())

	switch kind {
	case "filtered":
		s.serveCSV(w, "fraud_filtered", filtered)
	case "outliers":
		s.serveCSV(w, "fraud_outliers", outliers)
	case "summary":
		s.serveCSV(w, "fraud_summary", summary)
	default:
		s.serveWorkbook(w, "fraud_report", []export.Sheet{summary, filtered, outliers})
	}
}

// handleMarketingExport serves segments, profile (CSV) or xlsx.
func (s *Server) handleMarketingExport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	switch kind {
	case "segments", "profile", "xlsx":
	default:
		http.NotFound(w, r)
		return
	}
	res, _, err := s.marketingFor(r, sessionFrom(r))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if !res.Available {
		http.Error(w, "segmentation unavailable: "+res.Reason, http.StatusConflict)
		return
	}
	segments := export.TableSheet("segments", res.Table)
	profile := export.ProfileSheet("profile", res.Profile)

	switch kind {
	case "segments":
		s.serveCSV(w, "customer_segments", segments)
	case "profile":
		s.serveCSV(w, "cluster_profile", profile)
	default:
		s.serveWorkbook(w, "segmentation_report", []export.Sheet{profile, segments})
	}
}

func (s *Server) serveCSV(w http.ResponseWriter, prefix string, sheet export.Sheet) {
	var b bytes.Buffer
	if err := export.WriteCSV(&b, sheet); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	download(w, utils.TimestampedName(prefix, "csv", s.now()), csvType, b.Bytes())
}

func (s *Server) serveWorkbook(w http.ResponseWriter, prefix string, sheets []export.Sheet) {
	var b bytes.Buffer
	if err := export.WriteWorkbook(&b, sheets); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	download(w, utils.TimestampedName(prefix, "xlsx", s.now()), xlsxType, b.Bytes())
}
