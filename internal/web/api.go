package web

import (
	"net/http"
)

type statusResponse struct {
	Session   string `json:"session"`
	Fraud     string `json:"fraud"`
	Marketing string `json:"marketing"`
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, http.StatusOK, statusResponse{
		Session:   sess.ID,
		Fraud:     sess.FraudStatus(),
		Marketing: sess.MarketingStatus(),
	})
}

type metric struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type hourJSON struct {
	Hour         int     `json:"hour"`
	Transactions int     `json:"transactions"`
	Frauds       int     `json:"frauds"`
	Rate         float64 `json:"rate"`
}

type fencesJSON struct {
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	IQR   float64 `json:"iqr"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

type fraudResponse struct {
	Rows      int        `json:"rows"`
	Empty     bool       `json:"empty"`
	Summary   []metric   `json:"summary"`
	Fences    fencesJSON `json:"fences"`
	Hourly    []hourJSON `json:"hourly,omitempty"`
	LabelRate float64    `json:"outlier_fraud_rate"`
}

func (s *Server) handleAPIFraud(w http.ResponseWriter, r *http.Request) {
	st, err := s.fraudFor(sessionFrom(r), r.URL.Query())
	if err != nil {
		writeJSON(w, statusFor(err), apiError{Error: err.Error()})
		return
	}
	a := st.Analysis
	resp := fraudResponse{Rows: a.Total, Empty: a.Empty}
	for _, kv := range a.Summary() {
		resp.Summary = append(resp.Summary, metric{Name: kv.Key, Value: kv.Value})
	}
	// an empty view has no fences
	if a.Outliers != nil && a.Outliers.Fences.N > 0 {
		f := a.Outliers.Fences
		resp.Fences = fencesJSON{Q1: f.Q1, Q3: f.Q3, IQR: f.IQR, Lower: f.Lower, Upper: f.Upper}
		resp.LabelRate = a.Outliers.LabelRate
	}
	for _, h := range a.Hourly {
		resp.Hourly = append(resp.Hourly, hourJSON(h))
	}
	writeJSON(w, http.StatusOK, resp)
}

type segmentJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

type marketingResponse struct {
	Available  bool            `json:"available"`
	Reason     string          `json:"reason,omitempty"`
	K          int             `json:"k,omitempty"`
	Features   []string        `json:"features,omitempty"`
	Segments   []segmentJSON   `json:"segments,omitempty"`
	Silhouette *float64        `json:"silhouette,omitempty"`
	Scores     map[int]float64 `json:"scores,omitempty"`
	Profile    [][]string      `json:"profile,omitempty"`
}

func (s *Server) handleAPIMarketing(w http.ResponseWriter, r *http.Request) {
	res, _, err := s.marketingFor(r, sessionFrom(r))
	if err != nil {
		writeJSON(w, statusFor(err), apiError{Error: err.Error()})
		return
	}
	resp := marketingResponse{Available: res.Available, Reason: res.Reason}
	if res.Available {
		seg := res.Segmentation
		resp.K = seg.K
		resp.Features = seg.Features
		resp.Scores = seg.Scores
		if seg.SilhouetteOK {
			v := seg.Silhouette
			resp.Silhouette = &v
		}
		for id, n := range res.Sizes() {
			resp.Segments = append(resp.Segments, segmentJSON{ID: id, Name: res.SegmentLabel(id), Size: n})
		}
		resp.Profile = append([][]string{res.Profile.Header()}, res.Profile.Records()...)
	}
	writeJSON(w, http.StatusOK, resp)
}
