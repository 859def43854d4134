package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/fraud"
	"github.com/KaramelBytes/edadash/internal/marketing"
	"github.com/KaramelBytes/edadash/internal/session"
)

// fraudState is one request's filtered fraud view.
type fraudState struct {
	Prepared *fraud.Prepared
	Filter   fraud.Filter
	View     *dataset.Table
	Analysis *fraud.Analysis
	Sample   int
}

// fraudFor recomputes the fraud analysis from the session table and the
// request's filters.
func (s *Server) fraudFor(sess *session.Session, q url.Values) (*fraudState, error) {
	f, err := parseFilter(q)
	if err != nil {
		return nil, err
	}
	sample, err := parseSample(q, s.cfg.DisplaySample)
	if err != nil {
		return nil, err
	}
	p, err := sess.Fraud()
	if err != nil {
		return nil, err
	}
	view := p.Apply(f)
	a, err := p.Analyze(view)
	if err != nil {
		return nil, err
	}
	return &fraudState{Prepared: p, Filter: f, View: view, Analysis: a, Sample: sample}, nil
}

// marketingFor segments a copy of the session's customer table.
func (s *Server) marketingFor(r *http.Request, sess *session.Session) (*marketing.Result, marketing.Options, error) {
	opts, err := parseMarketing(r.URL.Query(), s.cfg.Marketing)
	if err != nil {
		return nil, opts, err
	}
	t, err := sess.Marketing()
	if err != nil {
		return nil, opts, err
	}
	res, err := marketing.Run(r.Context(), t, sess.Schema(), opts)
	return res, opts, err
}

// statusFor maps pipeline errors to HTTP statuses.
func statusFor(err error) int {
	var bad *BadRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, dataset.ErrFileNotFound),
		errors.Is(err, dataset.ErrMissingColumn),
		errors.Is(err, dataset.ErrDelimiterDetection),
		errors.Is(err, dataset.ErrUnsupported):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// unavailable reports whether err means the dataset cannot be analysed,
// which pages show as a message rather than an error page.
func unavailable(err error) bool {
	return statusFor(err) == http.StatusServiceUnavailable
}
