package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/edadash/internal/fraud"
	"github.com/KaramelBytes/edadash/internal/marketing"
	"github.com/KaramelBytes/edadash/internal/schema"
	"github.com/KaramelBytes/edadash/internal/session"
)

const transactionsCSV = "Time,Amount,Class\n0,10,0\n3600,20,0\n7200,30,0\n90000,1000,1\n93600,15,0\n"

const customersCSV = "ID;MntWines;MntFruits;NumWebPurchases;NumStorePurchases;Recency\n" +
	"1;1000;500;10;12;5\n" +
	"2;1100;450;11;13;6\n" +
	"3;950;520;9;12;4\n" +
	"4;20;5;1;2;90\n" +
	"5;25;8;2;1;85\n" +
	"6;15;4;1;1;95\n" +
	"7;400;100;5;6;40\n" +
	"8;420;120;6;5;45\n"

func newTestServer(t *testing.T, withData bool) *Server {
	t.Helper()
	dir := t.TempDir()
	if withData {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "creditcard.csv"), []byte(transactionsCSV), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "marketing_campaign.csv"), []byte(customersCSV), 0o644))
	}
	store := session.NewStore(session.Settings{
		DataDir:           dir,
		FraudPatterns:     []string{"*credit*.csv"},
		MarketingPatterns: []string{"*marketing*.csv"},
		Schema:            schema.Default(),
		Fraud:             fraud.DefaultOptions(),
	}, time.Hour)
	opts := marketing.DefaultOptions()
	opts.Cluster.NInit = 3
	srv, err := NewServer(Config{Host: "127.0.0.1", Port: 0, Seed: 42, Marketing: opts, Quiet: true}, store)
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return srv
}

func get(t *testing.T, s *Server, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(t, false), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestIndexSetsSessionCookieOnce(t *testing.T) {
	s := newTestServer(t, true)
	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "loaded 5 transactions (1 frauds, 20.00%)")
	assert.Contains(t, rec.Body.String(), "loaded 8 customers (2 spend columns)")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)

	again := get(t, s, "/", cookies[0])
	assert.Empty(t, again.Result().Cookies())
	assert.Contains(t, again.Body.String(), cookies[0].Value)
}

func TestFraudPage(t *testing.T) {
	s := newTestServer(t, true)
	rec := get(t, s, "/fraud")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Total Transactions")
	assert.Contains(t, body, "Frauds by day and hour")
	assert.Contains(t, body, "/fraud/chart/amount.png")

	empty := get(t, s, "/fraud?amount_min=5000")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.Contains(t, empty.Body.String(), "No transactions match")
}

func TestFraudPageBadParameter(t *testing.T) {
	rec := get(t, newTestServer(t, true), "/fraud?amount_min=lots")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "amount_min")
}

func TestFraudAPIAppliesFilters(t *testing.T) {
	s := newTestServer(t, true)
	var all fraudResponse
	decode(t, get(t, s, "/api/fraud"), &all)
	assert.Equal(t, 5, all.Rows)
	assert.Equal(t, "Total Transactions", all.Summary[0].Name)
	assert.Equal(t, 15.0, all.Fences.Q1)
	assert.Equal(t, 30.0, all.Fences.Q3)

	var cheap fraudResponse
	decode(t, get(t, s, "/api/fraud?amount_max=25"), &cheap)
	assert.Equal(t, 3, cheap.Rows)
	assert.Equal(t, "0", cheap.Summary[1].Value)

	var none fraudResponse
	decode(t, get(t, s, "/api/fraud?amount_min=5000&hours_max=1"), &none)
	assert.True(t, none.Empty)
	assert.Equal(t, "0.00", none.Summary[2].Value)
}

func TestUnavailableData(t *testing.T) {
	s := newTestServer(t, false)

	page := get(t, s, "/fraud")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Transaction data unavailable")

	api := get(t, s, "/api/fraud")
	assert.Equal(t, http.StatusServiceUnavailable, api.Code)
	var e apiError
	decode(t, api, &e)
	assert.Contains(t, e.Error, "no file in")

	chart := get(t, s, "/marketing/chart/sizes.png")
	assert.Equal(t, http.StatusOK, chart.Code)
	assert.True(t, bytes.HasPrefix(chart.Body.Bytes(), []byte("\x89PNG")))
}

func TestCharts(t *testing.T) {
	s := newTestServer(t, true)
	for _, path := range []string{
		"/fraud/chart/amount.png",
		"/fraud/chart/classes.png",
		"/fraud/chart/hourly-rate.png",
		"/fraud/chart/hourly-frauds.png?amount_min=5000",
		"/fraud/chart/anomalies.png",
		"/fraud/chart/anomalies.png?amount_min=5000",
		"/fraud/chart/amount-by-class.png",
		"/fraud/chart/amount-by-class.png?amount_min=5000",
		"/marketing/chart/sizes.png?k=3",
		"/marketing/chart/projection.png?k=3",
		"/marketing/chart/spending.png",
		"/marketing/chart/categories.png",
	} {
		rec := get(t, s, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"), path)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")), path)
	}
	assert.Equal(t, http.StatusNotFound, get(t, s, "/fraud/chart/nope.png").Code)
}

func TestFraudExports(t *testing.T) {
	s := newTestServer(t, true)

	rec := get(t, s, "/fraud/export/filtered?amount_max=25")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="fraud_filtered_20240102_030405.csv"`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], "Is_Outlier"))

	out := get(t, s, "/fraud/export/outliers")
	require.Equal(t, http.StatusOK, out.Code)
	lines = strings.Split(strings.TrimSpace(out.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "1000")

	wb := get(t, s, "/fraud/export/xlsx")
	require.Equal(t, http.StatusOK, wb.Code)
	assert.Contains(t, wb.Header().Get("Content-Disposition"), "fraud_report_20240102_030405.xlsx")
	f, err := excelize.OpenReader(bytes.NewReader(wb.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"summary", "filtered", "outliers"}, f.GetSheetList())

	assert.Equal(t, http.StatusNotFound, get(t, s, "/fraud/export/pdf").Code)
}

func TestMarketingPageAndAPI(t *testing.T) {
	s := newTestServer(t, true)

	page := get(t, s, "/marketing?k=3")
	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()
	assert.Contains(t, body, "Champions")
	assert.Contains(t, body, "Total_Spending mean")
	assert.Contains(t, body, "Feature means by segment")
	assert.Contains(t, body, "/marketing/chart/categories.png?k=3")

	var fixed marketingResponse
	decode(t, get(t, s, "/api/marketing?k=3"), &fixed)
	require.True(t, fixed.Available)
	assert.Equal(t, 3, fixed.K)
	assert.Equal(t, []string{"Recency", "Total_Purchases", "Total_Spending"}, fixed.Features)
	total := 0
	for _, seg := range fixed.Segments {
		total += seg.Size
	}
	assert.Equal(t, 8, total)

	var auto marketingResponse
	decode(t, get(t, s, "/api/marketing?auto=true"), &auto)
	require.True(t, auto.Available)
	assert.NotEmpty(t, auto.Scores)
	assert.NotNil(t, auto.Silhouette)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/marketing?k=0").Code)
}

func TestMarketingExports(t *testing.T) {
	s := newTestServer(t, true)
	rec := get(t, s, "/marketing/export/segments?k=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "customer_segments_20240102_030405.csv")
	header := strings.SplitN(rec.Body.String(), "\n", 2)[0]
	assert.Contains(t, header, "Cluster")
	assert.Contains(t, header, "Segment_Name")

	prof := get(t, s, "/marketing/export/profile?k=2")
	require.Equal(t, http.StatusOK, prof.Code)
	lines := strings.Split(strings.TrimSpace(prof.Body.String()), "\n")
	assert.Len(t, lines, 3)
}

func TestOverview(t *testing.T) {
	s := newTestServer(t, true)
	rec := get(t, s, "/overview/marketing")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dataset summary</h2>")
	assert.Contains(t, rec.Body.String(), "<table>")

	assert.Equal(t, http.StatusNotFound, get(t, s, "/overview/other").Code)
}

func TestAPICORS(t *testing.T) {
	s := newTestServer(t, true)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var st statusResponse
	decode(t, rec, &st)
	assert.NotEmpty(t, st.Session)
	assert.Contains(t, st.Fraud, "loaded 5 transactions")
}

func TestServeStopsOnCancel(t *testing.T) {
	s := newTestServer(t, false)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: cannot open local listener (%v)", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestParseFilter(t *testing.T) {
	q := map[string][]string{"amount_min": {"10"}, "hours_max": {"2.5"}}
	f, err := parseFilter(q)
	require.NoError(t, err)
	require.NotNil(t, f.Amount)
	assert.Equal(t, 10.0, f.Amount.Min)
	assert.True(t, f.Amount.Contains(1e9))
	require.NotNil(t, f.Hours)
	assert.False(t, f.Hours.Contains(3))

	_, err = parseFilter(map[string][]string{"hours_min": {"NaN"}})
	var bad *BadRequestError
	assert.ErrorAs(t, err, &bad)
}
