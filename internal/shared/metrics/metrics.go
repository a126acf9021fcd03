package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var remoteBuckets = []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

var (
	uploadsTotal       atomic.Uint64
	deletesTotal       atomic.Uint64
	downloadsTotal     atomic.Uint64
	loginFailuresTotal atomic.Uint64

	uploadsRejected = newCounterVec("reason")
	remoteErrors    = newCounterVec("op")
	httpResponses   = newCounterVec("class")
	remoteDuration  = newHistogramVec("op", remoteBuckets)
)

// IncUploads counts a document stored remotely and registered.
func IncUploads() { uploadsTotal.Add(1) }

// IncUploadsRejected counts an upload refused before or during registration.
func IncUploadsRejected(reason string) { uploadsRejected.Inc(reason) }

func IncDeletes() { deletesTotal.Add(1) }

func IncDownloads() { downloadsTotal.Add(1) }

func IncLoginFailures() { loginFailuresTotal.Add(1) }

// IncRemoteErrors counts a failed remote store call of the given operation.
func IncRemoteErrors(op string) { remoteErrors.Inc(op) }

// ObserveRemoteCall records how long one remote store call took.
func ObserveRemoteCall(op string, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	remoteDuration.Observe(op, ms)
}

// ObserveHTTPResponse counts a response by status class (2xx, 4xx, ...).
func ObserveHTTPResponse(status int) {
	if status < 100 || status > 599 {
		httpResponses.Inc("other")
		return
	}
	httpResponses.Inc(strconv.Itoa(status/100) + "xx")
}

// Handler serves Render as Prometheus text exposition.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "documents_uploaded_total", "Documents uploaded and registered", uploadsTotal.Load())
	writeCounterVec(&buf, "documents_upload_rejected_total", "Uploads rejected, by reason", uploadsRejected)
	writeCounter(&buf, "documents_deleted_total", "Documents deleted", deletesTotal.Load())
	writeCounter(&buf, "documents_downloaded_total", "Documents downloaded", downloadsTotal.Load())
	writeCounter(&buf, "auth_login_failures_total", "Failed login attempts", loginFailuresTotal.Load())
	writeCounterVec(&buf, "http_responses_total", "HTTP responses, by status class", httpResponses)
	writeCounterVec(&buf, "remote_errors_total", "Failed remote storage calls, by operation", remoteErrors)
	writeHistogramVec(&buf, "remote_call_duration_ms", "Remote storage call duration in milliseconds", remoteDuration)
	return buf.String()
}

// counterVec is a set of counters keyed by the value of a single label.
type counterVec struct {
	label  string
	mu     sync.RWMutex
	values map[string]*atomic.Uint64
}

func newCounterVec(label string) *counterVec {
	return &counterVec{label: label, values: map[string]*atomic.Uint64{}}
}

func (v *counterVec) Inc(value string) {
	v.mu.RLock()
	c, ok := v.values[value]
	v.mu.RUnlock()
	if !ok {
		v.mu.Lock()
		if c, ok = v.values[value]; !ok {
			c = new(atomic.Uint64)
			v.values[value] = c
		}
		v.mu.Unlock()
	}
	c.Add(1)
}

func (v *counterVec) snapshot() ([]string, map[string]uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]uint64, len(v.values))
	keys := make([]string, 0, len(v.values))
	for k, c := range v.values {
		keys = append(keys, k)
		out[k] = c.Load()
	}
	sort.Strings(keys)
	return keys, out
}

type histogram struct {
	mu     sync.Mutex
	bounds []float64
	counts []uint64
	sum    float64
	count  uint64
}

type histogramSnapshot struct {
	bounds []float64
	counts []uint64
	sum    float64
	count  uint64
}

func newHistogram(bounds []float64) *histogram {
	return &histogram{bounds: bounds, counts: make([]uint64, len(bounds))}
}

// Observe files value under the first bound that covers it; rendering makes
// the buckets cumulative.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.bounds {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		bounds: append([]float64(nil), h.bounds...),
		counts: append([]uint64(nil), h.counts...),
		sum:    h.sum,
		count:  h.count,
	}
}

type histogramVec struct {
	label  string
	bounds []float64
	mu     sync.Mutex
	values map[string]*histogram
}

func newHistogramVec(label string, bounds []float64) *histogramVec {
	return &histogramVec{label: label, bounds: bounds, values: map[string]*histogram{}}
}

func (v *histogramVec) Observe(value string, sample float64) {
	v.mu.Lock()
	h, ok := v.values[value]
	if !ok {
		h = newHistogram(v.bounds)
		v.values[value] = h
	}
	v.mu.Unlock()
	h.Observe(sample)
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	writeHeader(buf, name, help, "counter")
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeCounterVec(buf *bytes.Buffer, name, help string, v *counterVec) {
	writeHeader(buf, name, help, "counter")
	keys, values := v.snapshot()
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, v.label, k, values[k])
	}
}

func writeHistogramVec(buf *bytes.Buffer, name, help string, v *histogramVec) {
	writeHeader(buf, name, help, "histogram")
	v.mu.Lock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	v.mu.Unlock()
	sort.Strings(keys)
	for _, k := range keys {
		v.mu.Lock()
		h := v.values[k]
		v.mu.Unlock()
		writeSeries(buf, name, fmt.Sprintf("%s=%q", v.label, k), h.Snapshot())
	}
}

func writeHeader(buf *bytes.Buffer, name, help, kind string) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s %s\n", name, kind)
}

// writeSeries renders one histogram series; labels may be empty.
func writeSeries(buf *bytes.Buffer, name, labels string, snap histogramSnapshot) {
	sep := ""
	if labels != "" {
		sep = ","
	}
	var cumulative uint64
	for i, bound := range snap.bounds {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{%s%sle=\"%s\"} %d\n", name, labels, sep, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{%s%sle=\"+Inf\"} %d\n", name, labels, sep, snap.count)
	if labels != "" {
		labels = "{" + labels + "}"
	}
	fmt.Fprintf(buf, "%s_sum%s %s\n", name, labels, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count%s %d\n", name, labels, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
