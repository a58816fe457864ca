package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	documentsUploadedTotal atomic.Uint64
	documentsDeletedTotal  atomic.Uint64
	extractionFailedTotal  atomic.Uint64
	questionsAskedTotal    atomic.Uint64
	generationFailedTotal  atomic.Uint64
	generationRetriedTotal atomic.Uint64
	conversationBusyTotal  atomic.Uint64

	generationDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncDocumentsUploaded counts a successfully ingested document.
func IncDocumentsUploaded() {
	documentsUploadedTotal.Add(1)
}

// IncDocumentsDeleted counts a removed document.
func IncDocumentsDeleted() {
	documentsDeletedTotal.Add(1)
}

// IncExtractionFailed counts an upload rejected because no text could be read.
func IncExtractionFailed() {
	extractionFailedTotal.Add(1)
}

// IncQuestionsAsked counts a completed question/answer exchange.
func IncQuestionsAsked() {
	questionsAskedTotal.Add(1)
}

// IncGenerationFailed counts a generation call that failed after retries.
func IncGenerationFailed() {
	generationFailedTotal.Add(1)
}

// IncGenerationRetried counts a retried generation call.
func IncGenerationRetried() {
	generationRetriedTotal.Add(1)
}

// IncConversationBusy counts a question rejected because another exchange
// held the document.
func IncConversationBusy() {
	conversationBusyTotal.Add(1)
}

// ObserveGenerationDurationMs records a generation duration in milliseconds.
func ObserveGenerationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	generationDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "documents_uploaded_total", "Total documents ingested", documentsUploadedTotal.Load())
	writeCounter(&buf, "documents_deleted_total", "Total documents deleted", documentsDeletedTotal.Load())
	writeCounter(&buf, "extraction_failed_total", "Total uploads rejected by text extraction", extractionFailedTotal.Load())
	writeCounter(&buf, "questions_asked_total", "Total completed question exchanges", questionsAskedTotal.Load())
	writeCounter(&buf, "generation_failed_total", "Total failed generation calls", generationFailedTotal.Load())
	writeCounter(&buf, "generation_retried_total", "Total retried generation calls", generationRetriedTotal.Load())
	writeCounter(&buf, "conversation_busy_total", "Total questions rejected while a document was busy", conversationBusyTotal.Load())
	writeHistogram(&buf, "generation_duration_ms", "Generation duration in milliseconds", generationDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe adds value to the first bucket whose bound holds it; Render
// accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
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
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
