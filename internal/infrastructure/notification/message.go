package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/promosync/backend/internal/domain/sync"
)

// maxErrorExcerpt bounds how much of an error message is quoted
const maxErrorExcerpt = 200

// maxStoreLines bounds how many per-store lines a message carries
const maxStoreLines = 10

// RenderMessage turns a run lifecycle event into the text delivered over
// every channel type.
func RenderMessage(event sync.NotificationEvent, execution *sync.Execution) string {
	var b strings.Builder

	switch event {
	case sync.NotificationEventStart:
		fmt.Fprintf(&b, "Sync run %s started (%s trigger)\n", shortID(execution), execution.Trigger)
		return b.String()
	case sync.NotificationEventSuccess:
		fmt.Fprintf(&b, "Sync run %s finished: %s\n", shortID(execution), execution.Status)
	case sync.NotificationEventFailure:
		fmt.Fprintf(&b, "Sync run %s finished: %s\n", shortID(execution), execution.Status)
		if execution.Error != "" {
			fmt.Fprintf(&b, "Run error: %s\n", excerpt(execution.Error))
		}
	}

	summary := execution.Summary
	fmt.Fprintf(&b, "Stores: %d  Fetched: %d  Sent: %d  Errors: %d\n",
		summary.TotalStores, summary.ProductsFetched, summary.ProductsSent, summary.Errors)
	if d := execution.Duration(); d > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", d.Round(time.Millisecond))
	}

	lines := 0
	for i := range execution.StoreResults {
		result := &execution.StoreResults[i]
		if lines >= maxStoreLines {
			fmt.Fprintf(&b, "… and %d more stores\n", len(execution.StoreResults)-lines)
			break
		}
		if line := storeLine(result); line != "" {
			b.WriteString(line)
			lines++
		}
	}

	return b.String()
}

// storeLine renders one store's outcome. In-sync successful stores are
// suppressed to keep messages short.
func storeLine(result *sync.StoreSyncResult) string {
	comparisonNote := ""
	if result.Comparison != nil && !result.Comparison.InSync() {
		comparisonNote = fmt.Sprintf(" [%s: %d differences]",
			result.Comparison.Severity, result.Comparison.TotalDifferences())
	}

	switch result.Status {
	case sync.StoreStepStatusSuccess:
		if comparisonNote == "" {
			return ""
		}
		return fmt.Sprintf("- %s: %s, sent %d%s\n", result.StoreReg, result.Status, result.Sent, comparisonNote)
	case sync.StoreStepStatusSkipped:
		return ""
	default:
		line := fmt.Sprintf("- %s: %s, fetched %d, sent %d%s", result.StoreReg, result.Status, result.Fetched, result.Sent, comparisonNote)
		if result.Error != "" {
			line += ": " + excerpt(result.Error)
		}
		return line + "\n"
	}
}

// shortID renders the first UUID segment, enough to find the run
func shortID(execution *sync.Execution) string {
	id := execution.ID.String()
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

// excerpt truncates long error text
func excerpt(message string) string {
	if len(message) <= maxErrorExcerpt {
		return message
	}
	return message[:maxErrorExcerpt] + "…"
}
