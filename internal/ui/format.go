package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/vgmkit/unvgz/internal/stats"
)

// FormatRate formats a bytes-per-second rate as a human-readable string.
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0 B/s"
	}
	units := []string{"B/s", "KB/s", "MB/s", "GB/s", "TB/s"}
	val := bytesPerSec
	for _, u := range units {
		if val < 1024 {
			if val < 10 {
				return fmt.Sprintf("%.2f %s", val, u)
			}
			if val < 100 {
				return fmt.Sprintf("%.1f %s", val, u)
			}
			return fmt.Sprintf("%.0f %s", val, u)
		}
		val /= 1024
	}
	return fmt.Sprintf("%.1f PB/s", val)
}

// FormatCount formats an integer with comma separators.
func FormatCount(n int64) string {
	if n < 0 {
		return "-" + FormatCount(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		b.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatDuration formats elapsed time concisely.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatBytes wraps stats.FormatBytes for UI use.
func FormatBytes(b int64) string {
	return stats.FormatBytes(b)
}

// StripRoot removes the destination root prefix from a path for display.
func StripRoot(root, path string) string {
	if root == "" {
		return path
	}
	trimmed := strings.TrimPrefix(path, root)
	return strings.TrimPrefix(trimmed, "/")
}

// CompletionSummary renders the end-of-run summary line.
func CompletionSummary(s stats.Snapshot) string {
	line := fmt.Sprintf("%s files decompressed (%s) in %s",
		FormatCount(s.FilesDecompressed),
		FormatBytes(s.BytesWritten),
		FormatDuration(s.Elapsed),
	)
	var extra []string
	if s.FilesSkipped > 0 {
		extra = append(extra, fmt.Sprintf("%s skipped", FormatCount(s.FilesSkipped)))
	}
	if s.FilesDiscarded > 0 {
		extra = append(extra, fmt.Sprintf("%s discarded", FormatCount(s.FilesDiscarded)))
	}
	if s.FilesFailed > 0 {
		extra = append(extra, fmt.Sprintf("%s failed", FormatCount(s.FilesFailed)))
	}
	if s.FilesVerifyFailed > 0 {
		extra = append(extra, fmt.Sprintf("%s verify mismatches", FormatCount(s.FilesVerifyFailed)))
	}
	if len(extra) > 0 {
		line += " (" + strings.Join(extra, ", ") + ")"
	}
	return line
}
