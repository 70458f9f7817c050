package output

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/loginsight/internal/domain"
)

// ReportPaths names the end-of-pass report files. An empty path skips that
// report.
type ReportPaths struct {
	Hosts     string
	Hours     string
	Resources string
}

// FileReportWriter writes the ranked reports as plain text:
//
//	hosts.txt      host,count
//	hours.txt      label,count
//	resources.txt  resource
type FileReportWriter struct {
	paths ReportPaths
}

func NewFileReportWriter(paths ReportPaths) *FileReportWriter {
	return &FileReportWriter{paths: paths}
}

func (w *FileReportWriter) WriteReports(summary *domain.Summary) error {
	if err := writeLines(w.paths.Hosts, len(summary.TopHosts), func(i int) string {
		item := summary.TopHosts[i]
		return item.Key + "," + strconv.FormatInt(item.Count, 10)
	}); err != nil {
		return fmt.Errorf("write hosts report: %w", err)
	}

	if err := writeLines(w.paths.Hours, len(summary.BusyWindows), func(i int) string {
		win := summary.BusyWindows[i]
		return win.Label + "," + strconv.FormatInt(win.Visits, 10)
	}); err != nil {
		return fmt.Errorf("write hours report: %w", err)
	}

	if err := writeLines(w.paths.Resources, len(summary.TopResources), func(i int) string {
		return summary.TopResources[i].Key
	}); err != nil {
		return fmt.Errorf("write resources report: %w", err)
	}

	log.Debug().
		Str("hosts", w.paths.Hosts).
		Str("hours", w.paths.Hours).
		Str("resources", w.paths.Resources).
		Msg("Reports written")
	return nil
}

func writeLines(path string, n int, line func(i int) string) error {
	if path == "" {
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(file)
	for i := 0; i < n; i++ {
		if _, err := bw.WriteString(line(i)); err != nil {
			_ = file.Close()
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			_ = file.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
