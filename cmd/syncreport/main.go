package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bekirdag/goal/internal/config"
)

type syncEvent struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Op        string    `json:"op"`
	Quadrant  string    `json:"quadrant"`
	Error     string    `json:"error"`
}

type opSummary struct {
	Op         string  `json:"op"`
	Synced     int     `json:"synced"`
	RolledBack int     `json:"rolled_back"`
	Stale      int     `json:"stale"`
	FailRate   float64 `json:"fail_rate"`
}

type errorCount struct {
	Error string `json:"error"`
	Count int    `json:"count"`
}

type syncReport struct {
	Source      string         `json:"source"`
	Sessions    int            `json:"sessions"`
	Users       int            `json:"users"`
	First       time.Time      `json:"first,omitempty"`
	Last        time.Time      `json:"last,omitempty"`
	Ops         []opSummary    `json:"ops"`
	ByQuadrant  map[string]int `json:"by_quadrant"`
	TopErrors   []errorCount   `json:"top_errors"`
	Malformed   int            `json:"malformed_lines"`
	TotalEvents int            `json:"total_events"`
}

func main() {
	var inputPath string
	var outputPath string
	var format string
	var top int
	flag.StringVar(&inputPath, "in", filepath.Join(config.Dir(), "telemetry.ndjson"), "telemetry NDJSON path")
	flag.StringVar(&outputPath, "out", "", "output path (optional, defaults to stdout)")
	flag.StringVar(&format, "format", "text", "output format: text or json")
	flag.IntVar(&top, "top", 5, "number of distinct errors to list")
	flag.Parse()

	if top < 0 {
		exit(errors.New("--top must not be negative"))
	}

	file, err := os.Open(inputPath)
	if err != nil {
		exit(err)
	}
	defer file.Close()

	report, err := buildReport(inputPath, file, top)
	if err != nil {
		exit(fmt.Errorf("parse telemetry: %w", err))
	}

	var out io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			exit(fmt.Errorf("write output: %w", err))
		}
		defer f.Close()
		out = f
	}
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	case "text":
		err = writeText(out, report)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		exit(err)
	}
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "syncreport: %v\n", err)
	os.Exit(1)
}

func buildReport(source string, r io.Reader, top int) (syncReport, error) {
	report := syncReport{Source: source, ByQuadrant: map[string]int{}}
	sessions := map[string]bool{}
	users := map[string]bool{}
	ops := map[string]*opSummary{}
	errs := map[string]int{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev syncEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Event == "" {
			report.Malformed++
			continue
		}
		report.TotalEvents++
		if ev.SessionID != "" {
			sessions[ev.SessionID] = true
		}
		if ev.UserID != "" {
			users[ev.UserID] = true
		}
		if !ev.Timestamp.IsZero() {
			if report.First.IsZero() || ev.Timestamp.Before(report.First) {
				report.First = ev.Timestamp
			}
			if ev.Timestamp.After(report.Last) {
				report.Last = ev.Timestamp
			}
		}
		if ev.Op == "" {
			continue
		}
		summary, ok := ops[ev.Op]
		if !ok {
			summary = &opSummary{Op: ev.Op}
			ops[ev.Op] = summary
		}
		switch ev.Event {
		case "mutation_synced":
			summary.Synced++
		case "mutation_rolled_back":
			summary.RolledBack++
		case "mutation_stale":
			summary.Stale++
		}
		if ev.Quadrant != "" {
			report.ByQuadrant[ev.Quadrant]++
		}
		if ev.Error != "" {
			errs[ev.Error]++
		}
	}
	if err := scanner.Err(); err != nil {
		return report, err
	}

	report.Sessions = len(sessions)
	report.Users = len(users)
	for _, summary := range ops {
		total := summary.Synced + summary.RolledBack + summary.Stale
		if total > 0 {
			summary.FailRate = float64(summary.RolledBack+summary.Stale) / float64(total)
		}
		report.Ops = append(report.Ops, *summary)
	}
	sort.Slice(report.Ops, func(i, j int) bool { return report.Ops[i].Op < report.Ops[j].Op })

	for msg, n := range errs {
		report.TopErrors = append(report.TopErrors, errorCount{Error: msg, Count: n})
	}
	sort.Slice(report.TopErrors, func(i, j int) bool {
		if report.TopErrors[i].Count != report.TopErrors[j].Count {
			return report.TopErrors[i].Count > report.TopErrors[j].Count
		}
		return report.TopErrors[i].Error < report.TopErrors[j].Error
	})
	if len(report.TopErrors) > top {
		report.TopErrors = report.TopErrors[:top]
	}
	return report, nil
}

func writeText(w io.Writer, report syncReport) error {
	fmt.Fprintf(w, "source:   %s\n", report.Source)
	fmt.Fprintf(w, "events:   %d (%d malformed lines skipped)\n", report.TotalEvents, report.Malformed)
	fmt.Fprintf(w, "sessions: %d, users: %d\n", report.Sessions, report.Users)
	if !report.First.IsZero() {
		fmt.Fprintf(w, "window:   %s to %s\n", report.First.Format(time.RFC3339), report.Last.Format(time.RFC3339))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OP\tSYNCED\tROLLED BACK\tSTALE\tFAIL RATE")
	for _, op := range report.Ops {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f%%\n", op.Op, op.Synced, op.RolledBack, op.Stale, op.FailRate*100)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(report.TopErrors) > 0 {
		fmt.Fprintln(w, "\ntop errors:")
		for _, e := range report.TopErrors {
			fmt.Fprintf(w, "  %4d  %s\n", e.Count, e.Error)
		}
	}
	return nil
}
