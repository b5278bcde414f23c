package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/spigell/bursary-matcher/internal/matching"
	"github.com/spigell/bursary-matcher/internal/narrative"
)

const noValue = "-"

var header = []string{"#", "Bursary", "Total", "Combined", "Fin", "Acad", "Extra", "Demo", "Deadline", "Days"}

// Table renders ranked results, one row per bursary in rank order.
func Table(w io.Writer, results []matching.MatchResult, now time.Time) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No bursaries to show.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header(header)

	for i, r := range results {
		if err := table.Append(row(i+1, r, now)); err != nil {
			return fmt.Errorf("append row %d: %w", i+1, err)
		}
	}

	return table.Render()
}

func row(rank int, r matching.MatchResult, now time.Time) []string {
	combined := noValue
	if r.CombinedScore != nil {
		combined = strconv.Itoa(*r.CombinedScore)
	}

	title, deadline, days := "", noValue, noValue
	if r.Bursary != nil {
		title = truncate(r.Bursary.Title, 40)
		if r.Bursary.HasDeadline() {
			deadline = r.Bursary.Deadline.Format("2006-01-02")
			days = strconv.Itoa(narrative.DaysUntil(r.Bursary.Deadline, now))
		}
	}

	return []string{
		strconv.Itoa(rank),
		title,
		strconv.Itoa(r.Total),
		combined,
		strconv.Itoa(r.Breakdown.FinancialNeed),
		strconv.Itoa(r.Breakdown.AcademicMerit),
		strconv.Itoa(r.Breakdown.Extracurriculars),
		strconv.Itoa(r.Breakdown.Demographics),
		deadline,
		days,
	}
}

// JSON writes results as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// DumpToTmpFile writes v as indented JSON to a new temporary file and returns its name.
func DumpToTmpFile(v any) (string, error) {
	file, err := os.CreateTemp("", "bursary_matches_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := JSON(file, v); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
