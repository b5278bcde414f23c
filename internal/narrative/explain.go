package narrative

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/spigell/bursary-matcher/internal/bursary"
	"github.com/spigell/bursary-matcher/internal/scoring"
)

const (
	DefaultCurrencySymbol = "R"

	bandExcellent = 85
	bandStrong    = 70
	bandDecent    = 50

	deadlineSoonDays  = 7
	deadlineMonthDays = 30

	dateLayout = "2 January 2006"
)

// ExplainInput carries a scored match into Explain.
type ExplainInput struct {
	Listing   *bursary.Listing
	Total     int
	Breakdown scoring.Breakdown
	Reasons   []string
	Now       time.Time
	// Currency is prefixed to the award amount. Empty means DefaultCurrencySymbol.
	Currency string
}

// Explain renders the conversational explanation of a deterministic match.
func Explain(in ExplainInput) string {
	listing := in.Listing
	if listing == nil {
		listing = &bursary.Listing{}
	}
	title := strings.TrimSpace(listing.Title)
	if title == "" {
		title = "This bursary"
	}

	parts := []string{opening(title, in.Total)}

	if areas := strongAreas(in.Breakdown); len(areas) > 0 {
		parts = append(parts, fmt.Sprintf("You score particularly well on %s.", strings.Join(areas, " and ")))
	}

	if len(in.Reasons) > 0 {
		parts = append(parts, sentence(rewriteReason(in.Reasons[0])))
	}

	if listing.AwardAmount > 0 {
		parts = append(parts, fmt.Sprintf("The award is worth %s.", FormatAmount(listing.AwardAmount, in.Currency)))
	}

	if clause := deadlineClause(listing.Deadline, in.Now); clause != "" {
		parts = append(parts, clause)
	}

	parts = append(parts, closing(in.Total))

	return strings.Join(parts, " ")
}

func opening(title string, total int) string {
	switch {
	case total >= bandExcellent:
		return fmt.Sprintf("%s is an excellent match for you, with a compatibility score of %d%%.", title, total)
	case total >= bandStrong:
		return fmt.Sprintf("%s is a strong match for your profile, scoring %d%%.", title, total)
	case total >= bandDecent:
		return fmt.Sprintf("%s is a decent match for you at %d%%.", title, total)
	default:
		return fmt.Sprintf("%s is not a perfect fit, with a compatibility score of %d%%.", title, total)
	}
}

func closing(total int) string {
	switch {
	case total >= bandStrong:
		return "We highly recommend applying."
	case total >= bandDecent:
		return "This is a good opportunity to consider."
	default:
		return "Consider applying, but explore alongside better-matched opportunities too."
	}
}

func strongAreas(b scoring.Breakdown) []string {
	var areas []string
	if b.FinancialNeed >= scoring.StrongThreshold {
		areas = append(areas, "financial need")
	}
	if b.AcademicMerit >= scoring.StrongThreshold {
		areas = append(areas, "academic background")
	}
	if b.Extracurriculars >= scoring.StrongThreshold {
		areas = append(areas, "extracurricular activities")
	}
	if b.Demographics >= scoring.StrongThreshold {
		areas = append(areas, "demographic fit")
	}
	return areas
}

func rewriteReason(reason string) string {
	const prefix = "Strong match for "
	if rest, ok := strings.CutPrefix(reason, prefix); ok {
		return "The match is especially strong in " + rest
	}
	return reason
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") {
		return s
	}
	return s + "."
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders an award amount with grouping and two decimals, e.g. R25,000.00.
func FormatAmount(amount float64, symbol string) string {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	return symbol + printer.Sprintf("%v", number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// DaysUntil counts calendar days from today to the deadline's date. The deadline
// is a calendar date: its own year, month and day are used as written, so a
// date-only deadline stored as UTC midnight is not shifted into now's zone.
func DaysUntil(deadline, now time.Time) int {
	loc := now.Location()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	end := time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 0, 0, 0, 0, loc)
	// Days can be 23 or 25 hours long across DST changes.
	return int(math.Round(end.Sub(start).Hours() / 24))
}

func deadlineClause(deadline, now time.Time) string {
	if deadline.IsZero() {
		return ""
	}
	if now.IsZero() {
		now = time.Now()
	}

	date := deadline.Format(dateLayout)
	days := DaysUntil(deadline, now)

	switch {
	case days < 0:
		return fmt.Sprintf("The application deadline passed on %s, so watch for the next intake.", date)
	case days == 0:
		return "Applications are due today, so submit yours right away!"
	case days <= deadlineSoonDays:
		return fmt.Sprintf("The deadline is very soon: only %s left to apply (closes %s).", plural(days, "day"), date)
	case days <= deadlineMonthDays:
		return fmt.Sprintf("You have %s left to apply, until %s.", plural(days, "day"), date)
	default:
		return fmt.Sprintf("Applications close on %s.", date)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
