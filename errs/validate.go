package errs

import (
	"net/url"
	"strings"

	"github.com/gigcatalog/ingestor/eventmodel"
)

// Warning is a non-fatal sanitization note attached to a record that
// autoFix repaired rather than rejected.
type Warning struct {
	Field   string
	Message string
}

// Invalid pairs a record with the errors that disqualified it.
type Invalid struct {
	Record   eventmodel.Event
	Errors   []*ValidationError
	Warnings []Warning
}

// BatchResult is the outcome of validating a list of records.
type BatchResult struct {
	Valid        []eventmodel.Event
	Invalid      []Invalid
	TotalErrors  int
	TotalWarnings int
}

// Sanitizer applies record-by-record repair or rejection per §4.12.
// When AutoFix is on, missing required fields get defaults and
// malformed values are dropped or coerced; when off, the same problems
// are recorded as hard errors instead.
type Sanitizer struct {
	AutoFix bool
}

// Sanitize repairs or flags a single record, returning the (possibly
// modified) record, any warnings from auto-fixes, and any hard errors.
func (s Sanitizer) Sanitize(e eventmodel.Event) (eventmodel.Event, []Warning, []*ValidationError) {
	var warnings []Warning
	var errors []*ValidationError

	if strings.TrimSpace(e.Title) == "" {
		if s.AutoFix {
			e.Title = "Untitled Event"
			warnings = append(warnings, Warning{Field: "title", Message: "missing title defaulted to Untitled Event"})
		} else {
			errors = append(errors, New(KindMissingRequiredField, "title", "title is required"))
		}
	}

	if strings.TrimSpace(e.Venue.Name) == "" {
		if s.AutoFix {
			errors = append(errors, New(KindMissingRequiredField, "venue.name", "venue name is required and has no safe default"))
		} else {
			errors = append(errors, New(KindMissingRequiredField, "venue.name", "venue name is required"))
		}
	}

	if e.DateStart.IsZero() {
		errors = append(errors, New(KindInvalidDateFormat, "dateStart", "dateStart is required"))
	} else if e.DateEnd != nil && e.DateStart.After(*e.DateEnd) {
		if s.AutoFix {
			e.DateEnd = nil
			warnings = append(warnings, Warning{Field: "dateEnd", Message: "dateEnd before dateStart, dropped"})
		} else {
			errors = append(errors, New(KindInvalidDateFormat, "dateEnd", "dateEnd must not precede dateStart"))
		}
	}

	if e.Status == "" {
		if s.AutoFix {
			e.Status = eventmodel.StatusScheduled
			warnings = append(warnings, Warning{Field: "status", Message: "missing status defaulted to scheduled"})
		} else {
			errors = append(errors, New(KindMissingRequiredField, "status", "status is required"))
		}
	} else if e.Status != eventmodel.StatusScheduled && e.Status != eventmodel.StatusCancelled && e.Status != eventmodel.StatusPostponed {
		errors = append(errors, New(KindInvalidGigData, "status", "status must be scheduled, cancelled, or postponed"))
	}

	if e.Price.Currency != "" {
		cur := strings.ToUpper(strings.TrimSpace(e.Price.Currency))
		if len(cur) != 3 {
			if s.AutoFix {
				e.Price.Currency = ""
				warnings = append(warnings, Warning{Field: "price.currency", Message: "non ISO-4217 currency cleared"})
			} else {
				errors = append(errors, New(KindInvalidPriceData, "price.currency", "currency must be a 3-letter code"))
			}
		} else {
			e.Price.Currency = cur
		}
	}
	if e.Price.Min != nil && e.Price.Max != nil && *e.Price.Min > *e.Price.Max {
		errors = append(errors, New(KindInvalidPriceData, "price", "min must not exceed max"))
	}

	for _, field := range []*string{&e.TicketsURL, &e.EventURL} {
		if *field == "" {
			continue
		}
		if !isValidURL(*field) {
			if s.AutoFix {
				warnings = append(warnings, Warning{Field: "url", Message: "invalid url dropped: " + *field})
				*field = ""
			} else {
				errors = append(errors, New(KindInvalidURLFormat, "url", "invalid url: "+*field))
			}
		}
	}

	e.Artists = dedupeStrings(e.Artists)
	e.Tags = dedupeStrings(e.Tags)
	e.Images = dedupeStrings(e.Images)

	return e, warnings, errors
}

// ValidateBatch sanitizes every record in records, splitting the result
// into valid and invalid groups per §4.12.
func ValidateBatch(records []eventmodel.Event, s Sanitizer) BatchResult {
	result := BatchResult{}
	for _, r := range records {
		cleaned, warnings, errs := s.Sanitize(r)
		result.TotalWarnings += len(warnings)
		if len(errs) > 0 {
			result.TotalErrors += len(errs)
			result.Invalid = append(result.Invalid, Invalid{Record: cleaned, Errors: errs, Warnings: warnings})
			continue
		}
		result.Valid = append(result.Valid, cleaned)
	}
	return result
}

func isValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// severity classifies a source run by the fraction of invalid records,
// per §4.4 step 4.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RunSeverity classifies a run by invalid/total ratio: >50% invalid is
// high, any invalid is at least medium, otherwise low.
func RunSeverity(total, invalid int) Severity {
	if total == 0 || invalid == 0 {
		return SeverityLow
	}
	if float64(invalid)/float64(total) > 0.5 {
		return SeverityHigh
	}
	return SeverityMedium
}
