package followup

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// importRequired lists the header columns an import file must carry. notes
// and status are optional.
var importRequired = []string{"patient_name", "phone", "language", "due_date"}

// ImportStats summarizes one import run.
type ImportStats struct {
	Created int
	Skipped int
}

// Importer bulk-loads follow-ups from CSV. Rows with a blank required cell
// or a validation failure are skipped and logged with their row number; any
// other failure aborts the run. Unlike the staff form, a blank language is
// not defaulted here: the file is expected to state it.
type Importer struct {
	svc *Service
	log zerolog.Logger
}

func NewImporter(svc *Service, log zerolog.Logger) *Importer {
	return &Importer{svc: svc, log: log}
}

// Run reads the CSV from r and creates one follow-up per valid row, all owned
// by the given clinic and attributed to the given staff user.
func (im *Importer) Run(ctx context.Context, r io.Reader, clinicID, userID uuid.UUID) (ImportStats, error) {
	var stats ImportStats

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range importRequired {
		if _, ok := cols[name]; !ok {
			return stats, fmt.Errorf("missing required column %q", name)
		}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	for row := 2; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("row %d: %w", row, err)
		}

		var blank []string
		for _, name := range importRequired {
			if field(record, name) == "" {
				blank = append(blank, name)
			}
		}
		if len(blank) > 0 {
			stats.Skipped++
			im.log.Warn().Int("row", row).
				Str("reason", "missing required field(s): "+strings.Join(blank, ", ")).
				Msg("skipping row")
			continue
		}

		in := Input{
			PatientName: field(record, "patient_name"),
			Phone:       field(record, "phone"),
			Language:    Language(strings.ToLower(field(record, "language"))),
			Notes:       field(record, "notes"),
			Status:      Status(strings.ToLower(field(record, "status"))),
		}
		if raw := field(record, "due_date"); raw != "" {
			due, err := time.Parse(dateLayout, raw)
			if err != nil {
				stats.Skipped++
				im.log.Warn().Int("row", row).Str("reason", "unparsable due_date").Msg("skipping row")
				continue
			}
			in.DueDate = due
		}

		if _, err := im.svc.Create(ctx, clinicID, userID, in); err != nil {
			var ve ValidationErrors
			if errors.As(err, &ve) {
				stats.Skipped++
				im.log.Warn().Int("row", row).Str("reason", ve.Error()).Msg("skipping row")
				continue
			}
			return stats, fmt.Errorf("row %d: %w", row, err)
		}
		stats.Created++
	}

	return stats, nil
}
