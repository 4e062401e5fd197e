package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ghalamif/vesagent/internal/ports"
	"github.com/ghalamif/vesagent/internal/ves"
)

// TimescaleArchive keeps an audit copy of every dispatched event. The table
// needs a unique index on (source_name, start_epoch_us, sequence).
type TimescaleArchive struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleArchive(db *sql.DB, table string) *TimescaleArchive {
	return &TimescaleArchive{db: db, tableName: table}
}

func (t *TimescaleArchive) Name() string { return "timescaledb" }

func (t *TimescaleArchive) WriteBatch(events []ves.Event) error {
	if len(events) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (sequence, domain, source_name, start_epoch_us, payload) VALUES ")

	args := make([]any, 0, len(events)*5)
	for i, e := range events {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5))

		payload, err := ves.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		h := e.Header()
		args = append(args,
			int64(h.Sequence),
			h.Domain,
			h.SourceName,
			h.StartEpochMicrosec,
			payload,
		)
	}

	// sequence restarts at 1 with every process, so it is unique only together
	// with the event's source and window start
	b.WriteString(" ON CONFLICT (source_name, start_epoch_us, sequence) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

var _ ports.Archive = (*TimescaleArchive)(nil)
