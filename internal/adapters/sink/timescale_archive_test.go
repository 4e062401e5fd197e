package sink

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ghalamif/vesagent/internal/ves"
)

func TestTimescaleArchiveWriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	archive := NewTimescaleArchive(db, "ves_events")

	m := ves.NewMeasurement(1)
	m.Header().SetSource("vm1")
	m.Header().SetWindow(time.Unix(10, 0), time.Unix(20, 0))
	f := ves.NewFault(2)
	f.Header().SetSource("host-a")

	expectedQuery := regexp.QuoteMeta("INSERT INTO ves_events (sequence, domain, source_name, start_epoch_us, payload) VALUES ($1,$2,$3,$4,$5),($6,$7,$8,$9,$10) ON CONFLICT (source_name, start_epoch_us, sequence) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs(
			int64(1), ves.DomainMeasurements, "vm1", int64(10_000_000), sqlmock.AnyArg(),
			int64(2), ves.DomainFault, "host-a", int64(0), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(2, 2))

	if err := archive.WriteBatch([]ves.Event{m, f}); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleArchiveSequenceReuseAcrossRestarts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	archive := NewTimescaleArchive(db, "ves_events")

	// two process lifetimes both start their sequence at 1
	first := ves.NewMeasurement(1)
	first.Header().SetSource("vm1")
	first.Header().SetWindow(time.Unix(10, 0), time.Unix(20, 0))
	second := ves.NewMeasurement(1)
	second.Header().SetSource("vm1")
	second.Header().SetWindow(time.Unix(500, 0), time.Unix(510, 0))

	conflict := regexp.QuoteMeta("ON CONFLICT (source_name, start_epoch_us, sequence) DO NOTHING")
	mock.ExpectExec(conflict).
		WithArgs(int64(1), ves.DomainMeasurements, "vm1", int64(10_000_000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(conflict).
		WithArgs(int64(1), ves.DomainMeasurements, "vm1", int64(500_000_000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := archive.WriteBatch([]ves.Event{first}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := archive.WriteBatch([]ves.Event{second}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleArchiveWriteBatchError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO ves_events").WillReturnError(errors.New("db down"))

	archive := NewTimescaleArchive(db, "ves_events")
	if err := archive.WriteBatch([]ves.Event{ves.NewFault(1)}); err == nil {
		t.Fatalf("expected exec error")
	}
}

func TestTimescaleArchiveWriteBatchNoEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	archive := NewTimescaleArchive(db, "ves_events")
	if err := archive.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleArchiveName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	archive := NewTimescaleArchive(db, "ves_events")
	if archive.Name() != "timescaledb" {
		t.Fatalf("expected archive name timescaledb, got %s", archive.Name())
	}
}
