package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shankarsamidala/deals/internal/domain"
	"github.com/shankarsamidala/deals/internal/sink"
)

// RecordStore persists extracted-link records to SQLite. It implements
// sink.Sink so it can sit directly behind the delivery queue.
type RecordStore struct {
	db *DB
}

// NewRecordStore creates a record store using the given database.
func NewRecordStore(db *DB) *RecordStore {
	return &RecordStore{db: db}
}

// Emit writes the record and its links in one transaction.
func (s *RecordStore) Emit(rec sink.Record) error {
	tx, err := s.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin record insert: %w", err)
	}

	receivedAt := rec.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	if _, err := tx.Exec(
		`INSERT INTO records (id, channel_id, channel_name, message_id, excerpt, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ChannelID, rec.ChannelName, rec.MessageID, rec.Excerpt,
		receivedAt.UTC().Format(time.DateTime),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}

	for _, link := range rec.Links {
		if _, err := tx.Exec(
			`INSERT INTO links (record_id, url, source, domain) VALUES (?, ?, ?, ?)`,
			rec.ID, link.URL, string(link.Source), link.Domain,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting link for record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record %s: %w", rec.ID, err)
	}
	return nil
}

// Close satisfies sink.Sink. The DB connection is owned by the caller that
// opened it, so there is nothing to release here.
func (s *RecordStore) Close() error {
	return nil
}

// Recent returns the most recently received records, newest first, with their
// links attached.
func (s *RecordStore) Recent(limit int) ([]sink.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.sql.Query(
		`SELECT id, channel_id, channel_name, message_id, excerpt, received_at
		 FROM records ORDER BY received_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		recs[i].Links, err = s.loadLinks(recs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// Search runs a full-text query over record excerpts and channel names.
func (s *RecordStore) Search(query string, limit int) ([]sink.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.sql.Query(
		`SELECT r.id, r.channel_id, r.channel_name, r.message_id, r.excerpt, r.received_at
		 FROM records_fts f
		 JOIN records r ON r.rowid = f.rowid
		 WHERE records_fts MATCH ?
		 ORDER BY rank LIMIT ?`, query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching records: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		recs[i].Links, err = s.loadLinks(recs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// DomainCount is the number of links seen for one domain.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// ChannelCount is the number of records seen for one channel.
type ChannelCount struct {
	ChannelID   int64  `json:"channelId"`
	ChannelName string `json:"channelName"`
	Count       int64  `json:"count"`
}

// Stats summarizes everything persisted so far.
type Stats struct {
	Records    int64          `json:"records"`
	Links      int64          `json:"links"`
	TopDomains []DomainCount  `json:"topDomains"`
	Channels   []ChannelCount `json:"channels"`
}

// Stats computes totals plus per-domain and per-channel breakdowns.
func (s *RecordStore) Stats() (Stats, error) {
	var st Stats

	if err := s.db.sql.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&st.Records); err != nil {
		return st, fmt.Errorf("counting records: %w", err)
	}
	if err := s.db.sql.QueryRow(`SELECT COUNT(*) FROM links`).Scan(&st.Links); err != nil {
		return st, fmt.Errorf("counting links: %w", err)
	}

	rows, err := s.db.sql.Query(
		`SELECT domain, COUNT(*) FROM links GROUP BY domain ORDER BY COUNT(*) DESC, domain LIMIT 10`,
	)
	if err != nil {
		return st, fmt.Errorf("counting domains: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dc DomainCount
		if err := rows.Scan(&dc.Domain, &dc.Count); err != nil {
			return st, fmt.Errorf("scanning domain count: %w", err)
		}
		st.TopDomains = append(st.TopDomains, dc)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	chRows, err := s.db.sql.Query(
		`SELECT channel_id, channel_name, COUNT(*) FROM records
		 GROUP BY channel_id, channel_name ORDER BY COUNT(*) DESC, channel_id`,
	)
	if err != nil {
		return st, fmt.Errorf("counting channels: %w", err)
	}
	defer chRows.Close()
	for chRows.Next() {
		var cc ChannelCount
		if err := chRows.Scan(&cc.ChannelID, &cc.ChannelName, &cc.Count); err != nil {
			return st, fmt.Errorf("scanning channel count: %w", err)
		}
		st.Channels = append(st.Channels, cc)
	}
	return st, chRows.Err()
}

func (s *RecordStore) loadLinks(recordID string) ([]domain.ExtractedLink, error) {
	rows, err := s.db.sql.Query(
		`SELECT url, source, domain FROM links WHERE record_id = ? ORDER BY id`, recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying links for %s: %w", recordID, err)
	}
	defer rows.Close()

	var links []domain.ExtractedLink
	for rows.Next() {
		var l domain.ExtractedLink
		var source string
		if err := rows.Scan(&l.URL, &source, &l.Domain); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		l.Source = domain.LinkSource(source)
		links = append(links, l)
	}
	return links, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]sink.Record, error) {
	var recs []sink.Record
	for rows.Next() {
		var rec sink.Record
		var receivedAt string
		if err := rows.Scan(
			&rec.ID, &rec.ChannelID, &rec.ChannelName, &rec.MessageID,
			&rec.Excerpt, &receivedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.ReceivedAt, _ = time.Parse(time.DateTime, receivedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
