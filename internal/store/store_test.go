package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankarsamidala/deals/internal/domain"
	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/sink"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent", "json")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func record(id string, channelID int64, excerpt string, links ...domain.ExtractedLink) sink.Record {
	return sink.Record{
		ID:          id,
		ChannelID:   channelID,
		ChannelName: fmt.Sprintf("channel-%d", channelID),
		MessageID:   1,
		Excerpt:     excerpt,
		Links:       links,
		ReceivedAt:  time.Now(),
	}
}

func link(url, dom string) domain.ExtractedLink {
	return domain.ExtractedLink{URL: url, Source: domain.SourceExplicit, Domain: dom}
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"records", "links", "records_fts"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Record Store tests ---

func TestRecordStore_Emit(t *testing.T) {
	rs := NewRecordStore(testDB(t))

	err := rs.Emit(record("r1", 10, "grab it now",
		link("https://shop.example/x", "shop.example"),
		link("https://other.example/y", "other.example"),
	))
	require.NoError(t, err)

	recs, err := rs.Recent(10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", recs[0].ID)
	assert.Equal(t, int64(10), recs[0].ChannelID)
	assert.Equal(t, "grab it now", recs[0].Excerpt)
	require.Len(t, recs[0].Links, 2)
	assert.Equal(t, "https://shop.example/x", recs[0].Links[0].URL)
	assert.Equal(t, domain.SourceExplicit, recs[0].Links[0].Source)
	assert.Equal(t, "shop.example", recs[0].Links[0].Domain)
}

func TestRecordStore_Emit_NoLinks(t *testing.T) {
	rs := NewRecordStore(testDB(t))

	require.NoError(t, rs.Emit(record("r1", 10, "no links here")))

	recs, err := rs.Recent(10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].Links)
}

func TestRecordStore_Emit_DuplicateID(t *testing.T) {
	rs := NewRecordStore(testDB(t))

	require.NoError(t, rs.Emit(record("r1", 10, "first")))
	err := rs.Emit(record("r1", 10, "second"))
	assert.Error(t, err)

	// The failed insert left nothing behind.
	st, err := rs.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Records)
}

func TestRecordStore_Recent_NewestFirst(t *testing.T) {
	rs := NewRecordStore(testDB(t))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := record(fmt.Sprintf("r%d", i), 10, fmt.Sprintf("message %d", i))
		rec.ReceivedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, rs.Emit(rec))
	}

	recs, err := rs.Recent(2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "r2", recs[0].ID)
	assert.Equal(t, "r1", recs[1].ID)
}

func TestRecordStore_Recent_Empty(t *testing.T) {
	rs := NewRecordStore(testDB(t))

	recs, err := rs.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecordStore_Search(t *testing.T) {
	rs := NewRecordStore(testDB(t))

	require.NoError(t, rs.Emit(record("r1", 10, "massive headphone discount today")))
	require.NoError(t, rs.Emit(record("r2", 10, "new keyboard in stock")))

	recs, err := rs.Search("headphone", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", recs[0].ID)
}

func TestRecordStore_Search_ByChannelName(t *testing.T) {
	rs := NewRecordStore(testDB(t))

	rec := record("r1", 10, "something")
	rec.ChannelName = "gadget bargains"
	require.NoError(t, rs.Emit(rec))

	recs, err := rs.Search("bargains", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestRecordStore_Search_NoResults(t *testing.T) {
	rs := NewRecordStore(testDB(t))

	require.NoError(t, rs.Emit(record("r1", 10, "plain text")))

	recs, err := rs.Search("xyzzy", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecordStore_Stats(t *testing.T) {
	rs := NewRecordStore(testDB(t))

	require.NoError(t, rs.Emit(record("r1", 10, "a",
		link("https://shop.example/1", "shop.example"),
		link("https://shop.example/2", "shop.example"),
	)))
	require.NoError(t, rs.Emit(record("r2", 10, "b",
		link("https://other.example/1", "other.example"),
	)))
	require.NoError(t, rs.Emit(record("r3", 20, "c")))

	st, err := rs.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Records)
	assert.Equal(t, int64(3), st.Links)

	require.Len(t, st.TopDomains, 2)
	assert.Equal(t, "shop.example", st.TopDomains[0].Domain)
	assert.Equal(t, int64(2), st.TopDomains[0].Count)

	require.Len(t, st.Channels, 2)
	assert.Equal(t, int64(10), st.Channels[0].ChannelID)
	assert.Equal(t, int64(2), st.Channels[0].Count)
}

func TestRecordStore_Stats_Empty(t *testing.T) {
	rs := NewRecordStore(testDB(t))

	st, err := rs.Stats()
	require.NoError(t, err)
	assert.Zero(t, st.Records)
	assert.Zero(t, st.Links)
	assert.Empty(t, st.TopDomains)
	assert.Empty(t, st.Channels)
}
