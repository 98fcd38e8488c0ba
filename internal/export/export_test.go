package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GwydionBr/life-manager/internal/repository"
	"github.com/GwydionBr/life-manager/internal/testutil"
)

func seed(t *testing.T) ([]Record, string) {
	t.Helper()
	conn := testutil.NewTestDB(t)

	c, err := repository.NewClientRepo(conn).Create("Acme")
	require.NoError(t, err)
	p, err := repository.NewProjectRepo(conn).Create("Website", &c.ID, decimal.NewFromInt(30), true, "EUR")
	require.NoError(t, err)

	sessions := repository.NewSessionRepo(conn)
	first := testutil.NewTestSession(p.ID, testutil.At(9, 0), testutil.At(10, 30),
		testutil.WithSalary(30, true), testutil.WithPaused(30*time.Minute), testutil.WithMemo("design, review"))
	second := testutil.NewTestSession(p.ID, testutil.At(14, 0), testutil.At(15, 0), testutil.WithSalary(400, false))
	require.NoError(t, sessions.Create(first))
	require.NoError(t, sessions.Create(second))

	records, err := Load(conn, p.ID)
	require.NoError(t, err)
	return records, first.ID
}

func TestLoad(t *testing.T) {
	records, firstID := seed(t)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, firstID, r.ID)
	assert.Equal(t, "Website", r.Project)
	assert.Equal(t, "Acme", r.Client)
	assert.Equal(t, "2025-03-10T09:00:00Z", r.Start)
	assert.Equal(t, "2025-03-10T10:30:00Z", r.End)
	assert.Equal(t, int64(1800), r.PausedSeconds)
	assert.Equal(t, int64(3600), r.ActiveSeconds)
	assert.Equal(t, "30.00", r.Earnings)

	assert.Equal(t, "0.00", records[1].Earnings)
	assert.False(t, records[1].HourlyPayment)
}

func TestWriteJSON(t *testing.T) {
	records, firstID := seed(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, records))

	var decoded []Record
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, firstID, decoded[0].ID)
	assert.Equal(t, records, decoded)
	assert.Contains(t, buf.String(), `"active_seconds": 3600`)
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	records, firstID := seed(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, firstID, rows[1][0])
	assert.Equal(t, "3600", rows[1][7])
	assert.Equal(t, "design, review", rows[1][12])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
