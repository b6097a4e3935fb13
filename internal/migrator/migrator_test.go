package migrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"smf/internal/core"
	"smf/internal/logging"
)

func TestConvertRowsPassesThroughPlainValues(t *testing.T) {
	kinds := []core.ColumnKind{core.ColumnKindOther, core.ColumnKindOther}
	rows := [][]any{{int64(1), "ann"}}

	converted, skipped, err := convertRows(nil, "widgets", kinds, rows)
	assert.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, [][]any{{int64(1), "ann"}}, converted)
}

func TestConvertRowsSkipsUnconvertibleValueWithoutAbortingChunk(t *testing.T) {
	kinds := []core.ColumnKind{core.ColumnKindUUID, core.ColumnKindOther}
	rows := [][]any{
		{42, "ok"}, // int is not a supported uuid source type
		{"11111111-1111-1111-1111-111111111111", "also ok"},
	}

	converted, skipped, err := convertRows(nil, "widgets", kinds, rows)
	assert.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Nil(t, converted[0][0])
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", converted[1][0])
}

func TestConvertRowsLeavesNullUntouched(t *testing.T) {
	kinds := []core.ColumnKind{core.ColumnKindTimestamp}
	rows := [][]any{{nil}}

	converted, skipped, err := convertRows(nil, "widgets", kinds, rows)
	assert.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Nil(t, converted[0][0])
}

func TestConvertRowsLogsOneWarningForSkippedValue(t *testing.T) {
	zapCore, observed := observer.New(zap.WarnLevel)
	logger := &logging.Logger{Logger: zap.New(zapCore)}

	kinds := []core.ColumnKind{core.ColumnKindUUID}
	rows := [][]any{{42}} // int is not a supported uuid source type

	_, skipped, err := convertRows(logger, "widgets", kinds, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Equal(t, 1, observed.Len())
	assert.Contains(t, observed.All()[0].Message, "widgets")
	assert.Contains(t, observed.All()[0].Message, "row 0")
}

func TestConvertRowsLogsOneWarningForSentinelTimestamp(t *testing.T) {
	zapCore, observed := observer.New(zap.WarnLevel)
	logger := &logging.Logger{Logger: zap.New(zapCore)}

	kinds := []core.ColumnKind{core.ColumnKindTimestamp}
	corrupt := time.Date(12024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]any{{corrupt}}

	converted, skipped, err := convertRows(logger, "events", kinds, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, core.SentinelEpoch, converted[0][0])
	require.Equal(t, 1, observed.Len())
}

func TestConvertRowsLogsNothingForCleanRow(t *testing.T) {
	zapCore, observed := observer.New(zap.WarnLevel)
	logger := &logging.Logger{Logger: zap.New(zapCore)}

	kinds := []core.ColumnKind{core.ColumnKindOther}
	rows := [][]any{{"fine"}}

	_, _, err := convertRows(logger, "widgets", kinds, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, observed.Len())
}

func TestNormalizeCursorValueConvertsWholeFloatToInt64(t *testing.T) {
	assert.Equal(t, int64(42), normalizeCursorValue(float64(42)))
}

func TestNormalizeCursorValueLeavesNonWholeFloatAlone(t *testing.T) {
	assert.Equal(t, 42.5, normalizeCursorValue(42.5))
}

func TestNormalizeCursorValueLeavesNonFloatAlone(t *testing.T) {
	assert.Equal(t, "abc", normalizeCursorValue("abc"))
}
