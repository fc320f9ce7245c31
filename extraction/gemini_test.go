package extraction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseReportJSONPlainObject(t *testing.T) {
	readings, err := ParseReportJSON(`{"BRITA 0": 2000, "AREIA MEDI": 3500.5}`)
	require.NoError(t, err)
	require.Equal(t, 2000.0, readings["BRITA 0"])
	require.Equal(t, 3500.5, readings["AREIA MEDI"])
}

func TestParseReportJSONStripsCodeFences(t *testing.T) {
	readings, err := ParseReportJSON("```json\n{\"SILO 1\": 1200}\n```")
	require.NoError(t, err)
	require.Equal(t, 1200.0, readings["SILO 1"])
}

func TestParseReportJSONNormalizesLabels(t *testing.T) {
	readings, err := ParseReportJSON(`{" brita 0 ": 100}`)
	require.NoError(t, err)
	require.Equal(t, 100.0, readings["BRITA 0"])
}

func TestParseReportJSONDropsNonNumericValues(t *testing.T) {
	readings, err := ParseReportJSON(`{"BRITA 0": 2000, "OBSERVACAO": "sem leitura"}`)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	require.Equal(t, 2000.0, readings["BRITA 0"])
}

func TestParseReportJSONRejectsGarbage(t *testing.T) {
	_, err := ParseReportJSON("não consegui ler o documento")
	require.ErrorIs(t, err, ErrExtractionFailed)

	_, err = ParseReportJSON("")
	require.ErrorIs(t, err, ErrExtractionFailed)

	_, err = ParseReportJSON("``````")
	require.ErrorIs(t, err, ErrExtractionFailed)
}
