package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradebook() Dataset {
	return Dataset{
		Title:   "Essay 1",
		Headers: []string{"student", "submitted", "marks"},
		Rows: []map[string]string{
			{"student": "Ada", "submitted": "yes", "marks": "90"},
			{"student": "Linus, T", "submitted": "no"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(gradebook())
	require.NoError(t, err)
	assert.Equal(t, "student,submitted,marks\nAda,yes,90\n\"Linus, T\",no,\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(gradebook())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestForFormat(t *testing.T) {
	exp, err := ForFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", exp.ContentType())

	exp, err = ForFormat("")
	require.NoError(t, err)
	assert.Equal(t, "csv", exp.Extension())

	_, err = ForFormat("xlsx")
	assert.Error(t, err)
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"student"},
		Rows:    []map[string]string{{"student": "=HYPERLINK(\"x\")"}, {"student": "@cmd"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "student\n\"'=HYPERLINK(\"\"x\"\")\"\n'@cmd\n", string(out))
}
