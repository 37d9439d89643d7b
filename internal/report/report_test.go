package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReport(t *testing.T) {
	in := strings.Join([]string{
		"epoch 10 done",
		"Domain: all BLEU 0.2 entity precision 0.3 recall 0.4 and f1 0.35",
		"Domain: navigate BLEU 0.125 entity precision 0.5 recall 0.25 and f1 0.333",
		"Domain: navigate BLEU 9 entity precision 9 recall 9 and f1 9",
	}, "\n")

	m, ok, err := ParseReport(strings.NewReader(in), "navigate")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Metrics{BLEU: 0.125, EntP: 0.5, EntR: 0.25, EntF1: 0.333}, m)

	_, ok, err = ParseReport(strings.NewReader(in), "weather")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseReport_DomainIsLiteral(t *testing.T) {
	in := "Domain: a+b BLEU 1 entity precision 2 recall 3 and f1 4\n"
	_, ok, err := ParseReport(strings.NewReader(in), "a+b")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, _ = ParseReport(strings.NewReader("Domain: aab BLEU 1 entity precision 2 recall 3 and f1 4"), "a+b")
	assert.False(t, ok)
}

func TestParseReport_BadNumber(t *testing.T) {
	_, _, err := ParseReport(strings.NewReader("Domain: x BLEU high entity precision 2 recall 3 and f1 4"), "x")
	assert.Error(t, err)
}

func TestParseReport_LongLines(t *testing.T) {
	in := strings.Repeat("=", 200*1024) + "\n" +
		"Domain: weather BLEU 0.1 entity precision 0.2 recall 0.3 and f1 0.4\n"

	m, ok, err := ParseReport(strings.NewReader(in), "weather")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Metrics{BLEU: 0.1, EntP: 0.2, EntR: 0.3, EntF1: 0.4}, m)
}

func writeSession(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for fn, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fn), []byte(content), 0o644))
	}
}

func TestGatherAndWrite(t *testing.T) {
	root := t.TempDir()
	writeSession(t, root, "s1", map[string]string{
		"eval.txt":  "Domain: schedule BLEU 0.1 entity precision 0.5 recall 0.5 and f1 0.5\n",
		"model.bin": "x",
	})
	writeSession(t, root, "s2", map[string]string{
		"eval.txt": "Domain: schedule BLEU 0.3 entity precision 0.7 recall 0.5 and f1 0.6\n",
	})
	writeSession(t, root, "s3", map[string]string{
		"eval.txt": "Domain: weather BLEU 0.9 entity precision 0.9 recall 0.9 and f1 0.9\n",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("ignored"), 0o644))

	s, err := Gather(root, "schedule")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, s.Sessions)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s, false))
	assert.Equal(t,
		"Domain: schedule, 2 measurements\n"+
			"BLEU\tEnt_P\tEnt_R\tEnt_F1\n"+
			"0.200+/-0.100\t0.600+/-0.100\t0.500+/-0.000\t0.550+/-0.050\n",
		buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, s, true))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "0.100..0.300\t0.500..0.700\t0.500..0.500\t0.500..0.600", lines[3])
}

func TestGather_ReportCount(t *testing.T) {
	root := t.TempDir()
	writeSession(t, root, "s1", map[string]string{"a.txt": "", "b.txt": ""})
	_, err := Gather(root, "schedule")
	assert.ErrorContains(t, err, "found 2")

	root = t.TempDir()
	writeSession(t, root, "s1", map[string]string{"log.json": "{}"})
	_, err = Gather(root, "schedule")
	assert.ErrorContains(t, err, "found 0")
}

func TestWrite_NoMeasurements(t *testing.T) {
	err := Write(&bytes.Buffer{}, Summary{Domain: "navigate"}, false)
	assert.True(t, errors.Is(err, ErrNoMeasurements))
}

func TestDescribe(t *testing.T) {
	st := describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, st.Mean, 1e-9)
	assert.InDelta(t, 2.0, st.Std, 1e-9)
	assert.Equal(t, 2.0, st.Min)
	assert.Equal(t, 9.0, st.Max)
	assert.Equal(t, Stat{}, describe(nil))
}
