// Package report aggregates per-session evaluation reports into a
// mean/stddev summary for one domain.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Fields are the reported metrics, in output order.
var Fields = []string{"BLEU", "Ent_P", "Ent_R", "Ent_F1"}

// ErrNoMeasurements is returned when no session reported the domain.
var ErrNoMeasurements = errors.New("no measurements")

// Metrics is one session's scores for a domain.
type Metrics struct {
	BLEU  float64
	EntP  float64
	EntR  float64
	EntF1 float64
}

func (m Metrics) values() []float64 {
	return []float64{m.BLEU, m.EntP, m.EntR, m.EntF1}
}

// maxLineSize bounds a single report line.
const maxLineSize = 16 << 20

func linePattern(domain string) *regexp.Regexp {
	return regexp.MustCompile(`^Domain: ` + regexp.QuoteMeta(domain) +
		` BLEU (.+) entity precision (.+) recall (.+) and f1 (.+)`)
}

// ParseReport returns the scores from the first line reporting domain. The
// bool is false when no line does.
func ParseReport(r io.Reader, domain string) (Metrics, bool, error) {
	re := linePattern(domain)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		m := re.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		var vals [4]float64
		for i := range vals {
			v, err := strconv.ParseFloat(strings.TrimSpace(m[i+1]), 64)
			if err != nil {
				return Metrics{}, false, fmt.Errorf("parse %s: %w", Fields[i], err)
			}
			vals[i] = v
		}
		return Metrics{BLEU: vals[0], EntP: vals[1], EntR: vals[2], EntF1: vals[3]}, true, nil
	}
	if err := sc.Err(); err != nil {
		return Metrics{}, false, fmt.Errorf("read report: %w", err)
	}
	return Metrics{}, false, nil
}

// Summary is the set of measurements gathered for a domain.
type Summary struct {
	Domain   string
	Sessions []string
	Metrics  []Metrics
}

// Gather reads the single .txt report in every session directory under dir.
// Sessions whose report does not mention domain are skipped. A session
// directory with zero or several .txt files is an error.
func Gather(dir, domain string) (Summary, error) {
	s := Summary{Domain: domain}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return s, fmt.Errorf("read sessions dir: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path, err := sessionReport(filepath.Join(dir, e.Name()))
		if err != nil {
			return s, err
		}
		f, err := os.Open(path)
		if err != nil {
			return s, fmt.Errorf("open report: %w", err)
		}
		m, ok, err := ParseReport(f, domain)
		f.Close()
		if err != nil {
			return s, fmt.Errorf("session %s: %w", e.Name(), err)
		}
		if !ok {
			continue
		}
		s.Sessions = append(s.Sessions, e.Name())
		s.Metrics = append(s.Metrics, m)
	}
	return s, nil
}

func sessionReport(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read session dir: %w", err)
	}
	var found []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".txt" {
			found = append(found, e.Name())
		}
	}
	if len(found) != 1 {
		return "", fmt.Errorf("session %s: want exactly one .txt report, found %d", filepath.Base(dir), len(found))
	}
	return filepath.Join(dir, found[0]), nil
}

// Stat summarizes one field across sessions. Std is the population
// standard deviation.
type Stat struct {
	Mean, Std, Min, Max float64
}

// Stats computes a Stat per field, in Fields order.
func (s Summary) Stats() []Stat {
	out := make([]Stat, len(Fields))
	for i := range Fields {
		col := make([]float64, len(s.Metrics))
		for j, m := range s.Metrics {
			col[j] = m.values()[i]
		}
		out[i] = describe(col)
	}
	return out
}

func describe(xs []float64) Stat {
	if len(xs) == 0 {
		return Stat{}
	}
	st := Stat{Min: xs[0], Max: xs[0]}
	var sum float64
	for _, x := range xs {
		sum += x
		st.Min = math.Min(st.Min, x)
		st.Max = math.Max(st.Max, x)
	}
	st.Mean = sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - st.Mean
		sq += d * d
	}
	st.Std = math.Sqrt(sq / float64(len(xs)))
	return st
}

// Write prints the summary as tab-separated text. extended adds a row of
// min..max ranges.
func Write(w io.Writer, s Summary, extended bool) error {
	if len(s.Metrics) == 0 {
		return fmt.Errorf("domain %s: %w", s.Domain, ErrNoMeasurements)
	}
	stats := s.Stats()
	meanStd := make([]string, len(stats))
	ranges := make([]string, len(stats))
	for i, st := range stats {
		meanStd[i] = fmt.Sprintf("%.3f+/-%.3f", st.Mean, st.Std)
		ranges[i] = fmt.Sprintf("%.3f..%.3f", st.Min, st.Max)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Domain: %s, %d measurements\n", s.Domain, len(s.Metrics))
	b.WriteString(strings.Join(Fields, "\t") + "\n")
	b.WriteString(strings.Join(meanStd, "\t") + "\n")
	if extended {
		b.WriteString(strings.Join(ranges, "\t") + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
