package coverage

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Bin is one value of a cover point and its hit count.
type Bin struct {
	Value int `json:"bin" xml:"bin,attr"`
	Hits  int `json:"hits" xml:"hits,attr"`
}

// PointReport is the snapshot of one cover point.
type PointReport struct {
	Name    string  `json:"name" xml:"abs_name,attr"`
	AtLeast int     `json:"at_least" xml:"at_least,attr"`
	Size    int     `json:"size" xml:"size,attr"`
	Covered int     `json:"coverage" xml:"coverage,attr"`
	Percent float64 `json:"cover_percentage" xml:"cover_percentage,attr"`
	Misses  uint64  `json:"misses" xml:"misses,attr"`
	Bins    []Bin   `json:"bins" xml:"bin"`
}

// Report is a snapshot of the whole coverage database.
type Report struct {
	XMLName  xml.Name      `json:"-" xml:"coverage"`
	Size     int           `json:"size" xml:"size,attr"`
	Covered  int           `json:"coverage" xml:"coverage,attr"`
	Percent  float64       `json:"cover_percentage" xml:"cover_percentage,attr"`
	Complete bool          `json:"complete" xml:"complete,attr"`
	Samples  uint64        `json:"samples" xml:"samples,attr"`
	Points   []PointReport `json:"points" xml:"point"`
}

// Report takes a snapshot of every cover point and its bins.
func (t *Tracker) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := Report{
		Percent: t.percentLocked(),
		Samples: t.samples,
	}
	complete := len(t.order) > 0
	for _, name := range t.order {
		p := t.points[name]
		pr := PointReport{
			Name:    p.name,
			AtLeast: p.atLeast,
			Size:    len(p.values),
			Covered: p.covered,
			Misses:  p.misses,
			Bins:    make([]Bin, len(p.values)),
		}
		if pr.Size > 0 {
			pr.Percent = 100 * float64(p.covered) / float64(pr.Size)
		}
		for i, v := range p.values {
			pr.Bins[i] = Bin{Value: v, Hits: p.hits[i]}
		}
		r.Size += pr.Size
		r.Covered += pr.Covered
		complete = complete && p.complete()
		r.Points = append(r.Points, pr)
	}
	r.Complete = complete
	return r
}

// WriteText renders the report in the log-friendly layout, optionally listing every bin.
func (r Report) WriteText(w io.Writer, bins bool) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "coverage: %d/%d bins (%.2f%%), %d samples\n", r.Covered, r.Size, r.Percent, r.Samples)
	for _, p := range r.Points {
		fmt.Fprintf(&sb, "  %s: %d/%d (%.2f%%) at_least=%d", p.Name, p.Covered, p.Size, p.Percent, p.AtLeast)
		if p.Misses > 0 {
			fmt.Fprintf(&sb, " out_of_bins=%d", p.Misses)
		}
		sb.WriteString("\n")
		if !bins {
			continue
		}
		for _, b := range p.Bins {
			fmt.Fprintf(&sb, "    bin %d: %d\n", b.Value, b.Hits)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return errors.Wrap(err, "write coverage text")
}

// WriteXML serializes the report as XML.
func (r Report) WriteXML(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "write coverage xml")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "encode coverage xml")
	}
	_, err := io.WriteString(w, "\n")
	return errors.Wrap(err, "write coverage xml")
}

// WriteJSON serializes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(r), "encode coverage json")
}

// Export writes the report to path, choosing the format from the extension (.xml or .json).
func (r Report) Export(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create report dir %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create report %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = r.WriteJSON(f)
	case ".xml":
		err = r.WriteXML(f)
	default:
		err = r.WriteText(f, true)
	}
	if cerr := f.Close(); err == nil {
		err = errors.Wrapf(cerr, "close report %s", path)
	}
	return err
}
