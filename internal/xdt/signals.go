package xdt

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrNoStructuredText is returned by ParseSignals when a document has no
// xhtml body inside an ST element.
var ErrNoStructuredText = errors.New("no structured text body")

// Signal is one "SIGNAL ->" declaration in a structured text body. ID is
// the most recent "ID:<hex>" seen above it in the same body.
type Signal struct {
	ID         string
	Name       string
	Max        string
	Min        string
	Default    string
	Resolution string
	Offset     string
}

var (
	signalLine = regexp.MustCompile(`//-*\s*SIGNAL\s*->\s*(\S+)\s*` +
		`Max\s*:\s*(.*?)\s*Min\s*:\s*(.*?)\s*Def\s*:\s*(.*?)\s*` +
		`Resolution\s*:\s*(.*?)\s*Offset\s*:\s*(.*?)\s*$`)
	signalBlockID = regexp.MustCompile(`ID:([0-9a-fA-F]+)`)
)

// ExtractSignals returns the signals declared in a tracked file whose
// name equals one of keywords. Without keywords every signal is returned.
func (s *Service) ExtractSignals(ctx context.Context, fileID int64, keywords []string) ([]Signal, error) {
	const op = "extract signals"

	f, err := s.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	p, err := s.fsmgr.Resolve(FilePath(f))
	if err != nil {
		return nil, notFound(op, "backing file of %s is missing: %v", f.Path, err)
	}
	r, err := s.fsmgr.Open(p)
	if err != nil {
		return nil, notFound(op, "backing file of %s is unreadable: %v", f.Path, err)
	}
	defer r.Close()

	all, err := ParseSignals(r)
	if errors.Is(err, ErrNoStructuredText) {
		return nil, invalidInput(op, "%s has no structured text body", f.Path)
	}
	if err != nil {
		return nil, invalidInput(op, "%s: %v", f.Path, err)
	}

	wanted := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			wanted[k] = true
		}
	}
	if len(wanted) == 0 {
		return all, nil
	}
	var out []Signal
	for _, sig := range all {
		if wanted[sig.Name] {
			out = append(out, sig)
		}
	}
	return out, nil
}

// ParseSignals reads a PLCopen export and returns the signals declared in
// the xhtml bodies of its ST elements, in document order.
func ParseSignals(r io.Reader) ([]Signal, error) {
	dec := xml.NewDecoder(r)

	var signals []Signal
	var body *strings.Builder
	stDepth := 0
	found := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case strings.EqualFold(t.Name.Local, "ST"):
				stDepth++
			case stDepth > 0 && body == nil && strings.EqualFold(t.Name.Local, "xhtml"):
				body = &strings.Builder{}
				found = true
			}
		case xml.CharData:
			if body != nil {
				body.Write(t)
			}
		case xml.EndElement:
			switch {
			case body != nil && strings.EqualFold(t.Name.Local, "xhtml"):
				signals = append(signals, scanSignals(body.String())...)
				body = nil
			case stDepth > 0 && strings.EqualFold(t.Name.Local, "ST"):
				stDepth--
			}
		}
	}
	if !found {
		return nil, ErrNoStructuredText
	}
	return signals, nil
}

func scanSignals(body string) []Signal {
	var out []Signal
	id := ""
	for _, line := range strings.Split(body, "\n") {
		if m := signalBlockID.FindStringSubmatch(line); m != nil {
			id = m[1]
		}
		m := signalLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Signal{
			ID:         id,
			Name:       m[1],
			Max:        m[2],
			Min:        m[3],
			Default:    m[4],
			Resolution: m[5],
			Offset:     m[6],
		})
	}
	return out
}
