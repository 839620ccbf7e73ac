package serde

import (
	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
)

// columnarSerDe reads RCFile rows: one text cell per file column, already
// separated by the reader.
type columnarSerDe struct {
	inspector *rowInspector
	row       lazyRow
}

func (s *columnarSerDe) Initialize(props hiveconf.Properties) error {
	p, err := newLazyParams(props)
	if err != nil {
		return err
	}
	s.inspector, err = newRowInspector(props, p)
	return err
}

func (s *columnarSerDe) Deserialize(raw any) (any, error) {
	cells, ok := raw.([][]byte)
	if !ok {
		return nil, &typeError{want: "column cells", got: raw}
	}
	s.row.cells = cells
	return &s.row, nil
}

func (s *columnarSerDe) Inspector() StructInspector { return s.inspector }

// lazySimpleSerDe reads delimited text lines.
type lazySimpleSerDe struct {
	inspector *rowInspector
	row       lazyRow
}

func (s *lazySimpleSerDe) Initialize(props hiveconf.Properties) error {
	p, err := newLazyParams(props)
	if err != nil {
		return err
	}
	s.inspector, err = newRowInspector(props, p)
	return err
}

func (s *lazySimpleSerDe) Deserialize(raw any) (any, error) {
	line, ok := raw.([]byte)
	if !ok {
		return nil, &typeError{want: "text line", got: raw}
	}
	p := s.inspector.params
	s.row.cells = splitFields(line, p.separator(0), len(s.inspector.refs), p.lastColumnTakesRest)
	return &s.row, nil
}

func (s *lazySimpleSerDe) Inspector() StructInspector { return s.inspector }
