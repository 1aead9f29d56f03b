package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"mercator-hq/chronicle/pkg/history"
)

// ReadEntities decodes historic entities from r. The input is either one
// JSON array or a stream of JSON objects (newline-delimited JSON). Entities
// without a kind get defaultKind; an empty defaultKind makes a missing kind
// an error.
func ReadEntities(r io.Reader, defaultKind history.EntityKind) ([]*history.HistoricEntity, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, NewExportError("json", 0, err)
	}

	dec := json.NewDecoder(br)
	dec.DisallowUnknownFields()

	var entities []*history.HistoricEntity
	if first == '[' {
		if err := dec.Decode(&entities); err != nil {
			return nil, NewExportError("json", 0, err)
		}
	} else {
		for {
			var e history.HistoricEntity
			err := dec.Decode(&e)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, NewExportError("json", len(entities), err)
			}
			entities = append(entities, &e)
		}
	}

	for i, e := range entities {
		if e == nil {
			return nil, NewExportError("json", i, errors.New("null entity"))
		}
		if e.Kind == "" {
			e.Kind = defaultKind
		}
		if _, err := history.ParseKind(string(e.Kind)); err != nil {
			return nil, NewExportError("json", i, fmt.Errorf("entity %d: %w", i, err))
		}
	}
	return entities, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
