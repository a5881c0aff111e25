package ontology

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	initialTermCapacity = 4096
	scannerBufferSize   = 1 << 20 // 1 MB
)

// internPool avoids duplicate string allocations for repeated values
// (attribute ids, datatypes).
type internPool struct {
	m map[string]string
}

func newInternPool() *internPool {
	return &internPool{m: make(map[string]string, 64)}
}

func (p *internPool) get(s string) string {
	if v, ok := p.m[s]; ok {
		return v
	}
	p.m[s] = s
	return s
}

// ParseError reports a malformed line in a snapshot file.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

type parser struct {
	scanner *bufio.Scanner
	pool    *internPool
	line    int
}

func (p *parser) scan() bool {
	if !p.scanner.Scan() {
		return false
	}
	p.line++
	return true
}

func (p *parser) fail(text string, err error) error {
	return &ParseError{Line: p.line, Text: text, Err: err}
}

// ParseOBO parses an OBO-style snapshot from the given reader.
func ParseOBO(r io.Reader) (*Ontology, error) {
	p := &parser{scanner: bufio.NewScanner(r), pool: newInternPool()}
	p.scanner.Buffer(make([]byte, scannerBufferSize), scannerBufferSize)

	ont := &Ontology{
		Terms: make([]Term, 0, initialTermCapacity),
	}

	stanza := ""
	for stanza == "" && p.scan() {
		line := strings.TrimSpace(p.scanner.Text())
		if line == "" || line[0] == '!' {
			continue
		}
		if line[0] == '[' {
			stanza = line
			break
		}
		parseHeaderLine(ont, line)
	}

	for stanza != "" {
		var next string
		var err error
		switch stanza {
		case "[Term]":
			var t Term
			t, next, err = p.parseTerm()
			if err != nil {
				return nil, err
			}
			ont.Terms = append(ont.Terms, t)
		case "[Typedef]":
			var td TypeDef
			td, next, err = p.parseTypeDef()
			if err != nil {
				return nil, err
			}
			ont.TypeDefs = append(ont.TypeDefs, td)
		default:
			// Skip other stanza types
			next = p.skipStanza()
		}
		stanza = next
	}

	return ont, p.scanner.Err()
}

func parseHeaderLine(ont *Ontology, line string) {
	key, val, ok := strings.Cut(line, ": ")
	if !ok {
		return
	}
	switch key {
	case "format-version":
		ont.FormatVersion = val
	case "data-version":
		ont.DataVersion = val
	case "ontology":
		ont.Ontology = val
	}
}

// stanzaLines yields key/value pairs until the next stanza header, which is
// returned as next ("" at end of input).
func (p *parser) stanzaLines(fn func(key, val, raw string) error) (next string, err error) {
	for p.scan() {
		raw := p.scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" || line[0] == '!' {
			continue
		}
		if line[0] == '[' {
			return line, nil
		}
		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		if err := fn(key, stripComment(val), raw); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (p *parser) skipStanza() string {
	next, _ := p.stanzaLines(func(string, string, string) error { return nil })
	return next
}

func (p *parser) parseTerm() (Term, string, error) {
	var t Term
	next, err := p.stanzaLines(func(key, val, raw string) error {
		switch key {
		case "id":
			t.ID = val
		case "name":
			t.Name = val
		case "is_a":
			t.IsA = append(t.IsA, val)
		case "is_obsolete":
			t.IsObsolete = val == "true"
		case "is_exhaustive":
			t.IsExhaustive = val == "true"
		case "relationship":
			rel, err := parseRelationship(val, p.pool)
			if err != nil {
				return p.fail(raw, err)
			}
			t.Relationships = append(t.Relationships, rel)
		case "property_value":
			pv, err := parsePropertyValue(val, p.pool)
			if err != nil {
				return p.fail(raw, err)
			}
			t.PropertyValues = append(t.PropertyValues, pv)
		}
		return nil
	})
	return t, next, err
}

// parseTypeDef parses a [Typedef] stanza.
func (p *parser) parseTypeDef() (TypeDef, string, error) {
	var td TypeDef
	next, err := p.stanzaLines(func(key, val, raw string) error {
		switch key {
		case "id":
			td.ID = p.pool.get(val)
		case "name":
			td.Name = val
		case "is_a":
			td.IsA = append(td.IsA, p.pool.get(val))
		case "holds_over_chain":
			parts := strings.Fields(val)
			if len(parts) != 2 {
				return p.fail(raw, fmt.Errorf("holds_over_chain needs two attribute ids, got %d", len(parts)))
			}
			td.HoldsOverChain = append(td.HoldsOverChain, ChainLink{
				Source:      p.pool.get(parts[0]),
				Destination: p.pool.get(parts[1]),
			})
		}
		return nil
	})
	return td, next, err
}

// stripComment removes a trailing "! name" comment outside quotes and qualifiers.
func stripComment(s string) string {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '!':
			if !inQuote && i > 0 && s[i-1] == ' ' {
				return strings.TrimSpace(s[:i])
			}
		}
	}
	return s
}

// splitQualifiers separates the trailing {k="v", ...} block from a tag value.
func splitQualifiers(s string) (string, map[string]string, error) {
	open := strings.LastIndexByte(s, '{')
	if open < 0 || !strings.HasSuffix(s, "}") {
		return strings.TrimSpace(s), nil, nil
	}
	body := s[open+1 : len(s)-1]
	q := make(map[string]string, 4)
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return "", nil, fmt.Errorf("malformed qualifier %q", part)
		}
		uq, err := strconv.Unquote(strings.TrimSpace(v))
		if err != nil {
			return "", nil, fmt.Errorf("qualifier %s: value must be quoted", k)
		}
		q[strings.TrimSpace(k)] = uq
	}
	return strings.TrimSpace(s[:open]), q, nil
}

type qualifiers map[string]string

func (q qualifiers) int(key string) (int, error) {
	v, ok := q[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("qualifier %s: %q is not a non-negative integer", key, v)
	}
	return n, nil
}

func (q qualifiers) int64(key string) (int64, error) {
	v, ok := q[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("qualifier %s: %q is not an integer", key, v)
	}
	return n, nil
}

func (q qualifiers) bool(key string) (bool, error) {
	v, ok := q[key]
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("qualifier %s: %q is not a boolean", key, v)
	}
	return b, nil
}

func (q qualifiers) characteristic() (Characteristic, error) {
	switch v := q["characteristic"]; v {
	case "", string(Stated):
		return Stated, nil
	case string(Inferred):
		return Inferred, nil
	default:
		return "", fmt.Errorf("unknown characteristic %q", v)
	}
}

// parseRelationship parses: "type target {group="1", union_group="0", ...}"
func parseRelationship(val string, pool *internPool) (Relationship, error) {
	var rel Relationship
	head, q, err := splitQualifiers(val)
	if err != nil {
		return rel, err
	}
	parts := strings.Fields(head)
	if len(parts) != 2 {
		return rel, fmt.Errorf("relationship needs type and target, got %d fields", len(parts))
	}
	rel.Type = pool.get(parts[0])
	rel.TargetID = parts[1]

	qs := qualifiers(q)
	if rel.Group, err = qs.int("group"); err != nil {
		return rel, err
	}
	if rel.UnionGroup, err = qs.int("union_group"); err != nil {
		return rel, err
	}
	if rel.Universal, err = qs.bool("universal"); err != nil {
		return rel, err
	}
	if rel.Negated, err = qs.bool("negated"); err != nil {
		return rel, err
	}
	if rel.Released, err = qs.bool("released"); err != nil {
		return rel, err
	}
	if rel.StatementID, err = qs.int64("statement_id"); err != nil {
		return rel, err
	}
	rel.Characteristic, err = qs.characteristic()
	return rel, err
}

// parsePropertyValue parses: "type \"value\" xsd:type {group="0", ...}"
func parsePropertyValue(val string, pool *internPool) (PropertyValue, error) {
	var pv PropertyValue
	head, q, err := splitQualifiers(val)
	if err != nil {
		return pv, err
	}
	typ, rest, ok := strings.Cut(head, " ")
	if !ok {
		return pv, fmt.Errorf("property_value needs type, value and datatype")
	}
	pv.Type = pool.get(typ)
	rest = strings.TrimSpace(rest)

	if strings.HasPrefix(rest, "\"") {
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return pv, fmt.Errorf("unterminated quoted value")
		}
		pv.Value = rest[1 : end+1]
		rest = strings.TrimSpace(rest[end+2:])
	} else {
		pv.Value, rest, _ = strings.Cut(rest, " ")
	}
	if rest == "" {
		return pv, fmt.Errorf("property_value %s: missing datatype", pv.Type)
	}
	pv.DataType = pool.get(rest)

	qs := qualifiers(q)
	if pv.Group, err = qs.int("group"); err != nil {
		return pv, err
	}
	if pv.Released, err = qs.bool("released"); err != nil {
		return pv, err
	}
	if pv.StatementID, err = qs.int64("statement_id"); err != nil {
		return pv, err
	}
	if pv.Statement, err = qs.int64("statement"); err != nil {
		return pv, err
	}
	pv.Characteristic, err = qs.characteristic()
	return pv, err
}
