package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"staffing-estimator/errors"
)

// Canonical field names.
const (
	FieldDate             = "date"
	FieldItems            = "items"
	FieldStatus           = "status"
	FieldSlotFrom         = "slot_from"
	FieldOperationalModel = "operational_model"
	FieldPicker           = "picker"
	FieldOnTime           = "ontime"
	FieldPickingStart     = "actual_inicio_picking"
	FieldPickingEnd       = "actual_fin_picking"
)

// RequiredFields must resolve to a column or Normalize fails.
var RequiredFields = []string{FieldDate, FieldItems, FieldStatus, FieldSlotFrom, FieldOperationalModel}

// OptionalFields are resolved when present.
var OptionalFields = []string{FieldPicker, FieldOnTime, FieldPickingStart, FieldPickingEnd}

// Aliases maps a canonical field to the header strings accepted for it.
type Aliases map[string][]string

// DefaultAliases covers the Spanish, Portuguese and English exports.
func DefaultAliases() Aliases {
	return Aliases{
		FieldDate:             {"Fecha", "fecha_pedido", "Data", "Date", "Dia", "Día"},
		FieldItems:            {"items", "Ítems", "cantidad_items", "cantidad", "itens", "quantidade", "qty", "quantity"},
		FieldStatus:           {"estado", "status", "situacao", "situação", "state"},
		FieldSlotFrom:         {"slot_from", "slot", "hora", "hour", "horario", "horário"},
		FieldOperationalModel: {"operational_model", "modelo_operacional", "modelo operacional", "modelo", "model"},
		FieldPicker:           {"picker", "picker_id", "separador", "preparador", "operario"},
		FieldOnTime:           {"ontime", "on_time", "a_tiempo", "no_prazo", "en_tiempo"},
		FieldPickingStart:     {"actual_inicio_picking", "inicio_picking", "picking_start", "inicio_separacao", "início separação"},
		FieldPickingEnd:       {"actual_fin_picking", "fin_picking", "picking_end", "fim_separacao", "fim separação"},
	}
}

// ColumnMap maps a canonical field to its column index.
type ColumnMap map[string]int

// Has reports whether field was resolved.
func (m ColumnMap) Has(field string) bool {
	_, ok := m[field]
	return ok
}

// Get returns the trimmed value of field in rec, or "" when the field is
// unresolved or the record is short.
func (m ColumnMap) Get(rec []string, field string) string {
	pos, ok := m[field]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

// ResolveColumns matches header cells against aliases. The canonical name
// itself is always accepted. Every required field that cannot be matched is
// reported in a single MissingColumnError.
func ResolveColumns(header []string, aliases Aliases) (ColumnMap, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	cols := ColumnMap{}
	resolve := func(field string) {
		candidates := append([]string{field}, aliases[field]...)
		for _, name := range candidates {
			if pos, ok := index[normalizeHeader(name)]; ok {
				cols[field] = pos
				return
			}
		}
	}

	var missing []string
	for _, field := range RequiredFields {
		resolve(field)
		if !cols.Has(field) {
			missing = append(missing, field)
		}
	}
	for _, field := range OptionalFields {
		resolve(field)
	}

	if len(missing) > 0 {
		return nil, &errors.MissingColumnError{Fields: missing}
	}
	return cols, nil
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// normalizeHeader folds case, diacritics and separators so that
// "Situação", "SITUACAO" and "situacao " compare equal.
func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	h = strings.ToLower(strings.TrimSpace(h))
	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	if folded, _, err := transform.String(t, h); err == nil {
		h = folded
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.':
			return '_'
		}
		return r
	}, h)
}
