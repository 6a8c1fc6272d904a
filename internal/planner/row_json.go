package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the row as a flat object: the round number under
// RoundKey followed by one key per creditor, in creditor order.
func (r MonthlyRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"` + RoundKey + `":`)
	fmt.Fprintf(&buf, "%d", r.Round)
	for _, p := range r.Payments {
		name, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		fmt.Fprintf(&buf, ":%d", p.Amount)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the flat object written by MarshalJSON, keeping
// the creditor order of the document.
func (r *MonthlyRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("monthly row: expected object, got %v", tok)
	}

	row := MonthlyRow{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)

		var num json.Number
		if err := dec.Decode(&num); err != nil {
			return fmt.Errorf("monthly row: value for %q: %w", key, err)
		}
		n, err := num.Int64()
		if err != nil {
			return fmt.Errorf("monthly row: value for %q: %w", key, err)
		}

		if key == RoundKey {
			row.Round = int(n)
			continue
		}
		row.Payments = append(row.Payments, Payment{Name: key, Amount: n})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = row
	return nil
}
