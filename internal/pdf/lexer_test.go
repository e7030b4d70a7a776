package pdf

import (
	"bytes"
	"testing"
)

func TestParseOps(t *testing.T) {
	data := []byte("q 1 0 0 1 10 20 cm\nBT /F1 12 Tf (a\\)b) Tj [<0041> -120 (c)] TJ ET Q\n" +
		"BI /W 2 /H 2 ID \x00\x01EI\x02 EI Q % trailing comment\n")

	ops, err := parseOps(data)
	if err != nil {
		t.Fatalf("parseOps() error = %v", err)
	}

	wantNames := []string{"q", "cm", "BT", "Tf", "Tj", "TJ", "ET", "Q", "BI", "Q"}
	if len(ops) != len(wantNames) {
		t.Fatalf("got %d ops, want %d", len(ops), len(wantNames))
	}
	for i, name := range wantNames {
		if ops[i].name != name {
			t.Errorf("op %d = %q, want %q", i, ops[i].name, name)
		}
	}

	t.Run("spans cover operands", func(t *testing.T) {
		if got := string(data[ops[1].start:ops[1].end]); got != "1 0 0 1 10 20 cm" {
			t.Errorf("cm span = %q", got)
		}
		if got := string(data[ops[3].start:ops[3].end]); got != "/F1 12 Tf" {
			t.Errorf("Tf span = %q", got)
		}
	})

	t.Run("string escapes", func(t *testing.T) {
		if got := string(ops[4].args[0].str); got != "a)b" {
			t.Errorf("Tj string = %q, want %q", got, "a)b")
		}
	})

	t.Run("TJ array", func(t *testing.T) {
		items := ops[5].args[0].items
		if len(items) != 3 {
			t.Fatalf("TJ items = %d, want 3", len(items))
		}
		if !items[0].hex || string(items[0].str) != "\x00A" {
			t.Errorf("hex item = %q", items[0].str)
		}
		if items[1].num != -120 {
			t.Errorf("adjustment = %v, want -120", items[1].num)
		}
	})

	t.Run("inline image is one operator", func(t *testing.T) {
		span := string(data[ops[8].start:ops[8].end])
		if span[:2] != "BI" || span[len(span)-2:] != "EI" {
			t.Errorf("inline image span = %q", span)
		}
	})
}

func TestParseOpsErrors(t *testing.T) {
	inputs := []string{
		"BT (unterminated Tj",
		"BT <414 Tj",
		"BI /W 2 ID data without end",
	}
	for _, in := range inputs {
		if _, err := parseOps([]byte(in)); err == nil {
			t.Errorf("parseOps(%q) expected error", in)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		12:        "12",
		1.5:       "1.5",
		-1779:     "-1779",
		0.00001:   "0",
		-0.00001:  "0",
		21.348001: "21.348",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteOperandRoundTrip(t *testing.T) {
	in := operand{kind: kindArray, items: []operand{
		{kind: kindString, str: []byte("a(b)\\c\n")},
		number(-250),
		{kind: kindString, str: []byte{0, 0x41}, hex: true},
		nameOperand("F 1"),
	}}

	var b bytes.Buffer
	writeOp(&b, "TJ", in)

	ops, err := parseOps(b.Bytes())
	if err != nil {
		t.Fatalf("parseOps() error = %v", err)
	}
	if len(ops) != 1 || ops[0].name != "TJ" {
		t.Fatalf("unexpected ops %+v", ops)
	}
	items := ops[0].args[0].items
	if string(items[0].str) != "a(b)\\c\n" {
		t.Errorf("literal = %q", items[0].str)
	}
	if items[1].num != -250 {
		t.Errorf("number = %v", items[1].num)
	}
	if string(items[2].str) != "\x00A" {
		t.Errorf("hex = %q", items[2].str)
	}
	if items[3].name() != "F 1" {
		t.Errorf("name = %q", items[3].name())
	}
}
