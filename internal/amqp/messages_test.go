package amqp

import "testing"

func TestExportMessageValidate(t *testing.T) {
	cases := []struct {
		name string
		msg  ExportMessage
		ok   bool
	}{
		{"export op", ExportMessage{ID: 1, Op: OpExport}, true},
		{"delete op", ExportMessage{ID: 1, Op: OpDelete}, true},
		{"zero id", ExportMessage{ID: 0, Op: OpExport}, false},
		{"negative id", ExportMessage{ID: -3, Op: OpExport}, false},
		{"unknown op", ExportMessage{ID: 1, Op: "truncate"}, false},
		{"empty op", ExportMessage{ID: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestExportMessageFromJSONRejectsInvalid(t *testing.T) {
	if _, err := ExportMessageFromJSON([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed body")
	}
	if _, err := ExportMessageFromJSON([]byte(`{"id":0,"op":"export"}`)); err == nil {
		t.Fatalf("expected error for invalid message")
	}

	body, err := NewExportMessage(42, OpDelete).ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	msg, err := ExportMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.ID != 42 || msg.Op != OpDelete {
		t.Fatalf("unexpected message %+v", msg)
	}
}
