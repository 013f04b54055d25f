package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNewRowData(t *testing.T) {
	got := NewRowData([]string{"versorgungsbereich", "alter", "geschlecht"}, []string{"Nord", "0"})
	want := RowData{{"versorgungsbereich", "Nord"}, {"alter", "0"}, {"geschlecht", ""}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewRowData() = %v, want %v", got, want)
	}

	long := NewRowData([]string{"a"}, []string{"1", "2"})
	if len(long) != 1 || long.Get("a") != "1" {
		t.Errorf("NewRowData() with extra cells = %v", long)
	}
	if long.Get("missing") != "" {
		t.Errorf("Get(missing) = %q, want empty", long.Get("missing"))
	}
}

func TestRowData_JSONKeepsColumnOrder(t *testing.T) {
	row := RowData{{"versorgungsbereich", "Süd <Ost>"}, {"alter", "0"}, {"geschlecht", "M"}}

	data, err := row.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if want := `{"versorgungsbereich":"Süd <Ost>","alter":"0","geschlecht":"M"}`; string(data) != want {
		t.Errorf("MarshalJSON() = %s, want %s", data, want)
	}

	var back RowData
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(back, row) {
		t.Errorf("Unmarshal() = %v, want %v", back, row)
	}

	empty, err := RowData(nil).MarshalJSON()
	if err != nil || string(empty) != "{}" {
		t.Errorf("MarshalJSON(nil) = %s, %v, want {}", empty, err)
	}
}

func TestRowData_UnmarshalRejectsNonObject(t *testing.T) {
	var row RowData
	if err := json.Unmarshal([]byte(`["a"]`), &row); err == nil {
		t.Error("Unmarshal(array) should fail")
	}
	if err := json.Unmarshal([]byte(`null`), &row); err != nil || row != nil {
		t.Errorf("Unmarshal(null) = %v, %v", row, err)
	}
}
