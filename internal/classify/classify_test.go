package classify

import (
	"errors"
	"testing"
)

func intp(v int) *int { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		protocol    string
		consumption *int
		want        DeviceClass
	}{
		// Electric protocols, regardless of consumption
		{"idm", nil, ClassEnergy},
		{"idm", intp(999999), ClassEnergy},
		{"netidm", intp(10), ClassEnergy},
		{"IDM", nil, ClassEnergy},
		{"NetIDM", intp(200000), ClassEnergy},

		// SCM family splits on the 100000 threshold
		{"scm", intp(150000), ClassWater},
		{"scm", intp(100001), ClassWater},
		{"scm", intp(100000), ClassGas},
		{"scm", intp(50000), ClassGas},
		{"scm", nil, ClassGas},
		{"scm+", intp(150000), ClassWater},
		{"SCM+", intp(1000), ClassGas},

		// R900 family splits on the 50000 threshold
		{"r900", intp(60000), ClassWater},
		{"r900", intp(50000), ClassGas},
		{"r900bcd", intp(60000), ClassWater},
		{"r900bcd", intp(10000), ClassGas},
		{"R900BCD", nil, ClassGas},

		// Unknown or empty protocols default to energy
		{"", nil, ClassEnergy},
		{"unknown", intp(500000), ClassEnergy},
		{"123", intp(100), ClassEnergy},
	}

	for _, tt := range tests {
		t.Run(tt.protocol, func(t *testing.T) {
			got := Classify(tt.protocol, tt.consumption)
			if got != tt.want {
				t.Errorf("Classify(%q, %v) = %v, want %v", tt.protocol, tt.consumption, got, tt.want)
			}
		})
	}
}

func TestDefaultsPerClass(t *testing.T) {
	tests := []struct {
		class      DeviceClass
		wantFormat string
		wantUnit   string
	}{
		{ClassWater, "######.##", "gal"},
		{ClassGas, "######.##", "ft³"},
		{ClassEnergy, "######.###", "kWh"},
		{DeviceClass("other"), "", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			def, err := Defaults("12345", "SCM", tt.class)
			if err != nil {
				t.Fatalf("Defaults: %v", err)
			}
			if def.ID != 12345 {
				t.Errorf("ID = %d, want 12345", def.ID)
			}
			if def.Protocol != "scm" {
				t.Errorf("Protocol = %q, want scm", def.Protocol)
			}
			if def.Name != "meter_12345" {
				t.Errorf("Name = %q, want meter_12345", def.Name)
			}
			if def.StateClass != "total_increasing" {
				t.Errorf("StateClass = %q", def.StateClass)
			}
			if def.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", def.Format, tt.wantFormat)
			}
			if def.Unit != tt.wantUnit {
				t.Errorf("Unit = %q, want %q", def.Unit, tt.wantUnit)
			}
		})
	}
}

func TestDefaultsKeepsRawIDInName(t *testing.T) {
	def, err := Defaults("000123", "r900", ClassWater)
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	if def.ID != 123 {
		t.Errorf("ID = %d, want 123", def.ID)
	}
	if def.Name != "meter_000123" {
		t.Errorf("Name = %q, want meter_000123", def.Name)
	}
}

func TestDefaultsInvalidMeterID(t *testing.T) {
	for _, id := range []string{"", "abc", "12.5", "12abc"} {
		_, err := Defaults(id, "scm", ClassGas)
		if !errors.Is(err, ErrInvalidMeterID) {
			t.Errorf("Defaults(%q) error = %v, want ErrInvalidMeterID", id, err)
		}
	}
}

func TestDefinitionMapOmitsUnsetFields(t *testing.T) {
	def, err := Defaults("7", "scm", DeviceClass("other"))
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	m := def.Map()
	if _, ok := m["format"]; ok {
		t.Error("map should omit format for unknown class")
	}
	if _, ok := m["unit_of_measurement"]; ok {
		t.Error("map should omit unit for unknown class")
	}
	if m["device_class"] != "other" {
		t.Errorf("device_class = %v", m["device_class"])
	}
}
