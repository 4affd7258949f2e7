package validate

import "testing"

func TestIsCPF(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"529.982.247-25", true},
		{"52998224725", true},
		{"529.982.247-26", false}, // wrong second check digit
		{"111.111.111-11", false}, // repeated digits
		{"000.000.000-00", false},
		{"529.982.247", false}, // too short
		{"529.982.247-2x", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsCPF(c.in); got != c.want {
			t.Errorf("IsCPF(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsBRPhone(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"(11) 98765-4321", true},
		{"11987654321", true},
		{"+55 11 98765-4321", true},
		{"1187654321", true}, // 8-digit local number
		{"123", false},
		{"11 98765-432a", false},
	}
	for _, c := range cases {
		if got := IsBRPhone(c.in); got != c.want {
			t.Errorf("IsBRPhone(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
