package ocr

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "Счёт\r\n№ 1\r", "Счёт\n№ 1"},
		{"tabs and space runs", "Итого:\t\t14   400,00", "Итого: 14 400,00"},
		{"blank line runs", "а\n\n\n\nб", "а\n\nб"},
		{"trailing spaces per line", "Поставщик   \nООО Вектор  ", "Поставщик\nООО Вектор"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
