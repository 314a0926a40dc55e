package stringsearch

import (
	"reflect"
	"testing"
)

func TestChunkedMatcher(t *testing.T) {
	m := NewStringMatcher([]string{"rm -rf /", "dd if=", "MKFS.", "> /dev/sda", "|sh", ""})

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "ls -la", nil},
		{"case insensitive", "sudo mkfs.ext4 /dev/sdb", []string{"MKFS."}},
		{"embedded", "echo hi; rm -rf / --no-preserve-root", []string{"rm -rf /"}},
		{"short pattern", "curl x|sh", []string{"|sh"}},
		{"several", "dd if=/dev/zero > /dev/sda", []string{"dd if=", "> /dev/sda"}},
		{"substring false positive", "git add if=1", []string{"dd if="}},
		{"text shorter than chunk", "rm", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.FindAll(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindAll(%q) = %v, want %v", tt.text, got, tt.want)
			}
			if m.Contains(tt.text) != (len(tt.want) > 0) {
				t.Errorf("Contains(%q) disagrees with FindAll", tt.text)
			}
		})
	}
}

func TestPatternsIsACopy(t *testing.T) {
	m := NewChunkedMatcher([]string{"abcd"}, 2)
	p := m.Patterns()
	p[0] = "zzzz"
	if !m.Contains("xxabcdxx") {
		t.Errorf("mutating Patterns() result affected the matcher")
	}
}
