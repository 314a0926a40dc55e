package skills

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSkill(t *testing.T, dir, name, prompt string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, FileName), []byte(prompt), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDiscover(t *testing.T) {
	global := t.TempDir()
	project := t.TempDir()

	writeSkill(t, global, "deploy", "Deploy globally\nsteps")
	writeSkill(t, global, "review", "\n\n  Review code carefully\n")
	writeSkill(t, project, "deploy", "Deploy the project way")
	if err := os.MkdirAll(filepath.Join(project, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, "stray.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	set := Discover(global, project, filepath.Join(project, "missing"), "")

	if got := strings.Join(set.Names(), ","); got != "deploy,review" {
		t.Fatalf("Names() = %q", got)
	}
	if set["deploy"].Prompt != "Deploy the project way" {
		t.Errorf("project skill should override global, got %q", set["deploy"].Prompt)
	}
	if set["deploy"].Dir != filepath.Join(project, "deploy") {
		t.Errorf("unexpected dir %q", set["deploy"].Dir)
	}
	if got := set["review"].Summary(); got != "Review code carefully" {
		t.Errorf("Summary() = %q", got)
	}
}

func TestLookup(t *testing.T) {
	set := Set{"a": {Name: "a"}, "b": {Name: "b"}}

	if sk, err := set.Lookup("a"); err != nil || sk.Name != "a" {
		t.Fatalf("Lookup(a) = %v, %v", sk, err)
	}
	_, err := set.Lookup("zzz")
	if err == nil || err.Error() != "skill 'zzz' not found (available: a, b)" {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = Set{}.Lookup("zzz")
	if err == nil || err.Error() != "skill 'zzz' not found" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInject(t *testing.T) {
	got := Inject("base prompt", &Skill{Name: "deploy", Prompt: "do the deploy"})
	want := "base prompt\n\n# Skill: deploy\ndo the deploy"
	if got != want {
		t.Errorf("Inject() = %q, want %q", got, want)
	}
}
