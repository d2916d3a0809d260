// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestValues_OrderedAndComplete(t *testing.T) {
	t.Parallel()

	all := Values()
	if len(all) != int(SandboxFailedId) {
		t.Fatalf("Values() returned %d issues, want %d", len(all), SandboxFailedId)
	}
	for i, iss := range all {
		if iss.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, iss.Id(), i+1)
		}
		if strings.TrimSpace(string(iss.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", iss.Id())
		}
		if Get(iss.Id()) != iss {
			t.Errorf("Get(%d) does not return the catalog entry", iss.Id())
		}
	}
}

func TestIssue_LinksAreCopies(t *testing.T) {
	t.Parallel()

	iss := Get(PackageNotFoundId)
	links := iss.ExtLinks()
	if len(links) == 0 {
		t.Fatal("ExtLinks() is empty")
	}
	links[0] = "mutated"
	if iss.ExtLinks()[0] == "mutated" {
		t.Error("ExtLinks() exposes internal state")
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	out, err := Get(ToolMissingId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "Required tool not found") {
		t.Errorf("Render() output missing heading:\n%s", out)
	}
	if !strings.Contains(out, "qemu-user-static") {
		t.Errorf("Render() output missing install hint:\n%s", out)
	}
}

func TestGet_Unknown(t *testing.T) {
	t.Parallel()

	if Get(0) != nil || Get(SandboxFailedId+1) != nil {
		t.Error("Get() returned an entry for an unknown id")
	}
}
