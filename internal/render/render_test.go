package render

import (
	"strings"
	"testing"
	"time"

	"deplog/internal/channel"
)

const testLineTemplate = "{{ICON}} *{{ENV}}  |*  Current branch: *{{BRANCH}}*  |  Deployed by *{{DEPLOYER}}* on {{DEPLOYED}}"

func testRenderer() *Renderer {
	return &Renderer{
		Environments: []string{"staging", "feature", "teammobile"},
		Mainline:     Mainline{Names: []string{"develop"}, Prefixes: []string{"release/"}},
		ActiveIcon:   ":green_apple:",
		DefaultIcon:  ":apple:",
		LineTemplate: testLineTemplate,
		TimeLayout:   "Jan 02,2006 | 15:04",
		Location:     time.UTC,
	}
}

func TestMainline_Matches(t *testing.T) {
	m := Mainline{Names: []string{"develop"}, Prefixes: []string{"release/"}}

	tests := []struct {
		branch string
		want   bool
	}{
		{"develop", true},
		{"release/", true},
		{"release/1.4.0", true},
		{"", false},
		{"develop-2", false},
		{"feature/develop", false},
		{"Release/1.4.0", false},
		{"master", false},
	}

	for _, tt := range tests {
		if got := m.Matches(tt.branch); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.branch, got, tt.want)
		}
	}
}

func TestRender_Example(t *testing.T) {
	record := channel.NewRecord("C0E437QDD", []string{"staging", "feature", "teammobile"})
	record.Update("staging", channel.Slot{Branch: "develop"})

	got := testRenderer().Render(record)

	want := "\n \n" +
		":green_apple: *staging  |*  Current branch: *develop*  |  Deployed by ** on  \n\n" +
		":apple: *feature  |*  Current branch: **  |  Deployed by ** on  \n\n" +
		":apple: *teammobile  |*  Current branch: **  |  Deployed by ** on "
	if got != want {
		t.Errorf("Render() mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRender_FullSlot(t *testing.T) {
	record := channel.NewRecord("C0E437QDD", []string{"staging", "feature", "teammobile"})
	record.Update("feature", channel.Slot{
		Branch:     "feature/login",
		Deployer:   "Ada",
		DeployedAt: time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC),
	})

	got := testRenderer().Render(record)
	wantLine := ":apple: *feature  |*  Current branch: *feature/login*  |  Deployed by *Ada* on Mar 01,2024 | 09:05"
	if !strings.Contains(got, wantLine) {
		t.Errorf("Expected line %q in:\n%s", wantLine, got)
	}
}

func TestRender_Idempotent(t *testing.T) {
	record := channel.NewRecord("C0E437QDD", []string{"staging", "feature", "teammobile"})
	record.Update("teammobile", channel.Slot{Branch: "release/2.0", Deployer: "Grace", DeployedAt: time.Now()})

	r := testRenderer()
	first := r.Render(record)
	second := r.Render(record)
	if first != second {
		t.Errorf("Expected identical renders, got:\n%q\n%q", first, second)
	}
}

func TestRender_FixedOrder(t *testing.T) {
	r := testRenderer()
	r.Environments = []string{"teammobile", "staging"}

	got := r.Render(channel.NewRecord("C0E437QDD", []string{"staging", "teammobile", "feature"}))
	if strings.Contains(got, "feature") {
		t.Error("Expected only configured environments to render")
	}
	if strings.Index(got, "teammobile") > strings.Index(got, "staging") {
		t.Error("Expected configured order to be kept")
	}
}

func TestRender_NilRecord(t *testing.T) {
	got := testRenderer().Render(nil)
	if strings.Count(got, ":apple:") != 3 {
		t.Errorf("Expected three default lines, got:\n%s", got)
	}
}

func TestRender_Header(t *testing.T) {
	r := testRenderer()
	r.Header = "Deployments in <#{{CHANNEL}}>"

	got := r.Render(channel.NewRecord("C0E437QDD", r.Environments))
	if !strings.HasPrefix(got, "\n \nDeployments in <#C0E437QDD> \n\n:apple:") {
		t.Errorf("Unexpected header rendering: %q", got)
	}
}

func TestLine_EscapesMrkdwn(t *testing.T) {
	r := testRenderer()
	r.LineTemplate = "{{BRANCH}} by {{DEPLOYER}} at {{COMMIT}}"

	got := r.Line("staging", channel.Slot{Branch: "fix/<script>", Deployer: "R&D", Commit: "abc1234"})
	want := "fix/&lt;script&gt; by R&amp;D at abc1234"
	if got != want {
		t.Errorf("Line() = %q, want %q", got, want)
	}
}

func TestFormatTime_Location(t *testing.T) {
	r := testRenderer()
	loc := time.FixedZone("CET", 3600)
	r.Location = loc

	got := r.formatTime(time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC))
	if got != "Mar 02,2024 | 00:30" {
		t.Errorf("Expected time in configured zone, got %q", got)
	}
}
