package layout

import (
	"reflect"
	"testing"
)

const dashboardRow = `<html><body><div class="lang"><div>Turkish</div>` +
	`<div><span>87%</span><span>/</span><span>90%</span></div><div>42</div></div></body></html>`

func TestFingerprint_IgnoresText(t *testing.T) {
	other := `<html><body><div class="other"><div>Türkçe</div>` +
		`<div><span>100%</span><span>-</span><span>100%</span></div><div>0</div></div></body></html>`

	if a, b := Fingerprint(dashboardRow), Fingerprint(other); a != b {
		t.Errorf("same structure, different text: distance %d", Distance(a, b))
	}
}

func TestFingerprint_IgnoresScripts(t *testing.T) {
	withScript := `<html><body><script>document.write("<div><div></div></div>")</script>` +
		`<div class="lang"><div>Turkish</div><div><span>87%</span><span>/</span><span>90%</span></div><div>42</div></div></body></html>`

	if a, b := Fingerprint(dashboardRow), Fingerprint(withScript); a != b {
		t.Errorf("script content changed the fingerprint: distance %d", Distance(a, b))
	}
}

func TestFingerprint_DetectsRestructure(t *testing.T) {
	table := `<html><body><table><tr><td>Turkish</td><td>87%</td><td>90%</td><td>42</td></tr></table></body></html>`

	if d := Distance(Fingerprint(dashboardRow), Fingerprint(table)); d < 3 {
		t.Errorf("restructured page should drift, got distance %d", d)
	}
}

func TestFingerprint_DepthMatters(t *testing.T) {
	nested := `<div><p></p></div>`
	flat := `<div></div><p></p>`

	if Fingerprint(nested) == Fingerprint(flat) {
		t.Error("moving a node up a level should change the fingerprint")
	}
}

func TestFingerprint_Empty(t *testing.T) {
	if fp := Fingerprint(""); fp != 0 {
		t.Errorf("empty input should produce 0, got %016x", fp)
	}
	if fp := Fingerprint("plain text only"); fp != 0 {
		t.Errorf("text without tags should produce 0, got %016x", fp)
	}
}

func TestStructure(t *testing.T) {
	got := structure(`<html><body><div><br><p>x</p><img/></div><style>p{}</style></body></html>`)
	want := []string{"1:html", "2:body", "3:div", "4:br", "4:p", "4:img"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("structure() = %v, want %v", got, want)
	}
}

func TestFormatParse(t *testing.T) {
	fp := Fingerprint(dashboardRow)

	got, err := Parse(Format(fp))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != fp {
		t.Errorf("Parse(Format(%x)) = %x", fp, got)
	}

	if _, err := Parse("0x" + Format(fp)); err != nil {
		t.Errorf("0x prefix should be accepted: %v", err)
	}
	if _, err := Parse("not-hex"); err == nil {
		t.Error("expected error for non-hex input")
	}
}
