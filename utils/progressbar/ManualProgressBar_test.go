package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestManualProgressBar(t *testing.T) {
	var buf bytes.Buffer
	p := NewManualProgressBar(&buf, "train", 4, 2)

	if have := p.String(); have != "train |    | [0.00%]" {
		t.Errorf("\n\twant(%q)\n\thave(%q)", "train |    | [0.00%]", have)
	}

	p.Increment()
	if have := p.String(); have != "train |██  | [50.00%]" {
		t.Errorf("\n\twant(%q)\n\thave(%q)", "train |██  | [50.00%]", have)
	}

	p.Increment()
	p.Increment()
	if !p.Done() {
		t.Error("progress bar should be done")
	}
	p.Display()
	if !strings.Contains(buf.String(), "[100.00%]") {
		t.Errorf("display should print the full bar, have %q", buf.String())
	}
}
