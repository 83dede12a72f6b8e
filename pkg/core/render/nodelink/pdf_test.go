package nodelink

import (
	"context"
	"testing"

	"github.com/matzehuels/docmap/pkg/errors"
)

func TestSVGToPDFMissingConverter(t *testing.T) {
	prev := rsvgConvert
	rsvgConvert = "docmap-no-such-converter"
	t.Cleanup(func() { rsvgConvert = prev })

	_, err := svgToPDF(context.Background(), []byte("<svg/>"))
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}
