package orchestrator

import (
	"io"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"covertype/pkg/model"
)

var printer = message.NewPrinter(language.English)

// WriteReport prints the result block of a run:
//
//	Covertype dataset results:
//
//	Accuracy: 0.95
//	F1 Score: 0.95
//	Confusion Matrix:
//	 [[...]]
//	Mean Absolute Error: 0.12
func WriteReport(w io.Writer, title string, m *model.Metrics) error {
	if m == nil {
		return errors.New("report: no metrics")
	}
	lines := []struct {
		format string
		args   []interface{}
	}{
		{"%s dataset results:\n\n", []interface{}{title}},
		{"Accuracy: %.2f\n", []interface{}{m.Accuracy}},
		{"F1 Score: %.2f\n", []interface{}{m.F1}},
		{"Confusion Matrix:\n %s\n", []interface{}{model.FormatConfusion(m.Confusion)}},
		{"Mean Absolute Error: %.2f\n", []interface{}{m.MAE}},
	}
	for _, l := range lines {
		if _, err := printer.Fprintf(w, l.format, l.args...); err != nil {
			return errors.Wrap(err, "report")
		}
	}
	return nil
}

// formatCount renders n with thousands separators, e.g. 581,012.
func formatCount(n int) string { return printer.Sprintf("%d", n) }
