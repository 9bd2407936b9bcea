package retrieval

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// the genai client links opencensus, which starts its view worker at init
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}
