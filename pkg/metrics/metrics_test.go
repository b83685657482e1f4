package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSessionTransitionsCounter(t *testing.T) {
	before := testutil.ToFloat64(SessionTransitions.WithLabelValues("pending", "completed"))
	SessionTransitions.WithLabelValues("pending", "completed").Inc()
	after := testutil.ToFloat64(SessionTransitions.WithLabelValues("pending", "completed"))

	if after-before != 1 {
		t.Errorf("期望计数增加 1，实际增加 %v", after-before)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	AssignmentValidations.WithLabelValues(ResultValid).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mentor_hub_assignment_validations_total") {
		t.Error("输出中缺少 assignment_validations 指标")
	}
}
