package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestNew_AutoDimension(t *testing.T) {
	initOnce.Do(func() {})
	functionName = "backup-lambda"
	defer func() { functionName = "" }()

	r := New(Namespace)
	if r.namespace != Namespace {
		t.Errorf("expected namespace %s, got %s", Namespace, r.namespace)
	}
	if r.dimensions["FunctionName"] != "backup-lambda" {
		t.Errorf("expected FunctionName dimension, got %q", r.dimensions["FunctionName"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	initOnce.Do(func() {})
	functionName = ""

	var buf bytes.Buffer
	New(Namespace).
		Output(&buf).
		Dimension("Result", "success").
		Metric("PhotosUploaded", 5, UnitCount).
		Duration("RunDurationMs", 1500*time.Millisecond).
		Property("runId", "abc-123").
		Flush()

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse EMF output: %v\nOutput: %s", err, buf.String())
	}

	awsMap, ok := doc["_aws"].(map[string]any)
	if !ok {
		t.Fatal("missing _aws directive")
	}
	if _, ok := awsMap["Timestamp"]; !ok {
		t.Error("missing Timestamp")
	}
	cwArr, ok := awsMap["CloudWatchMetrics"].([]any)
	if !ok || len(cwArr) != 1 {
		t.Fatal("CloudWatchMetrics should have one entry")
	}
	cw := cwArr[0].(map[string]any)
	if cw["Namespace"] != Namespace {
		t.Errorf("unexpected namespace %v", cw["Namespace"])
	}
	if metrics := cw["Metrics"].([]any); len(metrics) != 2 {
		t.Errorf("expected 2 metric definitions, got %d", len(metrics))
	}

	if doc["Result"] != "success" {
		t.Errorf("expected Result dimension value, got %v", doc["Result"])
	}
	if doc["PhotosUploaded"] != float64(5) {
		t.Errorf("expected PhotosUploaded=5, got %v", doc["PhotosUploaded"])
	}
	if doc["RunDurationMs"] != float64(1500) {
		t.Errorf("expected RunDurationMs=1500, got %v", doc["RunDurationMs"])
	}
	if doc["runId"] != "abc-123" {
		t.Errorf("expected runId property, got %v", doc["runId"])
	}
}

func TestRecorder_FlushWithoutMetrics(t *testing.T) {
	var buf bytes.Buffer
	New(Namespace).Output(&buf).Dimension("Result", "success").Flush()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
