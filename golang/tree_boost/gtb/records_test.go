package gtb

import (
	"bytes"
	"path"
	"reflect"
	"testing"
)

func trainedRecords(t *testing.T) []IterationRecord {
	x, labels := separableData(40, 3, 17)
	collector := &RecordCollector{}
	if err := TrainBooster(BoosterParams{Matrix: x, Labels: labels, Hyper: testHyperParams(4), Emitter: collector}); err != nil {
		t.Fatal(err)
	}
	return collector.Records
}

func TestRecordsRoundTrip(t *testing.T) {
	records := trainedRecords(t)
	var buf bytes.Buffer
	if err := WriteRecords(&buf, records); err != nil {
		t.Fatal(err)
	}
	restored, err := ReadRecords(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(restored, records) {
		t.Fatalf("restored records differ")
	}

	fileName := path.Join(t.TempDir(), "records.json")
	if err := SaveRecords(fileName, records); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadRecords(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, records) {
		t.Fatalf("loaded records differ")
	}
	if _, err := loaded[0].Trees(); err != nil {
		t.Fatal(err)
	}
}

func TestDumpLearningCurveAndImportance(t *testing.T) {
	records := trainedRecords(t)
	dir := t.TempDir()

	curveFile := path.Join(dir, "curve.npy")
	if err := DumpLearningCurve(curveFile, records); err != nil {
		t.Fatal(err)
	}
	curve, err := ReadNpy(curveFile)
	if err != nil {
		t.Fatal(err)
	}
	if h, w := curve.Dims(); h != len(records) || w != 1 {
		t.Fatalf("unexpected curve shape %dx%d", h, w)
	}
	for ind, record := range records {
		if curve.At(ind, 0) != float64(record.OOBErrorRate) {
			t.Fatalf("iteration %d: %v != %v", record.Iteration, curve.At(ind, 0), record.OOBErrorRate)
		}
	}

	importanceFile := path.Join(dir, "importance.npy")
	if err := DumpImportance(importanceFile, records); err != nil {
		t.Fatal(err)
	}
	importance, err := ReadNpy(importanceFile)
	if err != nil {
		t.Fatal(err)
	}
	if h, w := importance.Dims(); h != len(records) || w != 3 {
		t.Fatalf("unexpected importance shape %dx%d", h, w)
	}

	if err := DumpLearningCurve(curveFile, nil); err == nil {
		t.Fatalf("expected an error without records")
	}
}
