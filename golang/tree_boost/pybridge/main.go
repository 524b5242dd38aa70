// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/tarstars/gradient_tree_boosting/golang/tree_boost/gtb"
	"gonum.org/v1/gonum/mat"
)

var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	results           = make(map[uint64][]gtb.IterationRecord)

	monitorMu       sync.Mutex
	pendingMonitors []gtb.Dataset

	lastErrorMu sync.Mutex
	lastError   string

	progress bridgeReporter
)

//bridgeReporter exposes the progress of the running training to other host threads.
type bridgeReporter struct {
	fits       int64
	iterations int64
}

func (r *bridgeReporter) ReportProgress()         { atomic.AddInt64(&r.fits, 1) }
func (r *bridgeReporter) IncrCounter(delta int64) { atomic.AddInt64(&r.iterations, delta) }

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastError
}

func storeResult(records []gtb.IterationRecord) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	results[handle] = records
	nextHandle++
	return handle
}

func fetchRecord(handle C.ulonglong, index C.int) (gtb.IterationRecord, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	records, ok := results[uint64(handle)]
	if !ok {
		return gtb.IterationRecord{}, errors.New("invalid result handle")
	}
	if index < 0 || int(index) >= len(records) {
		return gtb.IterationRecord{}, errors.New("iteration index out of range")
	}
	return records[index], nil
}

func fetchRecords(handle C.ulonglong) ([]gtb.IterationRecord, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	records, ok := results[uint64(handle)]
	if !ok {
		return nil, errors.New("invalid result handle")
	}
	return records, nil
}

//export FreeResult
func FreeResult(handle C.ulonglong) {
	handleMu.Lock()
	defer handleMu.Unlock()
	delete(results, uint64(handle))
}

func copyFloatSlice(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, errors.New("null pointer for non-empty slice")
	}
	src := unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length)
	dst := make([]float64, length)
	copy(dst, src)
	return dst, nil
}

func copyLabels(ptr *C.longlong, length int) ([]int, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if ptr == nil {
		return nil, errors.New("null pointer for labels")
	}
	src := unsafe.Slice((*int64)(unsafe.Pointer(ptr)), length)
	labels := make([]int, length)
	for ind, label := range src {
		labels[ind] = int(label)
	}
	return labels, nil
}

func sliceFromPtr(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, errors.New("null pointer for non-empty slice")
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length), nil
}

func buildDataset(featuresPtr *C.double, rows, cols C.int, labelsPtr *C.longlong) (gtb.Dataset, error) {
	r, c := int(rows), int(cols)
	if r <= 0 || c <= 0 {
		return gtb.Dataset{}, errors.New("invalid matrix dimensions")
	}
	data, err := copyFloatSlice(featuresPtr, r*c)
	if err != nil {
		return gtb.Dataset{}, err
	}
	labels, err := copyLabels(labelsPtr, r)
	if err != nil {
		return gtb.Dataset{}, err
	}
	return gtb.Dataset{Matrix: gtb.NewDenseMatrix(mat.NewDense(r, c, data)), Labels: labels}, nil
}

//export RegisterLearningCurveDataset
func RegisterLearningCurveDataset(featuresPtr *C.double, rows, cols C.int, labelsPtr *C.longlong, desc *C.char) C.int {
	setLastError(nil)
	dataset, err := buildDataset(featuresPtr, rows, cols, labelsPtr)
	if err != nil {
		setLastError(err)
		return 1
	}
	if desc != nil {
		dataset.SetDescription(C.GoString(desc))
	}

	monitorMu.Lock()
	defer monitorMu.Unlock()
	pendingMonitors = append(pendingMonitors, dataset)
	return 0
}

func train(dataset gtb.Dataset, options *C.char) C.ulonglong {
	rawOptions := ""
	if options != nil {
		rawOptions = C.GoString(options)
	}
	params, err := gtb.ParseOptions(rawOptions)
	if err != nil {
		setLastError(err)
		return 0
	}

	atomic.StoreInt64(&progress.fits, 0)
	atomic.StoreInt64(&progress.iterations, 0)

	monitorMu.Lock()
	monitors := pendingMonitors
	pendingMonitors = nil
	monitorMu.Unlock()

	collector := &gtb.RecordCollector{}
	var emitter gtb.Emitter = collector
	if len(monitors) > 0 {
		emitter = gtb.NewEvaluationEmitter(collector, nil, monitors...)
	}

	err = gtb.TrainBooster(gtb.BoosterParams{
		Matrix:   dataset.Matrix,
		Labels:   dataset.Labels,
		Hyper:    params,
		Emitter:  emitter,
		Reporter: &progress,
	})
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeResult(collector.Records))
}

//export TrainClassifier
func TrainClassifier(featuresPtr *C.double, rows, cols C.int, labelsPtr *C.longlong, options *C.char) C.ulonglong {
	setLastError(nil)
	dataset, err := buildDataset(featuresPtr, rows, cols, labelsPtr)
	if err != nil {
		setLastError(err)
		return 0
	}
	return train(dataset, options)
}

//export TrainClassifierFromFile
func TrainClassifierFromFile(path *C.char, options *C.char) C.ulonglong {
	setLastError(nil)
	dataset, err := gtb.ReadSparseFile(C.GoString(path))
	if err != nil {
		setLastError(err)
		return 0
	}
	return train(dataset, options)
}

//export GetProgress
func GetProgress(fits, iterations *C.longlong) {
	if fits != nil {
		*fits = C.longlong(atomic.LoadInt64(&progress.fits))
	}
	if iterations != nil {
		*iterations = C.longlong(atomic.LoadInt64(&progress.iterations))
	}
}

//export GetIterationCount
func GetIterationCount(handle C.ulonglong) C.int {
	setLastError(nil)
	records, err := fetchRecords(handle)
	if err != nil {
		setLastError(err)
		return -1
	}
	return C.int(len(records))
}

//export GetOOBErrorRate
func GetOOBErrorRate(handle C.ulonglong, index C.int) C.double {
	setLastError(nil)
	record, err := fetchRecord(handle, index)
	if err != nil {
		setLastError(err)
		return -1
	}
	return C.double(record.OOBErrorRate)
}

//export GetIntercept
func GetIntercept(handle C.ulonglong, index C.int) C.double {
	setLastError(nil)
	record, err := fetchRecord(handle, index)
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.double(record.Intercept)
}

//export GetImportance
func GetImportance(handle C.ulonglong, index C.int, outputPtr *C.double, length C.int) C.int {
	setLastError(nil)
	record, err := fetchRecord(handle, index)
	if err != nil {
		setLastError(err)
		return 1
	}
	if int(length) != record.NumFeatures() {
		setLastError(errors.New("output length differs from the number of features"))
		return 2
	}
	outSlice, err := sliceFromPtr(outputPtr, int(length))
	if err != nil {
		setLastError(err)
		return 3
	}
	copy(outSlice, record.Importance)
	return 0
}

//export GetModelCount
func GetModelCount(handle C.ulonglong, index C.int) C.int {
	setLastError(nil)
	record, err := fetchRecord(handle, index)
	if err != nil {
		setLastError(err)
		return -1
	}
	return C.int(len(record.Models))
}

//GetModel returns the encoded tree, the caller releases it with FreeCString.
//
//export GetModel
func GetModel(handle C.ulonglong, index, class C.int) *C.char {
	setLastError(nil)
	record, err := fetchRecord(handle, index)
	if err != nil {
		setLastError(err)
		return nil
	}
	if class < 0 || int(class) >= len(record.Models) {
		setLastError(errors.New("class index out of range"))
		return nil
	}
	return C.CString(string(record.Models[class]))
}

//export SaveResult
func SaveResult(handle C.ulonglong, path *C.char) C.int {
	setLastError(nil)
	records, err := fetchRecords(handle)
	if err != nil {
		setLastError(err)
		return 1
	}
	if err := gtb.SaveRecords(C.GoString(path), records); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export LoadResult
func LoadResult(path *C.char) C.ulonglong {
	setLastError(nil)
	records, err := gtb.LoadRecords(C.GoString(path))
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeResult(records))
}

//export DumpLearningCurve
func DumpLearningCurve(handle C.ulonglong, path *C.char) C.int {
	setLastError(nil)
	records, err := fetchRecords(handle)
	if err != nil {
		setLastError(err)
		return 1
	}
	if err := gtb.DumpLearningCurve(C.GoString(path), records); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export DumpImportance
func DumpImportance(handle C.ulonglong, path *C.char) C.int {
	setLastError(nil)
	records, err := fetchRecords(handle)
	if err != nil {
		setLastError(err)
		return 1
	}
	if err := gtb.DumpImportance(C.GoString(path), records); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export GetLastError
func GetLastError() *C.char {
	errStr := getLastError()
	if errStr == "" {
		return nil
	}
	return C.CString(errStr)
}

//export FreeCString
func FreeCString(str *C.char) {
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

func main() {}
